// Package reward turns a finished encounter into experience, currency and
// treasure grants, or into currency losses when the party failed.
package reward

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/storage"
	"github.com/jwebster45206/encounter-engine/pkg/treasure"
)

// PetChance is the d100 ceiling (exclusive) for the companion bonus.
const PetChance = 45

// Recipient is one actor being paid or penalized.
type Recipient struct {
	Character *actor.Character
	Passive   bool
}

// Grant is one actor's share of a settlement.
type Grant struct {
	ActorID     string          `json:"actor_id"`
	Name        string          `json:"name"`
	XP          int             `json:"xp"`
	Currency    int             `json:"currency"`
	PetXP       int             `json:"pet_xp,omitempty"`
	PetCurrency int             `json:"pet_currency,omitempty"`
	Passive     bool            `json:"passive,omitempty"`
	Treasure    treasure.Bundle `json:"treasure"`
}

// TotalXP includes the companion bonus.
func (g Grant) TotalXP() int { return g.XP + g.PetXP }

// TotalCurrency includes the companion bonus.
func (g Grant) TotalCurrency() int { return g.Currency + g.PetCurrency }

// Settlement is the result of one Distribute call.
type Settlement struct {
	Grants    []Grant         `json:"grants"`
	XP        int             `json:"xp"`
	Currency  int             `json:"currency"`
	Treasure  treasure.Bundle `json:"treasure"`
	Narrative []string        `json:"narrative"`
}

// Loss is one actor's penalty.
type Loss struct {
	ActorID string `json:"actor_id"`
	Name    string `json:"name"`
	// Amount is what was taken from the balance.
	Amount int `json:"amount"`
	// Offset is the part of the loss the companion covered.
	Offset int `json:"offset,omitempty"`
}

// Distributor computes grants and losses. The daily bonus is keyed by the
// weekday the settlement happens on.
type Distributor struct {
	dailyBonus map[time.Weekday]float64
	now        func() time.Time
	printer    *message.Printer
	title      cases.Caser
}

// NewDistributor creates a distributor using the wall clock.
func NewDistributor(dailyBonus map[time.Weekday]float64) *Distributor {
	if dailyBonus == nil {
		dailyBonus = map[time.Weekday]float64{}
	}
	return &Distributor{
		dailyBonus: dailyBonus,
		now:        time.Now,
		printer:    message.NewPrinter(language.English),
		title:      cases.Title(language.English),
	}
}

// WithClock replaces the clock used to pick the daily bonus.
func (d *Distributor) WithClock(now func() time.Time) *Distributor {
	d.now = now
	return d
}

// DailyBonus returns today's bonus multiplier.
func (d *Distributor) DailyBonus() float64 {
	return d.dailyBonus[d.now().Weekday()]
}

// Distribute computes every recipient's grant. modifier raises the xp
// multiplier; hidden encounters add one more to it. Every recipient gets
// bundle, plus a rebirth chest past the first rebirth.
func (d *Distributor) Distribute(src dice.Source, recipients []Recipient, amount int, modifier float64, bundle treasure.Bundle, hidden bool) Settlement {
	daily := d.DailyBonus()
	session := 0.0
	if hidden {
		session = 1
	}
	base := float64(max(1, amount))

	s := Settlement{Treasure: bundle}
	var lines, petLines, names []string
	for _, r := range recipients {
		c := r.Character
		if c == nil {
			continue
		}
		stats := float64(c.TotalStats())
		baseXP := roundHalfEven(0.75 * float64(int(base+base*0.5*float64(c.Rebirths())+max(base*0.1*min(250, stats/50), 0))))
		baseCP := roundHalfEven(0.75 * float64(int(base+max(base*0.1*min(1000, stats/35), 0))))

		mult := c.Multipliers()
		g := Grant{
			ActorID:  c.ID(),
			Name:     c.DisplayName(),
			XP:       int(float64(baseXP) * (mult.XP + daily + session + modifier)),
			Currency: int(float64(baseCP) * (mult.Currency + daily)),
			Passive:  r.Passive,
			Treasure: bundle,
		}
		if r.Passive {
			g.XP /= 2
			g.Currency /= 2
		}

		roll := dice.Between(src, 1, 100)
		if pet := c.Spec.Pet; pet != nil && (pet.Always || roll < PetChance) {
			g.PetXP = int(float64(baseXP) * (pet.Bonus - 1))
			g.PetCurrency = int(float64(baseCP) * (pet.Bonus - 1))
			if r.Passive {
				g.PetXP /= 2
				g.PetCurrency /= 2
			}
			petLines = append(petLines, d.printer.Sprintf("%s received a %d%% reward bonus from their %s.",
				g.Name, roundHalfEven((pet.Bonus-1)*100), d.title.String(pet.Name)))
		}

		if c.Rebirths() > 1 {
			g.Treasure = g.Treasure.Add(treasure.RebirthChest(src, c.Rebirths()))
		}

		s.XP += g.TotalXP()
		s.Currency += g.TotalCurrency()
		s.Grants = append(s.Grants, g)
		names = append(names, g.Name)
		lines = append(lines, d.printer.Sprintf("%s gained %d XP and %d coins.", g.Name, g.TotalXP(), g.TotalCurrency()))
	}
	if len(s.Grants) == 0 {
		return s
	}

	word := "have"
	if len(s.Grants) == 1 {
		word = "has"
	}
	summary := d.printer.Sprintf("%s %s been awarded %d xp and found %d coins (split based on stats).",
		joinNames(names), word, s.XP, s.Currency)
	if !bundle.IsEmpty() {
		summary += " You also secured a treasure chest: " + bundle.String() + "."
	}
	s.Narrative = append(lines, petLines...)
	s.Narrative = append(s.Narrative, summary)
	return s
}

// Loss computes a penalty against balance: a third of it past 10 rebirths,
// otherwise 1%, divided by a dexterity factor. A companion may cover half
// its bonus share of the loss.
func (d *Distributor) Loss(src dice.Source, c *actor.Character, balance int) Loss {
	l := Loss{ActorID: c.ID(), Name: c.DisplayName()}
	if balance <= 0 {
		return l
	}
	rate := 0.01
	if c.Rebirths() >= 10 {
		rate = 1.0 / 3
	}
	var dex float64
	if v := c.Dexterity(); v < 0 {
		dex = min(1/math.Abs(float64(v)), 1)
	} else {
		dex = float64(max(v/10, 1))
	}
	loss := roundHalfEven(float64(balance) * rate / dex)

	roll := dice.Between(src, 1, 100)
	if pet := c.Spec.Pet; pet != nil && pet.Bonus > 1 && (pet.Always || roll < PetChance) {
		l.Offset = min(roundHalfEven(float64(loss)*(pet.Bonus-1)/2), loss)
	}
	l.Amount = min(loss-l.Offset, balance)
	return l
}

// Penalize takes a computed loss from the ledger and returns the amount
// actually taken. A balance that no longer covers the loss is emptied.
func Penalize(ctx context.Context, ledger storage.Ledger, l Loss) (int, error) {
	if l.Amount <= 0 {
		return 0, nil
	}
	bal, err := ledger.Withdraw(ctx, l.ActorID, l.Amount)
	if errors.Is(err, storage.ErrInsufficientFunds) {
		if err := ledger.SetBalance(ctx, l.ActorID, 0); err != nil {
			return 0, fmt.Errorf("failed to empty balance: %w", err)
		}
		return bal, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw penalty: %w", err)
	}
	return l.Amount, nil
}

// LossNarrative describes penalties in the order given.
func (d *Distributor) LossNarrative(losses []Loss) []string {
	var out []string
	for _, l := range losses {
		if l.Amount <= 0 {
			continue
		}
		out = append(out, d.printer.Sprintf("%s used %d coins to repair their gear.", l.Name, l.Amount))
		if l.Offset > 0 {
			out = append(out, d.printer.Sprintf("%s's companion covered %d coins.", l.Name, l.Offset))
		}
	}
	return out
}

// Credit adds a grant's experience and treasure to the character record.
func Credit(spec *actor.CharacterSpec, g Grant) {
	spec.Experience += g.TotalXP()
	spec.Treasure = spec.Treasure.Add(g.Treasure)
}

// Pay deposits a grant's currency and returns the amount credited. A
// deposit over the cap fills the balance to the cap.
func Pay(ctx context.Context, ledger storage.Ledger, g Grant) (int, error) {
	amount := g.TotalCurrency()
	if amount <= 0 {
		return 0, nil
	}
	bal, err := ledger.Deposit(ctx, g.ActorID, amount)
	if errors.Is(err, storage.ErrBalanceTooHigh) {
		limit := ledger.MaxBalance()
		if err := ledger.SetBalance(ctx, g.ActorID, limit); err != nil {
			return 0, fmt.Errorf("failed to cap balance: %w", err)
		}
		return max(limit-bal, 0), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deposit reward: %w", err)
	}
	return amount, nil
}

// Refund reverses a currency movement made by Pay (positive delta) or
// Penalize (negative delta).
func Refund(ctx context.Context, ledger storage.Ledger, actorID string, delta int) error {
	switch {
	case delta > 0:
		_, err := ledger.Withdraw(ctx, actorID, delta)
		if errors.Is(err, storage.ErrInsufficientFunds) {
			err = ledger.SetBalance(ctx, actorID, 0)
		}
		if err != nil {
			return fmt.Errorf("failed to take back reward: %w", err)
		}
	case delta < 0:
		_, err := ledger.Deposit(ctx, actorID, -delta)
		if errors.Is(err, storage.ErrBalanceTooHigh) {
			err = ledger.SetBalance(ctx, actorID, ledger.MaxBalance())
		}
		if err != nil {
			return fmt.Errorf("failed to return penalty: %w", err)
		}
	}
	return nil
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}
