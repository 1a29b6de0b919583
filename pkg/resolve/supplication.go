package resolve

import (
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// Sizes are the roster sizes a blessing scales with, passive actors
// already allocated.
type Sizes struct {
	Melee     int `json:"melee"`
	Magic     int `json:"magic"`
	Diplomacy int `json:"diplomacy"`
}

// Total is the number of actors a blessing can reach.
func (s Sizes) Total() int {
	return s.Melee + s.Magic + s.Diplomacy
}

// Blessing is the supplication outcome: signed adjustments to the three
// totals. A fumbling priest produces negative adjustments.
type Blessing struct {
	Attack       int      `json:"attack"`
	Magic        int      `json:"magic"`
	Diplomacy    int      `json:"diplomacy"`
	Contributors []string `json:"contributors"`
	Fumbled      []string `json:"fumbled,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
	Lines        []string `json:"lines,omitempty"`
}

// buff is one actor's adjustment to the three totals.
type buff struct{ attack, magic, diplomacy int }

// spread applies f to every non-empty roster.
func spread(s Sizes, sign int, f func(n int) int) buff {
	var d buff
	if s.Melee > 0 {
		d.attack = sign * f(s.Melee)
	}
	if s.Magic > 0 {
		d.magic = sign * f(s.Magic)
	}
	if s.Diplomacy > 0 {
		d.diplomacy = sign * f(s.Diplomacy)
	}
	return d
}

func (b *Blessing) add(d buff) {
	b.Attack += d.attack
	b.Magic += d.magic
	b.Diplomacy += d.diplomacy
}

// Supplication resolves the prayer roster. Passive participants only pray
// when their class is priestly; everyone else in the passive list was
// already allocated to another roster.
func (r *Resolver) Supplication(roster []Participant, sizes Sizes) Blessing {
	b := Blessing{Contributors: []string{}}
	for _, p := range roster {
		if p.Err != nil || p.Character == nil {
			r.logger.Warn("skipping participant", "action", ActionSupplication, "actor_id", p.ID, "error", p.Err)
			b.Skipped = append(b.Skipped, p.ID)
			continue
		}
		c := p.Character
		cp := CapabilityOf(c.Class())
		if p.Passive && !cp.Priestly {
			continue
		}
		name := c.DisplayName()

		if cp.Priestly {
			rebirths := c.Rebirths() * cp.rebirthFactor(ActionSupplication)
			roll := RollDie(r.src, c.Rebirths(), CriticalModifier(c.Dexterity(), c.Luck(), floorDiv(c.Intellect(), 20)))
			vet := 0
			if c.Veteran() {
				vet = 2
			}
			// A cleric alone still rolls, and can still fumble.
			alone := sizes.Total() == 0
			if alone {
				b.Lines = append(b.Lines, r.printer.Sprintf("%s blessed like a madman but nobody was there to receive it.", name))
			}
			switch {
			case roll.Band() == BandFumble:
				k := max(float64(rebirths)*0.01, 1.5)
				d := spread(sizes, -1, func(n int) int {
					x := float64(5 * (n + vet))
					return int(x*k - x)
				})
				b.add(d)
				b.Fumbled = append(b.Fumbled, p.ID)
				b.Lines = append(b.Lines, r.printer.Sprintf("%s's sermon offended the mighty gods: %d damage, %d magic, %d diplomacy.",
					name, d.attack, d.magic, d.diplomacy))
			case alone:
				b.Contributors = append(b.Contributors, p.ID)
			default:
				mod := roll.Value / 3
				if c.AbilityActive() {
					mod = roll.Value
				}
				k := max(float64(rebirths)*0.05, 1.5)
				d := spread(sizes, 1, func(n int) int {
					x := float64(mod * (n + vet))
					return int(x + x*k)
				})
				b.add(d)
				b.Contributors = append(b.Contributors, p.ID)
				b.Lines = append(b.Lines, r.printer.Sprintf("%s blessed the party (roll %d/%d): +%d damage, +%d magic, +%d diplomacy.",
					name, roll.Value, roll.Max, d.attack, d.magic, d.diplomacy))
			}
			continue
		}

		roll := dice.Between(r.src, 1, 10)
		switch {
		case sizes.Total() == 0:
			b.Contributors = append(b.Contributors, p.ID)
			b.Lines = append(b.Lines, r.printer.Sprintf("%s prayed like a madman but nobody else helped them.", name))
		case roll == 5:
			extra := floorDiv(c.Rebirths(), 15)
			d := spread(sizes, 1, func(n int) int { return 10 * (n + extra) })
			b.add(d)
			b.Contributors = append(b.Contributors, p.ID)
			b.Lines = append(b.Lines, r.printer.Sprintf("%s's prayer was answered: +%d damage, +%d magic, +%d diplomacy.",
				name, d.attack, d.magic, d.diplomacy))
		default:
			b.Fumbled = append(b.Fumbled, p.ID)
			b.Lines = append(b.Lines, r.printer.Sprintf("%s's prayers went unanswered.", name))
		}
	}
	return b
}

// AssignPassive picks the roster a passive actor joins. Ties go to melee,
// then magic.
func AssignPassive(fight, magic, talk int) Action {
	switch {
	case fight >= magic && fight >= talk:
		return ActionMelee
	case magic >= talk:
		return ActionMagic
	default:
		return ActionDiplomacy
	}
}
