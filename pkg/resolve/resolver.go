package resolve

import (
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// Participant is one roster entry. Err is set when the character record
// could not be loaded; such entries are skipped with a warning.
type Participant struct {
	ID        string
	Character *actor.Character
	Err       error
	Passive   bool
}

// Line is one actor's resolved contribution.
type Line struct {
	ActorID      string `json:"actor_id"`
	Name         string `json:"name"`
	Action       Action `json:"action"`
	Roll         Roll   `json:"roll"`
	Stat         int    `json:"stat"`
	Bonus        int    `json:"bonus,omitempty"`
	Contribution int    `json:"contribution"`
	Fumbled      bool   `json:"fumbled,omitempty"`
	Critical     bool   `json:"critical,omitempty"`
	Note         string `json:"note,omitempty"`
	Text         string `json:"text"`
}

// Tally is the outcome of one resolver pass.
type Tally struct {
	Action       Action   `json:"action"`
	Total        int      `json:"total"`
	Contributors []string `json:"contributors"`
	Fumbled      []string `json:"fumbled,omitempty"`
	Crits        []string `json:"crits,omitempty"`
	Skipped      []string `json:"skipped,omitempty"`
	Lines        []Line   `json:"lines,omitempty"`
}

// Narrative returns the per-actor report lines in roster order.
func (t Tally) Narrative() []string {
	out := make([]string, 0, len(t.Lines))
	for _, l := range t.Lines {
		out = append(out, l.Text)
	}
	return out
}

// Resolver resolves rosters against one target. It is not safe for
// concurrent use unless src is.
type Resolver struct {
	src     dice.Source
	insight *Insight
	printer *message.Printer
	logger  *slog.Logger
}

// New creates a resolver. insight may be nil.
func New(src dice.Source, insight *Insight, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		src:     src,
		insight: insight,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

// actionRules are the per-action pieces of the shared roll shape.
type actionRules struct {
	action    Action
	stat      func(*actor.Character) int
	critBonus func(*actor.Character) int
	plain     func(t *turn) int
	insight   func(*Insight) int
	petReroll bool
	verb      string
	fumble    string
	critical  string
}

var meleeRules = actionRules{
	action:    ActionMelee,
	stat:      (*actor.Character).Attack,
	critBonus: func(c *actor.Character) int { return floorDiv(c.Attack(), 20) },
	plain: func(t *turn) int {
		return scaled(t.roll.Value+t.stat, t.def) + t.rebirths
	},
	insight:   func(in *Insight) int { return in.Attack },
	petReroll: true,
	verb:      "attack",
	fumble:    "%s fumbled the attack.",
	critical:  "%s landed a critical hit.",
}

var magicRules = actionRules{
	action:    ActionMagic,
	stat:      (*actor.Character).Intellect,
	critBonus: func(c *actor.Character) int { return floorDiv(c.Intellect(), 20) },
	plain: func(t *turn) int {
		return scaled(t.roll.Value+t.stat, t.def) + floorDiv(t.c.Rebirths(), 5)
	},
	insight:  func(in *Insight) int { return in.Intellect },
	verb:     "intellect",
	fumble:   "%s almost set themselves on fire.",
	critical: "%s had a surge of energy.",
}

var diplomacyRules = actionRules{
	action: ActionDiplomacy,
	stat:   (*actor.Character).Charisma,
	critBonus: func(c *actor.Character) int {
		return floorDiv(c.Intellect(), 50) + floorDiv(c.Charisma(), 20)
	},
	plain: func(t *turn) int {
		return scaled(t.roll.Value+t.stat+floorDiv(t.c.Rebirths(), 5), t.def)
	},
	insight:  func(in *Insight) int { return in.Charisma },
	verb:     "charisma",
	fumble:   "%s accidentally offended the enemy.",
	critical: "%s made a compelling argument.",
}

// Melee resolves the melee roster against physical defense.
func (r *Resolver) Melee(roster []Participant, pdef float64) Tally {
	return r.resolve(meleeRules, roster, pdef)
}

// Magic resolves the magic roster against magical defense.
func (r *Resolver) Magic(roster []Participant, mdef float64) Tally {
	return r.resolve(magicRules, roster, mdef)
}

// Diplomacy resolves the diplomacy roster against charisma defense.
func (r *Resolver) Diplomacy(roster []Participant, cdef float64) Tally {
	return r.resolve(diplomacyRules, roster, cdef)
}

func (r *Resolver) resolve(rules actionRules, roster []Participant, def float64) Tally {
	def = max(def, MinDefense)
	t := Tally{Action: rules.action, Contributors: []string{}}
	for _, p := range roster {
		if p.Err != nil || p.Character == nil {
			r.logger.Warn("skipping participant", "action", rules.action, "actor_id", p.ID, "error", p.Err)
			t.Skipped = append(t.Skipped, p.ID)
			continue
		}
		line := r.turn(rules, p, def, len(roster))
		t.Total += line.Contribution
		t.Lines = append(t.Lines, line)
		if line.Critical {
			t.Crits = append(t.Crits, p.ID)
		}
		if line.Fumbled {
			t.Fumbled = append(t.Fumbled, p.ID)
		} else {
			t.Contributors = append(t.Contributors, p.ID)
		}
	}
	return t
}

func (r *Resolver) turn(rules actionRules, p Participant, def float64, party int) Line {
	c := p.Character
	cp := CapabilityOf(c.Class())

	roll := RollDie(r.src, c.Rebirths(), CriticalModifier(c.Dexterity(), c.Luck(), rules.critBonus(c)))
	if rules.petReroll && cp.PetReroll {
		roll = petReroll(r.src, c, roll)
	}

	t := &turn{
		src:      r.src,
		c:        c,
		roll:     roll,
		stat:     rules.stat(c),
		rebirths: c.Rebirths() * cp.rebirthFactor(rules.action),
		def:      def,
		party:    party,
	}
	line := Line{ActorID: p.ID, Name: c.DisplayName(), Action: rules.action, Roll: roll, Stat: t.stat}
	empowered := cp.Empowers == rules.action
	active := empowered && c.AbilityActive()

	band := roll.Band()
	switch {
	case band == BandFumble || roll.Value+t.stat <= 0:
		if active && cp.Rescue != nil {
			line.Contribution, line.Bonus, line.Fumbled = cp.Rescue(t)
			line.Note = "rescued"
		} else {
			line.Fumbled = true
		}
	case band == BandCritical || empowered:
		t.base = dice.Between(r.src, 5, max(15, c.Rebirths())) + t.rebirths
		if band == BandCritical {
			line.Critical = true
			t.crit = dice.Between(r.src, 5, 20) + t.rebirths*2
		}
		if active && cp.Boost != nil {
			line.Contribution, line.Note = cp.Boost(t)
		} else {
			line.Contribution = scaled(t.roll.Value+t.base+t.crit+t.stat, def)
		}
		line.Bonus = t.base + t.crit
	default:
		line.Contribution = rules.plain(t)
	}

	if !line.Fumbled {
		line.Contribution += r.insight.bonus(p.ID, rules.insight)
	}
	line.Text = r.describe(rules, line)
	return line
}

func (r *Resolver) describe(rules actionRules, l Line) string {
	switch {
	case l.Fumbled:
		return r.printer.Sprintf(rules.fumble, l.Name)
	case l.Note == "rescued":
		return r.printer.Sprintf("%s recovered from a bad roll and still added %d.", l.Name, l.Contribution)
	case l.Critical:
		return r.printer.Sprintf(rules.critical+" Roll %d/%d + bonus %d + %s %d = %d.",
			l.Name, l.Roll.Value, l.Roll.Max, l.Bonus, rules.verb, l.Stat, l.Contribution)
	case l.Bonus > 0:
		return r.printer.Sprintf("%s: roll %d/%d + bonus %d + %s %d = %d.",
			l.Name, l.Roll.Value, l.Roll.Max, l.Bonus, rules.verb, l.Stat, l.Contribution)
	default:
		return r.printer.Sprintf("%s: roll %d/%d + %s %d = %d.",
			l.Name, l.Roll.Value, l.Roll.Max, rules.verb, l.Stat, l.Contribution)
	}
}

// petReroll gives a ranger's companion a chance to improve the melee die.
func petReroll(src dice.Source, c *actor.Character, r Roll) Roll {
	pet := c.Spec.Pet
	if pet == nil || pet.CritChance <= 0 {
		return r
	}
	check := dice.Between(src, pet.CritChance, 100)
	switch {
	case check == 100:
		r.Value = r.Max
	case check >= 95:
		r.Value = dice.Between(src, r.Value, r.Max)
	}
	return r
}
