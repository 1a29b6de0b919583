package actor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jwebster45206/d20"
	"github.com/jwebster45206/encounter-engine/pkg/treasure"
)

// VeteranRank is the rebirth count that unlocks the enhanced ability formulas.
const VeteranRank = 20

// Class identifies a hero class. Classes without an entry in the resolver
// capability table behave like ClassHero.
type Class string

const (
	ClassHero      Class = "hero"
	ClassBerserker Class = "berserker"
	ClassRanger    Class = "ranger"
	ClassWizard    Class = "wizard"
	ClassBard      Class = "bard"
	ClassCleric    Class = "cleric"
	ClassPsychic   Class = "psychic"
)

// Stat keys used as d20 attributes.
const (
	StatAttack    = "attack"
	StatIntellect = "intellect"
	StatCharisma  = "charisma"
	StatDexterity = "dexterity"
	StatLuck      = "luck"
)

// Stats are the skill values a character has assigned, before gear.
type Stats struct {
	Attack    int `json:"attack"`
	Intellect int `json:"intellect"`
	Charisma  int `json:"charisma"`
	Dexterity int `json:"dexterity"`
	Luck      int `json:"luck"`
}

// Add returns the field-wise sum.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Attack:    s.Attack + o.Attack,
		Intellect: s.Intellect + o.Intellect,
		Charisma:  s.Charisma + o.Charisma,
		Dexterity: s.Dexterity + o.Dexterity,
		Luck:      s.Luck + o.Luck,
	}
}

// ToAttributes converts Stats to a map for d20.Actor compatibility
func (s Stats) ToAttributes() map[string]int {
	return map[string]int{
		StatAttack:    s.Attack,
		StatIntellect: s.Intellect,
		StatCharisma:  s.Charisma,
		StatDexterity: s.Dexterity,
		StatLuck:      s.Luck,
	}
}

// Item is a piece of equipped gear.
type Item struct {
	Name   string `json:"name"`
	Slot   string `json:"slot,omitempty"`
	Rarity string `json:"rarity,omitempty"`
	Set    string `json:"set,omitempty"`
	Stats  Stats  `json:"stats"`
}

// Forged reports whether the item was crafted by a player rather than found.
func (i Item) Forged() bool {
	return strings.EqualFold(i.Rarity, "forged")
}

// Pet is a companion that boosts rewards. Bonus is a multiplier such as 1.2.
type Pet struct {
	Name string `json:"name"`

	// Bonus is the reward multiplier (1.0 means no bonus).
	Bonus float64 `json:"bonus"`

	// CritChance is the floor of the companion's reroll check; zero means
	// the pet never rerolls.
	CritChance int `json:"crit_chance,omitempty"`

	// Always forces the reward and penalty rolls to succeed.
	Always bool `json:"always,omitempty"`
}

// Multipliers are the completed gear-set reward multipliers.
type Multipliers struct {
	XP       float64 `json:"xp"`
	Currency float64 `json:"currency"`
}

// CharacterSpec is the serializable character record owned by the character store.
type CharacterSpec struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Class          Class           `json:"class,omitempty"`
	Level          int             `json:"level,omitempty"`
	Rebirths       int             `json:"rebirths,omitempty"`
	Experience     int             `json:"experience,omitempty"`
	Skills         Stats           `json:"skills"`
	Equipment      []Item          `json:"equipment,omitempty"`
	Sets           []string        `json:"sets,omitempty"`
	SetBonus       *Multipliers    `json:"set_bonus,omitempty"`
	Pet            *Pet            `json:"pet,omitempty"`
	AbilityActive  bool            `json:"ability_active,omitempty"`
	AbilityReadyAt time.Time       `json:"ability_ready_at,omitzero"`
	DoNotDisturb   bool            `json:"do_not_disturb,omitempty"`
	Treasure       treasure.Bundle `json:"treasure"`
	Tallies        map[string]int  `json:"tallies,omitempty"`
}

// Totals returns skills plus every equipped item's bonus.
func (s *CharacterSpec) Totals() Stats {
	total := s.Skills
	for _, item := range s.Equipment {
		total = total.Add(item.Stats)
	}
	return total
}

// Tally increments a named adventure counter.
func (s *CharacterSpec) Tally(key string) {
	if s.Tallies == nil {
		s.Tallies = make(map[string]int)
	}
	s.Tallies[key]++
}

// Character is the runtime view of a character record.
type Character struct {
	Spec  *CharacterSpec
	Actor *d20.Actor // built from the spec's stat totals
}

// NewCharacterFromSpec builds the d20.Actor carrying the character's stat totals.
func NewCharacterFromSpec(spec *CharacterSpec) (*Character, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec cannot be nil")
	}
	if spec.ID == "" {
		return nil, fmt.Errorf("spec id cannot be empty")
	}

	a, err := d20.NewActor(spec.ID).
		WithHP(max(spec.Level, 1)).
		WithAC(10).
		WithAttributes(spec.Totals().ToAttributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	return &Character{Spec: spec, Actor: a}, nil
}

func (c *Character) stat(key string) int {
	if v, ok := c.Actor.Attribute(key); ok {
		return v
	}
	return 0
}

func (c *Character) ID() string { return c.Spec.ID }
func (c *Character) Class() Class { return c.Spec.Class }
func (c *Character) Rebirths() int { return c.Spec.Rebirths }
func (c *Character) Attack() int { return c.stat(StatAttack) }
func (c *Character) Intellect() int { return c.stat(StatIntellect) }
func (c *Character) Charisma() int { return c.stat(StatCharisma) }
func (c *Character) Dexterity() int { return c.stat(StatDexterity) }
func (c *Character) Luck() int { return c.stat(StatLuck) }
func (c *Character) Veteran() bool { return c.Spec.Rebirths >= VeteranRank }
func (c *Character) Stat(key string) int { return c.stat(key) }

// TotalStats sums every stat total; reward bonuses scale with it.
func (c *Character) TotalStats() int {
	return c.Attack() + c.Intellect() + c.Charisma() + c.Dexterity() + c.Luck()
}

// AbilityActive reports whether the class ability is primed for this encounter.
func (c *Character) AbilityActive() bool {
	return c.Spec.AbilityActive
}

// Multipliers returns the gear-set reward multipliers, defaulting to 1.
func (c *Character) Multipliers() Multipliers {
	if c.Spec.SetBonus == nil {
		return Multipliers{XP: 1, Currency: 1}
	}
	return *c.Spec.SetBonus
}

// DisplayName falls back to the id when no name is set.
func (c *Character) DisplayName() string {
	if c.Spec.Name != "" {
		return c.Spec.Name
	}
	return c.Spec.ID
}

// MarshalJSON writes the spec with the computed totals alongside.
func (c *Character) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	type response struct {
		*CharacterSpec
		Totals Stats `json:"totals"`
	}
	resp := response{CharacterSpec: c.Spec}
	if c.Actor != nil {
		resp.Totals = Stats{
			Attack:    c.Attack(),
			Intellect: c.Intellect(),
			Charisma:  c.Charisma(),
			Dexterity: c.Dexterity(),
			Luck:      c.Luck(),
		}
	}
	return json.Marshal(resp)
}

// UnmarshalJSON reconstructs a Character from its spec and rebuilds its Actor
func (c *Character) UnmarshalJSON(data []byte) error {
	var spec CharacterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("failed to unmarshal character spec: %w", err)
	}
	built, err := NewCharacterFromSpec(&spec)
	if err != nil {
		return err
	}
	*c = *built
	return nil
}
