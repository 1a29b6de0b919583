// Package resolve turns the rosters of an encounter into contribution totals.
//
// Melee, magic and diplomacy share one roll shape: a critical modifier raises
// the floor of a die whose ceiling grows with rebirths, the roll is banded as
// fumble, normal or critical, and the band picks the contribution formula.
// Class differences live in the capability table rather than in the
// resolvers themselves.
package resolve

import (
	"math"

	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// MinDefense floors every defense divisor.
const MinDefense = 0.5

// Action is the roster an actor committed to.
type Action string

const (
	ActionMelee        Action = "melee"
	ActionMagic        Action = "magic"
	ActionDiplomacy    Action = "diplomacy"
	ActionSupplication Action = "supplication"
	ActionPassive      Action = "passive"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionMelee, ActionMagic, ActionDiplomacy, ActionSupplication, ActionPassive:
		return true
	}
	return false
}

// Band classifies a roll.
type Band int

const (
	BandNormal Band = iota
	BandFumble
	BandCritical
)

func (b Band) String() string {
	switch b {
	case BandFumble:
		return "fumble"
	case BandCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Classify bands a roll by its share of the ceiling: under 10% fumbles,
// over 95% is critical, anything else is normal.
func Classify(value, ceiling int) Band {
	if ceiling <= 0 {
		return BandNormal
	}
	perc := float64(value) / float64(ceiling)
	switch {
	case perc < 0.10:
		return BandFumble
	case perc > 0.95:
		return BandCritical
	default:
		return BandNormal
	}
}

// Roll is one die result and the ceiling it was rolled against.
type Roll struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// Band classifies the roll.
func (r Roll) Band() Band {
	return Classify(r.Value, r.Max)
}

// MaxRoll is the die ceiling for a rebirth count.
func MaxRoll(rebirths int) int {
	switch {
	case rebirths >= 30:
		return 100
	case rebirths >= 15:
		return 50
	default:
		return 20
	}
}

// CriticalModifier is max(dexterity, luck/2) plus the action's stat bonus,
// never negative.
func CriticalModifier(dexterity, luck, statBonus int) int {
	return max(max(dexterity, floorDiv(luck, 2))+statBonus, 0)
}

// RollDie rolls in [1+mod, ceiling] where mod is a tenth of the critical
// modifier. Below 15 rebirths mod is capped at 15 on a d20; otherwise at 45.
func RollDie(src dice.Source, rebirths, critMod int) Roll {
	ceiling := MaxRoll(rebirths)
	mod := 0
	if critMod != 0 {
		mod = roundHalfEven(float64(critMod) / 10)
	}
	if rebirths < 15 && mod > 15 {
		mod = 15
		ceiling = 20
	} else if mod+1 > 45 {
		mod = 45
	}
	return Roll{Value: max(dice.Between(src, 1+mod, ceiling), 1), Max: ceiling}
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func roundHalfEven(v float64) int {
	return int(math.RoundToEven(v))
}

// scaled divides an amount by a defense and truncates toward zero.
func scaled(amount int, def float64) int {
	return int(float64(amount) / def)
}
