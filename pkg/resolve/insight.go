package resolve

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// Insight is the best target read gathered during a countdown. The holder's
// stats are captured when the read is taken.
type Insight struct {
	HolderID  string  `json:"holder_id"`
	Attack    int     `json:"attack"`
	Intellect int     `json:"intellect"`
	Charisma  int     `json:"charisma"`
	Quality   float64 `json:"quality"`
}

// NewInsight captures c's stats at the given quality.
func NewInsight(c *actor.Character, quality float64) *Insight {
	return &Insight{
		HolderID:  c.ID(),
		Attack:    c.Attack(),
		Intellect: c.Intellect(),
		Charisma:  c.Charisma(),
		Quality:   quality,
	}
}

// Exposed reports whether the target is fully exposed.
func (in *Insight) Exposed() bool {
	return in != nil && in.Quality >= 1
}

// Better reports whether in improves on prev.
func (in *Insight) Better(prev *Insight) bool {
	return prev == nil || in.Quality > prev.Quality
}

// bonus is a fifth of the holder's stat, granted to everyone else once the
// target is exposed.
func (in *Insight) bonus(actorID string, pick func(*Insight) int) int {
	if !in.Exposed() || actorID == in.HolderID {
		return 0
	}
	return int(float64(pick(in)) * 0.2)
}

// RollInsight rolls a read quality in (0, 1]. Rebirths past 12 raise the floor.
func RollInsight(src dice.Source, c *actor.Character) float64 {
	ceiling := MaxRoll(c.Rebirths())
	lo := min(c.Rebirths()-12, ceiling/2)
	return float64(dice.Between(src, max(lo, 1), ceiling)) / float64(ceiling)
}

// Target is what an insight read can reveal.
type Target struct {
	Name      string
	Attribute string
	HP        int
	Dipl      int
	PDef      float64
	MDef      float64
	CDef      float64
}

func (t Target) label() string {
	if attr := strings.TrimSpace(t.Attribute); attr != "" {
		return attr + " " + t.Name
	}
	return t.Name
}

// Reveal describes the target at the given quality, most revealing tier first.
func Reveal(quality float64, t Target) []string {
	var out []string
	switch {
	case quality >= 1:
		out = append(out, fmt.Sprintf("This is %s. It has %d HP and %d diplomacy. It is exposed.", t.label(), t.HP, t.Dipl))
	case quality >= 0.95:
		out = append(out, fmt.Sprintf("This is %s. It has %d HP and %d diplomacy.", t.label(), t.HP, t.Dipl))
	case quality >= 0.90:
		out = append(out, fmt.Sprintf("This is %s. It has %d HP.", t.label(), t.HP))
	case quality > 0.75:
		out = append(out, fmt.Sprintf("This is %s.", t.label()))
	case quality > 0.5:
		out = append(out, fmt.Sprintf("This is %s.", t.Name))
	}
	if quality <= 0.4 {
		return []string{"You suck."}
	}
	out = append(out, "Physical defense: "+describeDefense(t.PDef)+".")
	if quality >= 0.6 {
		out = append(out, "Magical defense: "+describeDefense(t.MDef)+".")
	}
	if quality >= 0.8 {
		out = append(out, "Persuasion resistance: "+describeDefense(t.CDef)+".")
	}
	return out
}

func describeDefense(d float64) string {
	switch {
	case d >= 1.5:
		return "impenetrable"
	case d >= 1.25:
		return "strong"
	case d > 1:
		return "above average"
	case d > 0.75:
		return "average"
	default:
		return "weak"
	}
}
