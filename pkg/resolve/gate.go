package resolve

import (
	"slices"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

// RelicSets satisfy any item gate.
var RelicSets = []string{"The Supreme One", "Ainz Ooal Gown"}

// GateCheck reports whether a guardian lets the party's totals count.
// A nil guardian always passes.
func GateCheck(g *actor.Guardian, partySize int, signaled bool, participants []Participant) bool {
	if g == nil {
		return true
	}
	switch g.Kind {
	case actor.GuardianMembers:
		return partySize > g.Threshold
	case actor.GuardianSignal:
		return signaled
	case actor.GuardianItem:
		for _, p := range participants {
			if p.Character != nil && carriesRelic(p.Character, g.Item) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func carriesRelic(c *actor.Character, want string) bool {
	for _, set := range c.Spec.Sets {
		if slices.Contains(RelicSets, set) {
			return true
		}
	}
	want = strings.ToLower(want)
	for _, item := range c.Spec.Equipment {
		if item.Forged() {
			continue
		}
		name := strings.ToLower(item.Name)
		if (want != "" && strings.Contains(name, want)) || strings.Contains(name, "shiny") {
			return true
		}
	}
	return false
}
