package resolve

import (
	"testing"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

func TestGateCheck(t *testing.T) {
	plain := Participant{ID: "p1", Character: mustCharacter(&actor.CharacterSpec{ID: "p1"})}
	relic := Participant{ID: "p2", Character: mustCharacter(&actor.CharacterSpec{ID: "p2", Sets: []string{"Ainz Ooal Gown"}})}
	mirror := Participant{ID: "p3", Character: mustCharacter(&actor.CharacterSpec{
		ID:        "p3",
		Equipment: []actor.Item{{Name: "Polished Mirror Shield", Rarity: "rare"}},
	})}
	forged := Participant{ID: "p4", Character: mustCharacter(&actor.CharacterSpec{
		ID:        "p4",
		Equipment: []actor.Item{{Name: "Shiny Mirror", Rarity: "forged"}},
	})}
	shiny := Participant{ID: "p5", Character: mustCharacter(&actor.CharacterSpec{
		ID:        "p5",
		Equipment: []actor.Item{{Name: "Shiny Pebble", Rarity: "common"}},
	})}

	members := &actor.Guardian{Kind: actor.GuardianMembers, Threshold: 3}
	signal := &actor.Guardian{Kind: actor.GuardianSignal}
	item := &actor.Guardian{Kind: actor.GuardianItem, Item: "mirror"}

	tests := []struct {
		name     string
		g        *actor.Guardian
		party    int
		signaled bool
		ps       []Participant
		want     bool
	}{
		{"no guardian", nil, 1, false, nil, true},
		{"members at threshold", members, 3, false, nil, false},
		{"members above threshold", members, 4, false, nil, true},
		{"signal missing", signal, 10, false, nil, false},
		{"signal given", signal, 1, true, nil, true},
		{"no item", item, 5, true, []Participant{plain}, false},
		{"relic set", item, 1, false, []Participant{plain, relic}, true},
		{"matching item", item, 1, false, []Participant{mirror}, true},
		{"forged item ignored", item, 1, false, []Participant{forged}, false},
		{"shiny item", item, 1, false, []Participant{shiny}, true},
		{"unloaded participant", item, 1, false, []Participant{{ID: "ghost"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GateCheck(tt.g, tt.party, tt.signaled, tt.ps); got != tt.want {
				t.Errorf("GateCheck() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustCharacter(spec *actor.CharacterSpec) *actor.Character {
	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		panic(err)
	}
	return c
}
