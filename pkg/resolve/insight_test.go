package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

func TestReveal(t *testing.T) {
	target := Target{Name: "Basilisk", Attribute: " possessed", HP: 1200, Dipl: 900, PDef: 1.3, MDef: 0.7, CDef: 1.6}

	exposed := Reveal(1, target)
	assert.Equal(t, []string{
		"This is possessed Basilisk. It has 1200 HP and 900 diplomacy. It is exposed.",
		"Physical defense: strong.",
		"Magical defense: weak.",
		"Persuasion resistance: impenetrable.",
	}, exposed)

	assert.Equal(t, "This is possessed Basilisk. It has 1200 HP.", Reveal(0.9, target)[0])
	assert.Equal(t, []string{"This is Basilisk.", "Physical defense: strong.", "Magical defense: weak."}, Reveal(0.6, target))
	assert.Equal(t, []string{"Physical defense: strong."}, Reveal(0.45, target))
	assert.Equal(t, []string{"You suck."}, Reveal(0.3, target))
}

func TestInsight_Better(t *testing.T) {
	low := &Insight{HolderID: "a", Quality: 0.5}
	high := &Insight{HolderID: "b", Quality: 0.9}

	assert.True(t, low.Better(nil))
	assert.True(t, high.Better(low))
	assert.False(t, low.Better(high))
	assert.False(t, (*Insight)(nil).Exposed())
}

func TestRollInsight_Range(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rebirths := rapid.IntRange(0, 60).Draw(rt, "rebirths")
		seed := rapid.Uint64().Draw(rt, "seed")
		c := mustCharacter(&actor.CharacterSpec{ID: "psy", Class: actor.ClassPsychic, Rebirths: rebirths})

		q := RollInsight(dice.New(seed), c)
		if q <= 0 || q > 1 {
			rt.Fatalf("quality %v outside (0, 1]", q)
		}
	})
}
