package actor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec() *CharacterSpec {
	return &CharacterSpec{
		ID:       "u1",
		Name:     "Aria",
		Class:    ClassRanger,
		Level:    12,
		Rebirths: 21,
		Skills:   Stats{Attack: 10, Intellect: 4, Charisma: 6, Dexterity: 3, Luck: 8},
		Equipment: []Item{
			{Name: "Longbow", Slot: "two handed", Rarity: "epic", Stats: Stats{Attack: 12, Dexterity: 2}},
			{Name: "Lucky Charm", Slot: "neck", Rarity: "forged", Stats: Stats{Luck: 5}},
		},
	}
}

func TestNewCharacterFromSpec(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	require.NoError(t, err)

	assert.Equal(t, 22, c.Attack())
	assert.Equal(t, 4, c.Intellect())
	assert.Equal(t, 6, c.Charisma())
	assert.Equal(t, 5, c.Dexterity())
	assert.Equal(t, 13, c.Luck())
	assert.Equal(t, 50, c.TotalStats())
	assert.True(t, c.Veteran())
	assert.Equal(t, Multipliers{XP: 1, Currency: 1}, c.Multipliers())
	assert.True(t, c.Spec.Equipment[1].Forged())
}

func TestNewCharacterFromSpec_Invalid(t *testing.T) {
	_, err := NewCharacterFromSpec(nil)
	assert.Error(t, err)

	_, err = NewCharacterFromSpec(&CharacterSpec{})
	assert.Error(t, err)
}

func TestCharacter_JSONRoundTrip(t *testing.T) {
	c, err := NewCharacterFromSpec(testSpec())
	require.NoError(t, err)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"totals":{"attack":22`)

	var back Character
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c.Attack(), back.Attack())
	assert.Equal(t, "Aria", back.DisplayName())
}

func TestCharacterSpec_Tally(t *testing.T) {
	s := &CharacterSpec{ID: "u2"}
	s.Tally("fight")
	s.Tally("fight")
	s.Tally("wins")
	assert.Equal(t, 2, s.Tallies["fight"])
	assert.Equal(t, 1, s.Tallies["wins"])
}
