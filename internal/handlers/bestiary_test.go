package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/storage"
)

func testBestiaryStorage() *storage.MockStorage {
	mockStorage := storage.NewMockStorage()
	mockStorage.SetBestiary(&actor.Bestiary{
		Monsters: map[string]actor.Monster{
			"Slime": {Name: "Slime", HP: 20, Dipl: 20},
			"Ogre":  {Name: "Ogre", HP: 50, Dipl: 50},
		},
		Elite: map[string]actor.Monster{
			"Dragon": {Name: "Dragon", HP: 900, Dipl: 900, Boss: true},
		},
		Themes: map[string]map[string]actor.Monster{
			"halloween": {"Pumpkin King": {Name: "Pumpkin King", HP: 120, Dipl: 80}},
		},
		Attributes: map[string]actor.Attribute{"sickly": {HP: 0.8, Dipl: 0.8}},
		Locations:  []string{"the old mill", "a ruined keep"},
	})
	return mockStorage
}

func TestBestiaryHandler_List(t *testing.T) {
	h := NewBestiaryHandler(testLogger(), testBestiaryStorage())

	rr := serve(h, http.MethodGet, "/v1/bestiary", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var response BestiaryResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, []string{"Ogre", "Slime"}, response.Monsters)
	assert.Equal(t, []string{"Dragon"}, response.Elite)
	assert.Equal(t, []string{"Pumpkin King"}, response.Themes["halloween"])
	assert.Equal(t, []string{"sickly"}, response.Attributes)
	assert.Equal(t, 2, response.Locations)
}

func TestBestiaryHandler_Get(t *testing.T) {
	h := NewBestiaryHandler(testLogger(), testBestiaryStorage())

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedName   string
	}{
		{"general", "/v1/bestiary/Ogre", http.StatusOK, "Ogre"},
		{"elite", "/v1/bestiary/Dragon", http.StatusOK, "Dragon"},
		{"theme", "/v1/bestiary/Pumpkin%20King", http.StatusOK, "Pumpkin King"},
		{"unknown", "/v1/bestiary/Gnoll", http.StatusNotFound, ""},
		{"nested", "/v1/bestiary/Ogre/extra", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h, http.MethodGet, tt.path, "")
			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedName == "" {
				return
			}
			var m actor.Monster
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
			assert.Equal(t, tt.expectedName, m.Name)
		})
	}
}

func TestBestiaryHandler_MethodNotAllowed(t *testing.T) {
	h := NewBestiaryHandler(testLogger(), testBestiaryStorage())
	rr := serve(h, http.MethodPost, "/v1/bestiary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
