package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/encounter-engine/pkg/history"
)

func TestDifficultyHandler(t *testing.T) {
	sample := history.Sample{
		StatType:    history.CategoryMelee,
		MinStat:     12,
		MaxStat:     40,
		MedianMelee: 25,
		WinRatio:    0.5,
		Records:     4,
	}

	t.Run("sample", func(t *testing.T) {
		h := NewDifficultyHandler(&fakeEncounters{sample: sample}, testLogger())
		rr := serve(h, http.MethodGet, "/v1/difficulty/guild-1", "")

		require.Equal(t, http.StatusOK, rr.Code)
		var got history.Sample
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, sample, got)
	})

	t.Run("storage failure", func(t *testing.T) {
		h := NewDifficultyHandler(&fakeEncounters{err: errors.New("redis down")}, testLogger())
		rr := serve(h, http.MethodGet, "/v1/difficulty/guild-1", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("missing community", func(t *testing.T) {
		h := NewDifficultyHandler(&fakeEncounters{}, testLogger())
		rr := serve(h, http.MethodGet, "/v1/difficulty/", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := NewDifficultyHandler(&fakeEncounters{}, testLogger())
		rr := serve(h, http.MethodPost, "/v1/difficulty/guild-1", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
