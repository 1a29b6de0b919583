package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHistory_BoundedFIFO(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(1, 12).Draw(t, "size")
		n := rapid.IntRange(0, 40).Draw(t, "records")
		h := New(size)
		ctx := context.Background()

		for i := range n {
			err := h.RecordOutcome(ctx, "guild", Outcome{Category: CategoryMelee, Amount: float64(i), PartySize: 2}, nil, nil, nil)
			if err != nil {
				t.Fatalf("record %d: %v", i, err)
			}
			if got := len(h.Records("guild")); got > size {
				t.Fatalf("history length %d exceeds bound %d", got, size)
			}
		}

		records := h.Records("guild")
		want := min(n, size)
		if len(records) != want {
			t.Fatalf("expected %d records, got %d", want, len(records))
		}
		// the survivors are the newest records in insertion order
		for i, r := range records {
			if expected := float64(n - want + i); r.Amount != expected {
				t.Fatalf("record %d: expected amount %v, got %v", i, expected, r.Amount)
			}
		}
	})
}

func TestSummarize_EmptyIsNeutral(t *testing.T) {
	h := New(DefaultSize)
	s, err := h.StatRange(context.Background(), "nobody")
	require.NoError(t, err)

	assert.Equal(t, 0.5, s.WinRatio)
	assert.Zero(t, s.MedianMelee)
	assert.Zero(t, s.MedianDiplomacy)
	assert.Equal(t, 200.0, s.MinStat)
	assert.Equal(t, 600.0, s.MaxStat)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		records  []Record
		melee    float64
		dipl     float64
		win      float64
		statType Category
		minStat  float64
		maxStat  float64
	}{
		{
			name: "median resists an outlier",
			records: []Record{
				{Outcome: Outcome{Category: CategoryMelee, Amount: 100, PartySize: 3, Success: true}},
				{Outcome: Outcome{Category: CategoryMelee, Amount: 120, PartySize: 3, Success: true}},
				{Outcome: Outcome{Category: CategoryMelee, Amount: 90000, PartySize: 3, Success: true}},
			},
			melee:    120,
			win:      1,
			statType: CategoryMelee,
			minStat:  60,
			maxStat:  240,
		},
		{
			name: "even count averages the middle pair",
			records: []Record{
				{Outcome: Outcome{Category: CategoryDiplomacy, Amount: 100, PartySize: 2}},
				{Outcome: Outcome{Category: CategoryDiplomacy, Amount: 300, PartySize: 2, Success: true}},
				{Outcome: Outcome{Category: CategoryMelee, Amount: 50, PartySize: 2}},
				{Outcome: Outcome{Category: CategoryMelee, Amount: 70, PartySize: 2}},
			},
			melee:    60,
			dipl:     200,
			win:      0.25,
			statType: CategoryDiplomacy,
			minStat:  50,
			maxStat:  300,
		},
		{
			name: "solo amounts are inflated",
			records: []Record{
				{Outcome: Outcome{Category: CategoryMelee, Amount: 400, PartySize: 1, Success: true}},
			},
			melee:    500,
			win:      1,
			statType: CategoryMelee,
			minStat:  250,
			maxStat:  1000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.records)
			assert.InDelta(t, tt.melee, s.MedianMelee, 1e-9)
			assert.InDelta(t, tt.dipl, s.MedianDiplomacy, 1e-9)
			assert.InDelta(t, tt.win, s.WinRatio, 1e-9)
			assert.Equal(t, tt.statType, s.StatType)
			assert.InDelta(t, tt.minStat, s.MinStat, 1e-9)
			assert.InDelta(t, tt.maxStat, s.MaxStat, 1e-9)
			assert.Equal(t, len(tt.records), s.Records)
		})
	}
}

func TestNextPassive(t *testing.T) {
	const size = 10

	t.Run("first record ever", func(t *testing.T) {
		got := NextPassive(nil, size, []string{"m1"}, []string{"p1", "p2"}, []string{"p2"})
		assert.Equal(t, map[string]int{"m1": 20, "p1": 19}, got)
	})

	t.Run("continuing passive actors decay", func(t *testing.T) {
		prev := &Record{Passive: map[string]int{"p1": 5, "p2": 0}}
		got := NextPassive(prev, size, nil, []string{"p1", "p2", "p3"}, nil)
		assert.Equal(t, map[string]int{"p1": 4, "p3": 19}, got)
	})

	t.Run("manual action refreshes eligibility", func(t *testing.T) {
		prev := &Record{Passive: map[string]int{"p1": 1}}
		got := NextPassive(prev, size, []string{"p1"}, nil, nil)
		assert.Equal(t, map[string]int{"p1": 20}, got)
	})

	t.Run("absent actors are not carried", func(t *testing.T) {
		prev := &Record{Passive: map[string]int{"gone": 7}}
		got := NextPassive(prev, size, []string{"m1"}, nil, nil)
		assert.NotContains(t, got, "gone")
	})
}

func TestHistory_PassiveActors(t *testing.T) {
	h := New(3)
	ctx := context.Background()

	ids, err := h.PassiveActors(ctx, "guild")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, h.RecordOutcome(ctx, "guild", Outcome{Category: CategoryMelee, Amount: 10}, []string{"b", "a"}, nil, nil))
	require.NoError(t, h.RecordOutcome(ctx, "other", Outcome{Category: CategoryMelee, Amount: 10}, []string{"z"}, nil, nil))

	ids, err = h.PassiveActors(ctx, "guild")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	// the countdown runs out after 2*size passive rounds
	for i := range 6 {
		require.NoError(t, h.RecordOutcome(ctx, "guild", Outcome{Category: CategoryMelee}, nil, ids, nil), fmt.Sprint(i))
		ids, err = h.PassiveActors(ctx, "guild")
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 0, h.Records("guild")[2].Passive["a"])

	require.NoError(t, h.RecordOutcome(ctx, "guild", Outcome{Category: CategoryMelee}, nil, ids, nil))
	ids, err = h.PassiveActors(ctx, "guild")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
