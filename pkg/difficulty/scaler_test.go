package difficulty

import (
	"fmt"
	"testing"
	"time"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func monsters(prefix string, n int, boss bool) map[string]actor.Monster {
	out := make(map[string]actor.Monster, n)
	for i := range n {
		name := fmt.Sprintf("%s %d", prefix, i)
		out[name] = actor.Monster{Name: name, HP: 100, Dipl: 100, Boss: boss}
	}
	return out
}

func TestSelectDailyPool(t *testing.T) {
	general := monsters("Goblin", 80, false)
	for name, m := range monsters("Dragon", 20, true) {
		general[name] = m
	}
	elite := monsters("Ascended", 5, true)
	extras := monsters("Pumpkin", 3, false)

	for seed := range uint64(10) {
		pool := SelectDailyPool(dice.New(seed), general, elite, extras, DefaultPoolSize)

		bosses := 0
		for _, m := range pool {
			if m.Boss {
				bosses++
			}
		}
		// 60 sampled + 5 elite + 3 extras = 68 candidates, round(6.8) = 7 bosses allowed
		assert.LessOrEqual(t, bosses, 7, "seed %d", seed)
		for name := range extras {
			assert.Contains(t, pool, name, "theme extras are always merged")
		}
	}
}

func TestSelectDailyPool_Deterministic(t *testing.T) {
	general := monsters("Goblin", 100, false)
	a := SelectDailyPool(dice.New(99), general, nil, nil, 60)
	b := SelectDailyPool(dice.New(99), general, nil, nil, 60)
	assert.Equal(t, a, b)
	assert.Len(t, a, 60)
}

func TestRollTranscendence(t *testing.T) {
	mult, ok := RollTranscendence(&dice.Fixed{Ints: []int{8}})
	assert.False(t, ok)
	assert.Equal(t, 1.0, mult)

	mult, ok = RollTranscendence(&dice.Fixed{Ints: []int{9}, Floats: []float64{0.5}})
	assert.True(t, ok)
	assert.InDelta(t, 1.15, mult, 1e-9)
}

func TestScaleStats(t *testing.T) {
	base := actor.Monster{Name: "Ogre", HP: 200, Dipl: 100, PDef: 2}

	t.Run("empty history scales the baseline", func(t *testing.T) {
		src := &dice.Fixed{Floats: []float64{0, 0, 0, 0, 0}}
		got := ScaleStats(src, base, 1.5, history.Neutral())
		assert.InDelta(t, 150, got.HP, 1e-9)  // 200 * 1.5 * 0.5
		assert.InDelta(t, 75, got.Dipl, 1e-9) // 100 * 1.5 * 0.5
		assert.InDelta(t, 1, got.PDef, 1e-9)
		assert.InDelta(t, MinDefense, got.MDef, 1e-9)
	})

	t.Run("history median replaces the baseline", func(t *testing.T) {
		sample := history.Sample{MedianMelee: 1000, WinRatio: 1}
		src := &dice.Fixed{Floats: []float64{0, 0, 0, 0, 0}}
		got := ScaleStats(src, base, 1, sample)
		assert.InDelta(t, 1000, got.HP, 1e-9)
		assert.InDelta(t, 100, got.Dipl, 1e-9, "diplomacy has no median and keeps its baseline")
	})
}

func TestScaleStats_DefenseFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := actor.Monster{
			Name: "Anything",
			HP:   rapid.Float64Range(0, 1e6).Draw(t, "hp"),
			Dipl: rapid.Float64Range(0, 1e6).Draw(t, "dipl"),
			PDef: rapid.Float64Range(0, 5).Draw(t, "pdef"),
			MDef: rapid.Float64Range(0, 5).Draw(t, "mdef"),
			CDef: rapid.Float64Range(0, 5).Draw(t, "cdef"),
		}
		sample := history.Sample{
			MedianMelee:     rapid.Float64Range(0, 1e5).Draw(t, "median_melee"),
			MedianDiplomacy: rapid.Float64Range(0, 1e5).Draw(t, "median_dipl"),
			WinRatio:        rapid.Float64Range(0, 1).Draw(t, "win"),
		}
		mult := rapid.Float64Range(0, 10).Draw(t, "multiplier")
		got := ScaleStats(dice.New(rapid.Uint64().Draw(t, "seed")), m, mult, sample)
		for name, def := range map[string]float64{"pdef": got.PDef, "mdef": got.MDef, "cdef": got.CDef} {
			if def < MinDefense {
				t.Fatalf("%s %v below floor", name, def)
			}
		}
	})
}

func TestHidden(t *testing.T) {
	assert.False(t, Hidden(dice.New(1), 50, true))
	assert.True(t, Hidden(dice.New(1), 30, false))
	assert.False(t, Hidden(dice.New(1), 19, false))
	assert.True(t, Hidden(&dice.Fixed{Ints: []int{1}}, 25, false))
	assert.False(t, Hidden(&dice.Fixed{Ints: []int{0}}, 25, false))
}

func TestNoTarget(t *testing.T) {
	assert.False(t, NoTarget(&dice.Fixed{Ints: []int{25}}, false))
	assert.True(t, NoTarget(&dice.Fixed{Ints: []int{25}}, true))
	assert.False(t, NoTarget(&dice.Fixed{Ints: []int{24}}, true))
}

func TestCountdown(t *testing.T) {
	tests := []struct {
		name   string
		m      actor.Monster
		hidden bool
		want   time.Duration
	}{
		{"plain", actor.Monster{}, false, DefaultCountdown},
		{"boss", actor.Monster{Boss: true}, false, BossCountdown},
		{"guardian", actor.Monster{Guardian: &actor.Guardian{Kind: actor.GuardianSignal}}, false, GuardianCountdown},
		{"hidden boss", actor.Monster{Boss: true}, true, HiddenCountdown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Countdown(tt.m, tt.hidden))
		})
	}
}

func TestPickTargetAndAttribute(t *testing.T) {
	pool := monsters("Goblin", 3, false)
	name, m := PickTarget(dice.New(1), pool, "Goblin 2")
	assert.Equal(t, "Goblin 2", name)
	assert.Equal(t, "Goblin 2", m.Name)

	name, _ = PickTarget(dice.New(1), pool, "Dragon")
	assert.Contains(t, pool, name)

	attrs := map[string]actor.Attribute{" sickly": {HP: 0.5, Dipl: 0.5}, "n immortal": {HP: 2, Dipl: 2}}
	key, a := PickAttribute(dice.New(1), attrs, "N IMMORTAL")
	assert.Equal(t, "n immortal", key)
	assert.Equal(t, 2.0, a.HP)

	key, a = PickAttribute(dice.New(1), nil, "")
	assert.Empty(t, key)
	assert.Equal(t, actor.Attribute{HP: 1, Dipl: 1}, a)
}

func TestRoster_PoolIsStableWithinADay(t *testing.T) {
	b := &actor.Bestiary{Monsters: monsters("Goblin", 100, false)}
	r := NewRoster(b, "", 10)
	src := dice.New(5)

	day := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	first := r.Pool(src, day)
	require.Len(t, first, 10)
	assert.Equal(t, first, r.Pool(src, day.Add(6*time.Hour)))

	next := r.Pool(src, day.Add(24*time.Hour))
	assert.Len(t, next, 10)
}
