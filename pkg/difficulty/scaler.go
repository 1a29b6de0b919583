// Package difficulty turns a community's outcome history into the target
// its next encounter faces.
package difficulty

import (
	"maps"
	"math"
	"slices"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/history"
)

const (
	// DefaultPoolSize is how many general monsters enter the daily pool.
	DefaultPoolSize = 60
	// BossShare is the fraction of the pool allowed to be bosses.
	BossShare = 0.10
	// MinDefense floors every defense multiplier.
	MinDefense = 0.5
	// FluctuationWidth is the width of the random band above the win ratio.
	FluctuationWidth = 0.4
)

// SelectDailyPool samples size monsters from the general table, merges the
// elite entries and the theme extras, shuffles, and admits bosses only until
// BossShare of the merged pool is reached.
func SelectDailyPool(src dice.Source, general, elite, extras map[string]actor.Monster, size int) map[string]actor.Monster {
	names := slices.Sorted(maps.Keys(general))
	dice.Shuffle(src, names)
	if size >= 0 && size < len(names) {
		names = names[:size]
	}

	merged := make(map[string]actor.Monster, len(names)+len(elite)+len(extras))
	for _, name := range names {
		merged[name] = general[name]
	}
	maps.Copy(merged, elite)
	maps.Copy(merged, extras)

	order := slices.Sorted(maps.Keys(merged))
	dice.Shuffle(src, order)
	target := int(math.RoundToEven(BossShare * float64(len(order))))

	pool := make(map[string]actor.Monster, len(order))
	bosses := 0
	for _, name := range order {
		m := merged[name]
		if m.Boss {
			if bosses >= target {
				continue
			}
			bosses++
		}
		if m.Name == "" {
			m.Name = name
		}
		pool[name] = m
	}
	return pool
}

// RollTranscendence draws 0-10; above 8 the target is transcended and its
// stats are multiplied by a value in [1.0, 1.3).
func RollTranscendence(src dice.Source) (multiplier float64, transcended bool) {
	if dice.Between(src, 0, 10) > 8 {
		return dice.Uniform(src, 1, 1.3), true
	}
	return 1, false
}

func fluctuate(src dice.Source, value, bottom float64) float64 {
	return dice.Uniform(src, bottom, bottom+FluctuationWidth) * value
}

// ScaleStats returns the monster with its hp and diplomacy centered on the
// sample. A category with no historical median scales the monster's own
// baseline; once a median exists it replaces the baseline entirely.
// Defenses fluctuate around their own baseline and never drop below
// MinDefense.
func ScaleStats(src dice.Source, m actor.Monster, multiplier float64, sample history.Sample) actor.Monster {
	m = m.WithDefaults()
	win := sample.WinRatio

	if sample.MedianMelee == 0 {
		m.HP = fluctuate(src, m.HP*multiplier, win)
	} else {
		m.HP = fluctuate(src, sample.MedianMelee*multiplier, win)
	}
	if sample.MedianDiplomacy == 0 {
		m.Dipl = fluctuate(src, m.Dipl*multiplier, win)
	} else {
		m.Dipl = fluctuate(src, sample.MedianDiplomacy*multiplier, win)
	}

	m.PDef = max(fluctuate(src, m.PDef, win), MinDefense)
	m.MDef = max(fluctuate(src, m.MDef, win), MinDefense)
	m.CDef = max(fluctuate(src, m.CDef, win), MinDefense)
	return m
}
