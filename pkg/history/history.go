// Package history keeps the rolling log of finished encounters each
// community has played and derives the difficulty sample from it.
package history

import (
	"context"
	"maps"
	"slices"
	"time"
)

// DefaultSize is the number of records kept per community.
const DefaultSize = 10

// SoloScale inflates amounts produced by a single actor so one strong
// player cannot pull the next target down to their own level.
const SoloScale = 0.25

// Category is the dominant action of a finished encounter.
type Category string

const (
	CategoryMelee     Category = "melee"
	CategoryDiplomacy Category = "diplomacy"
)

// Outcome is what the encounter manager reports after finalization.
type Outcome struct {
	Category  Category `json:"category"`
	Amount    float64  `json:"amount"`
	PartySize int      `json:"party_size"`
	Success   bool     `json:"success"`
}

// Record is one immutable entry of the log. Passive maps actor ids to the
// number of future encounters they may still join automatically.
type Record struct {
	Outcome
	Passive    map[string]int `json:"passive,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Sample is the difficulty summary computed from a community's log.
type Sample struct {
	StatType        Category `json:"stat_type"`
	MinStat         float64  `json:"min_stat"`
	MaxStat         float64  `json:"max_stat"`
	MedianMelee     float64  `json:"median_melee"`
	MedianDiplomacy float64  `json:"median_diplomacy"`
	WinRatio        float64  `json:"win_ratio"`
	Records         int      `json:"records"`
}

// Neutral is the sample for a community with no history.
func Neutral() Sample {
	return Sample{
		StatType: CategoryMelee,
		MinStat:  200,
		MaxStat:  600,
		WinRatio: 0.5,
	}
}

// Log is the per-community outcome history.
type Log interface {
	RecordOutcome(ctx context.Context, communityID string, outcome Outcome, manual, passive, excluded []string) error
	StatRange(ctx context.Context, communityID string) (Sample, error)
	PassiveActors(ctx context.Context, communityID string) ([]string, error)
}

// NextPassive computes the passive eligibility map stored with a new record.
//
// Manual actors get a fresh 2*size counter. Passive actors continue from the
// previous record: a counter already at zero drops them, otherwise it is
// decremented; an actor missing from the previous record restarts at
// 2*size-1. With no previous record every passive actor starts at 2*size-1.
// Excluded actors are removed last.
func NextPassive(prev *Record, size int, manual, passive, excluded []string) map[string]int {
	fresh := size * 2
	next := make(map[string]int, len(manual)+len(passive))
	for _, id := range manual {
		next[id] = fresh
	}

	if prev != nil {
		for _, id := range passive {
			count, ok := prev.Passive[id]
			if !ok {
				count = fresh
				next[id] = count
			}
			if count == 0 {
				continue
			}
			next[id] = count - 1
		}
	} else {
		for _, id := range passive {
			next[id] = fresh - 1
		}
	}

	for _, id := range excluded {
		delete(next, id)
	}
	return next
}

// Append adds rec and evicts from the front until at most size records remain.
func Append(records []Record, rec Record, size int) []Record {
	out := make([]Record, 0, min(len(records)+1, size))
	out = append(out, records...)
	out = append(out, rec)
	if over := len(out) - size; over > 0 {
		out = out[over:]
	}
	return out
}

// Summarize derives a Sample from records, oldest first.
func Summarize(records []Record) Sample {
	if len(records) == 0 {
		return Neutral()
	}

	var melee, diplomacy []float64
	var meleeTotal, diplomacyTotal float64
	wins := 0
	for _, r := range records {
		amount := r.Amount
		if r.PartySize == 1 {
			amount += r.Amount * SoloScale
		}
		if r.Category == CategoryMelee {
			melee = append(melee, amount)
			meleeTotal += amount
		} else {
			diplomacy = append(diplomacy, amount)
			diplomacyTotal += amount
		}
		if r.Success {
			wins++
		}
	}

	s := Sample{
		StatType:        CategoryMelee,
		MedianMelee:     median(melee),
		MedianDiplomacy: median(diplomacy),
		WinRatio:        float64(wins) / float64(len(records)),
		Records:         len(records),
	}

	base := s.MedianMelee
	if meleeTotal < diplomacyTotal {
		s.StatType = CategoryDiplomacy
		base = s.MedianDiplomacy
	}
	s.MinStat, s.MaxStat = base*0.5, base*2
	if s.WinRatio < 0.5 {
		s.MinStat, s.MaxStat = base*s.WinRatio, base*1.5
	}
	return s
}

// Median returns the median amount for a category, zero when absent.
func (s Sample) Median(c Category) float64 {
	if c == CategoryDiplomacy {
		return s.MedianDiplomacy
	}
	return s.MedianMelee
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// PassiveIDs returns the sorted actor ids of a record's passive map.
func PassiveIDs(r *Record) []string {
	if r == nil {
		return []string{}
	}
	return slices.Sorted(maps.Keys(r.Passive))
}
