package history

import (
	"context"
	"sync"
	"time"
)

// History is the in-process Log. Records are replaced, never mutated, so a
// snapshot handed to a reader stays valid.
type History struct {
	mu      sync.RWMutex
	size    int
	records map[string][]Record
	now     func() time.Time
}

var _ Log = (*History)(nil)

// New returns an empty History keeping size records per community.
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{
		size:    size,
		records: make(map[string][]Record),
		now:     time.Now,
	}
}

// RecordOutcome appends a record for the community.
func (h *History) RecordOutcome(ctx context.Context, communityID string, outcome Outcome, manual, passive, excluded []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	records := h.records[communityID]
	var prev *Record
	if len(records) > 0 {
		prev = &records[len(records)-1]
	}
	rec := Record{
		Outcome:    outcome,
		Passive:    NextPassive(prev, h.size, manual, passive, excluded),
		RecordedAt: h.now(),
	}
	h.records[communityID] = Append(records, rec, h.size)
	return nil
}

// StatRange summarizes the community's records.
func (h *History) StatRange(ctx context.Context, communityID string) (Sample, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Summarize(h.records[communityID]), nil
}

// PassiveActors returns the passive set of the most recent record.
func (h *History) PassiveActors(ctx context.Context, communityID string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	records := h.records[communityID]
	if len(records) == 0 {
		return []string{}, nil
	}
	return PassiveIDs(&records[len(records)-1]), nil
}

// Records returns the community's records, oldest first.
func (h *History) Records(communityID string) []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records[communityID]...)
}
