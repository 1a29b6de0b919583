package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/encounter-engine/internal/services/events"
)

const (
	// DefaultInterval is how often the sweeper checks for stale encounters.
	DefaultInterval = 5 * time.Second
	publishTimeout  = 5 * time.Second
)

// Sweeper evicts encounters that outlived their countdown.
type Sweeper interface {
	Sweep(now time.Time) []string
}

// Publisher announces evictions.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Worker runs the background garbage collection of live encounters
type Worker struct {
	id        string
	sweeper   Sweeper
	publisher Publisher
	interval  time.Duration
	now       func() time.Time
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new worker instance. publisher may be nil.
func New(sweeper Sweeper, publisher Publisher, interval time.Duration, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("sweeper-%s", uuid.New().String()[:8])
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Worker{
		id:        workerID,
		sweeper:   sweeper,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start sweeps on every tick until Stop is called
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		case <-ticker.C:
			w.sweep()
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// sweep runs one pass and announces what it evicted.
func (w *Worker) sweep() []string {
	evicted := w.sweeper.Sweep(w.now())
	if len(evicted) == 0 {
		return evicted
	}

	w.log.Warn("Evicted stale encounters", "worker_id", w.id, "count", len(evicted))
	if w.publisher == nil {
		return evicted
	}

	ctx, cancel := context.WithTimeout(w.ctx, publishTimeout)
	defer cancel()
	for _, communityID := range evicted {
		err := w.publisher.Publish(ctx, events.Event{
			Type:        events.EventTypeEncounterFailed,
			CommunityID: communityID,
			Data:        map[string]any{"reason": "expired"},
		})
		if err != nil {
			// Don't fail the sweep just because event publishing failed
			w.log.Error("Failed to publish eviction", "error", err, "community_id", communityID)
		}
	}
	return evicted
}
