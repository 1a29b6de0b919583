package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/encounter-engine/internal/services/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubSweeper struct {
	mu      sync.Mutex
	calls   int
	evicted []string
}

func (s *stubSweeper) Sweep(time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := s.evicted
	s.evicted = nil
	return out
}

func (s *stubSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *stubPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func TestWorker_SweepPublishesEvictions(t *testing.T) {
	sweeper := &stubSweeper{evicted: []string{"guild-1", "guild-2"}}
	publisher := &stubPublisher{}
	w := New(sweeper, publisher, time.Second, testLogger(), "sweeper-test")

	evicted := w.sweep()
	assert.Equal(t, []string{"guild-1", "guild-2"}, evicted)
	require.Len(t, publisher.events, 2)
	assert.Equal(t, events.EventTypeEncounterFailed, publisher.events[0].Type)
	assert.Equal(t, "guild-2", publisher.events[1].CommunityID)
	assert.Equal(t, "expired", publisher.events[0].Data["reason"])

	// Nothing left to evict, nothing published.
	assert.Empty(t, w.sweep())
	assert.Len(t, publisher.events, 2)
}

func TestWorker_PublishFailureDoesNotStopSweep(t *testing.T) {
	sweeper := &stubSweeper{evicted: []string{"guild-1"}}
	publisher := &stubPublisher{err: errors.New("redis down")}
	w := New(sweeper, publisher, time.Second, testLogger(), "")

	assert.Equal(t, []string{"guild-1"}, w.sweep())
	assert.Contains(t, w.id, "sweeper-")
}

func TestWorker_StartStop(t *testing.T) {
	sweeper := &stubSweeper{}
	w := New(sweeper, nil, 10*time.Millisecond, testLogger(), "sweeper-test")

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	assert.Eventually(t, func() bool { return sweeper.count() >= 2 }, time.Second, 5*time.Millisecond)
	w.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
