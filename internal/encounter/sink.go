package encounter

import (
	"context"
	"errors"
)

// Narrative kinds passed to a Sink.
const (
	KindOpened    = "encounter.opened"
	KindRoster    = "encounter.roster_changed"
	KindNarrative = "encounter.narrative"
	KindFinalized = "encounter.finalized"
	KindFailed    = "encounter.failed"
)

// Sink receives the plain narrative text the engine produces. Presentation
// is up to the implementation.
//
//go:generate go tool mockgen -destination=./mocks/sink_mock.go -package=mocks . Sink
type Sink interface {
	Narrate(ctx context.Context, communityID, kind, text string) error
}

// Sinks fans a line out to every sink and joins their errors.
type Sinks []Sink

func (s Sinks) Narrate(ctx context.Context, communityID, kind, text string) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Narrate(ctx, communityID, kind, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type discard struct{}

func (discard) Narrate(context.Context, string, string, string) error { return nil }
