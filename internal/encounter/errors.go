package encounter

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/encounter-engine/pkg/storage"
)

var (
	ErrEncounterActive    = errors.New("an encounter is already running")
	ErrNoEncounter        = errors.New("no encounter is running")
	ErrWindowClosed       = errors.New("the encounter is no longer accepting actions")
	ErrActorBusy          = errors.New("actor is in another encounter")
	ErrOnCooldown         = errors.New("on cooldown")
	ErrAbilityUnavailable = errors.New("ability unavailable")
	ErrInvalidAction      = errors.New("invalid action")
	ErrNotJoined          = errors.New("actor has not joined the encounter")
	ErrInvalidRequest     = errors.New("invalid request")
)

// ValidationError is a rejected request. No state was changed.
type ValidationError struct {
	Err    error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Detail: fmt.Sprintf(format, args...)}
}

// FatalError is an encounter that could not be finalized. It was purged
// and the community's cooldown was reset.
type FatalError struct {
	CommunityID string
	EncounterID string
	Err         error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("encounter %s in %s failed: %v", e.EncounterID, e.CommunityID, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsValidation reports whether err should be shown to the requesting actor.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v) || errors.Is(err, storage.ErrInsufficientFunds)
}
