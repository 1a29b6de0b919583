package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBalanceTooHigh is returned by Deposit when the result would exceed
	// MaxBalance. The balance is left unchanged.
	ErrBalanceTooHigh = errors.New("balance too high")
)

// Characters loads and saves character records. Callers hold the actor lock
// around a load-modify-save cycle.
type Characters interface {
	LoadCharacter(ctx context.Context, id string) (*actor.CharacterSpec, error)
	SaveCharacter(ctx context.Context, spec *actor.CharacterSpec) error
	ListCharacters(ctx context.Context) ([]string, error)
}

// Ledger is the currency ledger. Balances never go negative.
//
//go:generate go tool mockgen -destination=./mocks/ledger_mock.go -package=mocks . Ledger
type Ledger interface {
	Balance(ctx context.Context, actorID string) (int, error)
	Deposit(ctx context.Context, actorID string, amount int) (int, error)
	Withdraw(ctx context.Context, actorID string, amount int) (int, error)
	SetBalance(ctx context.Context, actorID string, amount int) error
	MaxBalance() int
}

// Storage defines a unified interface for all storage operations.
// Character records and balances are Redis-backed; the bestiary is loaded
// from the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	Characters
	Ledger

	// GetBestiary returns the static content tables.
	GetBestiary(ctx context.Context) (*actor.Bestiary, error)
}
