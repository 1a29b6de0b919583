package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

// MockStorage is an in-memory Storage for tests. Specs are copied on the way
// in and out so callers cannot mutate stored records by accident.
type MockStorage struct {
	mu         sync.RWMutex
	characters map[string]actor.CharacterSpec
	balances   map[string]int
	loadErrors map[string]error
	bestiary   *actor.Bestiary
	maxBalance int
	pingError  error
	saveError  error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		characters: make(map[string]actor.CharacterSpec),
		balances:   make(map[string]int),
		loadErrors: make(map[string]error),
		bestiary:   &actor.Bestiary{},
		maxBalance: 1_000_000_000,
	}
}

// SetPingSuccess configures the mock to succeed on ping
func (m *MockStorage) SetPingSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = nil
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetLoadError makes LoadCharacter fail for one id.
func (m *MockStorage) SetLoadError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErrors[id] = err
}

// SetSaveError makes every SaveCharacter call fail.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// SetMaxBalance changes the ledger cap.
func (m *MockStorage) SetMaxBalance(v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxBalance = v
}

// SetBestiary replaces the content tables.
func (m *MockStorage) SetBestiary(b *actor.Bestiary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bestiary = b
}

// AddCharacter stores a character and its opening balance (for testing)
func (m *MockStorage) AddCharacter(spec *actor.CharacterSpec, balance int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[spec.ID] = *spec
	m.balances[spec.ID] = balance
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) LoadCharacter(ctx context.Context, id string) (*actor.CharacterSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.loadErrors[id]; err != nil {
		return nil, err
	}
	spec, ok := m.characters[id]
	if !ok {
		return nil, ErrCharacterNotFound
	}
	return &spec, nil
}

func (m *MockStorage) SaveCharacter(ctx context.Context, spec *actor.CharacterSpec) error {
	if spec == nil {
		return errors.New("character cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.characters[spec.ID] = *spec
	return nil
}

func (m *MockStorage) ListCharacters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.characters))
	for id := range m.characters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MockStorage) Balance(ctx context.Context, actorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[actorID], nil
}

func (m *MockStorage) Deposit(ctx context.Context, actorID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.balances[actorID] + amount
	if next > m.maxBalance {
		return m.balances[actorID], ErrBalanceTooHigh
	}
	m.balances[actorID] = next
	return next, nil
}

func (m *MockStorage) Withdraw(ctx context.Context, actorID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if amount > m.balances[actorID] {
		return m.balances[actorID], ErrInsufficientFunds
	}
	m.balances[actorID] -= amount
	return m.balances[actorID], nil
}

func (m *MockStorage) SetBalance(ctx context.Context, actorID string, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[actorID] = min(max(amount, 0), m.maxBalance)
	return nil
}

func (m *MockStorage) MaxBalance() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxBalance
}

func (m *MockStorage) GetBestiary(ctx context.Context) (*actor.Bestiary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bestiary, nil
}
