package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/encounter-engine/pkg/storage"
)

const (
	balancePrefix = "balance:"

	// DefaultMaxBalance caps every balance unless configured otherwise.
	DefaultMaxBalance = 1_000_000_000
)

// depositScript adds ARGV[1] unless the result would pass the cap in ARGV[2].
// It returns the new balance, or -1 when the cap was hit.
var depositScript = redis.NewScript(`
	local bal = tonumber(redis.call("get", KEYS[1]) or "0")
	local updated = bal + tonumber(ARGV[1])
	if updated > tonumber(ARGV[2]) then
		return -1
	end
	redis.call("set", KEYS[1], updated)
	return updated
`)

// withdrawScript takes ARGV[1] if the balance covers it, otherwise -1.
var withdrawScript = redis.NewScript(`
	local bal = tonumber(redis.call("get", KEYS[1]) or "0")
	local amount = tonumber(ARGV[1])
	if amount > bal then
		return -1
	end
	redis.call("set", KEYS[1], bal - amount)
	return bal - amount
`)

// Ledger operations (Redis-backed)

func (r *RedisStorage) Balance(ctx context.Context, actorID string) (int, error) {
	bal, err := r.client.Get(ctx, balancePrefix+actorID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return bal, nil
}

func (r *RedisStorage) Deposit(ctx context.Context, actorID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("deposit amount must be non-negative, got %d", amount)
	}
	next, err := depositScript.Run(ctx, r.client, []string{balancePrefix + actorID}, amount, r.maxBalance).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to deposit: %w", err)
	}
	if next < 0 {
		bal, err := r.Balance(ctx, actorID)
		if err != nil {
			return 0, err
		}
		return bal, storage.ErrBalanceTooHigh
	}
	return next, nil
}

func (r *RedisStorage) Withdraw(ctx context.Context, actorID string, amount int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("withdraw amount must be non-negative, got %d", amount)
	}
	next, err := withdrawScript.Run(ctx, r.client, []string{balancePrefix + actorID}, amount).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw: %w", err)
	}
	if next < 0 {
		bal, err := r.Balance(ctx, actorID)
		if err != nil {
			return 0, err
		}
		return bal, storage.ErrInsufficientFunds
	}
	return next, nil
}

func (r *RedisStorage) SetBalance(ctx context.Context, actorID string, amount int) error {
	amount = min(max(amount, 0), r.maxBalance)
	if err := r.client.Set(ctx, balancePrefix+actorID, amount, 0).Err(); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

func (r *RedisStorage) MaxBalance() int {
	return r.maxBalance
}
