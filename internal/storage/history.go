package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/encounter-engine/pkg/history"
)

const historyPrefix = "outcome-history:"

// RedisHistory keeps each community's outcome records in a Redis list,
// oldest first, trimmed to size after every append.
type RedisHistory struct {
	client *redis.Client
	size   int
	logger *slog.Logger
	now    func() time.Time
}

var _ history.Log = (*RedisHistory)(nil)

func NewRedisHistory(client *redis.Client, size int, logger *slog.Logger) *RedisHistory {
	if size <= 0 {
		size = history.DefaultSize
	}
	return &RedisHistory{client: client, size: size, logger: logger, now: time.Now}
}

func historyKey(communityID string) string {
	return historyPrefix + communityID
}

// historyRetries bounds how often RecordOutcome restarts when another
// writer changes the list between its read and its append.
const historyRetries = 16

// RecordOutcome appends a record derived from the previous one. The read and
// the append run as one WATCH transaction, retried when the list changes
// underneath it.
func (h *RedisHistory) RecordOutcome(ctx context.Context, communityID string, outcome history.Outcome, manual, passive, excluded []string) error {
	key := historyKey(communityID)
	txf := func(tx *redis.Tx) error {
		prev, err := h.last(ctx, tx, communityID)
		if err != nil {
			return err
		}
		rec := history.Record{
			Outcome:    outcome,
			Passive:    history.NextPassive(prev, h.size, manual, passive, excluded),
			RecordedAt: h.now(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal outcome record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, data)
			pipe.LTrim(ctx, key, int64(-h.size), -1)
			return nil
		})
		return err
	}

	for range historyRetries {
		err := h.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			h.logger.Debug("Outcome history changed during append, retrying", "community_id", communityID)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to record outcome: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to record outcome: history for %s kept changing", communityID)
}

func (h *RedisHistory) StatRange(ctx context.Context, communityID string) (history.Sample, error) {
	records, err := h.Records(ctx, communityID)
	if err != nil {
		return history.Sample{}, err
	}
	return history.Summarize(records), nil
}

func (h *RedisHistory) PassiveActors(ctx context.Context, communityID string) ([]string, error) {
	prev, err := h.last(ctx, h.client, communityID)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return []string{}, nil
	}
	return history.PassiveIDs(prev), nil
}

// Records returns the stored records, oldest first. Entries that fail to
// decode are skipped.
func (h *RedisHistory) Records(ctx context.Context, communityID string) ([]history.Record, error) {
	raw, err := h.client.LRange(ctx, historyKey(communityID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read outcome history: %w", err)
	}
	records := make([]history.Record, 0, len(raw))
	for _, item := range raw {
		var rec history.Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			h.logger.Warn("Skipping corrupt outcome record", "community_id", communityID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// indexer is the read half shared by the client and a WATCH transaction.
type indexer interface {
	LIndex(ctx context.Context, key string, index int64) *redis.StringCmd
}

func (h *RedisHistory) last(ctx context.Context, c indexer, communityID string) (*history.Record, error) {
	item, err := c.LIndex(ctx, historyKey(communityID), -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last outcome: %w", err)
	}
	var rec history.Record
	if err := json.Unmarshal([]byte(item), &rec); err != nil {
		h.logger.Warn("Ignoring corrupt outcome record", "community_id", communityID, "error", err)
		return nil, nil
	}
	return &rec, nil
}
