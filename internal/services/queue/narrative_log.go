package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLogLimit is how many lines a community's log keeps.
const DefaultLogLimit = 200

// Entry is one stored narrative line.
type Entry struct {
	Kind string    `json:"kind"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// NarrativeLog keeps the most recent narrative lines per community so a
// client that missed the live stream can catch up.
type NarrativeLog struct {
	client *Client
	limit  int
}

func NewNarrativeLog(client *Client, limit int) *NarrativeLog {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &NarrativeLog{client: client, limit: limit}
}

func logKey(communityID string) string {
	return fmt.Sprintf("encounter-log:%s", communityID)
}

// Narrate appends a line and drops the oldest past the limit.
func (l *NarrativeLog) Narrate(ctx context.Context, communityID, kind, text string) error {
	data, err := json.Marshal(Entry{Kind: kind, Text: text, At: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	key := logKey(communityID)
	_, err = l.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, int64(-l.limit), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// Peek returns the newest limit entries, oldest first, without removing them.
// A limit of zero or less returns everything.
func (l *NarrativeLog) Peek(ctx context.Context, communityID string, limit int) ([]Entry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := l.client.rdb.LRange(ctx, logKey(communityID), start, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read narrative log: %w", err)
	}
	return l.decode(communityID, raw), nil
}

// Dequeue removes and returns every entry for a community.
func (l *NarrativeLog) Dequeue(ctx context.Context, communityID string) ([]Entry, error) {
	key := logKey(communityID)
	var lrange *redis.StringSliceCmd
	_, err := l.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain narrative log: %w", err)
	}
	return l.decode(communityID, lrange.Val()), nil
}

// Clear removes all entries for a community.
func (l *NarrativeLog) Clear(ctx context.Context, communityID string) error {
	if err := l.client.rdb.Del(ctx, logKey(communityID)).Err(); err != nil {
		return fmt.Errorf("failed to clear narrative log: %w", err)
	}
	return nil
}

// Depth returns the number of stored entries.
func (l *NarrativeLog) Depth(ctx context.Context, communityID string) (int, error) {
	count, err := l.client.rdb.LLen(ctx, logKey(communityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get log depth: %w", err)
	}
	return int(count), nil
}

func (l *NarrativeLog) decode(communityID string, raw []string) []Entry {
	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			l.client.logger.Warn("Skipping corrupt log entry", "community_id", communityID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}
