package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeEncounterOpened    EventType = "encounter.opened"
	EventTypeRosterChanged      EventType = "encounter.roster_changed"
	EventTypeEncounterNarrative EventType = "encounter.narrative"
	EventTypeEncounterFinalized EventType = "encounter.finalized"
	EventTypeEncounterFailed    EventType = "encounter.failed"
)

// Event represents a generic event structure
type Event struct {
	Type        EventType      `json:"type"`
	CommunityID string         `json:"community_id"`
	EncounterID string         `json:"encounter_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	SentAt      time.Time      `json:"sent_at"`
}

// Channel is the Pub/Sub channel carrying a community's encounter events.
func Channel(communityID string) string {
	return "encounter-events:" + communityID
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Narrate publishes one narrative line. kind becomes the event type so
// subscribers can tell opening text from results.
func (b *Broadcaster) Narrate(ctx context.Context, communityID, kind, text string) error {
	return b.Publish(ctx, Event{
		Type:        EventType(kind),
		CommunityID: communityID,
		Data:        map[string]any{"text": text},
	})
}

// Publish sends an event to the community channel.
func (b *Broadcaster) Publish(ctx context.Context, event Event) error {
	channel := Channel(event.CommunityID)
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"encounter_id", event.EncounterID,
	)
	return nil
}
