package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/storage"
)

const characterPrefix = "character:"

// Character operations (Redis-backed)

func (r *RedisStorage) LoadCharacter(ctx context.Context, id string) (*actor.CharacterSpec, error) {
	data, err := r.client.Get(ctx, characterPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", storage.ErrCharacterNotFound, id)
		}
		r.logger.Error("Failed to load character", "actor_id", id, "error", err)
		return nil, fmt.Errorf("failed to load character: %w", err)
	}

	var spec actor.CharacterSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		r.logger.Error("Failed to unmarshal character", "actor_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal character: %w", err)
	}
	spec.ID = id
	return &spec, nil
}

func (r *RedisStorage) SaveCharacter(ctx context.Context, spec *actor.CharacterSpec) error {
	if spec == nil || spec.ID == "" {
		return errors.New("character must have an id")
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal character: %w", err)
	}
	if err := r.client.Set(ctx, characterPrefix+spec.ID, data, 0).Err(); err != nil {
		r.logger.Error("Failed to save character", "actor_id", spec.ID, "error", err)
		return fmt.Errorf("failed to save character: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListCharacters(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.client.Scan(ctx, 0, characterPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), characterPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	slices.Sort(ids)
	return ids, nil
}
