package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
)

const (
	bestiaryFile = "bestiary.json"
	themesDir    = "themes"
)

// LoadBestiary reads dataDir/bestiary.json and merges each
// dataDir/themes/<theme>.json as that theme's extra entries. Strict mode
// rejects unknown fields.
func LoadBestiary(dataDir string, strict bool) (*actor.Bestiary, error) {
	path := filepath.Join(dataDir, bestiaryFile)
	var b actor.Bestiary
	if err := decodeFile(path, &b, strict); err != nil {
		return nil, err
	}

	dir := filepath.Join(dataDir, themesDir)
	if _, err := os.Stat(dir); err == nil {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(path) != ".json" {
				return nil
			}
			var extra map[string]actor.Monster
			if err := decodeFile(path, &extra, strict); err != nil {
				return err
			}
			if b.Themes == nil {
				b.Themes = make(map[string]map[string]actor.Monster)
			}
			b.Themes[strings.TrimSuffix(d.Name(), ".json")] = extra
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load themes: %w", err)
		}
	}

	b.Normalize()
	return &b, nil
}

func decodeFile(path string, v any, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("bestiary file not found: %s", path)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Bestiary operations (filesystem-backed)

// GetBestiary loads the bestiary once and caches it. Concurrent first calls
// share one load.
func (r *RedisStorage) GetBestiary(ctx context.Context) (*actor.Bestiary, error) {
	r.mu.RLock()
	cached := r.bestiary
	r.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return r.loadBestiary()
}

// ReloadBestiary drops the cached tables and reads them again.
func (r *RedisStorage) ReloadBestiary(ctx context.Context) (*actor.Bestiary, error) {
	r.mu.Lock()
	r.bestiary = nil
	r.mu.Unlock()
	return r.loadBestiary()
}

func (r *RedisStorage) loadBestiary() (*actor.Bestiary, error) {
	v, err, _ := r.loads.Do("bestiary", func() (any, error) {
		r.mu.RLock()
		cached := r.bestiary
		r.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		b, err := LoadBestiary(r.dataDir, false)
		if err != nil {
			return nil, err
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid bestiary: %w", err)
		}
		r.mu.Lock()
		r.bestiary = b
		r.mu.Unlock()
		r.logger.Info("Bestiary loaded",
			"monsters", len(b.Monsters),
			"elite", len(b.Elite),
			"themes", len(b.Themes),
			"attributes", len(b.Attributes),
		)
		return b, nil
	})
	if err != nil {
		r.logger.Error("Failed to load bestiary", "data_dir", r.dataDir, "error", err)
		return nil, err
	}
	return v.(*actor.Bestiary), nil
}
