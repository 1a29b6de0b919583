package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Lock backends.
const (
	LockBackendRedis  = "redis"
	LockBackendMemory = "memory"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string     `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level `env:"-"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	DataDir  string `env:"DATA_DIR" envDefault:"./data"`

	// NarrativeRedisURL moves the narrative log to its own Redis. Empty
	// shares REDIS_URL.
	NarrativeRedisURL string `env:"NARRATIVE_REDIS_URL"`

	HistorySize       int           `env:"HISTORY_SIZE" envDefault:"10"`
	DailyPoolSize     int           `env:"DAILY_POOL_SIZE" envDefault:"60"`
	EncounterCost     int           `env:"ENCOUNTER_COST" envDefault:"250"`
	EncounterCooldown time.Duration `env:"ENCOUNTER_COOLDOWN" envDefault:"2m"`
	GCInterval        time.Duration `env:"GC_INTERVAL" envDefault:"5s"`
	GCMargin          time.Duration `env:"GC_MARGIN" envDefault:"1m"`
	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"30s"`
	LockBackend       string        `env:"LOCK_BACKEND" envDefault:"redis"`
	MaxBalance        int           `env:"MAX_BALANCE" envDefault:"1000000000"`
	Theme             string        `env:"THEME"`
	NarrativeLogLimit int           `env:"LOG_NARRATIVE" envDefault:"200"`

	// DAILY_BONUS is a list of isoWeekday:multiplier pairs, 7 being Sunday.
	DailyBonusRaw string                   `env:"DAILY_BONUS" envDefault:"6:0.5,7:0.5"`
	DailyBonus    map[time.Weekday]float64 `env:"-"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	bonus, err := parseDailyBonus(cfg.DailyBonusRaw)
	if err != nil {
		return nil, err
	}
	cfg.DailyBonus = bonus

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LockBackend {
	case LockBackendRedis, LockBackendMemory:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q: want redis or memory", c.LockBackend)
	}
	if c.EncounterCost < 0 {
		return fmt.Errorf("ENCOUNTER_COST must not be negative")
	}
	if c.MaxBalance <= 0 {
		return fmt.Errorf("MAX_BALANCE must be positive")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseDailyBonus(raw string) (map[time.Weekday]float64, error) {
	out := make(map[time.Weekday]float64)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day, mult, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid DAILY_BONUS entry %q", part)
		}
		iso, err := strconv.Atoi(strings.TrimSpace(day))
		if err != nil || iso < 1 || iso > 7 {
			return nil, fmt.Errorf("invalid DAILY_BONUS weekday %q", day)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(mult), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid DAILY_BONUS multiplier %q: %w", mult, err)
		}
		out[time.Weekday(iso%7)] = v
	}
	return out, nil
}
