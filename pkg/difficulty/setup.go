package difficulty

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// Countdown lengths.
const (
	BossCountdown     = 5 * time.Minute
	GuardianCountdown = 3 * time.Minute
	DefaultCountdown  = 2 * time.Minute
	HiddenCountdown   = 3 * time.Minute
)

// Hidden decides whether the starter's encounter hides its target's stats.
// Veterans past 30 rebirths always play hidden, past 20 it is a coin flip.
func Hidden(src dice.Source, rebirths int, forceVisible bool) bool {
	switch {
	case forceVisible:
		return false
	case rebirths >= 30:
		return true
	case rebirths >= 20:
		return src.IntN(2) == 1
	default:
		return false
	}
}

// NoTarget rolls the rare hidden encounter with nothing to fight.
func NoTarget(src dice.Source, hidden bool) bool {
	return hidden && dice.Between(src, 0, 100) == 25
}

// Countdown returns how long actors have to commit.
func Countdown(m actor.Monster, hidden bool) time.Duration {
	switch {
	case hidden:
		return HiddenCountdown
	case m.Boss:
		return BossCountdown
	case m.IsGuardian():
		return GuardianCountdown
	default:
		return DefaultCountdown
	}
}

// PickTarget returns the requested monster when it is in the pool, otherwise
// a uniformly chosen one. The pool must not be empty.
func PickTarget(src dice.Source, pool map[string]actor.Monster, requested string) (string, actor.Monster) {
	if m, ok := pool[requested]; ok && requested != "" {
		return requested, m
	}
	name := dice.Pick(src, slices.Sorted(maps.Keys(pool)))
	return name, pool[name]
}

// PickAttribute returns the requested attribute when known, otherwise a
// uniformly chosen one.
func PickAttribute(src dice.Source, attrs map[string]actor.Attribute, requested string) (string, actor.Attribute) {
	if requested != "" {
		key := strings.ToLower(requested)
		if a, ok := attrs[key]; ok {
			return key, a
		}
	}
	if len(attrs) == 0 {
		return "", actor.Attribute{HP: 1, Dipl: 1}
	}
	name := dice.Pick(src, slices.Sorted(maps.Keys(attrs)))
	return name, attrs[name]
}

// Roster caches the daily pool so every encounter of a day draws from the
// same selection.
type Roster struct {
	mu       sync.Mutex
	bestiary *actor.Bestiary
	theme    string
	size     int
	day      string
	pool     map[string]actor.Monster
}

// NewRoster builds a Roster over the bestiary.
func NewRoster(b *actor.Bestiary, theme string, size int) *Roster {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Roster{bestiary: b, theme: theme, size: size}
}

// Pool returns the pool for now's calendar day, selecting a new one when the
// day changes.
func (r *Roster) Pool(src dice.Source, now time.Time) map[string]actor.Monster {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := now.Format(time.DateOnly)
	if r.pool == nil || r.day != day {
		r.pool = SelectDailyPool(src, r.bestiary.Monsters, r.bestiary.Elite, r.bestiary.Extras(r.theme), r.size)
		r.day = day
	}
	return r.pool
}

// Bestiary returns the content tables the roster draws from.
func (r *Roster) Bestiary() *actor.Bestiary {
	return r.bestiary
}
