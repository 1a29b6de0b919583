// Package dice holds the random helpers shared by the resolvers, the
// difficulty scaler and the treasure tables. Every helper draws from an
// injected Source so a fixed seed replays an encounter exactly.
package dice

import (
	"math/rand/v2"
	"sync"
)

// Source is the subset of *rand.Rand the engine draws from.
type Source interface {
	IntN(n int) int
	Float64() float64
}

// New returns a deterministic source for the given seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewSeed returns a fresh seed from the runtime's auto-seeded generator.
func NewSeed() uint64 {
	return rand.Uint64()
}

// Between returns a uniform integer in [lo, hi]. A collapsed or inverted
// range returns lo.
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Uniform returns a float in [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Pick returns a uniformly chosen element. It panics on an empty slice.
func Pick[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}

// Shuffle permutes items in place (Fisher-Yates).
func Shuffle[T any](src Source, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

// Locked serializes access to a Source shared between goroutines.
type Locked struct {
	mu  sync.Mutex
	src Source
}

// NewLocked wraps src for concurrent use.
func NewLocked(src Source) *Locked {
	return &Locked{src: src}
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Fixed replays a scripted sequence of draws. IntN returns the next scripted
// integer clamped into [0, n); Float64 returns the next scripted float. When a
// script runs out the zero value is returned.
type Fixed struct {
	Ints   []int
	Floats []float64
}

func (f *Fixed) IntN(n int) int {
	if len(f.Ints) == 0 {
		return 0
	}
	v := f.Ints[0]
	f.Ints = f.Ints[1:]
	return min(max(v, 0), n-1)
}

func (f *Fixed) Float64() float64 {
	if len(f.Floats) == 0 {
		return 0
	}
	v := f.Floats[0]
	f.Floats = f.Floats[1:]
	return v
}
