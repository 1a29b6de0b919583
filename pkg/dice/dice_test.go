package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBetween(t *testing.T) {
	tests := []struct {
		name   string
		lo, hi int
	}{
		{"single value", 5, 5},
		{"d20", 1, 20},
		{"offset range", 16, 50},
		{"inverted range", 10, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := New(42)
			for range 200 {
				v := Between(src, tt.lo, tt.hi)
				if tt.hi <= tt.lo {
					assert.Equal(t, tt.lo, v)
					continue
				}
				assert.GreaterOrEqual(t, v, tt.lo)
				assert.LessOrEqual(t, v, tt.hi)
			}
		})
	}
}

func TestNew_SameSeedSameSequence(t *testing.T) {
	a, b := New(7), New(7)
	for range 50 {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestUniform_StaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		lo := rapid.Float64Range(-10, 10).Draw(t, "lo")
		width := rapid.Float64Range(0.001, 5).Draw(t, "width")
		v := Uniform(New(seed), lo, lo+width)
		if v < lo || v > lo+width {
			t.Fatalf("value %v outside [%v, %v]", v, lo, lo+width)
		}
	})
}

func TestShuffle_KeepsElements(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	Shuffle(New(1), items)
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, items)
}

func TestFixed(t *testing.T) {
	f := &Fixed{Ints: []int{3, 99, -4}, Floats: []float64{0.25}}
	assert.Equal(t, 3, f.IntN(10))
	assert.Equal(t, 9, f.IntN(10))
	assert.Equal(t, 0, f.IntN(10))
	assert.Equal(t, 0, f.IntN(10), "exhausted script returns zero")
	assert.Equal(t, 0.25, f.Float64())
	assert.Equal(t, 0.0, f.Float64())
}
