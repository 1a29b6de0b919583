// Package treasure holds loot bundles and the tables that pick them.
package treasure

import (
	"fmt"
	"strings"
)

// Bundle is a multiset of loot-tier counts.
type Bundle struct {
	Common    int `json:"common,omitempty"`
	Uncommon  int `json:"uncommon,omitempty"`
	Epic      int `json:"epic,omitempty"`
	Legendary int `json:"legendary,omitempty"`
	Ascended  int `json:"ascended,omitempty"`
	Set       int `json:"set,omitempty"`
}

// IsEmpty reports whether the bundle holds no units.
func (b Bundle) IsEmpty() bool {
	return b.Total() == 0
}

// Total returns the number of units across all tiers.
func (b Bundle) Total() int {
	return b.Common + b.Uncommon + b.Epic + b.Legendary + b.Ascended + b.Set
}

// Add returns the tier-wise sum of both bundles.
func (b Bundle) Add(o Bundle) Bundle {
	return Bundle{
		Common:    b.Common + o.Common,
		Uncommon:  b.Uncommon + o.Uncommon,
		Epic:      b.Epic + o.Epic,
		Legendary: b.Legendary + o.Legendary,
		Ascended:  b.Ascended + o.Ascended,
		Set:       b.Set + o.Set,
	}
}

func (b Bundle) String() string {
	if b.IsEmpty() {
		return "nothing"
	}
	tiers := []struct {
		name  string
		count int
	}{
		{"common", b.Common},
		{"uncommon", b.Uncommon},
		{"epic", b.Epic},
		{"legendary", b.Legendary},
		{"ascended", b.Ascended},
		{"set", b.Set},
	}
	parts := make([]string, 0, len(tiers))
	for _, tier := range tiers {
		if tier.count > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", tier.count, tier.name))
		}
	}
	return strings.Join(parts, ", ")
}
