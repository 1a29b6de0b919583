package actor

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Attribute is a flavor prefix for the encounter target ("a sickly",
// "an immortal") that multiplies its hp and diplomacy.
type Attribute struct {
	HP   float64 `json:"hp"`
	Dipl float64 `json:"dipl"`
}

// Bestiary is the static content the engine draws encounters from.
type Bestiary struct {
	// Monsters is the general table the daily pool samples from.
	Monsters map[string]Monster `json:"monsters"`

	// Elite entries are always merged into the daily pool.
	Elite map[string]Monster `json:"elite,omitempty"`

	// Themes holds extra entries keyed by theme name.
	Themes     map[string]map[string]Monster `json:"themes,omitempty"`
	Attributes map[string]Attribute          `json:"attributes"`
	Locations  []string                      `json:"locations,omitempty"`
}

// Extras returns the theme-specific entries, or nil for an unknown theme.
func (b *Bestiary) Extras(theme string) map[string]Monster {
	return b.Themes[theme]
}

// AttributeNames returns the attribute keys in sorted order.
func (b *Bestiary) AttributeNames() []string {
	return slices.Sorted(maps.Keys(b.Attributes))
}

// Lookup finds a monster by name in every table.
func (b *Bestiary) Lookup(name string) (Monster, bool) {
	if m, ok := b.Monsters[name]; ok {
		return m, true
	}
	if m, ok := b.Elite[name]; ok {
		return m, true
	}
	for _, extra := range b.Themes {
		if m, ok := extra[name]; ok {
			return m, true
		}
	}
	return Monster{}, false
}

// Validate checks every table and joins the problems found.
func (b *Bestiary) Validate() error {
	var errs []error
	if len(b.Monsters) == 0 {
		errs = append(errs, errors.New("monster table is empty"))
	}
	if len(b.Attributes) == 0 {
		errs = append(errs, errors.New("attribute table is empty"))
	}
	check := func(table string, monsters map[string]Monster) {
		for _, key := range slices.Sorted(maps.Keys(monsters)) {
			m := monsters[key]
			if m.Name != "" && m.Name != key {
				errs = append(errs, fmt.Errorf("%s[%s]: name %q does not match key", table, key, m.Name))
			}
			if m.Name == "" {
				m.Name = key
			}
			if err := m.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s[%s]: %w", table, key, err))
			}
		}
	}
	check("monsters", b.Monsters)
	check("elite", b.Elite)
	for _, theme := range slices.Sorted(maps.Keys(b.Themes)) {
		check("themes."+theme, b.Themes[theme])
	}
	for _, name := range b.AttributeNames() {
		a := b.Attributes[name]
		if a.HP <= 0 || a.Dipl <= 0 {
			errs = append(errs, fmt.Errorf("attributes[%s]: multipliers must be positive", name))
		}
	}
	return errors.Join(errs...)
}

// Normalize fills each monster's name from its key.
func (b *Bestiary) Normalize() {
	fill := func(monsters map[string]Monster) {
		for key, m := range monsters {
			if m.Name == "" {
				m.Name = key
				monsters[key] = m
			}
		}
	}
	fill(b.Monsters)
	fill(b.Elite)
	for _, extra := range b.Themes {
		fill(extra)
	}
}
