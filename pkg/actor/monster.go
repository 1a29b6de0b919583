package actor

import (
	"errors"
	"fmt"
)

// Monster is an encounter target. HP and Dipl are the baseline amounts of
// damage and diplomacy needed to win; the defenses divide contributions.
type Monster struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`

	HP   float64 `json:"hp"`
	Dipl float64 `json:"dipl"`

	PDef float64 `json:"pdef,omitempty"` // physical defense multiplier, default 1
	MDef float64 `json:"mdef,omitempty"` // magic defense multiplier, default 1
	CDef float64 `json:"cdef,omitempty"` // social defense multiplier, default 1

	Boss     bool      `json:"boss,omitempty"`
	Guardian *Guardian `json:"guardian,omitempty"`
}

// GuardianKind selects which Gate Check rule a guardian enforces.
type GuardianKind string

const (
	// GuardianMembers passes when the party is larger than Threshold.
	GuardianMembers GuardianKind = "members"
	// GuardianSignal passes when someone registered the signal during the countdown.
	GuardianSignal GuardianKind = "signal"
	// GuardianItem passes when a participant carries a matching relic.
	GuardianItem GuardianKind = "item"
)

// Guardian marks a monster whose Gate Check must pass before totals count.
type Guardian struct {
	Kind      GuardianKind `json:"kind"`
	Item      string       `json:"item,omitempty"`
	Threshold int          `json:"threshold,omitempty"`
	Special   string       `json:"special,omitempty"` // flavor shown when the party is warned
	Defeat    string       `json:"defeat,omitempty"`  // flavor shown when the gate fails
}

// IsGuardian reports whether a Gate Check applies.
func (m Monster) IsGuardian() bool {
	return m.Guardian != nil
}

// WithDefaults returns a copy with unset defenses at 1.0.
func (m Monster) WithDefaults() Monster {
	if m.PDef == 0 {
		m.PDef = 1
	}
	if m.MDef == 0 {
		m.MDef = 1
	}
	if m.CDef == 0 {
		m.CDef = 1
	}
	return m
}

// Validate reports every problem with a monster entry.
func (m Monster) Validate() error {
	var errs []error
	if m.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if m.HP < 0 || m.Dipl < 0 {
		errs = append(errs, fmt.Errorf("%s: hp and dipl must be non-negative", m.Name))
	}
	if m.PDef < 0 || m.MDef < 0 || m.CDef < 0 {
		errs = append(errs, fmt.Errorf("%s: defenses must be non-negative", m.Name))
	}
	if g := m.Guardian; g != nil {
		switch g.Kind {
		case GuardianMembers:
			if g.Threshold <= 0 {
				errs = append(errs, fmt.Errorf("%s: members guardian needs a positive threshold", m.Name))
			}
		case GuardianSignal:
		case GuardianItem:
			if g.Item == "" {
				errs = append(errs, fmt.Errorf("%s: item guardian needs an item name", m.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown guardian kind %q", m.Name, g.Kind))
		}
	}
	return errors.Join(errs...)
}
