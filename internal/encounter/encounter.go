package encounter

import (
	"slices"
	"strings"
	"time"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/resolve"
)

// Encounter is the live state of one community's encounter. Every field is
// guarded by the Manager's mutex.
type Encounter struct {
	ID          string
	CommunityID string
	StarterID   string

	TargetName  string
	Target      actor.Monster // scaled stats
	Attribute   string
	Attr        actor.Attribute
	Transcended bool
	Hidden      bool
	NoTarget    bool

	OpenedAt  time.Time
	ClosesAt  time.Time
	Countdown time.Duration

	// actions holds each actor's current action. One entry per actor keeps
	// the rosters disjoint.
	actions map[string]resolve.Action
	// order is the join order the rosters are resolved in.
	order    []string
	joined   bool
	signaled bool
	insight  *resolve.Insight
	closed   bool
	timer    stopper
}

type stopper interface {
	Stop() bool
}

func newEncounter(id, communityID, starterID string, now time.Time, countdown time.Duration) *Encounter {
	return &Encounter{
		ID:          id,
		CommunityID: communityID,
		StarterID:   starterID,
		OpenedAt:    now,
		ClosesAt:    now.Add(countdown),
		Countdown:   countdown,
		actions:     make(map[string]resolve.Action),
	}
}

// set moves actorID to action, appending them to the join order if new.
func (e *Encounter) set(actorID string, action resolve.Action) {
	if _, ok := e.actions[actorID]; !ok {
		e.order = append(e.order, actorID)
	}
	e.actions[actorID] = action
}

func (e *Encounter) remove(actorID string) {
	delete(e.actions, actorID)
	e.order = slices.DeleteFunc(e.order, func(id string) bool { return id == actorID })
}

// roster returns the actors committed to action in join order.
func (e *Encounter) roster(action resolve.Action) []string {
	out := []string{}
	for _, id := range e.order {
		if e.actions[id] == action {
			out = append(out, id)
		}
	}
	return out
}

// manualCount is the number of actors who chose an action themselves.
func (e *Encounter) manualCount() int {
	n := 0
	for _, a := range e.actions {
		if a != resolve.ActionPassive {
			n++
		}
	}
	return n
}

// Label is the target as shown to players, e.g. "sickly Ogre".
func (e *Encounter) Label() string {
	if e.NoTarget {
		return "an unguarded treasure"
	}
	if attr := strings.TrimSpace(e.Attribute); attr != "" {
		return attr + " " + e.TargetName
	}
	return e.TargetName
}

// frozen is the roster state finalization works from.
type frozen struct {
	rosters  map[resolve.Action][]string
	signaled bool
	insight  *resolve.Insight
}

func (e *Encounter) freeze() frozen {
	f := frozen{
		rosters:  make(map[resolve.Action][]string, len(rosterActions)),
		signaled: e.signaled,
		insight:  e.insight,
	}
	for _, a := range rosterActions {
		f.rosters[a] = e.roster(a)
	}
	return f
}

// participants returns every actor id in resolution order.
func (f frozen) participants() []string {
	var out []string
	for _, a := range rosterActions {
		out = append(out, f.rosters[a]...)
	}
	return out
}

var rosterActions = []resolve.Action{
	resolve.ActionMelee,
	resolve.ActionMagic,
	resolve.ActionDiplomacy,
	resolve.ActionSupplication,
	resolve.ActionPassive,
}

// Snapshot is a read-only copy of an Encounter. Hidden encounters do not
// expose the target's numbers.
type Snapshot struct {
	ID          string                      `json:"id"`
	CommunityID string                      `json:"community_id"`
	StarterID   string                      `json:"starter_id"`
	Target      string                      `json:"target"`
	Description string                      `json:"description,omitempty"`
	Boss        bool                        `json:"boss,omitempty"`
	Guardian    bool                        `json:"guardian,omitempty"`
	Transcended bool                        `json:"transcended,omitempty"`
	Hidden      bool                        `json:"hidden,omitempty"`
	NoTarget    bool                        `json:"no_target,omitempty"`
	HP          int                         `json:"hp,omitempty"`
	Dipl        int                         `json:"dipl,omitempty"`
	PDef        float64                     `json:"pdef,omitempty"`
	MDef        float64                     `json:"mdef,omitempty"`
	CDef        float64                     `json:"cdef,omitempty"`
	Signaled    bool                        `json:"signaled,omitempty"`
	Closed      bool                        `json:"closed,omitempty"`
	OpenedAt    time.Time                   `json:"opened_at"`
	ClosesAt    time.Time                   `json:"closes_at"`
	Rosters     map[resolve.Action][]string `json:"rosters"`
}

func (e *Encounter) snapshot() *Snapshot {
	s := &Snapshot{
		ID:          e.ID,
		CommunityID: e.CommunityID,
		StarterID:   e.StarterID,
		Target:      e.Label(),
		Description: e.Target.Description,
		Boss:        e.Target.Boss,
		Guardian:    e.Target.IsGuardian(),
		Transcended: e.Transcended,
		Hidden:      e.Hidden,
		NoTarget:    e.NoTarget,
		Signaled:    e.signaled,
		Closed:      e.closed,
		OpenedAt:    e.OpenedAt,
		ClosesAt:    e.ClosesAt,
		Rosters:     make(map[resolve.Action][]string, len(rosterActions)),
	}
	if !e.Hidden && !e.NoTarget {
		s.HP, s.Dipl = e.targetHP(), e.targetDipl()
		s.PDef, s.MDef, s.CDef = e.Target.PDef, e.Target.MDef, e.Target.CDef
	}
	for _, a := range rosterActions {
		s.Rosters[a] = e.roster(a)
	}
	return s
}

// targetHP is the damage needed to slay the target, attribute applied.
func (e *Encounter) targetHP() int {
	return max(int(e.Target.HP*e.Attr.HP), 1)
}

// targetDipl is the diplomacy needed to persuade the target.
func (e *Encounter) targetDipl() int {
	return max(int(e.Target.Dipl*e.Attr.Dipl), 1)
}

// revealTarget is what a psychic's read can expose.
func (e *Encounter) revealTarget() resolve.Target {
	return resolve.Target{
		Name:      e.TargetName,
		Attribute: e.Attribute,
		HP:        e.targetHP(),
		Dipl:      e.targetDipl(),
		PDef:      e.Target.PDef,
		MDef:      e.Target.MDef,
		CDef:      e.Target.CDef,
	}
}
