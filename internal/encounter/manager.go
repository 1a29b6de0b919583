// Package encounter runs the live encounters of every community: opening
// them against a scaled target, collecting roster changes during the
// countdown, and finalizing them into rewards, penalties and history.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jwebster45206/encounter-engine/internal/lock"
	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/difficulty"
	"github.com/jwebster45206/encounter-engine/pkg/history"
	"github.com/jwebster45206/encounter-engine/pkg/resolve"
	"github.com/jwebster45206/encounter-engine/pkg/reward"
	"github.com/jwebster45206/encounter-engine/pkg/storage"
)

// Defaults used when Config leaves a field unset.
const (
	DefaultEncounterCost = 250
	DefaultCooldown      = 2 * time.Minute
	DefaultGCMargin      = time.Minute
)

// Config tunes the manager.
type Config struct {
	// EncounterCost is the balance an actor needs to open or join.
	EncounterCost int
	// Cooldown is the minimum time between two openings in a community.
	Cooldown time.Duration
	// GCMargin is how long past its countdown an encounter may live before
	// Sweep evicts it.
	GCMargin time.Duration
}

func (c Config) withDefaults() Config {
	if c.EncounterCost <= 0 {
		c.EncounterCost = DefaultEncounterCost
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	if c.GCMargin <= 0 {
		c.GCMargin = DefaultGCMargin
	}
	return c
}

// Timer is a scheduled countdown expiry.
type Timer interface {
	Stop() bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSource replaces the random source. It is wrapped for concurrent use.
func WithSource(src dice.Source) Option {
	return func(m *Manager) { m.src = dice.NewLocked(src) }
}

// WithTimer replaces how countdown expiries are scheduled.
func WithTimer(after func(d time.Duration, f func()) Timer) Option {
	return func(m *Manager) { m.after = after }
}

// Manager owns the live encounters. Each community has at most one.
type Manager struct {
	store   storage.Storage
	history history.Log
	locker  lock.Locker
	roster  *difficulty.Roster
	rewards *reward.Distributor
	sink    Sink
	cfg     Config
	logger  *slog.Logger
	printer *message.Printer

	src   dice.Source
	now   func() time.Time
	after func(time.Duration, func()) Timer

	mu         sync.Mutex
	encounters map[string]*Encounter // by community
	actors     map[string]string     // actor id to community id
	cooldowns  map[string]time.Time  // community id to next allowed opening
}

// NewManager creates a manager. A nil sink discards narrative.
func NewManager(
	store storage.Storage,
	log history.Log,
	locker lock.Locker,
	roster *difficulty.Roster,
	rewards *reward.Distributor,
	sink Sink,
	cfg Config,
	l *slog.Logger,
	opts ...Option,
) *Manager {
	if sink == nil {
		sink = discard{}
	}
	m := &Manager{
		store:      store,
		history:    log,
		locker:     locker,
		roster:     roster,
		rewards:    rewards,
		sink:       sink,
		cfg:        cfg.withDefaults(),
		logger:     l,
		printer:    message.NewPrinter(language.English),
		src:        dice.NewLocked(dice.New(dice.NewSeed())),
		now:        time.Now,
		encounters: make(map[string]*Encounter),
		actors:     make(map[string]string),
		cooldowns:  make(map[string]time.Time),
	}
	m.after = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OpenRequest asks for a new encounter. Monster and Attribute pick the
// target when they name a known entry; otherwise both are random.
type OpenRequest struct {
	CommunityID  string `json:"community_id"`
	StarterID    string `json:"starter_id"`
	Monster      string `json:"monster,omitempty"`
	Attribute    string `json:"attribute,omitempty"`
	ForceVisible bool   `json:"force_visible,omitempty"`
}

// Open starts an encounter for the community. It fails with a
// ValidationError when one is already running, the community is on
// cooldown, or the starter cannot pay.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*Snapshot, error) {
	if req.CommunityID == "" || req.StarterID == "" {
		return nil, invalid(ErrInvalidRequest, "community and starter are required")
	}
	log := logger.WithCommunity(m.logger, req.CommunityID)

	m.mu.Lock()
	err := m.checkOpenLocked(req.CommunityID, m.now())
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := m.checkFunds(ctx, req.StarterID); err != nil {
		return nil, err
	}

	rebirths := 0
	if spec, err := m.store.LoadCharacter(ctx, req.StarterID); err != nil {
		log.Warn("Failed to load starter, using defaults", "actor_id", req.StarterID, "error", err)
	} else {
		rebirths = spec.Rebirths
	}

	sample, err := m.history.StatRange(ctx, req.CommunityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read difficulty sample: %w", err)
	}
	passive, err := m.passiveActors(ctx, req.CommunityID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	pool := m.roster.Pool(m.src, now)
	if len(pool) == 0 {
		return nil, errors.New("failed to open encounter: monster pool is empty")
	}
	bestiary := m.roster.Bestiary()

	hidden := difficulty.Hidden(m.src, rebirths, req.ForceVisible)
	noTarget := difficulty.NoTarget(m.src, hidden)
	name, monster := difficulty.PickTarget(m.src, pool, req.Monster)
	attrName, attr := difficulty.PickAttribute(m.src, bestiary.Attributes, req.Attribute)
	multiplier, transcended := difficulty.RollTranscendence(m.src)
	location := ""
	if len(bestiary.Locations) > 0 {
		location = dice.Pick(m.src, bestiary.Locations)
	}

	enc := newEncounter(uuid.NewString(), req.CommunityID, req.StarterID, now, difficulty.Countdown(monster, hidden))
	enc.TargetName = name
	enc.Target = difficulty.ScaleStats(m.src, monster, multiplier, sample)
	enc.Attribute = attrName
	enc.Attr = attr
	enc.Transcended = transcended
	enc.Hidden = hidden
	enc.NoTarget = noTarget

	m.mu.Lock()
	if err := m.checkOpenLocked(req.CommunityID, now); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	for _, id := range passive {
		if _, busy := m.actors[id]; busy {
			continue
		}
		enc.set(id, resolve.ActionPassive)
		m.actors[id] = req.CommunityID
	}
	m.encounters[req.CommunityID] = enc
	m.cooldowns[req.CommunityID] = now.Add(m.cfg.Cooldown)
	id := enc.ID
	enc.timer = m.after(enc.Countdown, func() { m.expire(req.CommunityID, id) })
	snap := enc.snapshot()
	text := m.openingText(enc, location)
	m.mu.Unlock()

	log.Info("Encounter opened",
		"encounter_id", enc.ID,
		"target", snap.Target,
		"hidden", hidden,
		"transcended", transcended,
		"countdown", enc.Countdown,
		"passive", len(snap.Rosters[resolve.ActionPassive]),
	)
	m.narrate(ctx, req.CommunityID, KindOpened, text)
	return snap, nil
}

func (m *Manager) checkOpenLocked(communityID string, now time.Time) error {
	if _, ok := m.encounters[communityID]; ok {
		return invalid(ErrEncounterActive, "finish the current encounter first")
	}
	if until, ok := m.cooldowns[communityID]; ok && now.Before(until) {
		return invalid(ErrOnCooldown, "next encounter in %s", until.Sub(now).Round(time.Second))
	}
	return nil
}

func (m *Manager) checkFunds(ctx context.Context, actorID string) error {
	balance, err := m.store.Balance(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	if balance < m.cfg.EncounterCost {
		return invalid(storage.ErrInsufficientFunds, "need %d coins, have %d", m.cfg.EncounterCost, balance)
	}
	return nil
}

// passiveActors returns the previous record's passive set without the
// actors who asked not to be disturbed.
func (m *Manager) passiveActors(ctx context.Context, communityID string) ([]string, error) {
	ids, err := m.history.PassiveActors(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read passive actors: %w", err)
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		spec, err := m.store.LoadCharacter(ctx, id)
		if err != nil {
			m.logger.Warn("Dropping passive actor", "community_id", communityID, "actor_id", id, "error", err)
			continue
		}
		if spec.DoNotDisturb {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (m *Manager) openingText(enc *Encounter, location string) string {
	var b strings.Builder
	if enc.NoTarget {
		b.WriteString("The party set out for an epic adventure, but nothing stands in their way.")
	} else {
		if location != "" {
			b.WriteString(m.printer.Sprintf("While exploring %s, the party met a %s.", location, enc.Label()))
		} else {
			b.WriteString(m.printer.Sprintf("A %s appeared!", enc.Label()))
		}
		if enc.Transcended {
			b.WriteString(" It radiates a transcendent power.")
		}
		if enc.Target.Boss {
			b.WriteString(" Its presence is overwhelming.")
		}
		if g := enc.Target.Guardian; g != nil && g.Special != "" {
			b.WriteString(" Beware of its " + g.Special + ".")
		}
		if !enc.Hidden {
			b.WriteString(m.printer.Sprintf(" It has %d hp and %d diplomacy.", enc.targetHP(), enc.targetDipl()))
		}
	}
	b.WriteString(m.printer.Sprintf(" You have %d minutes to act.", int(enc.Countdown.Minutes())))
	return b.String()
}

// Membership is an actor's roster state after a Join or Leave.
type Membership struct {
	ActorID string         `json:"actor_id"`
	Action  resolve.Action `json:"action,omitempty"`
	Left    bool           `json:"left,omitempty"`
	// Result is set when the last actor fled and the encounter ended early.
	Result *Result `json:"result,omitempty"`
}

// Join commits the actor to action. Committing to the action the actor
// already holds takes them out of the encounter instead.
func (m *Manager) Join(ctx context.Context, communityID, actorID string, action resolve.Action) (*Membership, error) {
	switch action {
	case resolve.ActionMelee, resolve.ActionMagic, resolve.ActionDiplomacy, resolve.ActionSupplication:
	default:
		return nil, invalid(ErrInvalidAction, "%q", action)
	}
	if actorID == "" {
		return nil, invalid(ErrInvalidRequest, "actor is required")
	}
	if err := m.checkFunds(ctx, actorID); err != nil {
		return nil, err
	}
	return m.update(ctx, communityID, actorID, func(current resolve.Action, ok bool) (resolve.Action, error) {
		if ok && current == action {
			return "", nil
		}
		return action, nil
	})
}

// Leave takes the actor out of whichever roster they are in.
func (m *Manager) Leave(ctx context.Context, communityID, actorID string) (*Membership, error) {
	return m.update(ctx, communityID, actorID, func(_ resolve.Action, ok bool) (resolve.Action, error) {
		if !ok {
			return "", invalid(ErrNotJoined, "%s", actorID)
		}
		return "", nil
	})
}

// update applies a roster change. next returns the actor's new action, or
// "" to remove them.
func (m *Manager) update(ctx context.Context, communityID, actorID string, next func(current resolve.Action, ok bool) (resolve.Action, error)) (*Membership, error) {
	m.mu.Lock()
	enc, err := m.openLocked(communityID)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if other, ok := m.actors[actorID]; ok && other != communityID {
		m.mu.Unlock()
		return nil, invalid(ErrActorBusy, "%s is busy elsewhere", actorID)
	}
	current, ok := enc.actions[actorID]
	action, err := next(current, ok)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	ms := &Membership{ActorID: actorID, Action: action}
	if action == "" {
		enc.remove(actorID)
		delete(m.actors, actorID)
		ms.Left = true
	} else {
		enc.set(actorID, action)
		enc.joined = true
		m.actors[actorID] = communityID
	}
	fled := enc.joined && enc.manualCount() == 0
	encounterID := enc.ID
	m.mu.Unlock()

	if ms.Left {
		m.narrate(ctx, communityID, KindRoster, m.printer.Sprintf("%s ran away.", actorID))
	} else {
		m.narrate(ctx, communityID, KindRoster, m.printer.Sprintf("%s chose %s.", actorID, action))
	}

	if fled {
		logger.WithCommunity(m.logger, communityID).Info("Everyone fled, ending encounter early", "encounter_id", encounterID)
		res, err := m.finalize(context.WithoutCancel(ctx), communityID, encounterID)
		ms.Result = res
		if err != nil && !errors.Is(err, ErrNoEncounter) && !errors.Is(err, ErrWindowClosed) {
			return ms, err
		}
	}
	return ms, nil
}

// openLocked returns the community's encounter if it still takes actions.
func (m *Manager) openLocked(communityID string) (*Encounter, error) {
	enc, ok := m.encounters[communityID]
	if !ok {
		return nil, invalid(ErrNoEncounter, "%s", communityID)
	}
	if enc.closed {
		return nil, invalid(ErrWindowClosed, "%s", communityID)
	}
	return enc, nil
}

// Signal registers the reaction some guardians require.
func (m *Manager) Signal(ctx context.Context, communityID, actorID string) error {
	m.mu.Lock()
	enc, err := m.openLocked(communityID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	first := !enc.signaled
	enc.signaled = true
	m.mu.Unlock()

	if first {
		m.narrate(ctx, communityID, KindNarrative, m.printer.Sprintf("%s raised the signal.", actorID))
	}
	return nil
}

// AbilityResult describes an activated class ability.
type AbilityResult struct {
	ActorID string      `json:"actor_id"`
	Class   actor.Class `json:"class"`
	ReadyAt time.Time   `json:"ready_at"`
	Quality float64     `json:"quality,omitempty"`
	Reveal  []string    `json:"reveal,omitempty"`
}

// ActivateAbility primes the actor's class ability for the next resolution.
// A psychic instead reads the community's current target and shares the
// best read taken so far.
func (m *Manager) ActivateAbility(ctx context.Context, communityID, actorID string) (*AbilityResult, error) {
	unlock, err := m.locker.Lock(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock actor: %w", err)
	}
	defer unlock()

	spec, err := m.store.LoadCharacter(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load character: %w", err)
	}
	c, err := actor.NewCharacterFromSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build character: %w", err)
	}

	cp := resolve.CapabilityOf(c.Class())
	if !cp.HasAbility() {
		return nil, invalid(ErrAbilityUnavailable, "%s has no class ability", c.Class())
	}
	now := m.now()
	if now.Before(spec.AbilityReadyAt) {
		return nil, invalid(ErrOnCooldown, "ready in %s", spec.AbilityReadyAt.Sub(now).Round(time.Second))
	}
	if spec.AbilityActive {
		return nil, invalid(ErrAbilityUnavailable, "ability is already active")
	}

	res := &AbilityResult{ActorID: actorID, Class: c.Class()}
	if cp.Insight {
		m.mu.Lock()
		enc, err := m.openLocked(communityID)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		res.Quality = resolve.RollInsight(m.src, c)
		if in := resolve.NewInsight(c, res.Quality); in.Better(enc.insight) {
			enc.insight = in
		}
		target, noTarget := enc.revealTarget(), enc.NoTarget
		m.mu.Unlock()

		if noTarget {
			res.Reveal = []string{"There is nothing here to read."}
		} else {
			res.Reveal = resolve.Reveal(res.Quality, target)
		}
	} else {
		spec.AbilityActive = true
	}

	spec.AbilityReadyAt = now.Add(cp.Cooldown(c))
	if err := m.store.SaveCharacter(ctx, spec); err != nil {
		return nil, fmt.Errorf("failed to save character: %w", err)
	}
	res.ReadyAt = spec.AbilityReadyAt

	if communityID != "" {
		text := m.printer.Sprintf("%s activated their %s ability.", c.DisplayName(), c.Class())
		if len(res.Reveal) > 0 {
			text += "\n" + strings.Join(res.Reveal, "\n")
		}
		m.narrate(ctx, communityID, KindNarrative, text)
	}
	return res, nil
}

// Active returns a snapshot of the community's encounter.
func (m *Manager) Active(communityID string) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	enc, ok := m.encounters[communityID]
	if !ok {
		return nil, ErrNoEncounter
	}
	return enc.snapshot(), nil
}

// DifficultySample summarizes the community's outcome history.
func (m *Manager) DifficultySample(ctx context.Context, communityID string) (history.Sample, error) {
	sample, err := m.history.StatRange(ctx, communityID)
	if err != nil {
		return history.Sample{}, fmt.Errorf("failed to read difficulty sample: %w", err)
	}
	return sample, nil
}

// Finalize ends the community's encounter now.
func (m *Manager) Finalize(ctx context.Context, communityID string) (*Result, error) {
	return m.finalize(ctx, communityID, "")
}

// expire is the countdown callback.
func (m *Manager) expire(communityID, encounterID string) {
	_, err := m.finalize(context.Background(), communityID, encounterID)
	if err != nil && !errors.Is(err, ErrNoEncounter) && !errors.Is(err, ErrWindowClosed) {
		m.logger.Error("Countdown finalization failed", "community_id", communityID, "encounter_id", encounterID, "error", err)
	}
}

// Sweep evicts encounters that outlived their countdown by more than the
// GC margin and returns their communities.
func (m *Manager) Sweep(now time.Time) []string {
	m.mu.Lock()
	var stale []*Encounter
	for _, enc := range m.encounters {
		if now.After(enc.ClosesAt.Add(m.cfg.GCMargin)) {
			stale = append(stale, enc)
		}
	}
	m.mu.Unlock()

	evicted := make([]string, 0, len(stale))
	for _, enc := range stale {
		if m.purge(enc) {
			m.logger.Warn("Evicted stale encounter", "community_id", enc.CommunityID, "encounter_id", enc.ID, "opened_at", enc.OpenedAt)
			evicted = append(evicted, enc.CommunityID)
		}
	}
	slices.Sort(evicted)
	return evicted
}

// purge removes enc from the registry if it is still registered.
func (m *Manager) purge(enc *Encounter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.encounters[enc.CommunityID] != enc {
		return false
	}
	if enc.timer != nil {
		enc.timer.Stop()
	}
	delete(m.encounters, enc.CommunityID)
	for id := range enc.actions {
		if m.actors[id] == enc.CommunityID {
			delete(m.actors, id)
		}
	}
	return true
}

// Shutdown finalizes every live encounter.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	communities := slices.Sorted(maps.Keys(m.encounters))
	m.mu.Unlock()

	var errs []error
	for _, id := range communities {
		if _, err := m.Finalize(ctx, id); err != nil && !errors.Is(err, ErrNoEncounter) && !errors.Is(err, ErrWindowClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) resetCooldown(communityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cooldowns, communityID)
}

func (m *Manager) narrate(ctx context.Context, communityID, kind, text string) {
	if err := m.sink.Narrate(ctx, communityID, kind, text); err != nil {
		m.logger.Warn("Failed to deliver narrative", "community_id", communityID, "kind", kind, "error", err)
	}
}
