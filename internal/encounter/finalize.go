package encounter

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/encounter-engine/internal/logger"
	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/history"
	"github.com/jwebster45206/encounter-engine/pkg/resolve"
	"github.com/jwebster45206/encounter-engine/pkg/reward"
	"github.com/jwebster45206/encounter-engine/pkg/treasure"
)

// NoTargetReward is the base amount paid when there was nothing to fight.
const NoTargetReward = 500

// Result is the outcome of a finalized encounter.
type Result struct {
	EncounterID string `json:"encounter_id"`
	CommunityID string `json:"community_id"`
	Target      string `json:"target"`
	NoTarget    bool   `json:"no_target,omitempty"`

	People     int  `json:"people"`
	GatePassed bool `json:"gate_passed"`
	Slain      bool `json:"slain"`
	Persuaded  bool `json:"persuaded"`
	Success    bool `json:"success"`

	HP        int `json:"hp"`
	Dipl      int `json:"dipl"`
	Damage    int `json:"damage"`
	Diplomacy int `json:"diplomacy"`

	Melee     resolve.Tally    `json:"melee"`
	Magic     resolve.Tally    `json:"magic"`
	Talk      resolve.Tally    `json:"talk"`
	Blessing  resolve.Blessing `json:"blessing"`
	Fumbled   []string         `json:"fumbled,omitempty"`
	Skipped   []string         `json:"skipped,omitempty"`
	Treasure  treasure.Bundle  `json:"treasure"`
	Narrative []string         `json:"narrative"`

	Settlement *reward.Settlement `json:"settlement,omitempty"`
	Losses     []reward.Loss      `json:"losses,omitempty"`
}

// finalize closes the window, settles the encounter and removes it from the
// registry on every path. encounterID, when set, must match the live
// encounter so a stale countdown cannot end a newer one.
func (m *Manager) finalize(ctx context.Context, communityID, encounterID string) (res *Result, err error) {
	m.mu.Lock()
	enc, ok := m.encounters[communityID]
	if !ok || (encounterID != "" && enc.ID != encounterID) {
		m.mu.Unlock()
		return nil, ErrNoEncounter
	}
	if enc.closed {
		m.mu.Unlock()
		return nil, ErrWindowClosed
	}
	enc.closed = true
	if enc.timer != nil {
		enc.timer.Stop()
	}
	f := enc.freeze()
	m.mu.Unlock()

	log := logger.WithCommunity(m.logger, communityID).With("encounter_id", enc.ID)

	defer m.purge(enc)
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic during finalization: %v", r)
		}
		if err != nil {
			m.resetCooldown(communityID)
			log.Error("Encounter finalization failed", "error", err)
			m.narrate(ctx, communityID, KindFailed, "The encounter was called off. Nobody gained or lost anything.")
			err = &FatalError{CommunityID: communityID, EncounterID: enc.ID, Err: err}
		}
	}()

	res, err = m.settle(ctx, enc, f)
	if err != nil {
		return nil, err
	}

	log.Info("Encounter finalized",
		"people", res.People,
		"success", res.Success,
		"damage", res.Damage,
		"diplomacy", res.Diplomacy,
		"treasure", res.Treasure.String(),
	)
	m.narrate(ctx, communityID, KindFinalized, strings.Join(res.Narrative, "\n"))
	return res, nil
}

// settle resolves the frozen rosters and applies the outcome.
func (m *Manager) settle(ctx context.Context, enc *Encounter, f frozen) (*Result, error) {
	src := m.src
	log := logger.WithCommunity(m.logger, enc.CommunityID)
	r := resolve.New(src, f.insight, log)

	ids := f.participants()
	parts := make([]resolve.Participant, 0, len(ids))
	actions := make(map[string]resolve.Action, len(ids))
	for _, a := range rosterActions {
		for _, id := range f.rosters[a] {
			parts = append(parts, m.loadParticipant(ctx, id, a == resolve.ActionPassive))
			actions[id] = a
		}
	}

	res := &Result{
		EncounterID: enc.ID,
		CommunityID: enc.CommunityID,
		Target:      enc.Label(),
		NoTarget:    enc.NoTarget,
		People:      len(ids),
		GatePassed:  true,
	}
	for _, p := range parts {
		if p.Err != nil {
			res.Skipped = append(res.Skipped, p.ID)
		}
	}

	if enc.NoTarget {
		return m.settleNoTarget(ctx, src, enc, res, parts, actions)
	}

	res.GatePassed = resolve.GateCheck(enc.Target.Guardian, res.People, f.signaled, parts)

	byAction := make(map[resolve.Action][]resolve.Participant, len(rosterActions))
	var passive []resolve.Participant
	for _, p := range parts {
		if p.Passive {
			passive = append(passive, p)
			continue
		}
		byAction[actions[p.ID]] = append(byAction[actions[p.ID]], p)
	}
	for _, p := range passive {
		if p.Character != nil && resolve.CapabilityOf(p.Character.Class()).Priestly {
			byAction[resolve.ActionSupplication] = append(byAction[resolve.ActionSupplication], p)
			continue
		}
		a := resolve.AssignPassive(len(byAction[resolve.ActionMelee]), len(byAction[resolve.ActionMagic]), len(byAction[resolve.ActionDiplomacy]))
		byAction[a] = append(byAction[a], p)
	}

	sizes := resolve.Sizes{
		Melee:     len(byAction[resolve.ActionMelee]),
		Magic:     len(byAction[resolve.ActionMagic]),
		Diplomacy: len(byAction[resolve.ActionDiplomacy]),
	}
	res.Blessing = r.Supplication(byAction[resolve.ActionSupplication], sizes)
	res.Talk = r.Diplomacy(byAction[resolve.ActionDiplomacy], enc.Target.CDef)
	res.Melee = r.Melee(byAction[resolve.ActionMelee], enc.Target.PDef)
	res.Magic = r.Magic(byAction[resolve.ActionMagic], enc.Target.MDef)

	res.Damage = res.Melee.Total + res.Blessing.Attack + res.Magic.Total + res.Blessing.Magic
	res.Diplomacy = res.Talk.Total + res.Blessing.Diplomacy
	res.HP, res.Dipl = enc.targetHP(), enc.targetDipl()
	res.Slain = res.Damage >= res.HP
	res.Persuaded = res.Diplomacy >= res.Dipl
	res.Success = (res.Slain || res.Persuaded) && res.GatePassed

	fumbled := union(res.Blessing.Fumbled, res.Talk.Fumbled, res.Melee.Fumbled, res.Magic.Fumbled)
	res.Fumbled = fumbled
	outcome := treasure.Outcome{
		HP:        res.HP,
		Dipl:      res.Dipl,
		Slain:     res.Slain,
		Persuaded: res.Persuaded,
		Failed:    !res.GatePassed,
		Critical:  len(res.Melee.Crits)+len(res.Magic.Crits)+len(res.Talk.Crits) > 0,
	}
	res.Treasure = treasure.Roll(src, treasure.Tier{
		Transcended: enc.Transcended,
		Boss:        enc.Target.Boss,
		Guardian:    enc.Target.IsGuardian(),
	}, outcome)

	res.Narrative = append(res.Narrative, res.Blessing.Lines...)
	res.Narrative = append(res.Narrative, res.Talk.Narrative()...)
	res.Narrative = append(res.Narrative, res.Melee.Narrative()...)
	res.Narrative = append(res.Narrative, res.Magic.Narrative()...)
	res.Narrative = append(res.Narrative, m.summary(enc, res)...)

	grants := map[string]*reward.Grant{}
	penalize := !res.Success
	if res.Success {
		amount := outcome.Amount()
		amount += int(float64(amount) * 0.25 * float64(res.People))

		var groups [][]string
		var ratio float64
		switch {
		case res.Slain && res.Persuaded:
			groups = [][]string{res.Melee.Contributors, res.Magic.Contributors, res.Blessing.Contributors, res.Talk.Contributors}
			ratio = float64(res.Damage)/float64(res.HP) + float64(res.Diplomacy)/float64(res.Dipl)
		case res.Persuaded:
			groups = [][]string{res.Talk.Contributors, res.Blessing.Contributors}
			ratio = float64(res.Diplomacy) / float64(res.Dipl)
		default:
			groups = [][]string{res.Melee.Contributors, res.Magic.Contributors, res.Blessing.Contributors}
			ratio = float64(res.Damage) / float64(res.HP)
		}

		recipients := m.recipients(parts, union(groups...), fumbled)
		s := m.rewards.Distribute(src, recipients, amount, math.RoundToEven(ratio*0.25), res.Treasure, enc.Hidden)
		res.Settlement = &s
		res.Narrative = append(res.Narrative, s.Narrative...)
		for i := range s.Grants {
			grants[s.Grants[i].ActorID] = &s.Grants[i]
		}
	}

	entries, err := m.plan(ctx, src, parts, actions, fumbled, grants, penalize, res.Success)
	if err != nil {
		return nil, err
	}
	if penalize {
		res.Losses = lossesOf(entries)
		res.Narrative = append(res.Narrative, m.rewards.LossNarrative(res.Losses)...)
	}

	err = m.commit(ctx, entries, func() error {
		return m.record(ctx, enc.CommunityID, res, parts, f)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// settleNoTarget pays every loaded participant a flat reward.
func (m *Manager) settleNoTarget(ctx context.Context, src dice.Source, enc *Encounter, res *Result, parts []resolve.Participant, actions map[string]resolve.Action) (*Result, error) {
	res.Success = true
	res.Treasure = treasure.NoTarget(src)

	var recipients []reward.Recipient
	for _, p := range parts {
		if p.Character != nil {
			recipients = append(recipients, reward.Recipient{Character: p.Character, Passive: p.Passive})
		}
	}
	amount := NoTargetReward + int(NoTargetReward*0.25*float64(res.People))
	s := m.rewards.Distribute(src, recipients, amount, 0, res.Treasure, enc.Hidden)
	res.Settlement = &s
	res.Narrative = append([]string{"All adventurers prepared for an epic adventure, but they soon realised all this treasure was unprotected!"}, s.Narrative...)

	grants := make(map[string]*reward.Grant, len(s.Grants))
	for i := range s.Grants {
		grants[s.Grants[i].ActorID] = &s.Grants[i]
	}
	entries, err := m.plan(ctx, src, parts, actions, nil, grants, false, true)
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, entries, nil); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) summary(enc *Encounter, res *Result) []string {
	var out []string
	if res.Damage > 0 {
		status := "hit"
		if res.Slain && res.GatePassed {
			status = "killed"
		}
		out = append(out, m.printer.Sprintf("The group %s the %s (%d/%d).", status, enc.Label(), res.Damage, res.HP))
	}
	if res.Diplomacy > 0 {
		status, how := "tried to persuade", "flattery"
		if res.Persuaded && res.GatePassed {
			status, how = "distracted", "insults"
		}
		out = append(out, m.printer.Sprintf("The group %s the %s with %s (%d/%d).", status, enc.Label(), how, res.Diplomacy, res.Dipl))
	}
	if g := enc.Target.Guardian; g != nil && !res.GatePassed {
		if g.Defeat != "" {
			out = append(out, g.Defeat)
		}
		if g.Special != "" {
			out = append(out, m.printer.Sprintf("The %s's %s was countered, but they still managed to kill you.", enc.TargetName, g.Special))
		}
	}
	switch {
	case res.Success && res.Slain && res.Persuaded:
		out = append(out, m.printer.Sprintf("The party slayed the %s while distracting it with insults.", enc.Label()))
	case res.Success && res.Slain:
		out = append(out, m.printer.Sprintf("The party killed the %s in an epic fight.", enc.Label()))
	case res.Success:
		out = append(out, m.printer.Sprintf("The party talked the %s down.", enc.Label()))
	case res.People == 1:
		out = append(out, "This challenge was too much for one hero.")
	default:
		out = append(out, "No amount of diplomacy or valiant fighting could save you.")
	}
	return out
}

// recipients returns the loaded participants named in ids, minus fumblers.
func (m *Manager) recipients(parts []resolve.Participant, ids, fumbled []string) []reward.Recipient {
	var out []reward.Recipient
	for _, p := range parts {
		if p.Character == nil || !slices.Contains(ids, p.ID) || slices.Contains(fumbled, p.ID) {
			continue
		}
		out = append(out, reward.Recipient{Character: p.Character, Passive: p.Passive})
	}
	return out
}

// loadParticipant reads a character under its actor lock. Failures are
// carried on the participant for the resolvers to skip.
func (m *Manager) loadParticipant(ctx context.Context, id string, passive bool) resolve.Participant {
	p := resolve.Participant{ID: id, Passive: passive}
	unlock, err := m.locker.Lock(ctx, id)
	if err != nil {
		p.Err = err
		return p
	}
	spec, err := m.store.LoadCharacter(ctx, id)
	unlock()
	if err != nil {
		p.Err = err
		return p
	}
	p.Character, p.Err = actor.NewCharacterFromSpec(spec)
	return p
}

// entry is one actor's share of the outcome, computed before anything is
// written.
type entry struct {
	id    string
	grant *reward.Grant
	loss  *reward.Loss
	keys  []string
}

// applied is what settling one actor wrote, kept so it can be reversed.
type applied struct {
	prev  actor.CharacterSpec
	moved int // currency credited, negative when taken
}

// plan computes every loaded participant's grant, loss and tallies. Each
// actor draws from a child source seeded in roster order. Penalties are
// sized from the balance read here.
func (m *Manager) plan(
	ctx context.Context,
	src dice.Source,
	parts []resolve.Participant,
	actions map[string]resolve.Action,
	fumbled []string,
	grants map[string]*reward.Grant,
	penalize, won bool,
) ([]entry, error) {
	var entries []entry
	for _, p := range parts {
		if p.Character == nil {
			continue
		}
		e := entry{id: p.ID, grant: grants[p.ID], keys: []string{string(actions[p.ID])}}
		if slices.Contains(fumbled, p.ID) {
			e.keys = append(e.keys, "fumbles")
		}
		if won {
			e.keys = append(e.keys, "wins")
		} else {
			e.keys = append(e.keys, "losses")
		}
		child := dice.New(uint64(src.IntN(math.MaxInt32)))
		if penalize {
			balance, err := m.store.Balance(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to read balance of %s: %w", p.ID, err)
			}
			l := m.rewards.Loss(child, p.Character, balance)
			e.loss = &l
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func lossesOf(entries []entry) []reward.Loss {
	var out []reward.Loss
	for _, e := range entries {
		if e.loss != nil {
			out = append(out, *e.loss)
		}
	}
	return out
}

// commit writes every entry concurrently and then runs after, if set. When
// anything fails, every write already made is reversed before the error is
// returned.
func (m *Manager) commit(ctx context.Context, entries []entry, after func() error) error {
	done := make([]*applied, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			a, err := m.applyActor(ctx, e)
			done[i] = a
			return err
		})
	}
	err := g.Wait()
	if err == nil && after != nil {
		err = after()
	}
	if err != nil {
		m.rollback(context.WithoutCancel(ctx), done)
		return err
	}
	return nil
}

// applyActor is one actor's load-modify-save under the actor lock. The
// character record is saved before any currency moves. The returned record
// is non-nil once something was written, even alongside an error.
func (m *Manager) applyActor(ctx context.Context, e entry) (*applied, error) {
	unlock, err := m.locker.Lock(ctx, e.id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock actor %s: %w", e.id, err)
	}
	defer unlock()

	spec, err := m.store.LoadCharacter(ctx, e.id)
	if err != nil {
		m.logger.Warn("Skipping settlement for actor", "actor_id", e.id, "error", err)
		return nil, nil
	}
	a := &applied{prev: *spec}
	a.prev.Tallies = maps.Clone(spec.Tallies)

	if e.grant != nil {
		reward.Credit(spec, *e.grant)
	}
	for _, k := range e.keys {
		spec.Tally(k)
	}
	spec.AbilityActive = false
	if err := m.store.SaveCharacter(ctx, spec); err != nil {
		return nil, fmt.Errorf("failed to save character %s: %w", e.id, err)
	}

	if e.grant != nil {
		a.moved, err = reward.Pay(ctx, m.store, *e.grant)
		if err != nil {
			return a, fmt.Errorf("failed to pay %s: %w", e.id, err)
		}
	}
	if e.loss != nil {
		taken, err := reward.Penalize(ctx, m.store, *e.loss)
		a.moved = -taken
		if err != nil {
			return a, fmt.Errorf("failed to penalize %s: %w", e.id, err)
		}
	}
	return a, nil
}

// rollback restores each written character record and reverses its currency
// movement. Failures are logged; there is nothing left to fall back to.
func (m *Manager) rollback(ctx context.Context, done []*applied) {
	for _, a := range done {
		if a == nil {
			continue
		}
		id := a.prev.ID
		unlock, err := m.locker.Lock(ctx, id)
		if err != nil {
			m.logger.Error("Failed to lock actor for rollback", "actor_id", id, "error", err)
			continue
		}
		if err := reward.Refund(ctx, m.store, id, a.moved); err != nil {
			m.logger.Error("Failed to reverse currency", "actor_id", id, "amount", a.moved, "error", err)
		}
		if err := m.store.SaveCharacter(ctx, &a.prev); err != nil {
			m.logger.Error("Failed to restore character", "actor_id", id, "error", err)
		}
		unlock()
	}
}

// record appends the outcome to the community's history. The dominant
// category is melee unless diplomacy produced more.
func (m *Manager) record(ctx context.Context, communityID string, res *Result, parts []resolve.Participant, f frozen) error {
	outcome := history.Outcome{
		Category:  history.CategoryMelee,
		Amount:    float64(res.Damage),
		PartySize: res.People,
		Success:   res.Slain && res.GatePassed,
	}
	if res.Damage < res.Diplomacy {
		outcome = history.Outcome{
			Category:  history.CategoryDiplomacy,
			Amount:    float64(res.Diplomacy),
			PartySize: res.People,
			Success:   res.Persuaded && res.GatePassed,
		}
	}

	var manual, excluded []string
	for _, p := range parts {
		if !p.Passive {
			manual = append(manual, p.ID)
		}
		if p.Character != nil && p.Character.Spec.DoNotDisturb {
			excluded = append(excluded, p.ID)
		}
	}
	if err := m.history.RecordOutcome(ctx, communityID, outcome, manual, f.rosters[resolve.ActionPassive], excluded); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// union concatenates ids without duplicates, keeping first occurrence order.
func union(lists ...[]string) []string {
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out
}
