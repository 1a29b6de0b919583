package resolve

import (
	"time"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
)

// turn carries one actor's roll through the contribution formulas.
type turn struct {
	src      dice.Source
	c        *actor.Character
	roll     Roll
	stat     int
	rebirths int // rebirth count scaled by the class factor for this action
	base     int
	crit     int
	def      float64
	party    int
}

// rescueFunc converts a fumble into a reduced contribution. fumbled reports
// whether the actor still counts as having fumbled.
type rescueFunc func(t *turn) (contribution, bonus int, fumbled bool)

// boostFunc is the enhanced contribution while the class ability is active.
type boostFunc func(t *turn) (contribution int, note string)

// Capability is the per-class rule set.
type Capability struct {
	// Rebirths scales the rebirth count per action; missing actions use 1.
	Rebirths map[Action]int
	// Empowers is the action this class always resolves on the enhanced branch.
	Empowers Action
	Rescue   rescueFunc
	Boost    boostFunc
	// PetReroll lets the companion reroll melee dice.
	PetReroll bool
	// Priestly actors use the full roll machinery when praying.
	Priestly bool
	// Insight holders reveal the target and may grant the insight bonus.
	Insight bool

	CooldownStat string
	CooldownBase time.Duration
}

// HasAbility reports whether the class has an activatable ability.
func (cp Capability) HasAbility() bool {
	return cp.CooldownStat != ""
}

func (cp Capability) rebirthFactor(a Action) int {
	if f, ok := cp.Rebirths[a]; ok {
		return f
	}
	return 1
}

// Cooldown is max(5m, base - 2s*(luck+stat)) with a non-negative stat term.
func (cp Capability) Cooldown(c *actor.Character) time.Duration {
	if !cp.HasAbility() {
		return 0
	}
	reduction := time.Duration(max((c.Luck()+c.Stat(cp.CooldownStat))*2, 0)) * time.Second
	return max(5*time.Minute, cp.CooldownBase-reduction)
}

var capabilities = map[actor.Class]Capability{
	actor.ClassBerserker: {
		Rebirths:     map[Action]int{ActionMelee: 3},
		Empowers:     ActionMelee,
		Rescue:       berserkerRescue,
		Boost:        berserkerBoost,
		CooldownStat: actor.StatAttack,
		CooldownBase: 20 * time.Minute,
	},
	actor.ClassRanger: {
		Rebirths:     map[Action]int{ActionMelee: 2},
		Empowers:     ActionMelee,
		Boost:        rangerBoost,
		PetReroll:    true,
		CooldownStat: actor.StatAttack,
		CooldownBase: 20 * time.Minute,
	},
	actor.ClassWizard: {
		Rebirths:     map[Action]int{ActionMagic: 3},
		Empowers:     ActionMagic,
		Rescue:       wizardRescue,
		Boost:        wizardBoost,
		CooldownStat: actor.StatIntellect,
		CooldownBase: 20 * time.Minute,
	},
	actor.ClassBard: {
		Rebirths:     map[Action]int{ActionDiplomacy: 3},
		Empowers:     ActionDiplomacy,
		Rescue:       bardRescue,
		Boost:        bardBoost,
		CooldownStat: actor.StatCharisma,
		CooldownBase: 20 * time.Minute,
	},
	actor.ClassCleric: {
		Rebirths:     map[Action]int{ActionSupplication: 2},
		Priestly:     true,
		CooldownStat: actor.StatIntellect,
		CooldownBase: 20 * time.Minute,
	},
	actor.ClassPsychic: {
		Insight:      true,
		CooldownStat: actor.StatCharisma,
		CooldownBase: 15 * time.Minute,
	},
}

// CapabilityOf returns the rule set for a class. Unknown classes get the
// plain rule set.
func CapabilityOf(c actor.Class) Capability {
	return capabilities[c]
}

var rescueMultipliers = []float64{0.2, 0.3, 0.4, 0.5}

// rescueBonus is the amount a rescued fumble loses.
func rescueBonus(t *turn) int {
	roll := dice.Between(t.src, 5, max(15, t.c.Rebirths()))
	multi := dice.Pick(t.src, rescueMultipliers)
	return max(roll, int(float64(t.roll.Value+t.stat+t.rebirths)*multi))
}

// abilityBase replaces the enhanced base bonus while an ability is active.
func abilityBase(t *turn) int {
	return (dice.Between(t.src, 1, max(15, t.c.Rebirths())) + 5) * floorDiv(t.rebirths, 2)
}

func berserkerRescue(t *turn) (int, int, bool) {
	bonus := rescueBonus(t)
	return scaled(t.roll.Value-bonus+t.stat, t.def), bonus, false
}

func wizardRescue(t *turn) (int, int, bool) {
	bonus := rescueBonus(t)
	if !t.c.Veteran() {
		return scaled(t.roll.Value-bonus+t.stat, t.def), bonus, true
	}
	double := roundHalfEven(0.20 * float64(bonus))
	return scaled(t.roll.Value-bonus+double+t.stat, t.def), bonus, true
}

func bardRescue(t *turn) (int, int, bool) {
	bonus := dice.Between(t.src, 5, max(15, t.c.Rebirths()))
	dipl := t.roll.Value - bonus + t.stat + t.rebirths
	if t.c.Veteran() {
		dipl = int(0.01 * float64(t.party) * float64(dipl))
	}
	return scaled(dipl, t.def), bonus, false
}

// berserkerBoost pierces defense at veteran rank: the ability bonus is added
// after the division.
func berserkerBoost(t *turn) (int, string) {
	t.base = abilityBase(t)
	if t.c.Veteran() {
		return scaled(t.roll.Value+t.crit+t.stat, t.def) + t.base, "pierce"
	}
	return scaled(t.roll.Value+t.base+t.crit+t.stat, t.def), "rage"
}

func rangerBoost(t *turn) (int, string) {
	t.base = abilityBase(t)
	mod, hits := 0.25, 0
	if t.c.Veteran() {
		mod = 0.35
		hits = dice.Between(t.src, 3, 8)
	} else {
		hits = dice.Between(t.src, 3, 6)
	}
	arrow := roundHalfEven(float64(t.base) * mod)
	return scaled(t.roll.Value+t.crit+arrow*hits+t.stat, t.def), "volley"
}

func wizardBoost(t *turn) (int, string) {
	t.base = abilityBase(t)
	double := 0
	if t.c.Veteran() {
		double = roundHalfEven(0.65 * float64(t.base))
	}
	return scaled(t.roll.Value+t.base+double+t.crit+t.stat, t.def), "focus"
}

func bardBoost(t *turn) (int, string) {
	t.base = abilityBase(t)
	rally := 0
	if t.c.Veteran() {
		rally = int(0.12 * float64(t.party) * float64(t.base))
	}
	return scaled(t.roll.Value+t.base+t.crit+t.stat+rally, t.def), "music"
}
