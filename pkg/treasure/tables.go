package treasure

import "github.com/jwebster45206/encounter-engine/pkg/dice"

// MinimumAmount is the lowest amount that can earn loot on a plain encounter.
const MinimumAmount = 80

// Tier describes the encounter flags the loot ladder keys on.
type Tier struct {
	NoTarget    bool
	Transcended bool
	Boss        bool
	Guardian    bool
}

// Outcome is the resolved state of an encounter as far as loot is concerned.
// HP and Dipl are the target values the party had to reach.
type Outcome struct {
	HP        int
	Dipl      int
	Slain     bool
	Persuaded bool
	Failed    bool
	Critical  bool
}

// Amount is the value the threshold ladder compares against.
func (o Outcome) Amount() int {
	switch {
	case o.Slain && o.Persuaded:
		return o.HP + o.Dipl
	case o.Slain:
		return o.HP
	default:
		return o.Dipl
	}
}

var noTargetBundles = []Bundle{
	{Set: 1},
	{Ascended: 1, Set: 2},
	{Epic: 3, Legendary: 1},
	{Legendary: 3, Ascended: 2},
	{Epic: 1, Legendary: 3, Set: 1},
	{Epic: 1, Legendary: 2, Ascended: 1},
	{Epic: 1, Legendary: 5, Ascended: 2, Set: 1},
	{Epic: 1, Legendary: 5, Ascended: 1, Set: 1},
	{Epic: 1, Legendary: 1, Ascended: 1, Set: 1},
}

var (
	transcendedBossBundles = []Bundle{
		{Epic: 1, Legendary: 5, Ascended: 2, Set: 3},
		{Epic: 2, Legendary: 6, Ascended: 1, Set: 3},
		{Epic: 3, Legendary: 7, Ascended: 1, Set: 3},
	}
	transcendedBundles = []Bundle{
		{Epic: 1, Legendary: 5, Ascended: 1, Set: 1},
		{Epic: 2, Legendary: 3, Set: 1},
		{Epic: 3, Legendary: 1, Ascended: 1, Set: 1},
		{Epic: 1, Legendary: 5, Set: 1},
	}
	bossBundles = []Bundle{
		{Epic: 3, Legendary: 5, Set: 1},
		{Epic: 1, Legendary: 2, Ascended: 1, Set: 1},
		{Legendary: 3, Ascended: 2, Set: 1},
	}
	guardianBundles = []Bundle{
		{Epic: 4, Ascended: 2},
		{Epic: 2, Legendary: 1, Ascended: 2},
		{Epic: 3, Legendary: 2},
		{Uncommon: 6, Legendary: 3, Ascended: 2},
	}
)

// rung is one step of the threshold ladder. A rung matches when the amount
// reaches min; its bundles are only awarded when the d10 roll is <= chance.
type rung struct {
	min     int
	chance  int
	bundles []Bundle
}

var ladder = []rung{
	{8000, 10, []Bundle{{Epic: 3, Legendary: 3, Ascended: 1}, {Epic: 1, Legendary: 5}, {Epic: 1, Legendary: 2, Ascended: 1}}},
	{6000, 9, []Bundle{{Epic: 3, Legendary: 3}, {Epic: 1, Legendary: 1, Ascended: 1}, {Legendary: 2, Ascended: 1}}},
	{5000, 7, []Bundle{{Epic: 3, Legendary: 3}, {Epic: 1, Legendary: 1, Ascended: 1}, {Legendary: 2, Ascended: 1}}},
	{3000, 7, []Bundle{{Epic: 3, Legendary: 1}, {Epic: 1, Legendary: 2}, {Legendary: 1, Ascended: 1}}},
	{1500, 7, []Bundle{{Uncommon: 1, Epic: 3}, {Uncommon: 5, Epic: 1}, {Epic: 2, Legendary: 1}}},
	{700, 7, []Bundle{{Epic: 1}, {Uncommon: 1}, {Legendary: 1}}},
	{500, 5, []Bundle{{Epic: 1}, {Uncommon: 1}, {Uncommon: 1, Epic: 1}}},
	{300, 2, []Bundle{{Common: 1}, {Uncommon: 1}, {Common: 1, Uncommon: 1}}},
	{MinimumAmount, 1, []Bundle{{Common: 1}}},
}

// NoTarget draws one of the generous bundles handed out when an encounter
// had nothing to fight.
func NoTarget(src dice.Source) Bundle {
	return dice.Pick(src, noTargetBundles)
}

// Roll picks the loot for a finished encounter. Failed encounters, encounters
// with neither success condition, and amounts under MinimumAmount earn nothing.
// Otherwise the tier decides the table, falling back to the threshold ladder
// for plain encounters. A critical anywhere in the round adds one epic unit.
func Roll(src dice.Source, tier Tier, o Outcome) Bundle {
	if tier.NoTarget {
		return NoTarget(src)
	}
	if o.Failed || !(o.Slain || o.Persuaded) {
		return Bundle{}
	}
	amount := o.Amount()
	if amount < MinimumAmount {
		return Bundle{}
	}

	roll := dice.Between(src, 1, 10)
	var b Bundle
	switch {
	case tier.Transcended && tier.Boss:
		b = dice.Pick(src, transcendedBossBundles)
	case tier.Transcended:
		b = dice.Pick(src, transcendedBundles)
	case tier.Boss:
		b = dice.Pick(src, bossBundles)
	case tier.Guardian:
		b = dice.Pick(src, guardianBundles)
	default:
		for _, r := range ladder {
			if amount < r.min {
				continue
			}
			if roll <= r.chance {
				b = dice.Pick(src, r.bundles)
			}
			break
		}
	}

	if o.Critical {
		b.Epic++
	}
	return b
}

// RebirthChest rolls the bonus loot reborn actors collect with every reward.
func RebirthChest(src dice.Source, rebirths int) Bundle {
	var b Bundle
	if rebirths <= 1 {
		return b
	}
	roll := dice.Between(src, 1, 100)
	if roll < 50 {
		b.Common++
	}
	if rebirths > 5 && roll < 30 {
		b.Uncommon++
	}
	if rebirths > 10 && roll < 10 {
		b.Epic++
	}
	if rebirths > 15 && roll < 5 {
		b.Legendary++
	}
	return b
}
