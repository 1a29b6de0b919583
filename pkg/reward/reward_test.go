package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rapid"

	"github.com/jwebster45206/encounter-engine/pkg/actor"
	"github.com/jwebster45206/encounter-engine/pkg/dice"
	"github.com/jwebster45206/encounter-engine/pkg/storage"
	"github.com/jwebster45206/encounter-engine/pkg/storage/mocks"
	"github.com/jwebster45206/encounter-engine/pkg/treasure"
)

// A Monday with no daily bonus configured.
var monday = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func newCharacter(t *testing.T, spec *actor.CharacterSpec) *actor.Character {
	t.Helper()
	c, err := actor.NewCharacterFromSpec(spec)
	require.NoError(t, err)
	return c
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name     string
		spec     actor.CharacterSpec
		passive  bool
		hidden   bool
		modifier float64
		daily    map[time.Weekday]float64
		wantXP   int
		wantCP   int
		wantPet  int
	}{
		{
			name:   "baseline",
			spec:   actor.CharacterSpec{ID: "a"},
			wantXP: 75,
			wantCP: 75,
		},
		{
			name:    "passive halves",
			spec:    actor.CharacterSpec{ID: "a"},
			passive: true,
			wantXP:  37,
			wantCP:  37,
		},
		{
			name:   "hidden and daily bonus",
			spec:   actor.CharacterSpec{ID: "a"},
			hidden: true,
			daily:  map[time.Weekday]float64{time.Monday: 0.5},
			wantXP: 187,
			wantCP: 112,
		},
		{
			name:     "modifier raises xp only",
			spec:     actor.CharacterSpec{ID: "a"},
			modifier: 1,
			wantXP:   150,
			wantCP:   75,
		},
		{
			name:   "rebirths scale xp",
			spec:   actor.CharacterSpec{ID: "a", Rebirths: 2},
			wantXP: 150,
			wantCP: 75,
		},
		{
			name:   "gear set multipliers",
			spec:   actor.CharacterSpec{ID: "a", SetBonus: &actor.Multipliers{XP: 2, Currency: 3}},
			wantXP: 150,
			wantCP: 225,
		},
		{
			name:    "companion always pays",
			spec:    actor.CharacterSpec{ID: "a", Pet: &actor.Pet{Name: "owl", Bonus: 1.5, Always: true}},
			wantXP:  75,
			wantCP:  75,
			wantPet: 37,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDistributor(tt.daily).WithClock(func() time.Time { return monday })
			c := newCharacter(t, &tt.spec)
			// d100 = 100 keeps the companion quiet unless it always pays
			src := &dice.Fixed{Ints: []int{99, 99}}

			s := d.Distribute(src, []Recipient{{Character: c, Passive: tt.passive}}, 100, tt.modifier, treasure.Bundle{}, tt.hidden)

			require.Len(t, s.Grants, 1)
			g := s.Grants[0]
			assert.Equal(t, tt.wantXP, g.XP)
			assert.Equal(t, tt.wantCP, g.Currency)
			assert.Equal(t, tt.wantPet, g.PetXP)
			assert.Equal(t, g.TotalXP(), s.XP)
			assert.NotEmpty(t, s.Narrative)
		})
	}
}

func TestDistribute_Narrative(t *testing.T) {
	d := NewDistributor(nil).WithClock(func() time.Time { return monday })
	a := newCharacter(t, &actor.CharacterSpec{ID: "a", Name: "Aria", Pet: &actor.Pet{Name: "barn owl", Bonus: 1.5, Always: true}})
	b := newCharacter(t, &actor.CharacterSpec{ID: "b", Name: "Bram"})

	s := d.Distribute(dice.New(1), []Recipient{{Character: a}, {Character: b}}, 2000, 0, treasure.Bundle{Epic: 1}, false)

	require.Len(t, s.Narrative, 4)
	assert.Equal(t, "Aria gained 2,250 XP and 2,250 coins.", s.Narrative[0])
	assert.Equal(t, "Aria received a 50% reward bonus from their Barn Owl.", s.Narrative[2])
	assert.Contains(t, s.Narrative[3], "Aria and Bram have been awarded")
	assert.Contains(t, s.Narrative[3], "1 epic")
	assert.Equal(t, treasure.Bundle{Epic: 1}, s.Grants[1].Treasure)
}

func TestDistribute_SameSeedSameTotals(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		amount := rapid.IntRange(0, 20000).Draw(rt, "amount")
		rebirths := rapid.IntRange(0, 40).Draw(rt, "rebirths")

		c, err := actor.NewCharacterFromSpec(&actor.CharacterSpec{
			ID:       "a",
			Rebirths: rebirths,
			Skills:   actor.Stats{Attack: 40, Charisma: 12, Luck: 9},
			Pet:      &actor.Pet{Name: "cat", Bonus: 1.25},
		})
		if err != nil {
			rt.Fatal(err)
		}
		d := NewDistributor(nil).WithClock(func() time.Time { return monday })
		recipients := []Recipient{{Character: c}, {Character: c, Passive: true}}

		first := d.Distribute(dice.New(seed), recipients, amount, 0.25, treasure.Bundle{}, true)
		second := d.Distribute(dice.New(seed), recipients, amount, 0.25, treasure.Bundle{}, true)

		if first.XP != second.XP || first.Currency != second.Currency {
			rt.Fatalf("totals differ: %d/%d vs %d/%d", first.XP, first.Currency, second.XP, second.Currency)
		}
		for i := range first.Grants {
			if first.Grants[i] != second.Grants[i] {
				rt.Fatalf("grant %d differs: %+v vs %+v", i, first.Grants[i], second.Grants[i])
			}
		}
	})
}

func TestLoss(t *testing.T) {
	tests := []struct {
		name    string
		spec    actor.CharacterSpec
		balance int
		want    Loss
	}{
		{"veteran loses a third", actor.CharacterSpec{ID: "a", Rebirths: 10}, 900, Loss{ActorID: "a", Name: "a", Amount: 300}},
		{"novice loses a percent", actor.CharacterSpec{ID: "a"}, 900, Loss{ActorID: "a", Name: "a", Amount: 9}},
		{"dexterity divides", actor.CharacterSpec{ID: "a", Rebirths: 10, Skills: actor.Stats{Dexterity: 25}}, 900, Loss{ActorID: "a", Name: "a", Amount: 150}},
		{"empty balance", actor.CharacterSpec{ID: "a", Rebirths: 10}, 0, Loss{ActorID: "a", Name: "a"}},
		{
			"companion offsets",
			actor.CharacterSpec{ID: "a", Rebirths: 10, Pet: &actor.Pet{Name: "dog", Bonus: 1.5, Always: true}},
			900,
			Loss{ActorID: "a", Name: "a", Amount: 225, Offset: 75},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDistributor(nil)
			c := newCharacter(t, &tt.spec)
			got := d.Loss(&dice.Fixed{Ints: []int{99}}, c, tt.balance)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPenalize(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	spec := &actor.CharacterSpec{ID: "a", Rebirths: 12}
	store.AddCharacter(spec, 900)
	d := NewDistributor(nil)

	loss := d.Loss(&dice.Fixed{Ints: []int{99}}, newCharacter(t, spec), 900)
	taken, err := Penalize(ctx, store, loss)
	require.NoError(t, err)
	assert.Equal(t, 300, loss.Amount)
	assert.Equal(t, 300, taken)

	bal, err := store.Balance(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 600, bal)
	assert.Equal(t, []string{"a used 300 coins to repair their gear."}, d.LossNarrative([]Loss{loss}))
}

func TestPenalize_EmptiesShrunkBalance(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	store.AddCharacter(&actor.CharacterSpec{ID: "a"}, 40)

	// computed against an older balance of 900
	taken, err := Penalize(ctx, store, Loss{ActorID: "a", Amount: 300})
	require.NoError(t, err)
	assert.Equal(t, 40, taken)

	bal, err := store.Balance(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, bal)
}

func TestPenalize_NeverNegative(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	// a third of a single coin rounds to nothing
	spec := &actor.CharacterSpec{ID: "a", Rebirths: 12}
	store.AddCharacter(spec, 1)
	d := NewDistributor(nil)

	loss := d.Loss(&dice.Fixed{Ints: []int{99}}, newCharacter(t, spec), 1)
	_, err := Penalize(ctx, store, loss)
	require.NoError(t, err)

	bal, err := store.Balance(ctx, "a")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bal, 0)
}

func TestCreditAndPay(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	spec := &actor.CharacterSpec{ID: "a"}
	store.AddCharacter(spec, 10)

	g := Grant{ActorID: "a", XP: 40, PetXP: 2, Currency: 50, Treasure: treasure.Bundle{Common: 1}}
	Credit(spec, g)
	credited, err := Pay(ctx, store, g)
	require.NoError(t, err)

	assert.Equal(t, 42, spec.Experience)
	assert.Equal(t, 1, spec.Treasure.Common)
	assert.Equal(t, 50, credited)
	bal, _ := store.Balance(ctx, "a")
	assert.Equal(t, 60, bal)
}

func TestPay_CapsBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedger(ctrl)

	gomock.InOrder(
		ledger.EXPECT().Deposit(gomock.Any(), "a", 50).Return(990, storage.ErrBalanceTooHigh),
		ledger.EXPECT().MaxBalance().Return(1000),
		ledger.EXPECT().SetBalance(gomock.Any(), "a", 1000).Return(nil),
	)

	credited, err := Pay(context.Background(), ledger, Grant{ActorID: "a", Currency: 50})
	require.NoError(t, err)
	assert.Equal(t, 10, credited)
}

func TestPay_DepositFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedger(ctrl)
	ledger.EXPECT().Deposit(gomock.Any(), "a", 50).Return(0, errors.New("connection reset"))

	credited, err := Pay(context.Background(), ledger, Grant{ActorID: "a", Currency: 50})
	assert.ErrorContains(t, err, "failed to deposit reward")
	assert.Zero(t, credited)
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	store.AddCharacter(&actor.CharacterSpec{ID: "a"}, 500)

	credited, err := Pay(ctx, store, Grant{ActorID: "a", Currency: 9})
	require.NoError(t, err)
	require.NoError(t, Refund(ctx, store, "a", credited))
	bal, _ := store.Balance(ctx, "a")
	assert.Equal(t, 500, bal)

	taken, err := Penalize(ctx, store, Loss{ActorID: "a", Amount: 5})
	require.NoError(t, err)
	require.NoError(t, Refund(ctx, store, "a", -taken))
	bal, _ = store.Balance(ctx, "a")
	assert.Equal(t, 500, bal)

	require.NoError(t, Refund(ctx, store, "a", 0))
}

func TestRefund_ReturnsCappedPenalty(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedger(ctrl)

	gomock.InOrder(
		ledger.EXPECT().Deposit(gomock.Any(), "a", 30).Return(990, storage.ErrBalanceTooHigh),
		ledger.EXPECT().MaxBalance().Return(1000),
		ledger.EXPECT().SetBalance(gomock.Any(), "a", 1000).Return(nil),
	)

	require.NoError(t, Refund(context.Background(), ledger, "a", -30))
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "", joinNames(nil))
	assert.Equal(t, "a", joinNames([]string{"a"}))
	assert.Equal(t, "a and b", joinNames([]string{"a", "b"}))
	assert.Equal(t, "a, b and c", joinNames([]string{"a", "b", "c"}))
}
