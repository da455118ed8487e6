package game

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locationNames(views []ExpansionView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Location)
	}
	return out
}

func TestExpansionCost(t *testing.T) {
	b := DefaultBalance()
	assert.Equal(t, 1_500*MicrosPerDollar, ExpansionCost(b, "Manhattan"))
	assert.Equal(t, 3_000*MicrosPerDollar, ExpansionCost(b, "Albany"))
}

func TestTotalIncomeRequirementBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "p1", func(p *Player) {
		p.TotalIncomeMicros = 24_999 * MicrosPerDollar
		p.CashMicros = 10_000 * MicrosPerDollar
	})

	_, err := env.svc.Expand(ctx, "p1", "Albany")
	require.ErrorIs(t, err, ErrRequirementNotMet)
	var reqErr *RequirementError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "Albany", reqErr.Location)
	assert.Contains(t, reqErr.Reason, "$25000.00")

	available, err := env.svc.AvailableExpansions(ctx, "p1")
	require.NoError(t, err)
	assert.NotContains(t, locationNames(available), "Albany")

	p := env.store.get(t, "p1")
	p.TotalIncomeMicros = 25_000 * MicrosPerDollar
	env.store.put(p)

	available, err = env.svc.AvailableExpansions(ctx, "p1")
	require.NoError(t, err)
	assert.Contains(t, locationNames(available), "Albany")
}

func TestExpandSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "p1", func(p *Player) {
		p.TotalIncomeMicros = 25_000 * MicrosPerDollar
		p.CashMicros = 10_000 * MicrosPerDollar
		p.Achievements["first_dough"] = testEpoch
		p.Achievements["thousandaire"] = testEpoch
	})

	res, err := env.svc.Expand(context.Background(), "p1", "albany")
	require.NoError(t, err)
	assert.Equal(t, "Albany", res.Location)
	assert.Equal(t, 3_000*MicrosPerDollar, res.CostMicros)
	require.Len(t, res.Achievements, 1)
	assert.Equal(t, "second_oven", res.Achievements[0].ID)

	p := env.store.get(t, "p1")
	shop := p.Shops["Albany"]
	require.NotNil(t, shop)
	assert.Equal(t, 1, shop.Level)
	assert.True(t, shop.LastCollectedAt.Equal(testEpoch))
	assert.Equal(t, int64(1), p.Stats.Expansions)
	// $10000 - $3000 + $250 second_oven reward
	assert.Equal(t, 7_250*MicrosPerDollar, p.CashMicros)
}

func TestExpandRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "p1", func(p *Player) {
		p.Shops["Brooklyn"].Level = 5
		p.CashMicros = 100 * MicrosPerDollar
	})

	_, err := env.svc.Expand(ctx, "p1", "Narnia")
	require.ErrorIs(t, err, ErrInvalidLocation)

	_, err = env.svc.Expand(ctx, "p1", "Brooklyn")
	require.ErrorIs(t, err, ErrAlreadyOwned)

	_, err = env.svc.Expand(ctx, "p1", "Queens")
	require.ErrorIs(t, err, ErrRequirementNotMet)
	assert.Contains(t, err.Error(), "requires Brooklyn to be level 10")

	_, err = env.svc.Expand(ctx, "p1", "Manhattan")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	p := env.store.get(t, "p1")
	assert.Len(t, p.Shops, 1)
	assert.Equal(t, 100*MicrosPerDollar, p.CashMicros)
}

func TestAvailableExpansionsRequirementKinds(t *testing.T) {
	env := newTestEnv(t)
	c := env.svc.catalog
	p := NewPlayer("p1", env.svc.balance, testEpoch)

	assert.Empty(t, env.svc.availableExpansions(&p))

	p.Shops["Brooklyn"].Level = 5
	assert.Equal(t, []string{"Manhattan"}, locationNames(env.svc.availableExpansions(&p)))

	p.Shops["Manhattan"] = &Shop{Level: 10, Name: "Manhattan", LastCollectedAt: testEpoch}
	p.Shops["Queens"] = &Shop{Level: 1, Name: "Queens", LastCollectedAt: testEpoch}
	assert.ElementsMatch(t, []string{"Jersey City", "Boston"}, locationNames(env.svc.availableExpansions(&p)))

	philly, ok := c.Location("Philadelphia")
	require.True(t, ok)
	assert.False(t, c.RequirementMet(&p, philly))
	p.Shops["Albany"] = &Shop{Level: 1, Name: "Albany", LastCollectedAt: testEpoch}
	assert.True(t, c.RequirementMet(&p, philly))
	assert.Equal(t, "requires a shop in Albany", c.RequirementReason(philly))
}
