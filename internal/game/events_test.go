package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// primeShakedown seeds a player whose next paying collection is the fifth.
func primeShakedown(t *testing.T, env *testEnv) CollectResult {
	t.Helper()
	env.seed(t, "p1", func(p *Player) { p.CollectionCount = 4 })
	env.clock.Advance(100 * time.Second)
	res, err := env.svc.Collect(context.Background(), "p1")
	require.NoError(t, err)
	require.NotNil(t, res.Shakedown)
	return res
}

func TestFifthCollectionTriggersShakedown(t *testing.T) {
	for _, roll := range []float64{0, 0.5, 0.999999} {
		env := newTestEnv(t)
		env.rand.push(roll)
		res := primeShakedown(t, env)

		assert.Equal(t, 10*MicrosPerDollar, res.AmountMicros)
		assert.Positive(t, res.Shakedown.DemandMicros)
		assert.Less(t, res.Shakedown.DemandMicros, res.AmountMicros)
		assert.NotEmpty(t, res.Shakedown.ID)

		p := env.store.get(t, "p1")
		require.NotNil(t, p.PendingShakedown)
		assert.Equal(t, int64(5), p.CollectionCount)
		assert.Equal(t, 10*MicrosPerDollar, p.CashMicros, "payout is held back")
		assert.Zero(t, p.TotalIncomeMicros)
		assert.True(t, p.Shops["Brooklyn"].LastCollectedAt.Equal(env.clock.Now()))
	}
}

func TestCollectBlockedWhileShakedownPending(t *testing.T) {
	env := newTestEnv(t)
	primeShakedown(t, env)
	env.clock.Advance(time.Minute)

	_, err := env.svc.Collect(context.Background(), "p1")
	require.ErrorIs(t, err, ErrShakedownPending)
}

func TestResolveShakedownPay(t *testing.T) {
	env := newTestEnv(t)
	env.rand.push(0)
	res := primeShakedown(t, env)
	// lowest band: 10% of $10
	require.Equal(t, MicrosPerDollar, res.Shakedown.DemandMicros)

	out, err := env.svc.ResolveShakedown(context.Background(), "p1", ShakedownPay)
	require.NoError(t, err)
	assert.Equal(t, 9*MicrosPerDollar, out.KeptMicros)
	assert.Equal(t, MicrosPerDollar, out.LostMicros)

	p := env.store.get(t, "p1")
	assert.Nil(t, p.PendingShakedown)
	assert.Equal(t, 19*MicrosPerDollar, p.CashMicros)
	assert.Equal(t, 9*MicrosPerDollar, p.TotalIncomeMicros)
	assert.Equal(t, int64(1), p.Stats.Collects)
	assert.Equal(t, 9*MicrosPerDollar, p.Stats.IncomeMicros)
}

func TestResolveShakedownRefuse(t *testing.T) {
	tests := []struct {
		name string
		flip float64
		kept int64
	}{
		{name: "keep everything", flip: 0.2, kept: 10 * MicrosPerDollar},
		{name: "lose everything", flip: 0.7, kept: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			primeShakedown(t, env)
			env.rand.push(tc.flip)

			out, err := env.svc.ResolveShakedown(context.Background(), "p1", ShakedownRefuse)
			require.NoError(t, err)
			assert.Equal(t, tc.kept, out.KeptMicros)
			assert.Equal(t, 10*MicrosPerDollar-tc.kept, out.LostMicros)

			p := env.store.get(t, "p1")
			assert.Equal(t, 10*MicrosPerDollar+tc.kept, p.CashMicros)
			assert.Equal(t, tc.kept, p.TotalIncomeMicros)
			assert.Equal(t, tc.kept, p.Stats.IncomeMicros)
			assert.Equal(t, int64(1), p.Stats.Collects)
		})
	}
}

func TestResolveShakedownErrors(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "p1", nil)
	ctx := context.Background()

	_, err := env.svc.ResolveShakedown(ctx, "p1", ShakedownPay)
	require.ErrorIs(t, err, ErrNoShakedown)

	_, err = env.svc.ResolveShakedown(ctx, "p1", ShakedownChoice("haggle"))
	require.ErrorIs(t, err, ErrInvalidChoice)

	choice, err := ParseShakedownChoice(" PAY ")
	require.NoError(t, err)
	assert.Equal(t, ShakedownPay, choice)
}

func TestShakedownDemandStaysInsideTinyAmounts(t *testing.T) {
	env := newTestEnv(t)
	for _, roll := range []float64{0, 0.99} {
		env.rand.push(roll)
		sd := env.svc.newShakedown(MicrosPerCent, testEpoch)
		assert.Positive(t, sd.DemandMicros)
		assert.Less(t, sd.DemandMicros, sd.AmountMicros)
	}
}

func TestRefreshLocationPerformance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	got, err := env.svc.RefreshLocationPerformance(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(env.svc.balance.Locations))
	for loc, m := range got {
		assert.GreaterOrEqual(t, m, env.svc.balance.PerformanceMin, loc)
		assert.LessOrEqual(t, m, env.svc.balance.PerformanceMax, loc)
		assert.InDelta(t, m, env.svc.perf.Multiplier(loc), 1e-9)
	}
	assert.InDelta(t, 1.492, env.svc.perf.Multiplier("Brooklyn"), 1e-9)

	other := NewService(env.store, nil, WithClock(env.clock))
	assert.Equal(t, 1.0, other.Performance().Multiplier("Brooklyn"))
	require.NoError(t, other.ReloadPerformance(ctx))
	assert.InDelta(t, 1.492, other.Performance().Multiplier("Brooklyn"), 1e-9)
}

func TestRefreshLocationPerformanceStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.saveErr = errBoom
	env.rand.push(0.0)
	_, err := env.svc.RefreshLocationPerformance(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, 1.0, env.svc.Performance().Multiplier("Brooklyn"))
	assert.Equal(t, 1.0, env.svc.Performance().Multiplier("Queens"))
}
