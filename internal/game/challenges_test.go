package game

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateChallengeScalesWithAchievements(t *testing.T) {
	b := DefaultBalance()
	rng := &scriptedRand{}
	p := NewPlayer("p1", b, testEpoch)
	p.Stats = SessionStats{IncomeMicros: 9, Upgrades: 2, Collects: 3, Expansions: 1}
	p.ChallengeProgress[Daily]["old"] = true

	c := GenerateChallenge(&p, b, Daily, testEpoch, rng)
	assert.Equal(t, "earn", c.TemplateID)
	assert.Equal(t, int64(500), c.Goal)
	assert.Equal(t, int64(100), c.Reward)
	assert.Equal(t, "Earn $500.00 in income", c.Description)
	assert.True(t, strings.HasPrefix(c.ID, "earn-daily-"))
	assert.Same(t, c, p.Challenges[Daily])
	assert.Empty(t, p.ChallengeProgress[Daily])
	assert.Equal(t, SessionStats{}, p.Stats)

	p.Achievements["a"] = testEpoch
	p.Achievements["b"] = testEpoch
	c = GenerateChallenge(&p, b, Daily, testEpoch, rng)
	assert.Equal(t, int64(1125), c.Goal)
	assert.Equal(t, int64(196), c.Reward)

	w := GenerateChallenge(&p, b, Weekly, testEpoch, rng)
	assert.Equal(t, int64(1125), w.Goal)
	assert.Equal(t, int64(196), w.Reward)
	assert.NotEqual(t, c.ID, w.ID)
}

func TestWeeklyChallengeUsesBaseGoalAtLevelZero(t *testing.T) {
	b := DefaultBalance()
	p := NewPlayer("p1", b, testEpoch)

	w := GenerateChallenge(&p, b, Weekly, testEpoch, &scriptedRand{})
	tpl := b.Challenges[0]
	assert.Equal(t, int64(tpl.BaseGoal), w.Goal)
	assert.Equal(t, int64(tpl.BaseReward), w.Reward)

	b.ChallengeScale[Weekly] = 3
	w = GenerateChallenge(&p, b, Weekly, testEpoch, &scriptedRand{})
	assert.Equal(t, int64(3*tpl.BaseGoal), w.Goal)
}

func TestGenerateChallengeFloorsGoalAndReward(t *testing.T) {
	b := DefaultBalance()
	b.Challenges = []ChallengeTemplate{{
		ID: "tiny", Description: "Collect %s times", Metric: StatCollects,
		BaseGoal: 0.2, GoalGrowth: 1, RewardKind: RewardPremium, BaseReward: 0.1, RewardGrowth: 1,
	}}
	p := NewPlayer("p1", b, testEpoch)
	c := GenerateChallenge(&p, b, Daily, testEpoch, &scriptedRand{})
	assert.Equal(t, int64(3), c.Goal)
	assert.Equal(t, int64(1), c.Reward)
}

func TestEvaluateChallengesPaysOncePerInstance(t *testing.T) {
	b := DefaultBalance()
	p := NewPlayer("p1", b, testEpoch)
	daily := GenerateChallenge(&p, b, Daily, testEpoch, &scriptedRand{})
	GenerateChallenge(&p, b, Weekly, testEpoch, &scriptedRand{})
	p.Stats.IncomeMicros = 600 * MicrosPerDollar

	assert.Empty(t, EvaluateChallenges(&p, StatUpgrades))

	msgs := EvaluateChallenges(&p, StatIncome)
	require.Len(t, msgs, 1)
	assert.True(t, p.ChallengeProgress[Daily][daily.ID])
	assert.False(t, p.ChallengeProgress[Weekly][p.Challenges[Weekly].ID])
	assert.Equal(t, 110*MicrosPerDollar, p.CashMicros)

	p.Stats.IncomeMicros = 5_000 * MicrosPerDollar
	msgs = EvaluateChallenges(&p, StatIncome)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Weekly challenge complete")
	assert.Equal(t, 510*MicrosPerDollar, p.CashMicros)

	assert.Empty(t, EvaluateChallenges(&p))
	assert.Equal(t, 510*MicrosPerDollar, p.CashMicros)
	assert.Same(t, daily, p.Challenges[Daily])
}

func TestStaleChallengesRegenerateOnDemand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "p1", nil)
	before := env.store.get(t, "p1")

	env.clock.Advance(25 * time.Hour)
	views, err := env.svc.GetChallenges(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, Daily, views[0].Timescale)
	assert.True(t, views[0].GeneratedAt.Equal(env.clock.Now()))
	assert.Equal(t, before.Challenges[Weekly].ID, views[1].ID)

	after := env.store.get(t, "p1")
	assert.NotEqual(t, before.Challenges[Daily].ID, after.Challenges[Daily].ID)
}

func TestGetChallengesCreatesPlayerSlots(t *testing.T) {
	env := newTestEnv(t)
	views, err := env.svc.GetChallenges(context.Background(), "newbie")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Zero(t, views[0].Progress)
	assert.False(t, views[0].Completed)

	p := env.store.get(t, "newbie")
	assert.NotNil(t, p.Challenges[Daily])
	assert.NotNil(t, p.Challenges[Weekly])
}

func TestGenerateChallengeService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "p1", func(p *Player) { p.Stats.Upgrades = 7 })
	env.clock.Advance(time.Minute)

	view, err := env.svc.GenerateChallenge(ctx, "p1", Weekly)
	require.NoError(t, err)
	assert.Equal(t, Weekly, view.Timescale)
	assert.True(t, view.GeneratedAt.Equal(env.clock.Now()))

	p := env.store.get(t, "p1")
	assert.Zero(t, p.Stats.Upgrades)

	_, err = env.svc.GenerateChallenge(ctx, "p1", Timescale("monthly"))
	require.ErrorIs(t, err, ErrInvalidTimescale)
}

func TestRegenerateChallengesContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"a", "b", "c"} {
		env.seed(t, id, nil)
	}
	env.store.failFor = map[string]error{"b": errBoom}
	env.clock.Advance(time.Hour)

	report, err := env.svc.RegenerateChallenges(context.Background(), Daily)
	require.NoError(t, err)
	assert.Equal(t, BatchReport{Processed: 2, Failed: 1}, report)

	for _, id := range []string{"a", "c"} {
		p := env.store.get(t, id)
		assert.True(t, p.Challenges[Daily].GeneratedAt.Equal(env.clock.Now()), id)
	}
	assert.True(t, env.store.get(t, "b").Challenges[Daily].GeneratedAt.Equal(testEpoch))
}
