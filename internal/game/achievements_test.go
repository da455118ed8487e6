package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unlockedIDs(list []UnlockedAchievement) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestCheckAndUnlockGrantsRewardsOnce(t *testing.T) {
	b := DefaultBalance()
	p := NewPlayer("p1", b, testEpoch)
	p.TotalIncomeMicros = 1_000 * MicrosPerDollar

	got := CheckAndUnlock(&p, b.Achievements, testEpoch)
	assert.Equal(t, []string{"first_dough", "thousandaire"}, unlockedIDs(got))
	assert.Equal(t, "Slice Slinger", p.Title)
	// $10 start + $50 first_dough
	assert.Equal(t, 60*MicrosPerDollar, p.CashMicros)
	assert.Equal(t, int64(2), p.PizzaCoins)

	again := CheckAndUnlock(&p, b.Achievements, testEpoch.Add(time.Hour))
	assert.Empty(t, again)
	assert.Equal(t, 60*MicrosPerDollar, p.CashMicros)
	assert.Equal(t, int64(2), p.PizzaCoins)
}

func TestAchievementsAreMonotonic(t *testing.T) {
	b := DefaultBalance()
	p := NewPlayer("p1", b, testEpoch)
	p.Shops["Brooklyn"].Level = 5
	require.Len(t, CheckAndUnlock(&p, b.Achievements, testEpoch), 1)

	p.Shops["Brooklyn"].Level = 1
	assert.Empty(t, CheckAndUnlock(&p, b.Achievements, testEpoch))
	assert.Contains(t, p.Achievements, "brooklyn_5")
}

func TestTitleNeverDowngrades(t *testing.T) {
	b := DefaultBalance()
	p := NewPlayer("p1", b, testEpoch)
	p.Title = "Franchise Boss"
	p.Shops["Manhattan"] = &Shop{Level: 1, Name: "Manhattan", LastCollectedAt: testEpoch}

	got := CheckAndUnlock(&p, b.Achievements, testEpoch)
	assert.Equal(t, []string{"second_oven", "manhattan_owner"}, unlockedIDs(got))
	assert.Equal(t, "Manhattan Mogul", got[1].Title)
	assert.Equal(t, "Franchise Boss", p.Title)

	p.TotalIncomeMicros = 100_000 * MicrosPerDollar
	CheckAndUnlock(&p, b.Achievements, testEpoch)
	assert.Equal(t, "Big Cheese", p.Title)
}

func TestCheckAchievementsService(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "p1", func(p *Player) { p.TotalIncomeMicros = 150 * MicrosPerDollar })

	got, err := env.svc.CheckAchievements(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"first_dough"}, unlockedIDs(got))

	p := env.store.get(t, "p1")
	assert.Equal(t, "Dough Tosser", p.Title)
	msgs := env.notify.For("p1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Achievement unlocked: First Dough")

	got, err = env.svc.CheckAchievements(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
