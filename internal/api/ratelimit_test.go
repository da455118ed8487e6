package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlayerLimiterDropsIdleBuckets(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	l := newPlayerLimiter(1, 1)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("p1"))
	assert.False(t, l.Allow("p1"))
	assert.True(t, l.Allow("p2"))
	assert.Equal(t, 2, l.size())

	now = now.Add(limiterIdleTTL / 2)
	assert.True(t, l.Allow("p2"))

	now = now.Add(limiterIdleTTL/2 + time.Second)
	assert.True(t, l.Allow("p3"))
	assert.Equal(t, 2, l.size())

	l.mu.Lock()
	_, kept := l.limiters["p2"]
	_, dropped := l.limiters["p1"]
	l.mu.Unlock()
	assert.True(t, kept)
	assert.False(t, dropped)
}

func TestNilPlayerLimiterAllowsAll(t *testing.T) {
	var l *playerLimiter
	assert.Nil(t, newPlayerLimiter(0, 5))
	assert.True(t, l.Allow("anyone"))
}
