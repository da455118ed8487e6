package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pizzawars/internal/game"
)

type playerStore interface {
	game.Store
	Close() error
}

func storeFactories() map[string]func(t *testing.T) playerStore {
	return map[string]func(t *testing.T) playerStore{
		"memory": func(t *testing.T) playerStore { return NewMemory() },
		"sqlite": func(t *testing.T) playerStore {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "pizzawars.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := game.DefaultBalance()

	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			_, err := s.Load(ctx, "nobody")
			require.ErrorIs(t, err, game.ErrPlayerNotFound)

			p := game.NewPlayer("p1", b, now)
			p.CashMicros = 42 * game.MicrosPerDollar
			p.Achievements["first_dough"] = now
			require.NoError(t, s.Save(ctx, &p))
			assert.Equal(t, int64(1), p.Version)

			got, err := s.Load(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, int64(1), got.Version)
			assert.Equal(t, p.CashMicros, got.CashMicros)
			assert.Equal(t, 1, got.Shops["Brooklyn"].Level)
			assert.True(t, got.Achievements["first_dough"].Equal(now))

			stale := got.Clone()
			got.CashMicros = 50 * game.MicrosPerDollar
			require.NoError(t, s.Save(ctx, &got))
			assert.Equal(t, int64(2), got.Version)

			stale.CashMicros = 1
			require.ErrorIs(t, s.Save(ctx, &stale), game.ErrConcurrentUpdate)

			dup := game.NewPlayer("p1", b, now)
			require.ErrorIs(t, s.Save(ctx, &dup), game.ErrConcurrentUpdate)

			reloaded, err := s.Load(ctx, "p1")
			require.NoError(t, err)
			assert.Equal(t, 50*game.MicrosPerDollar, reloaded.CashMicros)

			ids, err := s.ListIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"p1"}, ids)
		})
	}
}

func TestStoreMultiSaveIsAtomic(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	b := game.DefaultBalance()

	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			a := game.NewPlayer("a", b, now)
			c := game.NewPlayer("c", b, now)
			require.NoError(t, s.Save(ctx, &a, &c))

			staleC := c.Clone()
			c.CashMicros = 7
			require.NoError(t, s.Save(ctx, &c))

			a.LastSabotageAt = now
			require.ErrorIs(t, s.Save(ctx, &a, &staleC), game.ErrConcurrentUpdate)

			got, err := s.Load(ctx, "a")
			require.NoError(t, err)
			assert.True(t, got.LastSabotageAt.IsZero())
			assert.Equal(t, int64(1), got.Version)
		})
	}
}

func TestStorePerformanceRoundTrip(t *testing.T) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })

			got, err := s.LoadPerformance(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)

			require.NoError(t, s.SavePerformance(ctx, map[string]float64{"Brooklyn": 0.8, "Queens": 1.3}))
			require.NoError(t, s.SavePerformance(ctx, map[string]float64{"Brooklyn": 1.1}))

			got, err = s.LoadPerformance(ctx)
			require.NoError(t, err)
			assert.InDelta(t, 1.1, got["Brooklyn"], 1e-9)
		})
	}
}

func TestServiceOverSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	svc := game.NewService(s, nil)
	ctx := context.Background()
	status, err := svc.EnsurePlayer(ctx, "p1", "Luigi")
	require.NoError(t, err)
	assert.Equal(t, "Luigi", status.DisplayName)

	_, err = svc.CreditPremiumCurrency(ctx, "p1", 5, "ch_9")
	require.NoError(t, err)
	status, err = svc.Status(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), status.PizzaCoins)
}

type codedErr int

func (e codedErr) Error() string { return fmt.Sprintf("sqlite code %d", int(e)) }
func (e codedErr) Code() int     { return int(e) }

func TestLockConflictMapsBusyAndLocked(t *testing.T) {
	for _, code := range []int{5, 6, 5 | 2<<8, 6 | 1<<8} {
		err := lockConflict(fmt.Errorf("exec: %w", codedErr(code)))
		assert.ErrorIs(t, err, game.ErrConcurrentUpdate, "code %d", code)
	}

	constraint := codedErr(19)
	assert.Equal(t, error(constraint), lockConflict(constraint))
	plain := errors.New("disk on fire")
	assert.Equal(t, plain, lockConflict(plain))
}

func TestSQLiteSaveWhileLockedIsConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "locked.db")

	s, err := openSQLite(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	other, err := sqlx.Open("sqlite", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })
	holder, err := other.Conn(ctx)
	require.NoError(t, err)
	_, err = holder.ExecContext(ctx, "BEGIN IMMEDIATE")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = holder.ExecContext(ctx, "ROLLBACK")
		_ = holder.Close()
	})

	p := game.NewPlayer("a", game.DefaultBalance(), time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	err = s.Save(ctx, &p)
	assert.ErrorIs(t, err, game.ErrConcurrentUpdate)
	assert.Equal(t, int64(0), p.Version)
}
