package game

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// scriptedRand pops queued Float64 values and falls back to a constant once
// the queue is drained. Intn always picks the first option.
type scriptedRand struct {
	mu       sync.Mutex
	floats   []float64
	fallback float64
}

func (r *scriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) == 0 {
		return r.fallback
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(int) int { return 0 }

func (r *scriptedRand) push(v ...float64) {
	r.mu.Lock()
	r.floats = append(r.floats, v...)
	r.mu.Unlock()
}

type fakeStore struct {
	mu          sync.Mutex
	players     map[string]Player
	performance map[string]float64
	saveErr     error
	failFor     map[string]error
	conflicts   int
	saves       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{players: make(map[string]Player)}
}

func (f *fakeStore) Load(_ context.Context, id string) (Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return Player{}, ErrPlayerNotFound
	}
	return p.Clone(), nil
}

func (f *fakeStore) Save(_ context.Context, players ...*Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		return ErrConcurrentUpdate
	}
	for _, p := range players {
		if err := f.failFor[p.ID]; err != nil {
			return err
		}
		if cur, ok := f.players[p.ID]; ok && cur.Version != p.Version {
			return ErrConcurrentUpdate
		}
	}
	for _, p := range players {
		p.Version++
		f.players[p.ID] = p.Clone()
	}
	f.saves++
	return nil
}

func (f *fakeStore) ListIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.players))
	for id := range f.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) LoadPerformance(context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.performance))
	for k, v := range f.performance {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SavePerformance(_ context.Context, m map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.performance = make(map[string]float64, len(m))
	for k, v := range m {
		f.performance[k] = v
	}
	return nil
}

func (f *fakeStore) put(p Player) {
	f.mu.Lock()
	f.players[p.ID] = p.Clone()
	f.mu.Unlock()
}

func (f *fakeStore) get(t *testing.T, id string) Player {
	t.Helper()
	p, err := f.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return p
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (n *recordingNotifier) Notify(_ context.Context, playerID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = make(map[string][]string)
	}
	n.messages[playerID] = append(n.messages[playerID], message)
}

func (n *recordingNotifier) For(playerID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages[playerID]...)
}

type testEnv struct {
	svc    *Service
	store  *fakeStore
	clock  *fakeClock
	rand   *scriptedRand
	notify *recordingNotifier
}

// newTestEnv builds a service whose random rolls all land on 0.99 unless
// scripted: upgrades succeed, no tips, sabotage fails without backfire.
func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  newFakeStore(),
		clock:  &fakeClock{now: testEpoch},
		rand:   &scriptedRand{fallback: 0.99},
		notify: &recordingNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	all := append([]Option{
		WithClock(env.clock),
		WithRand(env.rand),
		WithNotifier(env.notify),
	}, opts...)
	env.svc = NewService(env.store, logger, all...)
	return env
}

// seed stores a fresh player with the given mutation applied.
func (e *testEnv) seed(t *testing.T, id string, mutate func(p *Player)) Player {
	t.Helper()
	p := NewPlayer(id, e.svc.balance, e.clock.Now())
	e.svc.ensureChallenges(&p, e.clock.Now())
	if mutate != nil {
		mutate(&p)
	}
	e.store.put(p)
	return p
}

var errBoom = errors.New("boom")
