package store

import (
	"context"
	"sort"
	"sync"

	"pizzawars/internal/game"
)

// Memory keeps players in process. It is used by tests and by the API when
// PIZZAWARS_STORE=memory.
type Memory struct {
	mu          sync.RWMutex
	players     map[string]game.Player
	performance map[string]float64
}

func NewMemory() *Memory {
	return &Memory{
		players:     make(map[string]game.Player),
		performance: make(map[string]float64),
	}
}

func (m *Memory) Load(_ context.Context, id string) (game.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return game.Player{}, game.ErrPlayerNotFound
	}
	return p.Clone(), nil
}

func (m *Memory) Save(_ context.Context, players ...*game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range players {
		cur, ok := m.players[p.ID]
		if (ok && cur.Version != p.Version) || (!ok && p.Version != 0) {
			return game.ErrConcurrentUpdate
		}
	}
	for _, p := range players {
		p.Version++
		m.players[p.ID] = p.Clone()
	}
	return nil
}

func (m *Memory) ListIDs(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) LoadPerformance(context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]float64, len(m.performance))
	for k, v := range m.performance {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) SavePerformance(_ context.Context, multipliers map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range multipliers {
		m.performance[k] = v
	}
	return nil
}

func (m *Memory) Close() error { return nil }
