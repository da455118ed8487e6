package game

import "sync"

// Performance holds the daily drifting income multiplier of each location.
type Performance struct {
	mu          sync.RWMutex
	multipliers map[string]float64
}

func NewPerformance() *Performance {
	return &Performance{multipliers: make(map[string]float64)}
}

// Multiplier returns 1.0 for locations that have never been refreshed.
func (p *Performance) Multiplier(location string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if m, ok := p.multipliers[location]; ok && m > 0 {
		return m
	}
	return 1
}

func (p *Performance) Snapshot() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]float64, len(p.multipliers))
	for k, v := range p.multipliers {
		out[k] = v
	}
	return out
}

// Load replaces the current multipliers with a persisted snapshot.
func (p *Performance) Load(snapshot map[string]float64) {
	next := make(map[string]float64, len(snapshot))
	for k, v := range snapshot {
		if v > 0 {
			next[k] = v
		}
	}
	p.mu.Lock()
	p.multipliers = next
	p.mu.Unlock()
}

// DrawPerformance picks a new multiplier for every location uniformly from
// [min, max]. The current snapshot is left alone.
func DrawPerformance(locations []LocationDefinition, min, max float64, rng Rand) map[string]float64 {
	next := make(map[string]float64, len(locations))
	for _, loc := range locations {
		next[loc.Name] = min + rng.Float64()*(max-min)
	}
	return next
}
