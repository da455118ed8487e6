package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// playerLimiter hands out one token bucket per player id. Buckets idle for
// longer than idleTTL are dropped on the next sweep.
type playerLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	limiters  map[string]*limiterEntry
}

func newPlayerLimiter(perSecond float64, burst int) *playerLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &playerLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (l *playerLimiter) get(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweepLocked(now)
	}
	entry, ok := l.limiters[id]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func (l *playerLimiter) sweepLocked(now time.Time) {
	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, id)
		}
	}
	l.lastSweep = now
}

func (l *playerLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *playerLimiter) Allow(id string) bool {
	if l == nil {
		return true
	}
	return l.get(id).Allow()
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(playerID(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}
