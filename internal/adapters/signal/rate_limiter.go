package signal

import (
	"sync"
	"time"
)

// HandshakeLimiter caps websocket handshakes per origin in a sliding window.
type HandshakeLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewHandshakeLimiter(limit int, interval time.Duration) *HandshakeLimiter {
	return &HandshakeLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *HandshakeLimiter) Allow(origin string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[origin]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[origin] = fresh
		return false
	}

	rl.history[origin] = append(fresh, now)
	return true
}
