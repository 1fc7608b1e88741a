package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

type Config struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}

type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]int //string:client key, int count
	limit   int
	window  time.Duration
	started time.Time
	now     func() time.Time
}

// NewFixedWindowLimiter allows limit requests per key in each window. The
// counters are dropped at every window boundary until ctx is done.
func NewFixedWindowLimiter(ctx context.Context, limit int, window time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		clients: make(map[string]int),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	rl.started = rl.now()
	go rl.cleanup(ctx)
	return rl
}

func (rl *FixedWindowRateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.reset()
		}
	}
}

func (rl *FixedWindowRateLimiter) reset() {
	rl.Lock()
	rl.clients = make(map[string]int) // reset all
	rl.started = rl.now()
	rl.Unlock()
}

// Allow counts one request for key. When the key is over its limit it
// returns false and how long until the window resets.
func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	rl.Lock()
	defer rl.Unlock()

	if rl.clients[key] < rl.limit {
		rl.clients[key]++
		return true, 0
	}

	retry := rl.window - rl.now().Sub(rl.started)
	if retry <= 0 {
		retry = rl.window
	}
	return false, retry
}
