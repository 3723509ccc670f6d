package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowRateLimiter keeps one counter per key in memory. Suitable for a
// single instance; use RedisFixedWindowLimiter when running several.
type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	rl := newFixedWindow(limit, window, time.Now)
	go rl.cleanup()
	return rl
}

func newFixedWindow(limit int, w time.Duration, now func() time.Time) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  w,
		now:     now,
		done:    make(chan struct{}),
	}
}

// cleanup drops expired windows so idle clients do not accumulate.
func (rl *FixedWindowRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) evict() {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	for key, w := range rl.clients {
		if now.Sub(w.start) >= rl.window {
			delete(rl.clients, key)
		}
	}
}

func (rl *FixedWindowRateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	rl.Lock()
	defer rl.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[key] = &window{start: now, count: 1}
		return true, 0, nil
	}

	if w.count < rl.limit {
		w.count++
		return true, 0, nil
	}
	return false, w.start.Add(rl.window).Sub(now), nil
}

// Close stops the cleanup goroutine.
func (rl *FixedWindowRateLimiter) Close() {
	rl.once.Do(func() { close(rl.done) })
}
