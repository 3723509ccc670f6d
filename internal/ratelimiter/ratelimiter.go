package ratelimiter

import (
	"context"
	"time"
)

// Limiter decides whether the request identified by key may proceed. When it
// may not, the duration says how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type Config struct {
	RequestsPerTimeFrame int
	TimeFrame            time.Duration
	Enabled              bool
}
