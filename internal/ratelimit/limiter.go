package ratelimit

import (
	"context"
	"time"
)

// Limiter counts one event for key and reports whether it fits in max per window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, reset time.Time, err error)
}
