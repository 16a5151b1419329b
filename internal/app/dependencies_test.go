package app

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/vinicius77777/acai-do-max/internal/config"
	"github.com/vinicius77777/acai-do-max/internal/ratelimit"
)

func TestNewRateLimiter(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer func() { _ = rdb.Close() }()

	fixed := NewRateLimiter(config.RateLimitFixed, rdb, memory.NewStore())
	require.IsType(t, ratelimit.FixedWindow{}, fixed)

	sliding := NewRateLimiter(config.RateLimitSliding, rdb, nil)
	require.IsType(t, ratelimit.Sliding{}, sliding)

	fallback := NewRateLimiter(config.RateLimitFixed, rdb, nil)
	require.IsType(t, ratelimit.Sliding{}, fallback)
}

func TestProbesNamesDependencies(t *testing.T) {
	probes := (&Dependencies{}).Probes()
	require.Len(t, probes, 2)
	require.Equal(t, "db", probes[0].Name)
	require.Equal(t, "redis", probes[1].Name)
	require.Error(t, probes[1].Check(context.Background()))
}

func TestCloseNil(t *testing.T) {
	var d *Dependencies
	require.NotPanics(t, d.Close)
}
