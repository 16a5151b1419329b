package app

import (
	"context"
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/vinicius77777/acai-do-max/internal/common"
	"github.com/vinicius77777/acai-do-max/internal/config"
	"github.com/vinicius77777/acai-do-max/internal/db"
	"github.com/vinicius77777/acai-do-max/internal/health"
	"github.com/vinicius77777/acai-do-max/internal/obs"
	"github.com/vinicius77777/acai-do-max/internal/ratelimit"
)

const applicationName = "acai-api"

// Dependencies holds the shared infrastructure handles built at startup.
type Dependencies struct {
	Pool         *pgxpool.Pool
	Store        *db.PGStore
	Redis        *redis.Client
	LimiterStore limiter.Store
	Validator    *validator.Validate
}

// Options tweaks instrumentation while opening dependencies.
type Options struct {
	RedisMetrics bool
}

// Open connects to Postgres and Redis and verifies both answer a ping.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	if cfg.Location != nil {
		poolConfig.ConnConfig.RuntimeParams["timezone"] = cfg.Location.String()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.RedisMetrics {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d := &Dependencies{
		Pool:      pool,
		Store:     db.NewStore(pool),
		Redis:     rdb,
		Validator: common.Validator(),
	}
	if cfg.RateLimitStrategy == config.RateLimitFixed {
		store, err := NewLimiterStore(rdb)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("limiter store: %w", err)
		}
		d.LimiterStore = store
	}
	return d, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "ratelimit:fixed"})
}

// NewRateLimiter picks the limiter implementation for strategy.
func NewRateLimiter(strategy string, rdb *redis.Client, store limiter.Store) ratelimit.Limiter {
	if strategy == config.RateLimitFixed && store != nil {
		return ratelimit.FixedWindow{Store: store}
	}
	return ratelimit.Sliding{Client: rdb, Prefix: "ratelimit:sliding:"}
}

// Probes returns the readiness probes for the opened dependencies.
func (d *Dependencies) Probes() []health.Probe {
	return []health.Probe{
		health.PingProbe("db", d.Store, 0),
		{Name: "redis", Check: func(ctx context.Context) error {
			if d.Redis == nil {
				return errors.New("redis not configured")
			}
			return d.Redis.Ping(ctx).Err()
		}},
	}
}

// Close releases every handle.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// RunMigrations applies pending migrations and logs the resulting version.
func RunMigrations(databaseURL string, logger zerolog.Logger) error {
	if err := db.Migrate(databaseURL); err != nil {
		return err
	}
	version, dirty, err := db.SchemaVersion(databaseURL)
	if err != nil {
		return err
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	return nil
}
