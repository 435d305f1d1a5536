package redis

import (
	"context"
	"time"

	"trustmarket/pkg/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

// New dials redis and waits for it with exponential backoff. An unreachable server is logged,
// not fatal: publish and sequence calls surface the error to their callers instead.
func New(lc fx.Lifecycle, c *config.Config) *redis.Client {
	zapLog := zap.L().With(
		zap.String("addr", c.Redis.Addr),
		zap.Int("db", c.Redis.DB),
		zap.Int("pool_size", c.Redis.PoolSize),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 15 * time.Second

	err := backoff.RetryNotify(func() error {
		return rdb.Ping(context.Background()).Err()
	}, policy, func(err error, wait time.Duration) {
		zapLog.Warn("[Redis] not ready, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		zapLog.Error("[Redis] giving up connecting", zap.Error(err))
	} else {
		zapLog.Info("[Redis] connected")
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})

	return rdb
}
