package sequence

import (
	"context"

	"trustmarket/pkg/rediskey"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("sequence",
	fx.Provide(NewRedisGenerator),
)

// Generator hands out monotonic numeric references shared by every engine instance.
type Generator interface {
	// NextChainRef returns the next Job.chainRef, the numeric id used with the escrow contract.
	NextChainRef(ctx context.Context) (int64, error)
}

type RedisGenerator struct {
	rdb redis.Cmdable
}

type Params struct {
	fx.In

	Redis *redis.Client
}

func NewRedisGenerator(p Params) Generator {
	return &RedisGenerator{
		rdb: p.Redis,
	}
}

func (g *RedisGenerator) NextChainRef(ctx context.Context) (int64, error) {
	return g.rdb.Incr(ctx, rediskey.BuildSequenceKey("job:chain_ref")).Result()
}
