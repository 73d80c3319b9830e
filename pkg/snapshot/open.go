package snapshot

import (
	"context"
	"fmt"

	"github.com/joripage/matching-engine-lab/config"
	postgres_wrapper "github.com/joripage/matching-engine-lab/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/matching-engine-lab/pkg/infra/redis"
)

// Open builds the store selected by cfg.Snapshot.Store.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Snapshot.Store {
	case "", "file":
		return NewFileStore(cfg.Snapshot.Dir)
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("%w: redis store needs a redis section", ErrUnknownStore)
		}
		client, err := redis_wrapper.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Snapshot.KeyPrefix), nil
	case "postgres":
		if cfg.TradeDB == nil {
			return nil, fmt.Errorf("%w: postgres store needs a trade_db section", ErrUnknownStore)
		}
		db, err := postgres_wrapper.InitPostgresWithBackoff(cfg.TradeDB)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: file, redis, postgres)", ErrUnknownStore, cfg.Snapshot.Store)
	}
}
