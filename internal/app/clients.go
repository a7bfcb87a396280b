package app

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/clients/redis"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type Clients struct {
	// AggregateCache is nil when REDIS_ADDR is unset.
	AggregateCache *redis.AggregateCache
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var cache *redis.AggregateCache
	if cfg.RedisAddr != "" {
		c, err := redis.NewAggregateCache(log, cfg.RedisAddr, cfg.RedisCacheTTL)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis aggregate cache: %w", err)
		}
		cache = c
	}

	return Clients{AggregateCache: cache}, nil
}

func (c Clients) Close() error {
	if c.AggregateCache != nil {
		return c.AggregateCache.Close()
	}
	return nil
}
