package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

const keyPrefix = "degreeplan:aggregate:"

// AggregateCache stores serialized aggregate views in Redis with a TTL.
type AggregateCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewAggregateCache connects to addr and pings it. A ttl of zero keeps entries
// until they are invalidated.
func NewAggregateCache(log *logger.Logger, addr string, ttl time.Duration) (*AggregateCache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &AggregateCache{
		log: log.With("service", "RedisAggregateCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *AggregateCache) Get(ctx context.Context, courseOfStudy string) (*types.AggregateNode, bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+courseOfStudy).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var view types.AggregateNode
	if err := json.Unmarshal(raw, &view); err != nil {
		c.log.Warn("Dropping unreadable cache entry", "course_of_study", courseOfStudy, "error", err)
		return nil, false, c.Invalidate(ctx, courseOfStudy)
	}
	return &view, true, nil
}

func (c *AggregateCache) Put(ctx context.Context, courseOfStudy string, view *types.AggregateNode) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+courseOfStudy, raw, c.ttl).Err()
}

func (c *AggregateCache) Invalidate(ctx context.Context, courseOfStudy string) error {
	return c.rdb.Del(ctx, keyPrefix+courseOfStudy).Err()
}

func (c *AggregateCache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
