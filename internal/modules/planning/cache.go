package planning

import (
	"context"
	"encoding/json"

	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

// AggregateCache holds the unexpanded aggregate view per course of study.
type AggregateCache interface {
	Get(ctx context.Context, courseOfStudy string) (*types.AggregateNode, bool, error)
	Put(ctx context.Context, courseOfStudy string, view *types.AggregateNode) error
	Invalidate(ctx context.Context, courseOfStudy string) error
}

func AggregateCacheKey(courseOfStudy string) string {
	return "aggregate:" + courseOfStudy
}

type storeCache struct {
	repo repos.CacheRepo
	log  *logger.Logger
}

// NewStoreCache keeps aggregate views in the cache_entry table of the store.
func NewStoreCache(repo repos.CacheRepo, log *logger.Logger) AggregateCache {
	return &storeCache{repo: repo, log: log.With("cache", "StoreAggregateCache")}
}

func (c *storeCache) Get(ctx context.Context, courseOfStudy string) (*types.AggregateNode, bool, error) {
	row, err := c.repo.Get(dbctx.Context{Ctx: ctx}, AggregateCacheKey(courseOfStudy))
	if err != nil || row == nil {
		return nil, false, err
	}
	var view types.AggregateNode
	if err := json.Unmarshal(row.Value, &view); err != nil {
		c.log.Warn("Dropping unreadable cache entry", "course_of_study", courseOfStudy, "error", err)
		return nil, false, c.Invalidate(ctx, courseOfStudy)
	}
	return &view, true, nil
}

func (c *storeCache) Put(ctx context.Context, courseOfStudy string, view *types.AggregateNode) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.repo.Put(dbctx.Context{Ctx: ctx}, AggregateCacheKey(courseOfStudy), raw)
}

func (c *storeCache) Invalidate(ctx context.Context, courseOfStudy string) error {
	return c.repo.Delete(dbctx.Context{Ctx: ctx}, AggregateCacheKey(courseOfStudy))
}
