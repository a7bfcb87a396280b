package planning

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type CacheRepo interface {
	Get(dbc dbctx.Context, key string) (*types.CacheEntry, error)
	Put(dbc dbctx.Context, key string, value []byte) error
	Delete(dbc dbctx.Context, key string) error
}

type cacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheRepo(db *gorm.DB, baseLog *logger.Logger) CacheRepo {
	return &cacheRepo{db: db, log: baseLog.With("repo", "CacheRepo")}
}

func (r *cacheRepo) Get(dbc dbctx.Context, key string) (*types.CacheEntry, error) {
	var rows []*types.CacheEntry
	if err := dbc.DB(r.db).Where("key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *cacheRepo) Put(dbc dbctx.Context, key string, value []byte) error {
	row := &types.CacheEntry{
		Key:       key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now().UTC(),
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(row).Error
}

func (r *cacheRepo) Delete(dbc dbctx.Context, key string) error {
	return dbc.DB(r.db).Where("key = ?", key).Delete(&types.CacheEntry{}).Error
}
