package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/degreeplan-backend/internal/data/repos/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type NodeRepo = planning.NodeRepo
type EntryRepo = planning.EntryRepo
type CacheRepo = planning.CacheRepo

// Repos groups the store repos of one database handle.
type Repos struct {
	Nodes   NodeRepo
	Entries EntryRepo
	Cache   CacheRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Nodes:   planning.NewNodeRepo(db, log),
		Entries: planning.NewEntryRepo(db, log),
		Cache:   planning.NewCacheRepo(db, log),
	}
}
