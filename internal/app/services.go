package app

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/db"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

func wireRepos(store *db.Service, log *logger.Logger) repos.Repos {
	log.Info("Wiring repos...")
	return repos.New(store.DB(), log)
}

func wirePlanning(log *logger.Logger, cfg Config, store *db.Service, r repos.Repos, clients Clients, metrics *observability.Metrics) (planning.Usecases, error) {
	log.Info("Wiring planning usecases...")

	patches, err := planning.LoadLevelPatches(cfg.LevelPatchesFile)
	if err != nil {
		return planning.Usecases{}, fmt.Errorf("load level patches: %w", err)
	}
	source := cfg.LevelPatchesFile
	if source == "" {
		source = "built-in"
	}
	log.Info("Loaded level patches", "source", source, "patches", len(patches))

	var cache planning.AggregateCache = planning.NewStoreCache(r.Cache, log)
	if clients.AggregateCache != nil {
		cache = clients.AggregateCache
	}

	return planning.New(planning.UsecasesDeps{
		Log:           log,
		Tx:            aggregates.NewGormTxRunner(store.DB()),
		Nodes:         r.Nodes,
		Entries:       r.Entries,
		Cache:         cache,
		Metrics:       metrics,
		Patches:       patches,
		ThesisCredits: cfg.ThesisCredits,
	}), nil
}
