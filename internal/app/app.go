package app

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/degreeplan-backend/internal/data/db"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	httpx "github.com/yungbote/degreeplan-backend/internal/http"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Cfg      Config
	Repos    repos.Repos
	Clients  Clients
	Metrics  *observability.Metrics
	Planning planning.Usecases
	Server   *httpx.Server

	otelShutdown func(context.Context) error
}

// New loads configuration from the environment and wires every component.
func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)
	return NewWithConfig(ctx, log, cfg)
}

func NewWithConfig(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	store, err := openStore(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("%s automigrate: %w", store.Driver(), err)
	}

	reposet := wireRepos(store, log)

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}
	shutdown := observability.InitOTel(ctx, log, cfg.Otel)

	usecases, err := wirePlanning(log, cfg, store, reposet, clients, metrics)
	if err != nil {
		_ = clients.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	handlers := wireHandlers(log, store, usecases)
	server := wireServer(log, cfg, metrics, handlers)

	return &App{
		Log:          log,
		DB:           store,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Metrics:      metrics,
		Planning:     usecases,
		Server:       server,
		otelShutdown: shutdown,
	}, nil
}

func openStore(log *logger.Logger, cfg Config) (*db.Service, error) {
	switch cfg.DBDriver {
	case db.DriverSQLite:
		s, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s, nil
	case db.DriverPostgres:
		s, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil && a.Log != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	if err := a.Clients.Close(); err != nil && a.Log != nil {
		a.Log.Warn("Closing clients failed", "error", err)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && a.Log != nil {
			a.Log.Warn("Closing database failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
