package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

var sqlitePragmas = []string{
	"PRAGMA busy_timeout = 2000;",
	"PRAGMA synchronous = NORMAL;",
}

// NewSQLiteService opens (creating if needed) the local store at path. A path of
// ":memory:" or one starting with "file:" is passed to the driver unchanged.
func NewSQLiteService(logg *logger.Logger, path string) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")

	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = "degreeplan.db"
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn + "?mode=rwc"
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite at %s: %w", dsn, err)
	}

	// The store has a single logical owner; one connection keeps in-memory
	// databases alive and serializes writers.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range sqlitePragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("sqlite %q: %w", pragma, err)
		}
	}
	if !strings.Contains(dsn, "mode=memory") && dsn != ":memory:" {
		if err := db.Exec("PRAGMA journal_mode = WAL;").Error; err != nil {
			return nil, fmt.Errorf("sqlite journal_mode: %w", err)
		}
	}

	serviceLog.Info("Opened SQLite store", "dsn", dsn)
	return &Service{db: db, log: serviceLog, driver: DriverSQLite}, nil
}
