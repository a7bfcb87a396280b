package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Service owns the gorm handle of the curriculum store.
type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func gormConfig() *gorm.Config {
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLog,
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Driver() string { return s.driver }

func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ExportTo writes a consistent copy of the SQLite database to path.
func (s *Service) ExportTo(ctx context.Context, path string) error {
	if s.driver != DriverSQLite {
		return fmt.Errorf("export is only supported for %s, store uses %s", DriverSQLite, s.driver)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("export path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("export target %s already exists", path)
	}
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	s.log.Info("Exported database", "path", path)
	return nil
}
