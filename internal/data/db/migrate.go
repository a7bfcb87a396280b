package db

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&planning.CurriculumNode{},
		&planning.LeafEntry{},
		&planning.CacheEntry{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	if err := AutoMigrateAll(s.db); err != nil {
		return err
	}
	s.log.Info("Store schema migrated")
	return nil
}
