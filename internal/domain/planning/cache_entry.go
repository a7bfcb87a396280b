package planning

import (
	"time"

	"gorm.io/datatypes"
)

type CacheEntry struct {
	Key       string         `gorm:"column:key;primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"column:value" json:"value"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (CacheEntry) TableName() string { return "cache_entry" }
