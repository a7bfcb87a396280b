package testutil

import (
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

func IntPtr(v int) *int { return &v }

func StrPtr(v string) *string { return &v }

// SeedNode inserts a node directly, bypassing the repo checks.
func SeedNode(tb testing.TB, tx *gorm.DB, course, url string, parent *string, name string, rule types.QuotaRule) *types.CurriculumNode {
	tb.Helper()
	var count int64
	if err := tx.Model(&types.CurriculumNode{}).Where("course_of_study = ?", course).Count(&count).Error; err != nil {
		tb.Fatalf("count nodes: %v", err)
	}
	n := &types.CurriculumNode{
		CourseOfStudy: course,
		URL:           url,
		Parent:        parent,
		Name:          name,
		QuotaRule:     rule,
		Position:      count + 1,
	}
	if err := tx.Create(n).Error; err != nil {
		tb.Fatalf("seed node %s: %v", url, err)
	}
	return n
}

// SeedEntry inserts an entry directly, bypassing the repo checks.
func SeedEntry(tb testing.TB, tx *gorm.DB, e *types.LeafEntry) *types.LeafEntry {
	tb.Helper()
	var count int64
	if err := tx.Model(&types.LeafEntry{}).Where("course_of_study = ?", e.CourseOfStudy).Count(&count).Error; err != nil {
		tb.Fatalf("count entries: %v", err)
	}
	if e.State == "" {
		e.State = types.StateNotPlanned
	}
	if e.SemesterTag == "" {
		e.SemesterTag = types.SemesterWinter
	}
	e.Position = count + 1
	if err := tx.Create(e).Error; err != nil {
		tb.Fatalf("seed entry %s: %v", e.ActivityID, err)
	}
	return e
}
