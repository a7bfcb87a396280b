package planning

import "time"

// QuotaRule bounds the credits and module count a requirement group accepts.
type QuotaRule struct {
	MinCredits int  `gorm:"column:min_credits;not null;default:0" json:"min_credits" yaml:"min_credits" validate:"gte=0"`
	MaxCredits *int `gorm:"column:max_credits" json:"max_credits,omitempty" yaml:"max_credits,omitempty" validate:"omitempty,gte=0"`
	MinModules int  `gorm:"column:min_modules;not null;default:0" json:"min_modules" yaml:"min_modules" validate:"gte=0"`
	MaxModules *int `gorm:"column:max_modules" json:"max_modules,omitempty" yaml:"max_modules,omitempty" validate:"omitempty,gte=0"`
}

// HasRules is true when any field differs from the unconstrained default.
func (q QuotaRule) HasRules() bool {
	return q.MinCredits != 0 || q.MaxCredits != nil || q.MinModules != 0 || q.MaxModules != nil
}

// Cap limits credits to MaxCredits when set.
func (q QuotaRule) Cap(credits int) int {
	if q.MaxCredits != nil && *q.MaxCredits < credits {
		return *q.MaxCredits
	}
	return credits
}

type CurriculumNode struct {
	CourseOfStudy string  `gorm:"column:course_of_study;primaryKey;index:idx_curriculum_node_parent,priority:1" json:"course_of_study" validate:"required"`
	URL           string  `gorm:"column:url;primaryKey" json:"url" validate:"required"`
	Parent        *string `gorm:"column:parent;index:idx_curriculum_node_parent,priority:2" json:"parent,omitempty"`
	Name          string  `gorm:"column:name;not null" json:"name" validate:"required"`
	QuotaRule     `gorm:"embedded"`
	// Position is the insertion sequence within the course of study.
	Position  int64     `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CurriculumNode) TableName() string { return "curriculum_node" }

func (n CurriculumNode) IsRoot() bool { return n.Parent == nil }

// MoveTarget is a node an entry may be re-homed to.
type MoveTarget struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
