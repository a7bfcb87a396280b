package planning

import "time"

type LeafEntry struct {
	CourseOfStudy string   `gorm:"column:course_of_study;primaryKey;index:idx_leaf_entry_activity,priority:1;index:idx_leaf_entry_schedule,priority:1" json:"course_of_study" validate:"required"`
	NodeURL       string   `gorm:"column:node_url;primaryKey" json:"node_url" validate:"required"`
	SemesterTag   Semester `gorm:"column:semester_tag;primaryKey;type:varchar(16)" json:"semester_tag" validate:"required,oneof=summer winter"`
	ActivityID    string   `gorm:"column:activity_id;primaryKey;index:idx_leaf_entry_activity,priority:2" json:"activity_id" validate:"required"`

	Name       string  `gorm:"column:name;not null" json:"name"`
	ModuleLink *string `gorm:"column:module_link" json:"module_link,omitempty"`
	Credits    int     `gorm:"column:credits;not null;default:0" json:"credits" validate:"gte=0"`
	State      State   `gorm:"column:state;type:varchar(16);not null;default:'not_planned'" json:"state" validate:"required,oneof=not_planned maybe_planned planned done"`

	// Year and Semester record when the student takes the activity, which can
	// differ from SemesterTag (when it was offered).
	Year     *int      `gorm:"column:year;index:idx_leaf_entry_schedule,priority:2" json:"year,omitempty"`
	Semester *Semester `gorm:"column:semester;type:varchar(16);index:idx_leaf_entry_schedule,priority:3" json:"semester,omitempty" validate:"omitempty,oneof=summer winter"`

	// Unplaced marks rows that placement inserted under their nominal node
	// without confirming an existing placement.
	Unplaced bool `gorm:"column:unplaced;not null;default:false" json:"unplaced"`

	Position  int64     `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (LeafEntry) TableName() string { return "leaf_entry" }

// EntryKey is the natural key of a leaf entry.
type EntryKey struct {
	CourseOfStudy string   `json:"course_of_study" validate:"required"`
	NodeURL       string   `json:"node_url" validate:"required"`
	SemesterTag   Semester `json:"semester_tag" validate:"required,oneof=summer winter"`
	ActivityID    string   `json:"activity_id" validate:"required"`
}

func (e LeafEntry) Key() EntryKey {
	return EntryKey{
		CourseOfStudy: e.CourseOfStudy,
		NodeURL:       e.NodeURL,
		SemesterTag:   e.SemesterTag,
		ActivityID:    e.ActivityID,
	}
}

// Scheduled reports whether both year and semester are assigned.
func (e LeafEntry) Scheduled() bool {
	return e.Year != nil && e.Semester != nil
}

type EntryWithMoveTargets struct {
	Entry       LeafEntry    `json:"entry"`
	MoveTargets []MoveTarget `json:"move_targets"`
}

// NominalEntry is an incoming entry together with the node the source placed it under.
type NominalEntry struct {
	NodeURL string    `json:"node_url" validate:"required"`
	Entry   LeafEntry `json:"entry" validate:"required"`
}

type SemesterGroup struct {
	Year     int                    `json:"year"`
	Semester Semester               `json:"semester"`
	Entries  []EntryWithMoveTargets `json:"entries"`
}
