package planning

// Snapshot is a decoded semester registration export.
type Snapshot struct {
	Registrations []SnapshotRegistration `json:"registrations" validate:"dive"`
	// Modules is keyed by module url.
	Modules map[string]SnapshotModule `json:"modules"`
}

type PathSegment struct {
	Name string `json:"name" validate:"required"`
	URL  string `json:"url" validate:"required"`
}

// SnapshotRegistration is one registration group, addressed by its path from the root.
type SnapshotRegistration struct {
	Path    []PathSegment   `json:"path" validate:"min=1,dive"`
	Entries []SnapshotEntry `json:"entries" validate:"dive"`
}

type SnapshotEntry struct {
	Module *SnapshotModuleRef `json:"module,omitempty"`
}

type SnapshotModuleRef struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
	URL  string `json:"url" validate:"required"`
}

type SnapshotModule struct {
	Credits *int `json:"credits,omitempty" validate:"omitempty,gte=0"`
}

type ImportStats struct {
	Nodes          int `json:"nodes"`
	Entries        int `json:"entries"`
	SkippedEntries int `json:"skipped_entries"`
}

// ResultLevel is one level of the remote results hierarchy. Levels carry quota
// rules but no stable ids, so they are matched to local nodes by name.
type ResultLevel struct {
	Name     string        `json:"name" yaml:"name" validate:"required"`
	Rules    QuotaRule     `json:"rules" yaml:"rules"`
	Entries  []ResultEntry `json:"entries,omitempty" yaml:"entries,omitempty" validate:"dive"`
	Children []ResultLevel `json:"children,omitempty" yaml:"children,omitempty" validate:"dive"`
}

type ResultEntry struct {
	ID          *string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string  `json:"name" yaml:"name" validate:"required"`
	UsedCredits *int    `json:"used_credits,omitempty" yaml:"used_credits,omitempty" validate:"omitempty,gte=0"`
	// Passed is true for graded results and for passes without a grade.
	Passed bool `json:"passed" yaml:"passed"`
}

// ModuleResult is one row of the remote module results, keyed by activity id.
type ModuleResult struct {
	ActivityID string   `json:"activity_id" validate:"required"`
	Name       string   `json:"name"`
	Year       int      `json:"year" validate:"gte=0"`
	Semester   Semester `json:"semester" validate:"required,oneof=summer winter"`
	ModuleLink string   `json:"module_link,omitempty"`
	Grade      string   `json:"grade,omitempty"`
	Credits    string   `json:"credits,omitempty"`
}

// ReconcileInput is one reconciliation pass against the results hierarchy.
type ReconcileInput struct {
	// CourseName is the display name of the course of study; the results root
	// is renamed to it before matching.
	CourseName    string         `json:"course_name" validate:"required"`
	Root          ResultLevel    `json:"root"`
	ModuleResults []ModuleResult `json:"module_results" validate:"dive"`
}
