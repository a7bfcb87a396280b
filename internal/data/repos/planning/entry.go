package planning

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

var (
	// ProgressColumns are updated when the same entry is placed again.
	ProgressColumns = []string{"state", "credits", "year", "semester"}
	// CatalogColumns are updated by snapshot imports; user-owned fields stay.
	CatalogColumns = []string{"name", "module_link", "credits"}
)

type EntryRepo interface {
	// Upsert inserts entries and, on natural key conflict, updates
	// updateColumns (ProgressColumns when empty).
	Upsert(dbc dbctx.Context, rows []*types.LeafEntry, updateColumns []string) error

	GetByKey(dbc dbctx.Context, key types.EntryKey) (*types.LeafEntry, error)
	GetByNode(dbc dbctx.Context, courseOfStudy, nodeURL string) ([]*types.LeafEntry, error)
	// GetByActivity lists placements of an activity across nodes.
	GetByActivity(dbc dbctx.Context, courseOfStudy, activityID string, includeUnplaced bool) ([]*types.LeafEntry, error)
	ListByCourse(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error)

	// GetScheduled returns entries with year and semester, ordered by (year, semester).
	GetScheduled(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error)
	GetInSemester(dbc dbctx.Context, courseOfStudy string, year int, semester types.Semester) ([]*types.LeafEntry, error)
	// GetUnscheduled returns considered entries missing year or semester.
	GetUnscheduled(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error)

	// Replace rewrites every column of the row at old, key columns included.
	Replace(dbc dbctx.Context, old types.EntryKey, row *types.LeafEntry) error
}

type entryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntryRepo(db *gorm.DB, baseLog *logger.Logger) EntryRepo {
	return &entryRepo{db: db, log: baseLog.With("repo", "EntryRepo")}
}

func (r *entryRepo) Upsert(dbc dbctx.Context, rows []*types.LeafEntry, updateColumns []string) error {
	rows = dedupeEntries(rows)
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if err := validateEntry(row); err != nil {
			return err
		}
	}
	cols := updateColumns
	if len(cols) == 0 {
		cols = ProgressColumns
	}
	cols = append(append([]string{}, cols...), "updated_at")

	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := requireNodes(tx, rows); err != nil {
			return err
		}

		next := map[string]int64{}
		now := time.Now().UTC()
		for _, row := range rows {
			pos, ok := next[row.CourseOfStudy]
			if !ok {
				p, err := nextPosition(tx, &types.LeafEntry{}, row.CourseOfStudy)
				if err != nil {
					return err
				}
				pos = p
			}
			row.Position = pos
			next[row.CourseOfStudy] = pos + 1
			row.UpdatedAt = now
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "course_of_study"},
				{Name: "node_url"},
				{Name: "semester_tag"},
				{Name: "activity_id"},
			},
			DoUpdates: clause.AssignmentColumns(cols),
		}).Create(&rows).Error; err != nil {
			return err
		}
		r.log.Debug("Upserted leaf entries", "count", len(rows), "update_columns", cols)
		return nil
	})
}

func (r *entryRepo) GetByKey(dbc dbctx.Context, key types.EntryKey) (*types.LeafEntry, error) {
	var rows []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND node_url = ? AND semester_tag = ? AND activity_id = ?",
			key.CourseOfStudy, key.NodeURL, key.SemesterTag, key.ActivityID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *entryRepo) GetByNode(dbc dbctx.Context, courseOfStudy, nodeURL string) ([]*types.LeafEntry, error) {
	var out []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND node_url = ?", courseOfStudy, nodeURL).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) GetByActivity(dbc dbctx.Context, courseOfStudy, activityID string, includeUnplaced bool) ([]*types.LeafEntry, error) {
	q := dbc.DB(r.db).Where("course_of_study = ? AND activity_id = ?", courseOfStudy, activityID)
	if !includeUnplaced {
		q = q.Where("unplaced = ?", false)
	}
	var out []*types.LeafEntry
	if err := q.Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) ListByCourse(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error) {
	var out []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ?", courseOfStudy).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) GetScheduled(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error) {
	var out []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND year IS NOT NULL AND semester IS NOT NULL", courseOfStudy).
		Order("year ASC").
		Order("semester ASC").
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) GetInSemester(dbc dbctx.Context, courseOfStudy string, year int, semester types.Semester) ([]*types.LeafEntry, error) {
	if !semester.Valid() {
		return nil, aggregates.ValidationError(fmt.Sprintf("invalid semester %q", semester))
	}
	var out []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND year = ? AND semester = ?", courseOfStudy, year, semester).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) GetUnscheduled(dbc dbctx.Context, courseOfStudy string) ([]*types.LeafEntry, error) {
	var out []*types.LeafEntry
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND state <> ? AND (year IS NULL OR semester IS NULL)", courseOfStudy, types.StateNotPlanned).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entryRepo) Replace(dbc dbctx.Context, old types.EntryKey, row *types.LeafEntry) error {
	if row == nil {
		return aggregates.ValidationError("replacement entry is required")
	}
	if err := validateEntry(row); err != nil {
		return err
	}
	if row.CourseOfStudy != old.CourseOfStudy {
		return aggregates.ValidationError(fmt.Sprintf("entry cannot move from %q to %q", old.CourseOfStudy, row.CourseOfStudy))
	}

	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		current, err := r.GetByKey(inner, old)
		if err != nil {
			return err
		}
		if current == nil {
			return aggregates.NotFoundError(fmt.Sprintf("entry %s/%s/%s does not exist in %q", old.NodeURL, old.SemesterTag, old.ActivityID, old.CourseOfStudy))
		}
		if err := requireNodes(tx, []*types.LeafEntry{row}); err != nil {
			return err
		}
		if row.Key() != old {
			clash, err := r.GetByKey(inner, row.Key())
			if err != nil {
				return err
			}
			if clash != nil {
				return aggregates.ConflictError(fmt.Sprintf("entry %s/%s/%s already exists", row.NodeURL, row.SemesterTag, row.ActivityID))
			}
		}

		now := time.Now().UTC()
		if err := tx.Model(&types.LeafEntry{}).
			Where("course_of_study = ? AND node_url = ? AND semester_tag = ? AND activity_id = ?",
				old.CourseOfStudy, old.NodeURL, old.SemesterTag, old.ActivityID).
			Updates(map[string]interface{}{
				"node_url":     row.NodeURL,
				"semester_tag": row.SemesterTag,
				"activity_id":  row.ActivityID,
				"name":         row.Name,
				"module_link":  row.ModuleLink,
				"credits":      row.Credits,
				"state":        row.State,
				"year":         row.Year,
				"semester":     row.Semester,
				"unplaced":     false,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}
		row.Unplaced = false
		row.Position = current.Position
		row.CreatedAt = current.CreatedAt
		row.UpdatedAt = now
		return nil
	})
}

// dedupeEntries keeps the last occurrence of every natural key.
func dedupeEntries(rows []*types.LeafEntry) []*types.LeafEntry {
	index := map[types.EntryKey]int{}
	out := make([]*types.LeafEntry, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		k := row.Key()
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out
}

func validateEntry(row *types.LeafEntry) error {
	switch {
	case strings.TrimSpace(row.CourseOfStudy) == "":
		return aggregates.ValidationError("entry course_of_study is required")
	case strings.TrimSpace(row.NodeURL) == "":
		return aggregates.ValidationError("entry node_url is required")
	case strings.TrimSpace(row.ActivityID) == "":
		return aggregates.ValidationError("entry activity_id is required")
	case !row.SemesterTag.Valid():
		return aggregates.ValidationError(fmt.Sprintf("entry %q has invalid semester_tag %q", row.ActivityID, row.SemesterTag))
	case row.Semester != nil && !row.Semester.Valid():
		return aggregates.ValidationError(fmt.Sprintf("entry %q has invalid semester %q", row.ActivityID, *row.Semester))
	case row.Credits < 0:
		return aggregates.ValidationError(fmt.Sprintf("entry %q has negative credits", row.ActivityID))
	}
	if row.State == "" {
		row.State = types.StateNotPlanned
	}
	if !row.State.Valid() {
		return aggregates.ValidationError(fmt.Sprintf("entry %q has invalid state %q", row.ActivityID, row.State))
	}
	return nil
}

// requireNodes fails with a precondition error when a referenced node is missing.
func requireNodes(tx *gorm.DB, rows []*types.LeafEntry) error {
	byCourse := map[string]map[string]bool{}
	for _, row := range rows {
		if byCourse[row.CourseOfStudy] == nil {
			byCourse[row.CourseOfStudy] = map[string]bool{}
		}
		byCourse[row.CourseOfStudy][row.NodeURL] = true
	}
	for course, urls := range byCourse {
		want := make([]string, 0, len(urls))
		for u := range urls {
			want = append(want, u)
		}
		var found []string
		if err := tx.Model(&types.CurriculumNode{}).
			Where("course_of_study = ? AND url IN ?", course, want).
			Pluck("url", &found).Error; err != nil {
			return err
		}
		have := make(map[string]bool, len(found))
		for _, u := range found {
			have[u] = true
		}
		for _, u := range want {
			if !have[u] {
				return aggregates.PreconditionError(fmt.Sprintf("node %q does not exist in %q", u, course))
			}
		}
	}
	return nil
}
