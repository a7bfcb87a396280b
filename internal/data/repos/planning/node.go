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

type NodeRepo interface {
	// Upsert inserts nodes and, on (course_of_study, url) conflict, updates the
	// parent only. All rows must belong to one course of study.
	Upsert(dbc dbctx.Context, rows []*types.CurriculumNode) error

	GetRoots(dbc dbctx.Context, courseOfStudy string) ([]*types.CurriculumNode, error)
	GetChildren(dbc dbctx.Context, courseOfStudy, url string) ([]*types.CurriculumNode, error)
	GetByURL(dbc dbctx.Context, courseOfStudy, url string) (*types.CurriculumNode, error)
	GetByParentAndName(dbc dbctx.Context, courseOfStudy string, parent *string, name string) ([]*types.CurriculumNode, error)
	ListByCourse(dbc dbctx.Context, courseOfStudy string) ([]*types.CurriculumNode, error)

	// Ancestors returns the urls from url itself up to the root.
	Ancestors(dbc dbctx.Context, courseOfStudy, url string) ([]string, error)

	UpdateQuota(dbc dbctx.Context, courseOfStudy, url string, rule types.QuotaRule) error
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	return &nodeRepo{db: db, log: baseLog.With("repo", "NodeRepo")}
}

func (r *nodeRepo) Upsert(dbc dbctx.Context, rows []*types.CurriculumNode) error {
	rows = dedupeNodes(rows)
	if len(rows) == 0 {
		return nil
	}
	course := rows[0].CourseOfStudy
	for _, row := range rows {
		if err := validateNode(row, course); err != nil {
			return err
		}
	}

	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		var existing []*types.CurriculumNode
		if err := tx.Where("course_of_study = ?", course).Find(&existing).Error; err != nil {
			return err
		}
		merged := make(map[string]*string, len(existing)+len(rows))
		for _, n := range existing {
			merged[n.URL] = n.Parent
		}

		next, err := nextPosition(tx, &types.CurriculumNode{}, course)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, row := range rows {
			if _, ok := merged[row.URL]; !ok {
				row.Position = next
				next++
			}
			merged[row.URL] = row.Parent
			row.UpdatedAt = now
		}

		if err := checkTree(course, merged); err != nil {
			return err
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_of_study"}, {Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{"parent", "updated_at"}),
		}).Create(&rows).Error; err != nil {
			return err
		}
		r.log.Debug("Upserted curriculum nodes", "course_of_study", course, "count", len(rows))
		return nil
	})
}

func (r *nodeRepo) GetRoots(dbc dbctx.Context, courseOfStudy string) ([]*types.CurriculumNode, error) {
	var out []*types.CurriculumNode
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND parent IS NULL", courseOfStudy).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) GetChildren(dbc dbctx.Context, courseOfStudy, url string) ([]*types.CurriculumNode, error) {
	var out []*types.CurriculumNode
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND parent = ?", courseOfStudy, url).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) GetByURL(dbc dbctx.Context, courseOfStudy, url string) (*types.CurriculumNode, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	var rows []*types.CurriculumNode
	err := dbc.DB(r.db).
		Where("course_of_study = ? AND url = ?", courseOfStudy, url).
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

func (r *nodeRepo) GetByParentAndName(dbc dbctx.Context, courseOfStudy string, parent *string, name string) ([]*types.CurriculumNode, error) {
	q := dbc.DB(r.db).Where("course_of_study = ? AND name = ?", courseOfStudy, name)
	if parent == nil {
		q = q.Where("parent IS NULL")
	} else {
		q = q.Where("parent = ?", *parent)
	}
	var out []*types.CurriculumNode
	if err := q.Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) ListByCourse(dbc dbctx.Context, courseOfStudy string) ([]*types.CurriculumNode, error) {
	var out []*types.CurriculumNode
	err := dbc.DB(r.db).
		Where("course_of_study = ?", courseOfStudy).
		Order("position ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *nodeRepo) Ancestors(dbc dbctx.Context, courseOfStudy, url string) ([]string, error) {
	var chain []string
	seen := map[string]bool{}
	current := url
	for {
		if seen[current] {
			return nil, aggregates.InvariantError(fmt.Sprintf("parent cycle at node %q", current))
		}
		seen[current] = true
		node, err := r.GetByURL(dbc, courseOfStudy, current)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, aggregates.PreconditionError(fmt.Sprintf("node %q does not exist in %q", current, courseOfStudy))
		}
		chain = append(chain, node.URL)
		if node.Parent == nil {
			return chain, nil
		}
		current = *node.Parent
	}
}

func (r *nodeRepo) UpdateQuota(dbc dbctx.Context, courseOfStudy, url string, rule types.QuotaRule) error {
	if err := validateQuota(rule); err != nil {
		return err
	}
	res := dbc.DB(r.db).
		Model(&types.CurriculumNode{}).
		Where("course_of_study = ? AND url = ?", courseOfStudy, url).
		Updates(map[string]interface{}{
			"min_credits": rule.MinCredits,
			"max_credits": rule.MaxCredits,
			"min_modules": rule.MinModules,
			"max_modules": rule.MaxModules,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return aggregates.NotFoundError(fmt.Sprintf("node %q does not exist in %q", url, courseOfStudy))
	}
	return nil
}

// dedupeNodes keeps the last occurrence of every url.
func dedupeNodes(rows []*types.CurriculumNode) []*types.CurriculumNode {
	index := map[string]int{}
	out := make([]*types.CurriculumNode, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		if i, ok := index[row.URL]; ok {
			out[i] = row
			continue
		}
		index[row.URL] = len(out)
		out = append(out, row)
	}
	return out
}

func validateNode(row *types.CurriculumNode, course string) error {
	switch {
	case strings.TrimSpace(row.CourseOfStudy) == "":
		return aggregates.ValidationError("node course_of_study is required")
	case row.CourseOfStudy != course:
		return aggregates.ValidationError(fmt.Sprintf("node %q belongs to %q, batch is %q", row.URL, row.CourseOfStudy, course))
	case strings.TrimSpace(row.URL) == "":
		return aggregates.ValidationError("node url is required")
	case strings.TrimSpace(row.Name) == "":
		return aggregates.ValidationError(fmt.Sprintf("node %q has no name", row.URL))
	case row.Parent != nil && *row.Parent == row.URL:
		return aggregates.InvariantError(fmt.Sprintf("node %q is its own parent", row.URL))
	}
	return validateQuota(row.QuotaRule)
}

func validateQuota(rule types.QuotaRule) error {
	if rule.MinCredits < 0 || rule.MinModules < 0 {
		return aggregates.ValidationError("quota minimums must not be negative")
	}
	if (rule.MaxCredits != nil && *rule.MaxCredits < 0) || (rule.MaxModules != nil && *rule.MaxModules < 0) {
		return aggregates.ValidationError("quota maximums must not be negative")
	}
	return nil
}

// checkTree verifies that parents exist, there is at most one root and that no
// parent chain loops.
func checkTree(course string, parents map[string]*string) error {
	roots := 0
	for url, parent := range parents {
		if parent == nil {
			roots++
			continue
		}
		if _, ok := parents[*parent]; !ok {
			return aggregates.PreconditionError(fmt.Sprintf("parent %q of node %q does not exist in %q", *parent, url, course))
		}
	}
	if roots > 1 {
		return aggregates.InvariantError(fmt.Sprintf("course of study %q would have %d roots", course, roots))
	}

	done := map[string]bool{}
	for url := range parents {
		path := map[string]bool{}
		for cur := url; ; {
			if done[cur] {
				break
			}
			if path[cur] {
				return aggregates.InvariantError(fmt.Sprintf("parent cycle through node %q in %q", cur, course))
			}
			path[cur] = true
			p := parents[cur]
			if p == nil {
				break
			}
			cur = *p
		}
		for u := range path {
			done[u] = true
		}
	}
	return nil
}
