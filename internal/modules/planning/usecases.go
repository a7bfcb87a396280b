package planning

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	repoplanning "github.com/yungbote/degreeplan-backend/internal/data/repos/planning"
	domainagg "github.com/yungbote/degreeplan-backend/internal/domain/aggregates"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning/steps"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

var tracer = otel.Tracer("degreeplan.planning")

type UsecasesDeps struct {
	Log *logger.Logger
	Tx  aggregates.TxRunner

	Nodes   repos.NodeRepo
	Entries repos.EntryRepo
	// Optional.
	Cache   AggregateCache
	Metrics *observability.Metrics

	Patches       steps.LevelPatches
	ThesisCredits int
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type (
	SetQuotaInput       = steps.SetQuotaInput
	ImportSnapshotInput = steps.ImportSnapshotInput
)

func (u Usecases) GetRoots(ctx context.Context, courseOfStudy string) ([]*types.CurriculumNode, error) {
	var out []*types.CurriculumNode
	err := u.read(ctx, "planning.GetRoots", courseOfStudy, func(dbc dbctx.Context) (err error) {
		out, err = u.deps.Nodes.GetRoots(dbc, courseOfStudy)
		return err
	})
	return out, err
}

func (u Usecases) GetChildren(ctx context.Context, courseOfStudy, url string) ([]*types.CurriculumNode, error) {
	var out []*types.CurriculumNode
	err := u.read(ctx, "planning.GetChildren", courseOfStudy, func(dbc dbctx.Context) (err error) {
		out, err = u.deps.Nodes.GetChildren(dbc, courseOfStudy, url)
		return err
	})
	return out, err
}

func (u Usecases) GetEntries(ctx context.Context, courseOfStudy, nodeURL string) ([]*types.LeafEntry, error) {
	var out []*types.LeafEntry
	err := u.read(ctx, "planning.GetEntries", courseOfStudy, func(dbc dbctx.Context) (err error) {
		out, err = u.deps.Entries.GetByNode(dbc, courseOfStudy, nodeURL)
		return err
	})
	return out, err
}

// Aggregate returns the aggregate view. The view without expanded nodes is
// served from the cache when one is configured.
func (u Usecases) Aggregate(ctx context.Context, courseOfStudy string, expanded []string) (*types.AggregateNode, error) {
	cacheable := len(expanded) == 0 && u.deps.Cache != nil
	if cacheable {
		view, ok, err := u.deps.Cache.Get(ctx, courseOfStudy)
		if err != nil {
			u.deps.Log.Warn("Aggregate cache read failed", "course_of_study", courseOfStudy, "error", err)
		}
		u.deps.Metrics.ObserveCacheLookup(ok)
		if ok {
			return view, nil
		}
	}

	set := make(map[string]bool, len(expanded))
	for _, url := range expanded {
		set[url] = true
	}
	var out *types.AggregateNode
	err := u.read(ctx, "planning.Aggregate", courseOfStudy, func(dbc dbctx.Context) (err error) {
		out, err = steps.Aggregate(dbc, steps.AggregateDeps{
			Log:     u.deps.Log,
			Nodes:   u.deps.Nodes,
			Entries: u.deps.Entries,
		}, steps.AggregateInput{CourseOfStudy: courseOfStudy, Expanded: set})
		return err
	})
	if err != nil {
		return nil, err
	}
	if cacheable && out != nil {
		if err := u.deps.Cache.Put(ctx, courseOfStudy, out); err != nil {
			u.deps.Log.Warn("Aggregate cache write failed", "course_of_study", courseOfStudy, "error", err)
		}
	}
	return out, nil
}

func (u Usecases) UpsertNodes(ctx context.Context, courseOfStudy string, rows []*types.CurriculumNode) error {
	return u.write(ctx, "planning.UpsertNodes", courseOfStudy, func(dbc dbctx.Context) error {
		for _, row := range rows {
			if err := claimCourse(&row.CourseOfStudy, courseOfStudy); err != nil {
				return err
			}
		}
		return u.deps.Nodes.Upsert(dbc, rows)
	})
}

func (u Usecases) UpsertEntries(ctx context.Context, courseOfStudy string, rows []*types.LeafEntry) error {
	return u.write(ctx, "planning.UpsertEntries", courseOfStudy, func(dbc dbctx.Context) error {
		for _, row := range rows {
			if err := claimCourse(&row.CourseOfStudy, courseOfStudy); err != nil {
				return err
			}
		}
		return u.deps.Entries.Upsert(dbc, rows, repoplanning.ProgressColumns)
	})
}

// UpdateEntry rewrites the entry at old with next, key columns included. Moving
// an entry is an update with a new node url.
func (u Usecases) UpdateEntry(ctx context.Context, old types.EntryKey, next types.LeafEntry) (*types.LeafEntry, error) {
	err := u.write(ctx, "planning.UpdateEntry", old.CourseOfStudy, func(dbc dbctx.Context) error {
		if err := claimCourse(&next.CourseOfStudy, old.CourseOfStudy); err != nil {
			return err
		}
		return u.deps.Entries.Replace(dbc, old, &next)
	})
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (u Usecases) MoveTargets(ctx context.Context, key types.EntryKey) ([]types.MoveTarget, error) {
	var out []types.MoveTarget
	err := u.read(ctx, "planning.MoveTargets", key.CourseOfStudy, func(dbc dbctx.Context) error {
		entry, err := u.deps.Entries.GetByKey(dbc, key)
		if err != nil {
			return err
		}
		if entry == nil {
			return aggregates.NotFoundError(fmt.Sprintf("entry %s/%s/%s does not exist in %q", key.NodeURL, key.SemesterTag, key.ActivityID, key.CourseOfStudy))
		}
		out, err = steps.MoveTargets(dbc, steps.MoveTargetsDeps{Nodes: u.deps.Nodes}, *entry)
		return err
	})
	return out, err
}

func (u Usecases) SetQuotaAndResolve(ctx context.Context, in SetQuotaInput) (string, error) {
	var url string
	err := u.write(ctx, "planning.SetQuotaAndResolve", in.CourseOfStudy, func(dbc dbctx.Context) (err error) {
		url, err = steps.SetQuotaAndResolve(dbc, steps.SetQuotaDeps{Log: u.deps.Log, Nodes: u.deps.Nodes}, in)
		return err
	})
	return url, err
}

// EntriesBySemester groups scheduled entries by (year, semester) in calendar order.
func (u Usecases) EntriesBySemester(ctx context.Context, courseOfStudy string) ([]types.SemesterGroup, error) {
	var groups []types.SemesterGroup
	err := u.read(ctx, "planning.EntriesBySemester", courseOfStudy, func(dbc dbctx.Context) error {
		rows, err := u.deps.Entries.GetScheduled(dbc, courseOfStudy)
		if err != nil {
			return err
		}
		withTargets, err := steps.AttachMoveTargets(dbc, steps.MoveTargetsDeps{Nodes: u.deps.Nodes}, courseOfStudy, rows)
		if err != nil {
			return err
		}
		groups = groupBySemester(withTargets)
		return nil
	})
	return groups, err
}

func (u Usecases) EntriesInSemester(ctx context.Context, courseOfStudy string, year int, semester types.Semester) ([]types.EntryWithMoveTargets, error) {
	var out []types.EntryWithMoveTargets
	err := u.read(ctx, "planning.EntriesInSemester", courseOfStudy, func(dbc dbctx.Context) error {
		rows, err := u.deps.Entries.GetInSemester(dbc, courseOfStudy, year, semester)
		if err != nil {
			return err
		}
		out, err = steps.AttachMoveTargets(dbc, steps.MoveTargetsDeps{Nodes: u.deps.Nodes}, courseOfStudy, rows)
		return err
	})
	return out, err
}

func (u Usecases) UnscheduledEntries(ctx context.Context, courseOfStudy string) ([]types.EntryWithMoveTargets, error) {
	var out []types.EntryWithMoveTargets
	err := u.read(ctx, "planning.UnscheduledEntries", courseOfStudy, func(dbc dbctx.Context) error {
		rows, err := u.deps.Entries.GetUnscheduled(dbc, courseOfStudy)
		if err != nil {
			return err
		}
		out, err = steps.AttachMoveTargets(dbc, steps.MoveTargetsDeps{Nodes: u.deps.Nodes}, courseOfStudy, rows)
		return err
	})
	return out, err
}

// PlaceEntries returns the entries that could not be matched to an existing placement.
func (u Usecases) PlaceEntries(ctx context.Context, courseOfStudy string, inserts []types.NominalEntry) ([]types.EntryWithMoveTargets, error) {
	var failed []types.EntryWithMoveTargets
	err := u.write(ctx, "planning.PlaceEntries", courseOfStudy, func(dbc dbctx.Context) (err error) {
		failed, err = steps.PlaceEntries(dbc, steps.PlaceEntriesDeps{
			Log:     u.deps.Log,
			Nodes:   u.deps.Nodes,
			Entries: u.deps.Entries,
		}, steps.PlaceEntriesInput{CourseOfStudy: courseOfStudy, Inserts: inserts})
		return err
	})
	u.deps.Metrics.AddUnplaced(len(failed))
	return failed, err
}

func (u Usecases) ImportSnapshot(ctx context.Context, in ImportSnapshotInput) (types.ImportStats, error) {
	var stats types.ImportStats
	err := u.write(ctx, "planning.ImportSnapshot", in.CourseOfStudy, func(dbc dbctx.Context) (err error) {
		stats, err = steps.ImportSnapshot(dbc, steps.ImportSnapshotDeps{
			Log:     u.deps.Log,
			Nodes:   u.deps.Nodes,
			Entries: u.deps.Entries,
		}, in)
		return err
	})
	return stats, err
}

// ReconcileResults runs one reconciliation pass; any failure rolls back the pass.
func (u Usecases) ReconcileResults(ctx context.Context, courseOfStudy string, in types.ReconcileInput) ([]types.EntryWithMoveTargets, error) {
	var failed []types.EntryWithMoveTargets
	err := u.write(ctx, "planning.ReconcileResults", courseOfStudy, func(dbc dbctx.Context) (err error) {
		failed, err = steps.ReconcileResults(dbc, steps.ReconcileDeps{
			Log:           u.deps.Log,
			Nodes:         u.deps.Nodes,
			Entries:       u.deps.Entries,
			Patches:       u.deps.Patches,
			ThesisCredits: u.deps.ThesisCredits,
		}, courseOfStudy, in)
		return err
	})
	u.deps.Metrics.AddUnplaced(len(failed))
	return failed, err
}

func (u Usecases) read(ctx context.Context, op, courseOfStudy string, fn func(dbc dbctx.Context) error) error {
	ctx, span := startSpan(ctx, op, courseOfStudy)
	defer span.End()
	return endSpan(span, u.run(ctx, op, fn))
}

// write invalidates the cached aggregate after a successful commit.
func (u Usecases) write(ctx context.Context, op, courseOfStudy string, fn func(dbc dbctx.Context) error) error {
	ctx, span := startSpan(ctx, op, courseOfStudy)
	defer span.End()
	if err := u.run(ctx, op, fn); err != nil {
		return endSpan(span, err)
	}
	if u.deps.Cache != nil {
		if err := u.deps.Cache.Invalidate(ctx, courseOfStudy); err != nil {
			u.deps.Log.Warn("Aggregate cache invalidation failed", "course_of_study", courseOfStudy, "error", err)
		}
	}
	return endSpan(span, nil)
}

func (u Usecases) run(ctx context.Context, op string, fn func(dbc dbctx.Context) error) error {
	if u.deps.Tx == nil || u.deps.Log == nil || u.deps.Nodes == nil || u.deps.Entries == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "missing deps", nil)
	}
	if err := u.deps.Tx.InTx(ctx, fn); err != nil {
		mapped := aggregates.MapError(op, err)
		if domainagg.IsCode(mapped, domainagg.CodeInternal) {
			u.deps.Log.Error("Store operation failed", "op", op, "error", err)
		}
		u.deps.Metrics.ObservePlanningOp(op, string(domainagg.CodeOf(mapped)))
		return mapped
	}
	u.deps.Metrics.ObservePlanningOp(op, "")
	return nil
}

func startSpan(ctx context.Context, op, courseOfStudy string) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(attribute.String("planning.course_of_study", courseOfStudy)))
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func claimCourse(field *string, courseOfStudy string) error {
	if *field == "" {
		*field = courseOfStudy
		return nil
	}
	if *field != courseOfStudy {
		return aggregates.ValidationError(fmt.Sprintf("row belongs to %q, request is for %q", *field, courseOfStudy))
	}
	return nil
}

func groupBySemester(entries []types.EntryWithMoveTargets) []types.SemesterGroup {
	var groups []types.SemesterGroup
	for _, e := range entries {
		year, sem := *e.Entry.Year, *e.Entry.Semester
		n := len(groups)
		if n == 0 || groups[n-1].Year != year || groups[n-1].Semester != sem {
			groups = append(groups, types.SemesterGroup{Year: year, Semester: sem})
			n++
		}
		groups[n-1].Entries = append(groups[n-1].Entries, e)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Year != groups[j].Year {
			return groups[i].Year < groups[j].Year
		}
		return groups[i].Semester < groups[j].Semester
	})
	return groups
}
