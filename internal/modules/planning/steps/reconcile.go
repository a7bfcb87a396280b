package steps

import (
	"fmt"
	"strings"

	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

const (
	// ThesisLevelName is the results level whose entries default to the thesis credits.
	ThesisLevelName      = "Masterarbeit"
	DefaultThesisCredits = 30
)

// LevelPatches holds extra results levels per course display name. They fill
// in groups the remote results hierarchy omits.
type LevelPatches map[string]types.ResultLevel

type ReconcileDeps struct {
	Log     *logger.Logger
	Nodes   repos.NodeRepo
	Entries repos.EntryRepo

	Patches       LevelPatches
	ThesisCredits int
}

// ReconcileResults applies quota rules from the results hierarchy to the local
// tree and places every result entry. Levels are matched by name; a level
// without a local counterpart fails the whole pass.
func ReconcileResults(dbc dbctx.Context, deps ReconcileDeps, courseOfStudy string, in types.ReconcileInput) ([]types.EntryWithMoveTargets, error) {
	if deps.Log == nil || deps.Nodes == nil || deps.Entries == nil {
		return nil, fmt.Errorf("reconcile_results: missing deps")
	}
	if strings.TrimSpace(in.CourseName) == "" {
		return nil, fmt.Errorf("reconcile_results: missing course name")
	}
	if deps.ThesisCredits <= 0 {
		deps.ThesisCredits = DefaultThesisCredits
	}

	r := reconciler{
		dbc:     dbc,
		deps:    deps,
		course:  courseOfStudy,
		modules: make(map[string]types.ModuleResult, len(in.ModuleResults)),
		log:     deps.Log.With("step", "ReconcileResults", "course_of_study", courseOfStudy),
	}
	for _, m := range in.ModuleResults {
		r.modules[m.ActivityID] = m
	}

	root := in.Root
	root.Name = in.CourseName

	failed := []types.EntryWithMoveTargets{}
	if patch, ok := deps.Patches[in.CourseName]; ok {
		rootURL, err := r.setQuota(nil, root)
		if err != nil {
			return nil, err
		}
		r.log.Info("Applying level patch", "course_name", in.CourseName, "patch", patch.Name)
		f, err := r.level(&rootURL, patch)
		if err != nil {
			return nil, err
		}
		failed = append(failed, f...)
	}

	f, err := r.level(nil, root)
	if err != nil {
		return nil, err
	}
	return append(failed, f...), nil
}

type reconciler struct {
	dbc     dbctx.Context
	deps    ReconcileDeps
	course  string
	modules map[string]types.ModuleResult
	log     *logger.Logger
}

func (r reconciler) setQuota(parent *string, level types.ResultLevel) (string, error) {
	return SetQuotaAndResolve(r.dbc, SetQuotaDeps{Log: r.deps.Log, Nodes: r.deps.Nodes}, SetQuotaInput{
		CourseOfStudy: r.course,
		Parent:        parent,
		Name:          level.Name,
		Rules:         level.Rules,
	})
}

func (r reconciler) level(parent *string, level types.ResultLevel) ([]types.EntryWithMoveTargets, error) {
	url, err := r.setQuota(parent, level)
	if err != nil {
		return nil, err
	}

	failed := []types.EntryWithMoveTargets{}
	for _, child := range level.Children {
		f, err := r.level(&url, child)
		if err != nil {
			return nil, err
		}
		failed = append(failed, f...)
	}

	inserts := make([]types.NominalEntry, 0, len(level.Entries))
	for _, e := range level.Entries {
		inserts = append(inserts, types.NominalEntry{NodeURL: url, Entry: r.entry(level, url, e)})
	}
	f, err := PlaceEntries(r.dbc, PlaceEntriesDeps{Log: r.deps.Log, Nodes: r.deps.Nodes, Entries: r.deps.Entries}, PlaceEntriesInput{
		CourseOfStudy: r.course,
		Inserts:       inserts,
	})
	if err != nil {
		return nil, err
	}
	return append(failed, f...), nil
}

func (r reconciler) entry(level types.ResultLevel, url string, e types.ResultEntry) types.LeafEntry {
	out := types.LeafEntry{
		CourseOfStudy: r.course,
		NodeURL:       url,
		SemesterTag:   types.SemesterWinter,
		ActivityID:    e.Name,
		Name:          e.Name,
		State:         types.StatePlanned,
	}
	if e.Passed {
		out.State = types.StateDone
	}

	switch {
	case e.UsedCredits != nil:
		out.Credits = *e.UsedCredits
	case level.Name == ThesisLevelName:
		out.Credits = r.deps.ThesisCredits
	}

	if e.ID == nil || strings.TrimSpace(*e.ID) == "" {
		return out
	}
	out.ActivityID = *e.ID
	m, ok := r.modules[*e.ID]
	if !ok {
		return out
	}
	out.SemesterTag = m.Semester
	year, semester := m.Year, m.Semester
	out.Year = &year
	out.Semester = &semester
	if link := strings.TrimSpace(m.ModuleLink); link != "" {
		out.ModuleLink = &link
	}
	return out
}
