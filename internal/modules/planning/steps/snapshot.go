package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	repoplanning "github.com/yungbote/degreeplan-backend/internal/data/repos/planning"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type ImportSnapshotDeps struct {
	Log     *logger.Logger
	Nodes   repos.NodeRepo
	Entries repos.EntryRepo
}

type ImportSnapshotInput struct {
	CourseOfStudy string
	// SemesterTag is the semester the snapshot was taken in.
	SemesterTag types.Semester
	Snapshot    types.Snapshot
}

// ImportSnapshot stores the registration groups of a semester snapshot as nodes
// and their modules as not-planned entries. Re-importing refreshes catalog
// fields and leaves states and schedules alone.
func ImportSnapshot(dbc dbctx.Context, deps ImportSnapshotDeps, in ImportSnapshotInput) (types.ImportStats, error) {
	stats := types.ImportStats{}
	if deps.Log == nil || deps.Nodes == nil || deps.Entries == nil {
		return stats, fmt.Errorf("import_snapshot: missing deps")
	}
	if !in.SemesterTag.Valid() {
		return stats, fmt.Errorf("import_snapshot: invalid semester %q", in.SemesterTag)
	}
	log := deps.Log.With("step", "ImportSnapshot", "course_of_study", in.CourseOfStudy, "semester_tag", in.SemesterTag)

	regs := make([]types.SnapshotRegistration, 0, len(in.Snapshot.Registrations))
	for _, reg := range in.Snapshot.Registrations {
		if len(reg.Path) == 0 {
			log.Warn("Skipping registration without path")
			continue
		}
		regs = append(regs, reg)
	}
	sort.SliceStable(regs, func(i, j int) bool { return len(regs[i].Path) < len(regs[j].Path) })

	// Every path prefix becomes a node so groups the snapshot lists only as
	// ancestors still get a parent.
	seen := map[string]bool{}
	nodes := []*types.CurriculumNode{}
	for _, reg := range regs {
		for depth := range reg.Path {
			seg := reg.Path[depth]
			if seen[seg.URL] {
				continue
			}
			seen[seg.URL] = true
			n := &types.CurriculumNode{
				CourseOfStudy: in.CourseOfStudy,
				URL:           seg.URL,
				Name:          seg.Name,
			}
			if depth > 0 {
				parent := reg.Path[depth-1].URL
				n.Parent = &parent
			}
			nodes = append(nodes, n)
		}
	}
	if err := deps.Nodes.Upsert(dbc, nodes); err != nil {
		return stats, err
	}
	stats.Nodes = len(nodes)

	entries := []*types.LeafEntry{}
	for _, reg := range regs {
		nodeURL := reg.Path[len(reg.Path)-1].URL
		for _, e := range reg.Entries {
			if e.Module == nil {
				log.Warn("Skipping entry without module", "node_url", nodeURL)
				stats.SkippedEntries++
				continue
			}
			credits := 0
			if m, ok := in.Snapshot.Modules[e.Module.URL]; ok && m.Credits != nil {
				credits = *m.Credits
			} else {
				log.Warn("Module without credits", "module_id", e.Module.ID, "module_url", e.Module.URL)
			}
			link := strings.TrimSpace(e.Module.URL)
			entries = append(entries, &types.LeafEntry{
				CourseOfStudy: in.CourseOfStudy,
				NodeURL:       nodeURL,
				SemesterTag:   in.SemesterTag,
				ActivityID:    e.Module.ID,
				Name:          e.Module.Name,
				ModuleLink:    &link,
				Credits:       credits,
				State:         types.StateNotPlanned,
			})
		}
	}
	if err := deps.Entries.Upsert(dbc, entries, repoplanning.CatalogColumns); err != nil {
		return stats, err
	}
	stats.Entries = len(entries)

	log.Info("Imported semester snapshot", "nodes", stats.Nodes, "entries", stats.Entries, "skipped", stats.SkippedEntries)
	return stats, nil
}
