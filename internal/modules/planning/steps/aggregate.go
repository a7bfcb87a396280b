package steps

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type AggregateDeps struct {
	Log     *logger.Logger
	Nodes   repos.NodeRepo
	Entries repos.EntryRepo
}

type AggregateInput struct {
	CourseOfStudy string
	// Expanded urls count as having contents.
	Expanded map[string]bool
}

// Aggregate builds the credit and module totals of a course of study bottom-up.
// It returns nil when the course has no root node.
func Aggregate(dbc dbctx.Context, deps AggregateDeps, in AggregateInput) (*types.AggregateNode, error) {
	if deps.Log == nil || deps.Nodes == nil || deps.Entries == nil {
		return nil, fmt.Errorf("aggregate: missing deps")
	}
	nodes, err := deps.Nodes.ListByCourse(dbc, in.CourseOfStudy)
	if err != nil {
		return nil, err
	}
	entries, err := deps.Entries.ListByCourse(dbc, in.CourseOfStudy)
	if err != nil {
		return nil, err
	}
	f := newForest(nodes, entries)
	if len(f.roots) == 0 {
		return nil, nil
	}
	if len(f.roots) > 1 {
		deps.Log.Warn("Course of study has more than one root, using the first", "course_of_study", in.CourseOfStudy, "roots", len(f.roots))
	}

	visited := map[string]bool{}
	out := aggregateNode(f, f.roots[0], in.Expanded, visited)
	if len(visited) < len(f.nodes) {
		deps.Log.Debug("Nodes unreachable from root", "course_of_study", in.CourseOfStudy, "unreachable", len(f.nodes)-len(visited))
	}
	return &out, nil
}

func aggregateNode(f forest, n *types.CurriculumNode, expanded map[string]bool, visited map[string]bool) types.AggregateNode {
	visited[n.URL] = true
	out := types.AggregateNode{
		Node:     *n,
		HasRules: n.QuotaRule.HasRules(),
		Children: []types.AggregateNode{},
		Entries:  []types.EntryWithMoveTargets{},
	}
	out.HasContents = out.HasRules || expanded[n.URL]

	for _, e := range f.entries[n.URL] {
		if e.State.Counts() {
			out.ActualCredits += e.Credits
			out.ModuleCount++
		}
		if e.State != types.StateNotPlanned {
			out.HasContents = true
		}
		out.Entries = append(out.Entries, types.EntryWithMoveTargets{
			Entry:       *e,
			MoveTargets: f.moveTargets(n.URL),
		})
	}

	for _, c := range f.children[n.URL] {
		if visited[c.URL] {
			continue
		}
		child := aggregateNode(f, c, expanded, visited)
		out.ActualCredits += child.PropagatedCredits
		out.ModuleCount += child.ModuleCount
		out.HasContents = out.HasContents || child.HasContents
		out.Children = append(out.Children, child)
	}

	out.PropagatedCredits = n.QuotaRule.Cap(out.ActualCredits)
	return out
}
