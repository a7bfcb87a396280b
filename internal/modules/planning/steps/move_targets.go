package steps

import (
	"fmt"

	"github.com/yungbote/degreeplan-backend/internal/data/aggregates"
	"github.com/yungbote/degreeplan-backend/internal/data/repos"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/platform/dbctx"
)

type MoveTargetsDeps struct {
	Nodes repos.NodeRepo
}

// MoveTargets lists where an entry may be moved: its node, the node's children
// and the node's parent. Quotas are not checked.
func MoveTargets(dbc dbctx.Context, deps MoveTargetsDeps, entry types.LeafEntry) ([]types.MoveTarget, error) {
	if deps.Nodes == nil {
		return nil, fmt.Errorf("move_targets: missing deps")
	}
	current, err := deps.Nodes.GetByURL(dbc, entry.CourseOfStudy, entry.NodeURL)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, aggregates.PreconditionError(fmt.Sprintf("node %q does not exist in %q", entry.NodeURL, entry.CourseOfStudy))
	}

	out := []types.MoveTarget{{Name: current.Name, URL: current.URL}}
	children, err := deps.Nodes.GetChildren(dbc, entry.CourseOfStudy, current.URL)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		out = append(out, types.MoveTarget{Name: c.Name, URL: c.URL})
	}
	if current.Parent != nil {
		parent, err := deps.Nodes.GetByURL(dbc, entry.CourseOfStudy, *current.Parent)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			out = append(out, types.MoveTarget{Name: parent.Name, URL: parent.URL})
		}
	}
	return out, nil
}

// AttachMoveTargets pairs entries with their move targets using one node query.
func AttachMoveTargets(dbc dbctx.Context, deps MoveTargetsDeps, courseOfStudy string, entries []*types.LeafEntry) ([]types.EntryWithMoveTargets, error) {
	if deps.Nodes == nil {
		return nil, fmt.Errorf("move_targets: missing deps")
	}
	nodes, err := deps.Nodes.ListByCourse(dbc, courseOfStudy)
	if err != nil {
		return nil, err
	}
	f := newForest(nodes, nil)
	out := make([]types.EntryWithMoveTargets, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.EntryWithMoveTargets{Entry: *e, MoveTargets: f.moveTargets(e.NodeURL)})
	}
	return out, nil
}
