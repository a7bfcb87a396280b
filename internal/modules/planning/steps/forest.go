package steps

import (
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

// forest indexes one course of study by url so the aggregate can be built
// without per-node queries.
type forest struct {
	nodes    map[string]*types.CurriculumNode
	children map[string][]*types.CurriculumNode
	entries  map[string][]*types.LeafEntry
	roots    []*types.CurriculumNode
}

// newForest expects nodes and entries in persisted order.
func newForest(nodes []*types.CurriculumNode, entries []*types.LeafEntry) forest {
	f := forest{
		nodes:    make(map[string]*types.CurriculumNode, len(nodes)),
		children: map[string][]*types.CurriculumNode{},
		entries:  map[string][]*types.LeafEntry{},
	}
	for _, n := range nodes {
		f.nodes[n.URL] = n
		if n.Parent == nil {
			f.roots = append(f.roots, n)
			continue
		}
		f.children[*n.Parent] = append(f.children[*n.Parent], n)
	}
	for _, e := range entries {
		f.entries[e.NodeURL] = append(f.entries[e.NodeURL], e)
	}
	return f
}

func (f forest) moveTargets(url string) []types.MoveTarget {
	current, ok := f.nodes[url]
	if !ok {
		return nil
	}
	out := []types.MoveTarget{{Name: current.Name, URL: current.URL}}
	for _, c := range f.children[url] {
		out = append(out, types.MoveTarget{Name: c.Name, URL: c.URL})
	}
	if current.Parent != nil {
		if p, ok := f.nodes[*current.Parent]; ok {
			out = append(out, types.MoveTarget{Name: p.Name, URL: p.URL})
		}
	}
	return out
}
