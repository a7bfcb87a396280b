package planning

// AggregateNode is the derived, read-only view of one curriculum node.
type AggregateNode struct {
	Node              CurriculumNode         `json:"node"`
	ActualCredits     int                    `json:"actual_credits"`
	PropagatedCredits int                    `json:"propagated_credits"`
	ModuleCount       int                    `json:"module_count"`
	HasContents       bool                   `json:"has_contents"`
	HasRules          bool                   `json:"has_rules"`
	Children          []AggregateNode        `json:"children"`
	Entries           []EntryWithMoveTargets `json:"entries"`
}

// Walk visits n and its descendants depth first, parents before children.
// Returning false from fn skips the children of that node.
func (n AggregateNode) Walk(fn func(AggregateNode) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
