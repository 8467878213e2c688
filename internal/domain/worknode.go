package domain

import "time"

// NodeKind enumerates the work item node labels stored in the graph.
type NodeKind string

const (
	KindMilestone NodeKind = "MILESTONE"
	KindFeature   NodeKind = "FEATURE"
	KindOption    NodeKind = "OPTION"
	KindProvider  NodeKind = "PROVIDER"
)

// ValidKind reports whether the provided kind is a known work item kind.
func ValidKind(kind NodeKind) bool {
	switch kind {
	case KindMilestone, KindFeature, KindOption, KindProvider:
		return true
	}
	return false
}

// WorkNode is the canonical work item node. DirectEstimate is the hours entered
// on the node itself; RollupEstimate is derived and owned by the rollup
// propagator.
type WorkNode struct {
	ID             string
	Kind           NodeKind
	Title          string
	DirectEstimate float64
	RollupEstimate float64
	TotalCost      float64
	TotalHours     float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ParentRef identifies a node's parent in the containment hierarchy.
type ParentRef struct {
	ID   string
	Kind NodeKind
}

// ChildSummary is the slice of a child node needed to recompute a parent's
// rollup. RollupContribution comes from the CHILD_OF edge.
type ChildSummary struct {
	ID                 string
	Title              string
	DirectEstimate     float64
	RollupEstimate     float64
	RollupContribution bool
}

// RollupPatch carries the derived fields written back to an ancestor during
// propagation.
type RollupPatch struct {
	RollupEstimate float64
	TotalCost      float64
	TotalHours     float64
	UpdatedAt      time.Time
}
