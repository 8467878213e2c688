package rollup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/engine"
)

// Status is the terminal state of one propagation run.
type Status string

const (
	StatusSucceeded       Status = "SUCCEEDED"
	StatusPartiallyFailed Status = "PARTIALLY_FAILED"
	StatusFailed          Status = "FAILED"
	StatusCancelled       Status = "CANCELLED"
)

// Result reports the outcome of a propagation run. Updated lists nodes
// persisted before any failure, triggering node first and then ancestors in
// root-ward order; FailedAtID names the first node that could not be
// recomputed or written.
type Result struct {
	Status     Status
	FailedAtID string
	Updated    []string
	Err        error
}

// CycleError indicates a parent chain that loops back on itself. The walk
// aborts rather than follow the chain forever; writes committed before
// detection remain in place.
type CycleError struct {
	NodeID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("parent cycle detected at node %s", e.NodeID)
}

// Store is the persistence contract the propagator walks against. GetParent
// returns nil when the node has no parent.
type Store interface {
	GetNode(ctx context.Context, kind domain.NodeKind, id string) (domain.WorkNode, error)
	GetParent(ctx context.Context, nodeID string) (*domain.ParentRef, error)
	GetChildren(ctx context.Context, parentKind domain.NodeKind, parentID string) ([]domain.ChildSummary, error)
	GetNodeAllocations(ctx context.Context, kind domain.NodeKind, id string) (domain.AllocationSet, error)
	UpdateNodeRollup(ctx context.Context, kind domain.NodeKind, id string, patch domain.RollupPatch) error
}

// Propagator recomputes rollup aggregates along a node's ancestor chain. The
// walk is strictly sequential: a grandparent is only recomputed after the
// parent's updated value has been written, since its sum depends on it.
type Propagator struct {
	store  Store
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewPropagator constructs a Propagator over the provided store.
func NewPropagator(store Store, logger *slog.Logger) *Propagator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Propagator{
		store:  store,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (p *Propagator) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		p.nowFn = nowFn
	}
}

// Recalculate recomputes the triggering node's own aggregates, then walks
// toward the root recomputing and persisting each ancestor. Re-running it is
// idempotent per node: absent further mutation it recomputes the same values
// from current children.
//
// Nodes written before a failure stay written; there is no rollback across
// the chain. Store errors are converted into the terminal status rather than
// returned raw, so one store hiccup cannot crash a whole recalculation request.
func (p *Propagator) Recalculate(ctx context.Context, kind domain.NodeKind, nodeID string) Result {
	visited := map[string]bool{nodeID: true}
	current := nodeID
	var updated []string

	if err := p.recomputeNode(ctx, domain.ParentRef{ID: nodeID, Kind: kind}); err != nil {
		if ctx.Err() != nil {
			return Result{Status: StatusCancelled, FailedAtID: nodeID, Err: err}
		}
		return p.terminal(updated, nodeID, err)
	}
	updated = append(updated, nodeID)

	for {
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusCancelled, Updated: updated, Err: err}
		}

		parent, err := p.store.GetParent(ctx, current)
		if err != nil {
			return p.terminal(updated, current, fmt.Errorf("fetch parent of %s: %w", current, err))
		}
		if parent == nil {
			return Result{Status: StatusSucceeded, Updated: updated}
		}

		if visited[parent.ID] {
			cycleErr := &CycleError{NodeID: parent.ID}
			p.logger.Error("rollup aborted", "nodeId", nodeID, "cycleAt", parent.ID)
			return Result{Status: StatusFailed, FailedAtID: parent.ID, Updated: updated, Err: cycleErr}
		}
		visited[parent.ID] = true

		if err := p.recomputeNode(ctx, *parent); err != nil {
			if ctx.Err() != nil {
				return Result{Status: StatusCancelled, FailedAtID: parent.ID, Updated: updated, Err: err}
			}
			return p.terminal(updated, parent.ID, err)
		}

		updated = append(updated, parent.ID)
		current = parent.ID
	}
}

func (p *Propagator) recomputeNode(ctx context.Context, ref domain.ParentRef) error {
	node, err := p.store.GetNode(ctx, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("fetch node %s: %w", ref.ID, err)
	}

	children, err := p.store.GetChildren(ctx, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("fetch children of %s: %w", ref.ID, err)
	}

	rollup := node.DirectEstimate
	for _, child := range children {
		if child.RollupContribution {
			rollup += child.RollupEstimate
		}
	}

	allocations, err := p.store.GetNodeAllocations(ctx, ref.Kind, ref.ID)
	if err != nil {
		return fmt.Errorf("fetch allocations of %s: %w", ref.ID, err)
	}
	costs := engine.ComputeCostSummary(allocations.TeamAllocations, allocations.Members)

	patch := domain.RollupPatch{
		RollupEstimate: rollup,
		TotalCost:      costs.TotalCost,
		TotalHours:     costs.TotalHours,
		UpdatedAt:      p.nowFn().UTC(),
	}
	if err := p.store.UpdateNodeRollup(ctx, ref.Kind, ref.ID, patch); err != nil {
		return fmt.Errorf("update node %s: %w", ref.ID, err)
	}

	p.logger.Debug("node recomputed",
		"nodeId", ref.ID,
		"kind", string(ref.Kind),
		"rollupEstimate", rollup,
		"totalCost", costs.TotalCost,
	)
	return nil
}

func (p *Propagator) terminal(updated []string, failedAt string, err error) Result {
	status := StatusFailed
	if len(updated) > 0 {
		status = StatusPartiallyFailed
	}
	p.logger.Error("rollup walk halted", "failedAt", failedAt, "updated", len(updated), "error", err)
	return Result{Status: status, FailedAtID: failedAt, Updated: updated, Err: err}
}
