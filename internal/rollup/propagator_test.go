package rollup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dferrand/planweave/internal/domain"
)

type stubStore struct {
	nodes       map[string]domain.WorkNode
	parents     map[string]*domain.ParentRef
	children    map[string][]domain.ChildSummary
	allocations map[string]domain.AllocationSet

	parentErrs map[string]error
	updateErrs map[string]error

	updates []recordedUpdate

	afterUpdate func()
}

type recordedUpdate struct {
	id    string
	patch domain.RollupPatch
}

func newStubStore() *stubStore {
	return &stubStore{
		nodes:       map[string]domain.WorkNode{},
		parents:     map[string]*domain.ParentRef{},
		children:    map[string][]domain.ChildSummary{},
		allocations: map[string]domain.AllocationSet{},
		parentErrs:  map[string]error{},
		updateErrs:  map[string]error{},
	}
}

func (s *stubStore) GetNode(_ context.Context, _ domain.NodeKind, id string) (domain.WorkNode, error) {
	node, ok := s.nodes[id]
	if !ok {
		return domain.WorkNode{}, domain.ErrNotFound
	}
	return node, nil
}

func (s *stubStore) GetParent(_ context.Context, nodeID string) (*domain.ParentRef, error) {
	if err := s.parentErrs[nodeID]; err != nil {
		return nil, err
	}
	return s.parents[nodeID], nil
}

func (s *stubStore) GetChildren(_ context.Context, _ domain.NodeKind, parentID string) ([]domain.ChildSummary, error) {
	return s.children[parentID], nil
}

func (s *stubStore) GetNodeAllocations(_ context.Context, _ domain.NodeKind, id string) (domain.AllocationSet, error) {
	return s.allocations[id], nil
}

func (s *stubStore) UpdateNodeRollup(_ context.Context, _ domain.NodeKind, id string, patch domain.RollupPatch) error {
	if err := s.updateErrs[id]; err != nil {
		return err
	}
	s.updates = append(s.updates, recordedUpdate{id: id, patch: patch})
	if s.afterUpdate != nil {
		s.afterUpdate()
	}
	return nil
}

func (s *stubStore) updatedIDs() []string {
	ids := make([]string, 0, len(s.updates))
	for _, u := range s.updates {
		ids = append(ids, u.id)
	}
	return ids
}

func (s *stubStore) patchFor(t *testing.T, id string) domain.RollupPatch {
	t.Helper()
	for _, u := range s.updates {
		if u.id == id {
			return u.patch
		}
	}
	t.Fatalf("no recorded update for node %s", id)
	return domain.RollupPatch{}
}

func TestRecalculate_SumsContributingChildren(t *testing.T) {
	store := newStubStore()
	store.nodes["P"] = domain.WorkNode{ID: "P", Kind: domain.KindFeature, DirectEstimate: 1}
	store.children["P"] = []domain.ChildSummary{
		{ID: "C1", RollupEstimate: 3, RollupContribution: true},
		{ID: "C2", RollupEstimate: 4, RollupContribution: true},
	}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindFeature, "P")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, []string{"P"}, result.Updated)
	assert.Equal(t, 8.0, store.patchFor(t, "P").RollupEstimate)
}

func TestRecalculate_ExcludesNonContributingChildren(t *testing.T) {
	store := newStubStore()
	store.nodes["P"] = domain.WorkNode{ID: "P", Kind: domain.KindFeature, DirectEstimate: 1}
	store.children["P"] = []domain.ChildSummary{
		{ID: "C1", RollupEstimate: 3, RollupContribution: true},
		{ID: "C2", RollupEstimate: 4, RollupContribution: false},
	}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindFeature, "P")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 4.0, store.patchFor(t, "P").RollupEstimate)
}

func TestRecalculate_WalksChainRootward(t *testing.T) {
	store := newStubStore()
	store.parents["LEAF"] = &domain.ParentRef{ID: "P1", Kind: domain.KindOption}
	store.parents["P1"] = &domain.ParentRef{ID: "P2", Kind: domain.KindFeature}
	store.parents["P2"] = &domain.ParentRef{ID: "P3", Kind: domain.KindMilestone}
	store.nodes["LEAF"] = domain.WorkNode{ID: "LEAF"}
	store.nodes["P1"] = domain.WorkNode{ID: "P1"}
	store.nodes["P2"] = domain.WorkNode{ID: "P2"}
	store.nodes["P3"] = domain.WorkNode{ID: "P3"}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindProvider, "LEAF")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, []string{"LEAF", "P1", "P2", "P3"}, store.updatedIDs())
	assert.Equal(t, []string{"LEAF", "P1", "P2", "P3"}, result.Updated)
}

func TestRecalculate_ParentSeesFreshChildEstimates(t *testing.T) {
	store := newStubStore()
	store.parents["C1"] = &domain.ParentRef{ID: "P", Kind: domain.KindFeature}
	store.nodes["C1"] = domain.WorkNode{ID: "C1", Kind: domain.KindOption, DirectEstimate: 3}
	store.nodes["P"] = domain.WorkNode{ID: "P", Kind: domain.KindFeature, DirectEstimate: 1}
	store.children["P"] = []domain.ChildSummary{
		{ID: "C1", RollupEstimate: 3, RollupContribution: true},
		{ID: "C2", RollupEstimate: 4, RollupContribution: true},
	}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindOption, "C1")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, []string{"C1", "P"}, store.updatedIDs())
	assert.Equal(t, 3.0, store.patchFor(t, "C1").RollupEstimate)
	assert.Equal(t, 8.0, store.patchFor(t, "P").RollupEstimate)
}

func TestRecalculate_WritesCostAggregates(t *testing.T) {
	store := newStubStore()
	store.nodes["P"] = domain.WorkNode{ID: "P"}
	store.allocations["P"] = domain.AllocationSet{
		TeamAllocations: []domain.TeamAllocation{
			{Members: []domain.MemberAllocation{{MemberID: "MBR-1", Hours: 16}}},
		},
		Members: map[string]domain.AvailableMember{
			"MBR-1": {ID: "MBR-1", HoursPerDay: 8, DailyRate: 500, AvailableHours: 40},
		},
	}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindFeature, "P")

	require.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, 1000.0, store.patchFor(t, "P").TotalCost)
	assert.Equal(t, 16.0, store.patchFor(t, "P").TotalHours)
}

func TestRecalculate_CycleFailsFast(t *testing.T) {
	store := newStubStore()
	store.parents["A"] = &domain.ParentRef{ID: "B", Kind: domain.KindFeature}
	store.parents["B"] = &domain.ParentRef{ID: "A", Kind: domain.KindFeature}
	store.nodes["A"] = domain.WorkNode{ID: "A"}
	store.nodes["B"] = domain.WorkNode{ID: "B"}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindFeature, "A")

	require.Equal(t, StatusFailed, result.Status)
	var cycleErr *CycleError
	require.ErrorAs(t, result.Err, &cycleErr)
	assert.Equal(t, "A", cycleErr.NodeID)
	// A and B were written before the cycle was detected and stay written.
	assert.Equal(t, []string{"A", "B"}, store.updatedIDs())
}

func TestRecalculate_PartialFailureNamesFailingAncestor(t *testing.T) {
	store := newStubStore()
	store.parents["LEAF"] = &domain.ParentRef{ID: "P1", Kind: domain.KindOption}
	store.parents["P1"] = &domain.ParentRef{ID: "P2", Kind: domain.KindFeature}
	store.parents["P2"] = &domain.ParentRef{ID: "P3", Kind: domain.KindMilestone}
	store.nodes["LEAF"] = domain.WorkNode{ID: "LEAF"}
	store.nodes["P1"] = domain.WorkNode{ID: "P1"}
	store.nodes["P2"] = domain.WorkNode{ID: "P2"}
	store.nodes["P3"] = domain.WorkNode{ID: "P3"}
	store.updateErrs["P2"] = errors.New("bolt connection reset")

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindProvider, "LEAF")

	require.Equal(t, StatusPartiallyFailed, result.Status)
	assert.Equal(t, "P2", result.FailedAtID)
	assert.Equal(t, []string{"LEAF", "P1"}, result.Updated)
	// P3 is never touched once the walk halts.
	assert.Equal(t, []string{"LEAF", "P1"}, store.updatedIDs())
}

func TestRecalculate_MissingTriggerNodeIsFailed(t *testing.T) {
	store := newStubStore()

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindProvider, "GONE")

	require.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "GONE", result.FailedAtID)
	assert.ErrorIs(t, result.Err, domain.ErrNotFound)
	assert.Empty(t, result.Updated)
}

func TestRecalculate_ParentLookupFailureIsPartial(t *testing.T) {
	store := newStubStore()
	store.nodes["LEAF"] = domain.WorkNode{ID: "LEAF"}
	store.parentErrs["LEAF"] = errors.New("store unavailable")

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindProvider, "LEAF")

	// The node's own recompute committed before the parent lookup failed.
	assert.Equal(t, StatusPartiallyFailed, result.Status)
	assert.Equal(t, []string{"LEAF"}, result.Updated)
}

func TestRecalculate_MissingAncestorIsPartialFailure(t *testing.T) {
	store := newStubStore()
	store.parents["LEAF"] = &domain.ParentRef{ID: "P1", Kind: domain.KindOption}
	store.parents["P1"] = &domain.ParentRef{ID: "GONE", Kind: domain.KindFeature}
	store.nodes["LEAF"] = domain.WorkNode{ID: "LEAF"}
	store.nodes["P1"] = domain.WorkNode{ID: "P1"}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindProvider, "LEAF")

	require.Equal(t, StatusPartiallyFailed, result.Status)
	assert.Equal(t, "GONE", result.FailedAtID)
	assert.ErrorIs(t, result.Err, domain.ErrNotFound)
	assert.Equal(t, []string{"LEAF", "P1"}, result.Updated)
}

func TestRecalculate_CancellationAfterFirstWrite(t *testing.T) {
	store := newStubStore()
	store.parents["LEAF"] = &domain.ParentRef{ID: "P1", Kind: domain.KindOption}
	store.nodes["LEAF"] = domain.WorkNode{ID: "LEAF"}
	store.nodes["P1"] = domain.WorkNode{ID: "P1"}

	ctx, cancel := context.WithCancel(context.Background())
	store.afterUpdate = cancel

	result := NewPropagator(store, nil).Recalculate(ctx, domain.KindProvider, "LEAF")

	require.Equal(t, StatusCancelled, result.Status)
	// The node's own write committed before cancellation and stays.
	assert.Equal(t, []string{"LEAF"}, store.updatedIDs())
}

func TestRecalculate_RootNodeRecomputesItself(t *testing.T) {
	store := newStubStore()
	store.nodes["ROOT"] = domain.WorkNode{ID: "ROOT", Kind: domain.KindMilestone, DirectEstimate: 2}

	result := NewPropagator(store, nil).Recalculate(context.Background(), domain.KindMilestone, "ROOT")

	assert.Equal(t, StatusSucceeded, result.Status)
	assert.Equal(t, []string{"ROOT"}, result.Updated)
	assert.Equal(t, 2.0, store.patchFor(t, "ROOT").RollupEstimate)
}
