package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/rollup"
)

type recordingRecalc struct {
	mu      sync.Mutex
	calls   []string
	results map[string]rollup.Result
}

func (r *recordingRecalc) Recalculate(_ context.Context, _ domain.NodeKind, nodeID string) rollup.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, nodeID)
	if res, ok := r.results[nodeID]; ok {
		return res
	}
	return rollup.Result{Status: rollup.StatusSucceeded, Updated: []string{nodeID}}
}

func TestBulkRecalculateNodes_FailureDoesNotCancelSiblings(t *testing.T) {
	recalc := &recordingRecalc{
		results: map[string]rollup.Result{
			"B": {
				Status:     rollup.StatusPartiallyFailed,
				FailedAtID: "P2",
				Updated:    []string{"B"},
				Err:        errors.New("bolt connection reset"),
			},
		},
	}
	svc := NewPlanningService(&stubRepo{}, recalc, nil)
	bulk := NewBulkPlanner(svc, 2)

	err := bulk.RecalculateNodes(context.Background(), []domain.ParentRef{
		{ID: "A", Kind: domain.KindOption},
		{ID: "B", Kind: domain.KindOption},
		{ID: "C", Kind: domain.KindOption},
	})

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	require.Len(t, taskErr.Errors, 1)
	assert.Contains(t, taskErr.Errors[0].Error(), "B")
	assert.Contains(t, taskErr.Errors[0].Error(), "P2")

	recalc.mu.Lock()
	defer recalc.mu.Unlock()
	assert.Len(t, recalc.calls, 3)
}

func TestBulkIngestMembers_EmptyInputIsNoop(t *testing.T) {
	svc := NewPlanningService(&stubRepo{}, &stubRecalc{}, nil)
	bulk := NewBulkPlanner(svc, 4)

	require.NoError(t, bulk.IngestMembers(context.Background(), nil))
}

func TestBulkIngestAllocations_AggregatesValidationFailures(t *testing.T) {
	svc := NewPlanningService(&stubRepo{}, &stubRecalc{result: rollup.Result{Status: rollup.StatusSucceeded}}, nil)
	bulk := NewBulkPlanner(svc, 2)

	err := bulk.IngestAllocations(context.Background(), []AllocationInput{
		{NodeID: "OPT-1", MemberID: "MBR-1", StartDate: "2024-04-01", EndDate: "2024-04-05", WeeklyHours: 10},
		{NodeID: "OPT-2", MemberID: "MBR-1", StartDate: "not-a-date", EndDate: "2024-04-05", WeeklyHours: 10},
	})

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 1)
}
