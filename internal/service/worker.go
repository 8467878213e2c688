package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/rollup"
)

// TaskError accumulates multiple errors produced during bulk operations.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkPlanner loads large plan datasets and runs mass recalculations using a
// bounded worker pool. One item's failure never cancels its siblings; all
// failures are reported together as a TaskError.
type BulkPlanner struct {
	service *PlanningService
	workers int
}

// NewBulkPlanner creates a BulkPlanner with the provided concurrency.
func NewBulkPlanner(service *PlanningService, workers int) *BulkPlanner {
	if workers <= 0 {
		workers = 4
	}
	return &BulkPlanner{
		service: service,
		workers: workers,
	}
}

// IngestMembers upserts the provided members concurrently.
func (bp *BulkPlanner) IngestMembers(ctx context.Context, members []MemberInput) error {
	return bp.run(ctx, len(members), func(idx int) error {
		return bp.service.UpsertMember(ctx, members[idx])
	})
}

// IngestTeams upserts the provided teams and their membership edges.
func (bp *BulkPlanner) IngestTeams(ctx context.Context, teams []TeamInput) error {
	return bp.run(ctx, len(teams), func(idx int) error {
		return bp.service.UpsertTeam(ctx, teams[idx])
	})
}

// IngestAllocations creates the provided allocation edges concurrently.
func (bp *BulkPlanner) IngestAllocations(ctx context.Context, allocations []AllocationInput) error {
	return bp.run(ctx, len(allocations), func(idx int) error {
		_, _, err := bp.service.Allocate(ctx, allocations[idx])
		return err
	})
}

// RecalculateNodes walks each node's rollup chain concurrently. Walks are
// independent: a failed or partially failed walk is reported but does not stop
// the others.
func (bp *BulkPlanner) RecalculateNodes(ctx context.Context, refs []domain.ParentRef) error {
	return bp.run(ctx, len(refs), func(idx int) error {
		ref := refs[idx]
		result, err := bp.service.Recalculate(ctx, string(ref.Kind), ref.ID)
		if err != nil {
			return fmt.Errorf("recalculate %s: %w", ref.ID, err)
		}
		switch result.Status {
		case rollup.StatusSucceeded:
			return nil
		case rollup.StatusCancelled:
			if err := ctx.Err(); err != nil {
				return err
			}
			return result.Err
		default:
			return fmt.Errorf("recalculate %s: %s at %s: %w", ref.ID, result.Status, result.FailedAtID, result.Err)
		}
	})
}

func (bp *BulkPlanner) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bp.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
