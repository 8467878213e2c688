package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/engine"
	"github.com/dferrand/planweave/internal/repository"
	"github.com/dferrand/planweave/internal/rollup"
)

// PlanRepository is the storage contract required by the planning service.
type PlanRepository interface {
	UpsertWorkNode(ctx context.Context, node domain.WorkNode) error
	UpsertMember(ctx context.Context, member domain.TeamMember) error
	UpsertTeam(ctx context.Context, team domain.Team) error
	AddTeamMember(ctx context.Context, memberID, teamID string, allocationPercent float64) error
	LinkChild(ctx context.Context, childID, parentID string, rollupContribution bool) error
	RemoveChild(ctx context.Context, childID string) (*domain.ParentRef, error)
	GetNode(ctx context.Context, kind domain.NodeKind, id string) (domain.WorkNode, error)
	GetMember(ctx context.Context, memberID string) (domain.TeamMember, error)
	GetMemberAllocations(ctx context.Context, memberID string) ([]domain.TimeAllocation, error)
	GetNodeAllocations(ctx context.Context, kind domain.NodeKind, id string) (domain.AllocationSet, error)
	AllocateMember(ctx context.Context, alloc domain.TimeAllocation) (string, error)
	AllocateTeam(ctx context.Context, alloc domain.TimeAllocation) (string, error)
	GetAllocationEdge(ctx context.Context, edgeID string) (domain.TimeAllocation, error)
	UpdateAllocationEdge(ctx context.Context, edgeID string, patch domain.AllocationPatch) (domain.TimeAllocation, error)
	DeleteAllocationEdge(ctx context.Context, edgeID string) (domain.ParentRef, error)
	ListWorkNodes(ctx context.Context, opts repository.ListNodesOptions) (domain.NodeListResult, error)
	ListMembers(ctx context.Context, opts repository.ListMembersOptions) (domain.MemberListResult, error)
}

// Recalculator walks a node's ancestor chain and recomputes its aggregates.
type Recalculator interface {
	Recalculate(ctx context.Context, kind domain.NodeKind, nodeID string) rollup.Result
}

// PlanningService orchestrates plan mutations and derived computations,
// delegating persistence to the repository and propagation to the rollup
// walker.
type PlanningService struct {
	repo   PlanRepository
	recalc Recalculator
	logger *slog.Logger
	nowFn  func() time.Time
}

// NewPlanningService constructs a PlanningService.
func NewPlanningService(repo PlanRepository, recalc Recalculator, logger *slog.Logger) *PlanningService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanningService{
		repo:   repo,
		recalc: recalc,
		logger: logger,
		nowFn:  time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *PlanningService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// UpsertNode persists a work item, optionally linking it under a parent, and
// propagates rollups along its ancestor chain. Estimate and parent edits both
// invalidate every ancestor's aggregates.
func (s *PlanningService) UpsertNode(ctx context.Context, input NodeInput) (rollup.Result, error) {
	if input.ID == "" {
		return rollup.Result{}, fmt.Errorf("node ID is required")
	}
	kind := domain.NodeKind(strings.ToUpper(strings.TrimSpace(input.Kind)))
	if !domain.ValidKind(kind) {
		return rollup.Result{}, fmt.Errorf("unknown node kind %q", input.Kind)
	}

	now := s.nowFn().UTC()
	createdAt := now
	updatedAt := now
	if input.CreatedAt != nil {
		createdAt = input.CreatedAt.UTC()
	}
	if input.UpdatedAt != nil {
		updatedAt = input.UpdatedAt.UTC()
	}

	node := domain.WorkNode{
		ID:             input.ID,
		Kind:           kind,
		Title:          sanitizeString(input.Title),
		DirectEstimate: input.DirectEstimate,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}

	if err := s.repo.UpsertWorkNode(ctx, node); err != nil {
		return rollup.Result{}, err
	}

	if input.ParentID != "" {
		contribution := true
		if input.RollupContribution != nil {
			contribution = *input.RollupContribution
		}
		if err := s.repo.LinkChild(ctx, node.ID, input.ParentID, contribution); err != nil {
			return rollup.Result{}, err
		}
	}

	return s.recalc.Recalculate(ctx, kind, node.ID), nil
}

// DetachNode removes a node from its parent and re-propagates the orphaned
// parent's chain.
func (s *PlanningService) DetachNode(ctx context.Context, nodeID string) (rollup.Result, error) {
	if nodeID == "" {
		return rollup.Result{}, fmt.Errorf("node ID is required")
	}
	parent, err := s.repo.RemoveChild(ctx, nodeID)
	if err != nil {
		return rollup.Result{}, err
	}
	if parent == nil {
		return rollup.Result{Status: rollup.StatusSucceeded}, nil
	}
	return s.recalc.Recalculate(ctx, parent.Kind, parent.ID), nil
}

// UpsertMember persists a team member.
func (s *PlanningService) UpsertMember(ctx context.Context, input MemberInput) error {
	if input.ID == "" {
		return fmt.Errorf("member ID is required")
	}

	now := s.nowFn().UTC()
	createdAt := now
	updatedAt := now
	if input.CreatedAt != nil {
		createdAt = input.CreatedAt.UTC()
	}
	if input.UpdatedAt != nil {
		updatedAt = input.UpdatedAt.UTC()
	}

	return s.repo.UpsertMember(ctx, domain.TeamMember{
		ID:                input.ID,
		Name:              sanitizeString(input.Name),
		WeeklyCapacity:    input.WeeklyCapacity,
		HoursPerDay:       input.HoursPerDay,
		DaysPerWeek:       input.DaysPerWeek,
		DailyRate:         input.DailyRate,
		AllocationPercent: input.AllocationPercent,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
	})
}

// UpsertTeam persists a team and its membership edges.
func (s *PlanningService) UpsertTeam(ctx context.Context, input TeamInput) error {
	if input.ID == "" {
		return fmt.Errorf("team ID is required")
	}

	now := s.nowFn().UTC()
	if err := s.repo.UpsertTeam(ctx, domain.Team{
		ID:        input.ID,
		Name:      sanitizeString(input.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return err
	}

	for _, m := range input.Members {
		if m.MemberID == "" {
			continue
		}
		if err := s.repo.AddTeamMember(ctx, m.MemberID, input.ID, m.AllocationPercent); err != nil {
			return err
		}
	}
	return nil
}

// Allocate creates an allocation edge and propagates the target node's
// ancestor chain. Exactly one of MemberID and TeamID must be set.
func (s *PlanningService) Allocate(ctx context.Context, input AllocationInput) (string, rollup.Result, error) {
	if input.NodeID == "" {
		return "", rollup.Result{}, fmt.Errorf("node ID is required")
	}
	if (input.MemberID == "") == (input.TeamID == "") {
		return "", rollup.Result{}, fmt.Errorf("exactly one of memberId and teamId is required")
	}
	if input.WeeklyHours < 0 || input.Hours < 0 {
		return "", rollup.Result{}, fmt.Errorf("allocation hours must not be negative")
	}

	alloc := domain.TimeAllocation{
		EdgeID:      input.EdgeID,
		MemberID:    input.MemberID,
		TeamID:      input.TeamID,
		NodeID:      input.NodeID,
		WeeklyHours: input.WeeklyHours,
		Hours:       input.Hours,
	}

	var err error
	if alloc.StartDate, err = engine.ParseDate(input.StartDate); err != nil {
		return "", rollup.Result{}, err
	}
	if alloc.EndDate, err = engine.ParseDate(input.EndDate); err != nil {
		return "", rollup.Result{}, err
	}
	if alloc.StartDate.After(alloc.EndDate) {
		return "", rollup.Result{}, engine.ErrInvalidDateRange
	}

	var edgeID string
	if alloc.MemberID != "" {
		edgeID, err = s.repo.AllocateMember(ctx, alloc)
	} else {
		edgeID, err = s.repo.AllocateTeam(ctx, alloc)
	}
	if err != nil {
		return "", rollup.Result{}, err
	}

	return edgeID, s.recalc.Recalculate(ctx, "", alloc.NodeID), nil
}

// UpdateAllocation edits an allocation edge and re-propagates the target
// node's chain.
func (s *PlanningService) UpdateAllocation(ctx context.Context, edgeID string, input AllocationPatchInput) (domain.TimeAllocation, rollup.Result, error) {
	if edgeID == "" {
		return domain.TimeAllocation{}, rollup.Result{}, fmt.Errorf("edge ID is required")
	}

	patch := domain.AllocationPatch{
		WeeklyHours: input.WeeklyHours,
		Hours:       input.Hours,
	}
	if input.StartDate != nil {
		start, err := engine.ParseDate(*input.StartDate)
		if err != nil {
			return domain.TimeAllocation{}, rollup.Result{}, err
		}
		patch.StartDate = &start
	}
	if input.EndDate != nil {
		end, err := engine.ParseDate(*input.EndDate)
		if err != nil {
			return domain.TimeAllocation{}, rollup.Result{}, err
		}
		patch.EndDate = &end
	}

	updated, err := s.repo.UpdateAllocationEdge(ctx, edgeID, patch)
	if err != nil {
		return domain.TimeAllocation{}, rollup.Result{}, err
	}
	if updated.StartDate.After(updated.EndDate) {
		return domain.TimeAllocation{}, rollup.Result{}, engine.ErrInvalidDateRange
	}

	return updated, s.recalc.Recalculate(ctx, "", updated.NodeID), nil
}

// DeleteAllocation removes an allocation edge and re-propagates the node it
// pointed at.
func (s *PlanningService) DeleteAllocation(ctx context.Context, edgeID string) (rollup.Result, error) {
	if edgeID == "" {
		return rollup.Result{}, fmt.Errorf("edge ID is required")
	}
	target, err := s.repo.DeleteAllocationEdge(ctx, edgeID)
	if err != nil {
		return rollup.Result{}, err
	}
	return s.recalc.Recalculate(ctx, target.Kind, target.ID), nil
}

// MemberAvailability computes a member's weekly load across every allocation
// touching them, optionally restricted to a window. A malformed allocation
// edge fails the whole query naming the edge: a bucket silently missing from
// the totals would hide exactly the over-allocation this exists to surface.
func (s *PlanningService) MemberAvailability(ctx context.Context, memberID string, window AvailabilityWindow) ([]domain.WeeklyAvailability, error) {
	if memberID == "" {
		return nil, fmt.Errorf("member ID is required")
	}

	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	allocations, err := s.repo.GetMemberAllocations(ctx, memberID)
	if err != nil {
		return nil, err
	}

	var windowStart, windowEnd time.Time
	if window.StartDate != "" {
		if windowStart, err = engine.ParseDate(window.StartDate); err != nil {
			return nil, err
		}
	}
	if window.EndDate != "" {
		if windowEnd, err = engine.ParseDate(window.EndDate); err != nil {
			return nil, err
		}
	}

	var buckets []domain.WeeklyAllocation
	for _, alloc := range allocations {
		if !overlapsWindow(alloc, windowStart, windowEnd) {
			continue
		}
		weekly, err := engine.BucketizeAllocation(alloc, alloc.NodeID, alloc.NodeTitle)
		if err != nil {
			return nil, fmt.Errorf("allocation %s: %w", alloc.EdgeID, err)
		}
		for _, b := range weekly {
			if !windowStart.IsZero() && b.EndDate.Before(windowStart) {
				continue
			}
			if !windowEnd.IsZero() && b.StartDate.After(windowEnd) {
				continue
			}
			buckets = append(buckets, b)
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].StartDate.Before(buckets[j].StartDate)
	})

	return engine.ComputeWeeklyAvailability(buckets, engine.MemberWeeklyCapacity(member)), nil
}

// NodeCostSummary assembles the cost figures for one work node.
func (s *PlanningService) NodeCostSummary(ctx context.Context, kind domain.NodeKind, nodeID string) (domain.CostSummary, error) {
	if nodeID == "" {
		return domain.CostSummary{}, fmt.Errorf("node ID is required")
	}
	if _, err := s.repo.GetNode(ctx, kind, nodeID); err != nil {
		return domain.CostSummary{}, err
	}

	set, err := s.repo.GetNodeAllocations(ctx, kind, nodeID)
	if err != nil {
		return domain.CostSummary{}, err
	}

	summary := engine.ComputeCostSummary(set.TeamAllocations, set.Members)
	for _, line := range summary.Allocations {
		if math.IsInf(line.AllocationPercent, 1) {
			s.logger.Warn("member has no available hours for costed allocation",
				"memberId", line.MemberID, "nodeId", nodeID)
		}
	}
	return summary, nil
}

// Recalculate triggers a manual rollup propagation for one node.
func (s *PlanningService) Recalculate(ctx context.Context, kind, nodeID string) (rollup.Result, error) {
	if nodeID == "" {
		return rollup.Result{}, fmt.Errorf("node ID is required")
	}
	nodeKind := domain.NodeKind(strings.ToUpper(strings.TrimSpace(kind)))
	if nodeKind != "" && !domain.ValidKind(nodeKind) {
		return rollup.Result{}, fmt.Errorf("unknown node kind %q", kind)
	}
	return s.recalc.Recalculate(ctx, nodeKind, nodeID), nil
}

// ListNodes retrieves paginated work items matching provided filters.
func (s *PlanningService) ListNodes(ctx context.Context, opts repository.ListNodesOptions) (domain.NodeListResult, error) {
	return s.repo.ListWorkNodes(ctx, opts)
}

// ListMembers retrieves paginated members matching provided filters.
func (s *PlanningService) ListMembers(ctx context.Context, opts repository.ListMembersOptions) (domain.MemberListResult, error) {
	return s.repo.ListMembers(ctx, opts)
}

func overlapsWindow(alloc domain.TimeAllocation, start, end time.Time) bool {
	if alloc.StartDate.IsZero() || alloc.EndDate.IsZero() {
		// Let the bucketizer report the malformed range.
		return true
	}
	if !start.IsZero() && alloc.EndDate.Before(start) {
		return false
	}
	if !end.IsZero() && alloc.StartDate.After(end) {
		return false
	}
	return true
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}
