package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/repository"
	"github.com/dferrand/planweave/internal/rollup"
	"github.com/dferrand/planweave/internal/service"
)

type apiStubRepo struct {
	member      domain.TeamMember
	allocations []domain.TimeAllocation
	node        domain.WorkNode
	nodeSet     domain.AllocationSet
	nodeList    domain.NodeListResult
	memberList  domain.MemberListResult
}

func (a *apiStubRepo) UpsertWorkNode(context.Context, domain.WorkNode) error { return nil }
func (a *apiStubRepo) UpsertMember(context.Context, domain.TeamMember) error { return nil }
func (a *apiStubRepo) UpsertTeam(context.Context, domain.Team) error         { return nil }
func (a *apiStubRepo) AddTeamMember(context.Context, string, string, float64) error {
	return nil
}
func (a *apiStubRepo) LinkChild(context.Context, string, string, bool) error { return nil }
func (a *apiStubRepo) RemoveChild(context.Context, string) (*domain.ParentRef, error) {
	return nil, nil
}
func (a *apiStubRepo) GetNode(context.Context, domain.NodeKind, string) (domain.WorkNode, error) {
	return a.node, nil
}
func (a *apiStubRepo) GetMember(context.Context, string) (domain.TeamMember, error) {
	return a.member, nil
}
func (a *apiStubRepo) GetMemberAllocations(context.Context, string) ([]domain.TimeAllocation, error) {
	return a.allocations, nil
}
func (a *apiStubRepo) GetNodeAllocations(context.Context, domain.NodeKind, string) (domain.AllocationSet, error) {
	return a.nodeSet, nil
}
func (a *apiStubRepo) AllocateMember(context.Context, domain.TimeAllocation) (string, error) {
	return "EDGE-1", nil
}
func (a *apiStubRepo) AllocateTeam(context.Context, domain.TimeAllocation) (string, error) {
	return "EDGE-2", nil
}
func (a *apiStubRepo) GetAllocationEdge(context.Context, string) (domain.TimeAllocation, error) {
	return domain.TimeAllocation{}, nil
}
func (a *apiStubRepo) UpdateAllocationEdge(context.Context, string, domain.AllocationPatch) (domain.TimeAllocation, error) {
	return domain.TimeAllocation{}, nil
}
func (a *apiStubRepo) DeleteAllocationEdge(context.Context, string) (domain.ParentRef, error) {
	return domain.ParentRef{ID: "OPT-1", Kind: domain.KindOption}, nil
}
func (a *apiStubRepo) ListWorkNodes(context.Context, repository.ListNodesOptions) (domain.NodeListResult, error) {
	return a.nodeList, nil
}
func (a *apiStubRepo) ListMembers(context.Context, repository.ListMembersOptions) (domain.MemberListResult, error) {
	return a.memberList, nil
}

type apiStubRecalc struct {
	result rollup.Result
}

func (r *apiStubRecalc) Recalculate(context.Context, domain.NodeKind, string) rollup.Result {
	return r.result
}

func newTestHandlers(repo *apiStubRepo, result rollup.Result) *APIHandlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewPlanningService(repo, &apiStubRecalc{result: result}, logger)
	return NewAPIHandlers(logger, svc)
}

func TestHandleRecalculate(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{
		Status:  rollup.StatusSucceeded,
		Updated: []string{"FEAT-1", "MS-1"},
	})

	body := strings.NewReader(`{"nodeKind":"feature","nodeId":"FEAT-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/rollup/recalculate", body)
	rec := httptest.NewRecorder()

	handlers.handleRecalculate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload rollupResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != string(rollup.StatusSucceeded) {
		t.Fatalf("expected SUCCEEDED, got %s", payload.Status)
	}
	if len(payload.Updated) != 2 {
		t.Fatalf("expected 2 updated nodes, got %d", len(payload.Updated))
	}
}

func TestHandleRecalculateRejectsUnknownKind(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{Status: rollup.StatusSucceeded})

	body := strings.NewReader(`{"nodeKind":"saga","nodeId":"X-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/rollup/recalculate", body)
	rec := httptest.NewRecorder()

	handlers.handleRecalculate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleCreateNode(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{
		Status:  rollup.StatusSucceeded,
		Updated: []string{"OPT-1", "FEAT-1"},
	})

	body := strings.NewReader(`{"nodeId":"OPT-1","kind":"option","title":"Checkout","directEstimate":5,"parentId":"FEAT-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/nodes", body)
	rec := httptest.NewRecorder()

	handlers.handleNodes(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rec.Code)
	}

	var payload nodeCreatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != "OPT-1" {
		t.Fatalf("expected id OPT-1, got %s", payload.ID)
	}
	if payload.Rollup.Status != string(rollup.StatusSucceeded) {
		t.Fatalf("expected rollup SUCCEEDED, got %s", payload.Rollup.Status)
	}
}

func TestHandleMemberAvailability(t *testing.T) {
	repo := &apiStubRepo{
		member: domain.TeamMember{ID: "MBR-1", WeeklyCapacity: 40},
		allocations: []domain.TimeAllocation{
			{
				EdgeID: "EDGE-1", NodeID: "OPT-1", NodeTitle: "Checkout",
				StartDate:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
				EndDate:     time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
				WeeklyHours: 45,
			},
		},
	}
	handlers := newTestHandlers(repo, rollup.Result{Status: rollup.StatusSucceeded})

	req := httptest.NewRequest(http.MethodGet, "/availability/member/MBR-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleMemberAvailability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload availabilityResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Weeks) != 1 {
		t.Fatalf("expected 1 week, got %d", len(payload.Weeks))
	}
	week := payload.Weeks[0]
	if !week.OverAllocated {
		t.Fatal("expected the week to be over-allocated")
	}
	if week.OverAllocatedBy != 5 {
		t.Fatalf("expected overAllocatedBy 5, got %v", week.OverAllocatedBy)
	}
}

func TestHandleNodeCostsReportsInfinitePercent(t *testing.T) {
	repo := &apiStubRepo{
		node: domain.WorkNode{ID: "OPT-1", Kind: domain.KindOption},
		nodeSet: domain.AllocationSet{
			TeamAllocations: []domain.TeamAllocation{
				{Members: []domain.MemberAllocation{{MemberID: "MBR-1", Hours: 16}}},
			},
			Members: map[string]domain.AvailableMember{
				"MBR-1": {ID: "MBR-1", HoursPerDay: 8, DailyRate: 500, AvailableHours: 0},
			},
		},
	}
	handlers := newTestHandlers(repo, rollup.Result{Status: rollup.StatusSucceeded})

	req := httptest.NewRequest(http.MethodGet, "/costs/node/option/OPT-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleNodeCosts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	lines, ok := payload["allocations"].([]any)
	if !ok || len(lines) != 1 {
		t.Fatalf("expected 1 cost line, got %v", payload["allocations"])
	}
	line := lines[0].(map[string]any)
	if line["allocationPercent"] != "Infinity" {
		t.Fatalf("expected allocationPercent Infinity, got %v", line["allocationPercent"])
	}
}

func TestHandleNodeCostsRejectsUnknownKind(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{Status: rollup.StatusSucceeded})

	req := httptest.NewRequest(http.MethodGet, "/costs/node/saga/OPT-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleNodeCosts(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleAllocationsMethodGuard(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{Status: rollup.StatusSucceeded})

	req := httptest.NewRequest(http.MethodGet, "/allocations", nil)
	rec := httptest.NewRecorder()

	handlers.handleAllocations(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow POST, got %q", allow)
	}
}

func TestHandleDeleteAllocation(t *testing.T) {
	handlers := newTestHandlers(&apiStubRepo{}, rollup.Result{
		Status:  rollup.StatusSucceeded,
		Updated: []string{"OPT-1"},
	})

	req := httptest.NewRequest(http.MethodDelete, "/allocations/EDGE-1", nil)
	rec := httptest.NewRecorder()

	handlers.handleAllocationEdge(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload rollupResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Updated) != 1 || payload.Updated[0] != "OPT-1" {
		t.Fatalf("expected updated [OPT-1], got %v", payload.Updated)
	}
}
