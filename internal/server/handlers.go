package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/engine"
	"github.com/dferrand/planweave/internal/repository"
	"github.com/dferrand/planweave/internal/rollup"
	"github.com/dferrand/planweave/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.PlanningService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.PlanningService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrUpdateNode(w, r)
	case http.MethodGet:
		h.listNodes(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleNodeParent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/nodes/"), "/")
	nodeID, ok := strings.CutSuffix(rest, "/parent")
	if !ok {
		http.NotFound(w, r)
		return
	}
	nodeID = strings.Trim(nodeID, "/")
	if nodeID == "" {
		writeError(w, http.StatusBadRequest, "node ID is required")
		return
	}

	result, err := h.service.DetachNode(r.Context(), nodeID)
	if err != nil {
		h.writeServiceError(w, err, "failed to detach node", "nodeId", nodeID)
		return
	}

	respondJSON(w, http.StatusOK, toRollupResponse(result))
}

func (h *APIHandlers) handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrUpdateMember(w, r)
	case http.MethodGet:
		h.listMembers(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleTeams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload teamRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.TeamID == "" {
		writeError(w, http.StatusBadRequest, "teamId is required")
		return
	}

	members := make([]service.TeamMemberInput, 0, len(payload.Members))
	for _, m := range payload.Members {
		members = append(members, service.TeamMemberInput{
			MemberID:          m.MemberID,
			AllocationPercent: m.AllocationPercent,
		})
	}

	if err := h.service.UpsertTeam(r.Context(), service.TeamInput{
		ID:      payload.TeamID,
		Name:    payload.Name,
		Members: members,
	}); err != nil {
		h.writeServiceError(w, err, "failed to persist team", "teamId", payload.TeamID)
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: payload.TeamID})
}

func (h *APIHandlers) handleAllocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload allocationRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	edgeID, result, err := h.service.Allocate(r.Context(), service.AllocationInput{
		EdgeID:      payload.EdgeID,
		MemberID:    payload.MemberID,
		TeamID:      payload.TeamID,
		NodeID:      payload.NodeID,
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		WeeklyHours: payload.WeeklyHours,
		Hours:       payload.Hours,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to create allocation", "nodeId", payload.NodeID)
		return
	}

	respondJSON(w, http.StatusCreated, allocationCreatedResponse{
		EdgeID: edgeID,
		Rollup: toRollupResponse(result),
	})
}

func (h *APIHandlers) handleAllocationEdge(w http.ResponseWriter, r *http.Request) {
	edgeID := strings.TrimPrefix(r.URL.Path, "/allocations/")
	edgeID = strings.Trim(edgeID, "/")
	if edgeID == "" {
		writeError(w, http.StatusBadRequest, "edge ID is required")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateAllocation(w, r, edgeID)
	case http.MethodDelete:
		h.deleteAllocation(w, r, edgeID)
	default:
		methodNotAllowed(w, http.MethodPut, http.MethodDelete)
	}
}

func (h *APIHandlers) updateAllocation(w http.ResponseWriter, r *http.Request, edgeID string) {
	var payload allocationPatchRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, result, err := h.service.UpdateAllocation(r.Context(), edgeID, service.AllocationPatchInput{
		StartDate:   payload.StartDate,
		EndDate:     payload.EndDate,
		WeeklyHours: payload.WeeklyHours,
		Hours:       payload.Hours,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to update allocation", "edgeId", edgeID)
		return
	}

	respondJSON(w, http.StatusOK, allocationUpdatedResponse{
		Allocation: toAllocationResponse(updated),
		Rollup:     toRollupResponse(result),
	})
}

func (h *APIHandlers) deleteAllocation(w http.ResponseWriter, r *http.Request, edgeID string) {
	result, err := h.service.DeleteAllocation(r.Context(), edgeID)
	if err != nil {
		h.writeServiceError(w, err, "failed to delete allocation", "edgeId", edgeID)
		return
	}

	respondJSON(w, http.StatusOK, toRollupResponse(result))
}

func (h *APIHandlers) handleMemberAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	memberID := strings.TrimPrefix(r.URL.Path, "/availability/member/")
	memberID = strings.Trim(memberID, "/")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, "member ID is required")
		return
	}

	window := service.AvailabilityWindow{
		StartDate: r.URL.Query().Get("start"),
		EndDate:   r.URL.Query().Get("end"),
	}

	weeks, err := h.service.MemberAvailability(r.Context(), memberID, window)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute availability", "memberId", memberID)
		return
	}

	resp := availabilityResponse{
		MemberID: memberID,
		Weeks:    []weeklyAvailabilityResponse{},
	}
	for _, week := range weeks {
		weekResp := weeklyAvailabilityResponse{
			WeekID:          week.WeekID,
			AvailableHours:  week.AvailableHours,
			AllocatedHours:  week.AllocatedHours,
			OverAllocated:   week.OverAllocated,
			OverAllocatedBy: week.OverAllocatedBy,
			Allocations:     []weeklyAllocationResponse{},
		}
		for _, alloc := range week.Allocations {
			weekResp.Allocations = append(weekResp.Allocations, weeklyAllocationResponse{
				NodeID:    alloc.NodeID,
				NodeName:  alloc.NodeName,
				StartDate: formatDate(alloc.StartDate),
				EndDate:   formatDate(alloc.EndDate),
				Hours:     alloc.Hours,
			})
		}
		resp.Weeks = append(resp.Weeks, weekResp)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleNodeCosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/costs/node/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeError(w, http.StatusBadRequest, "path must be /costs/node/{kind}/{id}")
		return
	}

	kind := domain.NodeKind(strings.ToUpper(parts[0]))
	if !domain.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown node kind")
		return
	}
	nodeID := parts[1]

	summary, err := h.service.NodeCostSummary(r.Context(), kind, nodeID)
	if err != nil {
		h.writeServiceError(w, err, "failed to compute cost summary", "nodeId", nodeID)
		return
	}

	resp := costSummaryResponse{
		NodeID:      nodeID,
		Kind:        string(kind),
		DailyCost:   summary.DailyCost,
		TotalCost:   summary.TotalCost,
		TotalHours:  summary.TotalHours,
		TotalDays:   summary.TotalDays,
		Allocations: []costLineResponse{},
	}
	for _, line := range summary.Allocations {
		resp.Allocations = append(resp.Allocations, costLineResponse{
			MemberID:          line.MemberID,
			MemberName:        line.MemberName,
			Hours:             line.Hours,
			Days:              line.Days,
			Cost:              line.Cost,
			AllocationPercent: percentValue(line.AllocationPercent),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload recalculateRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	result, err := h.service.Recalculate(r.Context(), payload.NodeKind, payload.NodeID)
	if err != nil {
		h.writeServiceError(w, err, "failed to recalculate rollup", "nodeId", payload.NodeID)
		return
	}

	respondJSON(w, http.StatusOK, toRollupResponse(result))
}

func (h *APIHandlers) createOrUpdateNode(w http.ResponseWriter, r *http.Request) {
	var payload nodeRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NodeID == "" {
		writeError(w, http.StatusBadRequest, "nodeId is required")
		return
	}

	input := service.NodeInput{
		ID:                 payload.NodeID,
		Kind:               payload.Kind,
		Title:              payload.Title,
		DirectEstimate:     payload.DirectEstimate,
		ParentID:           payload.ParentID,
		RollupContribution: payload.RollupContribution,
	}
	var err error
	if input.CreatedAt, err = parseTimestamp(payload.CreatedAt, "createdAt"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if input.UpdatedAt, err = parseTimestamp(payload.UpdatedAt, "updatedAt"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.UpsertNode(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to persist node", "nodeId", payload.NodeID)
		return
	}

	respondJSON(w, http.StatusCreated, nodeCreatedResponse{
		Status: "ok",
		ID:     payload.NodeID,
		Rollup: toRollupResponse(result),
	})
}

func (h *APIHandlers) listNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	pageSize := parseInt(query.Get("pageSize"), 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	result, err := h.service.ListNodes(r.Context(), repository.ListNodesOptions{
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
		Kind:      query.Get("kind"),
		Search:    query.Get("search"),
		SortField: query.Get("sortField"),
		SortOrder: query.Get("sortOrder"),
	})
	if err != nil {
		h.logger.Error("failed to list nodes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list nodes")
		return
	}

	resp := listNodesResponse{
		Items:      []nodeSummaryResponse{},
		Pagination: toPagination(page, pageSize, result.Total),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, nodeSummaryResponse{
			NodeID:         item.ID,
			Kind:           string(item.Kind),
			Title:          item.Title,
			DirectEstimate: item.DirectEstimate,
			RollupEstimate: item.RollupEstimate,
			TotalCost:      item.TotalCost,
			CreatedAt:      formatTime(item.CreatedAt),
			UpdatedAt:      formatTime(item.UpdatedAt),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) createOrUpdateMember(w http.ResponseWriter, r *http.Request) {
	var payload memberRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.MemberID == "" {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}

	input := service.MemberInput{
		ID:                payload.MemberID,
		Name:              payload.Name,
		WeeklyCapacity:    payload.WeeklyCapacity,
		HoursPerDay:       payload.HoursPerDay,
		DaysPerWeek:       payload.DaysPerWeek,
		DailyRate:         payload.DailyRate,
		AllocationPercent: payload.AllocationPercent,
	}
	var err error
	if input.CreatedAt, err = parseTimestamp(payload.CreatedAt, "createdAt"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if input.UpdatedAt, err = parseTimestamp(payload.UpdatedAt, "updatedAt"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpsertMember(r.Context(), input); err != nil {
		h.writeServiceError(w, err, "failed to persist member", "memberId", payload.MemberID)
		return
	}

	respondJSON(w, http.StatusCreated, statusResponse{Status: "ok", ID: payload.MemberID})
}

func (h *APIHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	pageSize := parseInt(query.Get("pageSize"), 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	result, err := h.service.ListMembers(r.Context(), repository.ListMembersOptions{
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
		Search:    query.Get("search"),
		SortField: query.Get("sortField"),
		SortOrder: query.Get("sortOrder"),
	})
	if err != nil {
		h.logger.Error("failed to list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	resp := listMembersResponse{
		Items:      []memberSummaryResponse{},
		Pagination: toPagination(page, pageSize, result.Total),
	}
	for _, item := range result.Items {
		resp.Items = append(resp.Items, memberSummaryResponse{
			MemberID:       item.ID,
			Name:           item.Name,
			WeeklyCapacity: item.WeeklyCapacity,
			DailyRate:      item.DailyRate,
			CreatedAt:      formatTime(item.CreatedAt),
			UpdatedAt:      formatTime(item.UpdatedAt),
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// writeServiceError maps service errors onto HTTP statuses. Date and range
// problems are client errors; a missing node or edge is 404; anything else is
// logged and reported as a server fault.
func (h *APIHandlers) writeServiceError(w http.ResponseWriter, err error, msg string, logArgs ...any) {
	var parseErr *engine.DateParseError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidDateRange), errors.As(err, &parseErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, append([]any{"error", err}, logArgs...)...)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

// isValidationError matches the service layer's input validation failures,
// which are plain errors rather than sentinel values.
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is required") || strings.Contains(msg, "unknown node kind") ||
		strings.Contains(msg, "must not be negative") || strings.Contains(msg, "exactly one of")
}

// --- Request & Response DTOs ---

type nodeRequest struct {
	NodeID             string  `json:"nodeId"`
	Kind               string  `json:"kind"`
	Title              string  `json:"title"`
	DirectEstimate     float64 `json:"directEstimate"`
	ParentID           string  `json:"parentId"`
	RollupContribution *bool   `json:"rollupContribution"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

type memberRequest struct {
	MemberID          string  `json:"memberId"`
	Name              string  `json:"name"`
	WeeklyCapacity    float64 `json:"weeklyCapacity"`
	HoursPerDay       float64 `json:"hoursPerDay"`
	DaysPerWeek       float64 `json:"daysPerWeek"`
	DailyRate         float64 `json:"dailyRate"`
	AllocationPercent float64 `json:"allocationPercent"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

type teamRequest struct {
	TeamID  string              `json:"teamId"`
	Name    string              `json:"name"`
	Members []teamMemberRequest `json:"members"`
}

type teamMemberRequest struct {
	MemberID          string  `json:"memberId"`
	AllocationPercent float64 `json:"allocationPercent"`
}

type allocationRequest struct {
	EdgeID      string  `json:"edgeId"`
	MemberID    string  `json:"memberId"`
	TeamID      string  `json:"teamId"`
	NodeID      string  `json:"nodeId"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	WeeklyHours float64 `json:"weeklyHours"`
	Hours       float64 `json:"hours"`
}

type allocationPatchRequest struct {
	StartDate   *string  `json:"startDate"`
	EndDate     *string  `json:"endDate"`
	WeeklyHours *float64 `json:"weeklyHours"`
	Hours       *float64 `json:"hours"`
}

type recalculateRequest struct {
	NodeKind string `json:"nodeKind"`
	NodeID   string `json:"nodeId"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type rollupResultResponse struct {
	Status   string   `json:"status"`
	FailedAt string   `json:"failedAt,omitempty"`
	Updated  []string `json:"updated"`
	Error    string   `json:"error,omitempty"`
}

type nodeCreatedResponse struct {
	Status string               `json:"status"`
	ID     string               `json:"id"`
	Rollup rollupResultResponse `json:"rollup"`
}

type allocationCreatedResponse struct {
	EdgeID string               `json:"edgeId"`
	Rollup rollupResultResponse `json:"rollup"`
}

type allocationUpdatedResponse struct {
	Allocation allocationDetailResponse `json:"allocation"`
	Rollup     rollupResultResponse     `json:"rollup"`
}

type allocationDetailResponse struct {
	EdgeID      string  `json:"edgeId"`
	MemberID    string  `json:"memberId,omitempty"`
	TeamID      string  `json:"teamId,omitempty"`
	NodeID      string  `json:"nodeId"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	WeeklyHours float64 `json:"weeklyHours"`
	Hours       float64 `json:"hours"`
}

type availabilityResponse struct {
	MemberID string                       `json:"memberId"`
	Weeks    []weeklyAvailabilityResponse `json:"weeks"`
}

type weeklyAvailabilityResponse struct {
	WeekID          string                     `json:"weekId"`
	AvailableHours  float64                    `json:"availableHours"`
	AllocatedHours  float64                    `json:"allocatedHours"`
	OverAllocated   bool                       `json:"overAllocated"`
	OverAllocatedBy float64                    `json:"overAllocatedBy"`
	Allocations     []weeklyAllocationResponse `json:"allocations"`
}

type weeklyAllocationResponse struct {
	NodeID    string  `json:"nodeId"`
	NodeName  string  `json:"nodeName"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Hours     float64 `json:"hours"`
}

type costSummaryResponse struct {
	NodeID      string             `json:"nodeId"`
	Kind        string             `json:"kind"`
	DailyCost   float64            `json:"dailyCost"`
	TotalCost   float64            `json:"totalCost"`
	TotalHours  float64            `json:"totalHours"`
	TotalDays   float64            `json:"totalDays"`
	Allocations []costLineResponse `json:"allocations"`
}

type costLineResponse struct {
	MemberID          string  `json:"memberId"`
	MemberName        string  `json:"memberName"`
	Hours             float64 `json:"hours"`
	Days              float64 `json:"days"`
	Cost              float64 `json:"cost"`
	AllocationPercent any     `json:"allocationPercent"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type listNodesResponse struct {
	Items      []nodeSummaryResponse `json:"items"`
	Pagination paginationResponse    `json:"pagination"`
}

type listMembersResponse struct {
	Items      []memberSummaryResponse `json:"items"`
	Pagination paginationResponse      `json:"pagination"`
}

type nodeSummaryResponse struct {
	NodeID         string  `json:"nodeId"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	DirectEstimate float64 `json:"directEstimate"`
	RollupEstimate float64 `json:"rollupEstimate"`
	TotalCost      float64 `json:"totalCost"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

type memberSummaryResponse struct {
	MemberID       string  `json:"memberId"`
	Name           string  `json:"name"`
	WeeklyCapacity float64 `json:"weeklyCapacity"`
	DailyRate      float64 `json:"dailyRate"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// --- Helpers ---

func toRollupResponse(result rollup.Result) rollupResultResponse {
	resp := rollupResultResponse{
		Status:   string(result.Status),
		FailedAt: result.FailedAtID,
		Updated:  result.Updated,
	}
	if resp.Updated == nil {
		resp.Updated = []string{}
	}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	return resp
}

func toAllocationResponse(alloc domain.TimeAllocation) allocationDetailResponse {
	return allocationDetailResponse{
		EdgeID:      alloc.EdgeID,
		MemberID:    alloc.MemberID,
		TeamID:      alloc.TeamID,
		NodeID:      alloc.NodeID,
		StartDate:   formatDate(alloc.StartDate),
		EndDate:     formatDate(alloc.EndDate),
		WeeklyHours: alloc.WeeklyHours,
		Hours:       alloc.Hours,
	}
}

func toPagination(page, pageSize int, total int64) paginationResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return paginationResponse{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

// percentValue keeps an unbounded allocation percentage representable in
// JSON, which has no encoding for IEEE infinities.
func percentValue(pct float64) any {
	if math.IsInf(pct, 1) {
		return "Infinity"
	}
	return pct
}

func parseTimestamp(value, field string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errors.New("invalid " + field)
	}
	return &ts, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(engine.DateLayout)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
