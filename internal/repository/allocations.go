package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/engine"
	"github.com/dferrand/planweave/internal/graph"
)

// AllocateMember creates or refreshes a member's allocation edge to a work
// node. A new edge id is generated when the allocation does not carry one.
func (r *Repository) AllocateMember(ctx context.Context, alloc domain.TimeAllocation) (string, error) {
	if alloc.MemberID == "" || alloc.NodeID == "" {
		return "", errors.New("member and node ids are required")
	}
	edgeID := alloc.EdgeID
	if edgeID == "" {
		edgeID = uuid.NewString()
	}

	res, err := r.client.ExecuteWrite(ctx, allocateMemberCypher, map[string]any{
		"memberId": alloc.MemberID,
		"nodeId":   alloc.NodeID,
		"edgeId":   edgeID,
		"props":    allocationEdgeProps(alloc),
	})
	if err != nil {
		return "", fmt.Errorf("allocate member %s to %s: %w", alloc.MemberID, alloc.NodeID, err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("allocate member %s to %s: %w", alloc.MemberID, alloc.NodeID, domain.ErrNotFound)
	}
	return edgeID, nil
}

// AllocateTeam creates or refreshes a team's allocation edge to a work node.
func (r *Repository) AllocateTeam(ctx context.Context, alloc domain.TimeAllocation) (string, error) {
	if alloc.TeamID == "" || alloc.NodeID == "" {
		return "", errors.New("team and node ids are required")
	}
	edgeID := alloc.EdgeID
	if edgeID == "" {
		edgeID = uuid.NewString()
	}

	res, err := r.client.ExecuteWrite(ctx, allocateTeamCypher, map[string]any{
		"teamId": alloc.TeamID,
		"nodeId": alloc.NodeID,
		"edgeId": edgeID,
		"props":  allocationEdgeProps(alloc),
	})
	if err != nil {
		return "", fmt.Errorf("allocate team %s to %s: %w", alloc.TeamID, alloc.NodeID, err)
	}
	if len(res.Records) == 0 {
		return "", fmt.Errorf("allocate team %s to %s: %w", alloc.TeamID, alloc.NodeID, domain.ErrNotFound)
	}
	return edgeID, nil
}

// GetAllocationEdge fetches a single allocation edge by its id.
func (r *Repository) GetAllocationEdge(ctx context.Context, edgeID string) (domain.TimeAllocation, error) {
	res, err := r.client.ExecuteRead(ctx, getAllocationEdgeCypher, map[string]any{
		"edgeId": edgeID,
	})
	if err != nil {
		return domain.TimeAllocation{}, fmt.Errorf("get allocation edge %s: %w", edgeID, err)
	}
	if len(res.Records) == 0 {
		return domain.TimeAllocation{}, fmt.Errorf("get allocation edge %s: %w", edgeID, domain.ErrNotFound)
	}
	return allocationFromRecord(res.Records[0]), nil
}

// UpdateAllocationEdge applies a partial edit to an allocation edge and
// returns the updated allocation. Callers are expected to re-propagate the
// target node's ancestor chain afterwards.
func (r *Repository) UpdateAllocationEdge(ctx context.Context, edgeID string, patch domain.AllocationPatch) (domain.TimeAllocation, error) {
	current, err := r.GetAllocationEdge(ctx, edgeID)
	if err != nil {
		return domain.TimeAllocation{}, err
	}

	if patch.StartDate != nil {
		current.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		current.EndDate = *patch.EndDate
	}
	if patch.WeeklyHours != nil {
		current.WeeklyHours = *patch.WeeklyHours
	}
	if patch.Hours != nil {
		current.Hours = *patch.Hours
	}

	res, err := r.client.ExecuteWrite(ctx, updateAllocationEdgeCypher, map[string]any{
		"edgeId": edgeID,
		"props":  allocationEdgeProps(current),
	})
	if err != nil {
		return domain.TimeAllocation{}, fmt.Errorf("update allocation edge %s: %w", edgeID, err)
	}
	if len(res.Records) == 0 {
		return domain.TimeAllocation{}, fmt.Errorf("update allocation edge %s: %w", edgeID, domain.ErrNotFound)
	}
	return current, nil
}

// DeleteAllocationEdge removes an allocation edge and returns the work node
// it pointed at so the caller can re-propagate its rollup.
func (r *Repository) DeleteAllocationEdge(ctx context.Context, edgeID string) (domain.ParentRef, error) {
	res, err := r.client.ExecuteWrite(ctx, deleteAllocationEdgeCypher, map[string]any{
		"edgeId": edgeID,
	})
	if err != nil {
		return domain.ParentRef{}, fmt.Errorf("delete allocation edge %s: %w", edgeID, err)
	}
	if len(res.Records) == 0 {
		return domain.ParentRef{}, fmt.Errorf("delete allocation edge %s: %w", edgeID, domain.ErrNotFound)
	}
	record := res.Records[0]
	return domain.ParentRef{
		ID:   toString(record["nodeId"]),
		Kind: domain.NodeKind(toString(record["kind"])),
	}, nil
}

// GetMemberAllocations returns every allocation touching the member: their own
// edges plus team edges scaled by the member's share of the team.
func (r *Repository) GetMemberAllocations(ctx context.Context, memberID string) ([]domain.TimeAllocation, error) {
	if memberID == "" {
		return nil, errors.New("member id is required")
	}

	res, err := r.client.ExecuteRead(ctx, memberAllocationsCypher, map[string]any{
		"memberId": memberID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch member allocations: %w", err)
	}

	var allocations []domain.TimeAllocation
	for _, record := range res.Records {
		alloc := allocationFromRecord(record)
		alloc.MemberID = memberID
		allocations = append(allocations, alloc)
	}

	teamRes, err := r.client.ExecuteRead(ctx, memberTeamAllocationsCypher, map[string]any{
		"memberId": memberID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch member team allocations: %w", err)
	}

	for _, record := range teamRes.Records {
		alloc := allocationFromRecord(record)
		alloc.MemberID = memberID
		share := toFloat64(record["membershipPercent"])
		if share <= 0 {
			share = 100
		}
		alloc.WeeklyHours *= share / 100
		alloc.Hours *= share / 100
		allocations = append(allocations, alloc)
	}

	return allocations, nil
}

// GetNodeAllocations assembles a node's allocation records with the member
// data needed to cost them. Legacy per-member breakdowns stored on team edges
// (list or JSON-encoded string) are normalized here so the engine only ever
// sees one typed shape.
func (r *Repository) GetNodeAllocations(ctx context.Context, kind domain.NodeKind, nodeID string) (domain.AllocationSet, error) {
	set := domain.AllocationSet{
		Members: make(map[string]domain.AvailableMember),
	}

	res, err := r.client.ExecuteRead(ctx, nodeMemberAllocationsCypher, map[string]any{
		"nodeId": nodeID,
	})
	if err != nil {
		return domain.AllocationSet{}, fmt.Errorf("fetch node member allocations: %w", err)
	}

	for _, record := range res.Records {
		member := memberFromRecord(record)
		duration := edgeDurationDays(record)
		hours := resolveEdgeHours(record, duration)

		set.TeamAllocations = append(set.TeamAllocations, domain.TeamAllocation{
			NodeID: nodeID,
			Members: []domain.MemberAllocation{
				{MemberID: member.ID, Hours: hours, HoursPerDay: member.HoursPerDay},
			},
		})
		accumulateAvailable(set.Members, member, member.AllocationPercent, duration)
	}

	teamRes, err := r.client.ExecuteRead(ctx, nodeTeamAllocationsCypher, map[string]any{
		"nodeId": nodeID,
	})
	if err != nil {
		return domain.AllocationSet{}, fmt.Errorf("fetch node team allocations: %w", err)
	}

	for _, record := range teamRes.Records {
		duration := edgeDurationDays(record)
		totalHours := resolveEdgeHours(record, duration)

		teamMembers := teamMembersFromRecord(record)
		for _, tm := range teamMembers {
			accumulateAvailable(set.Members, tm.member, tm.membershipPercent, duration)
		}

		ta := domain.TeamAllocation{
			TeamID: toString(record["teamId"]),
			NodeID: nodeID,
		}

		shares, err := normalizeMemberShares(record["memberShares"])
		if err != nil {
			return domain.AllocationSet{}, fmt.Errorf("team %s allocation: %w", ta.TeamID, err)
		}
		if len(shares) > 0 {
			ta.Members = shares
		} else {
			for _, tm := range teamMembers {
				share := tm.membershipPercent
				if share <= 0 {
					share = 100
				}
				ta.Members = append(ta.Members, domain.MemberAllocation{
					MemberID:    tm.member.ID,
					Hours:       totalHours * share / 100,
					HoursPerDay: tm.member.HoursPerDay,
				})
			}
		}

		set.TeamAllocations = append(set.TeamAllocations, ta)
	}

	return set, nil
}

type teamMemberRecord struct {
	member            domain.TeamMember
	membershipPercent float64
}

func teamMembersFromRecord(record graph.Record) []teamMemberRecord {
	raw, ok := record["members"].([]any)
	if !ok {
		return nil
	}
	var out []teamMemberRecord
	for _, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id := toString(fields["memberId"])
		if id == "" {
			continue
		}
		out = append(out, teamMemberRecord{
			member: domain.TeamMember{
				ID:             id,
				Name:           toString(fields["name"]),
				WeeklyCapacity: toFloat64(fields["weeklyCapacity"]),
				HoursPerDay:    toFloat64(fields["hoursPerDay"]),
				DaysPerWeek:    toFloat64(fields["daysPerWeek"]),
				DailyRate:      toFloat64(fields["dailyRate"]),
			},
			membershipPercent: toFloat64(fields["membershipPercent"]),
		})
	}
	return out
}

func accumulateAvailable(dst map[string]domain.AvailableMember, m domain.TeamMember, percent float64, durationDays int) {
	if percent <= 0 {
		percent = 100
	}
	am, ok := dst[m.ID]
	if !ok {
		am = domain.AvailableMember{
			ID:          m.ID,
			Name:        m.Name,
			HoursPerDay: m.HoursPerDay,
			DailyRate:   m.DailyRate,
		}
	}
	am.AvailableHours += engine.ComputeEffectiveCapacity(
		engine.MemberWeeklyCapacity(m), percent, float64(durationDays), m.DaysPerWeek)
	dst[m.ID] = am
}

// edgeDurationDays derives the inclusive day count of an allocation edge.
// Unparseable dates count as zero duration; the resulting zero availability
// surfaces downstream as an infinite allocation percentage.
func edgeDurationDays(record graph.Record) int {
	start, err := engine.ParseDate(toString(record["startDate"]))
	if err != nil {
		return 0
	}
	end, err := engine.ParseDate(toString(record["endDate"]))
	if err != nil {
		return 0
	}
	days := engine.DaysBetween(start, end) + 1
	if days < 0 {
		return 0
	}
	return days
}

// resolveEdgeHours prefers the recorded total, falling back to the weekly
// rate spread over the edge's duration.
func resolveEdgeHours(record graph.Record, durationDays int) float64 {
	if hours := toFloat64(record["hours"]); hours > 0 {
		return hours
	}
	return toFloat64(record["weeklyHours"]) * float64(durationDays) / 7
}

func allocationEdgeProps(alloc domain.TimeAllocation) map[string]any {
	props := map[string]any{
		"weeklyHours": alloc.WeeklyHours,
		"hours":       alloc.Hours,
	}
	if !alloc.StartDate.IsZero() {
		props["startDate"] = alloc.StartDate.UTC().Format(engine.DateLayout)
	}
	if !alloc.EndDate.IsZero() {
		props["endDate"] = alloc.EndDate.UTC().Format(engine.DateLayout)
	}
	return props
}

// allocationFromRecord builds a TimeAllocation from edge fields. Malformed
// dates are left zero so the bucketizer reports them instead of the adapter
// guessing.
func allocationFromRecord(record graph.Record) domain.TimeAllocation {
	alloc := domain.TimeAllocation{
		EdgeID:      toString(record["edgeId"]),
		MemberID:    toString(record["memberId"]),
		TeamID:      toString(record["teamId"]),
		NodeID:      toString(record["nodeId"]),
		NodeTitle:   toString(record["title"]),
		WeeklyHours: toFloat64(record["weeklyHours"]),
		Hours:       toFloat64(record["hours"]),
	}
	if start, err := engine.ParseDate(toString(record["startDate"])); err == nil {
		alloc.StartDate = start
	}
	if end, err := engine.ParseDate(toString(record["endDate"])); err == nil {
		alloc.EndDate = end
	}
	return alloc
}

const allocateMemberCypher = `
MATCH (m:Member {memberId: $memberId})
MATCH (n:WorkItem {nodeId: $nodeId})
MERGE (m)-[a:ALLOCATED_TO {edgeId: $edgeId}]->(n)
SET a += $props
RETURN a.edgeId AS edgeId
`

const allocateTeamCypher = `
MATCH (t:Team {teamId: $teamId})
MATCH (n:WorkItem {nodeId: $nodeId})
MERGE (t)-[a:ALLOCATED_TO {edgeId: $edgeId}]->(n)
SET a += $props
RETURN a.edgeId AS edgeId
`

const getAllocationEdgeCypher = `
MATCH (owner)-[a:ALLOCATED_TO {edgeId: $edgeId}]->(n:WorkItem)
RETURN a.edgeId AS edgeId,
       a.startDate AS startDate,
       a.endDate AS endDate,
       coalesce(a.weeklyHours, 0.0) AS weeklyHours,
       coalesce(a.hours, 0.0) AS hours,
       n.nodeId AS nodeId,
       n.title AS title,
       CASE WHEN owner:Member THEN owner.memberId ELSE "" END AS memberId,
       CASE WHEN owner:Team THEN owner.teamId ELSE "" END AS teamId
LIMIT 1
`

const updateAllocationEdgeCypher = `
MATCH ()-[a:ALLOCATED_TO {edgeId: $edgeId}]->(:WorkItem)
SET a += $props
RETURN a.edgeId AS edgeId
`

const deleteAllocationEdgeCypher = `
MATCH ()-[a:ALLOCATED_TO {edgeId: $edgeId}]->(n:WorkItem)
DELETE a
RETURN n.nodeId AS nodeId, n.kind AS kind
`

const memberAllocationsCypher = `
MATCH (m:Member {memberId: $memberId})-[a:ALLOCATED_TO]->(n:WorkItem)
RETURN a.edgeId AS edgeId,
       a.startDate AS startDate,
       a.endDate AS endDate,
       coalesce(a.weeklyHours, 0.0) AS weeklyHours,
       coalesce(a.hours, 0.0) AS hours,
       n.nodeId AS nodeId,
       n.title AS title
`

const memberTeamAllocationsCypher = `
MATCH (m:Member {memberId: $memberId})-[mo:MEMBER_OF]->(t:Team)-[a:ALLOCATED_TO]->(n:WorkItem)
RETURN a.edgeId AS edgeId,
       a.startDate AS startDate,
       a.endDate AS endDate,
       coalesce(a.weeklyHours, 0.0) AS weeklyHours,
       coalesce(a.hours, 0.0) AS hours,
       coalesce(mo.allocationPercent, 100.0) AS membershipPercent,
       t.teamId AS teamId,
       n.nodeId AS nodeId,
       n.title AS title
`

const nodeMemberAllocationsCypher = `
MATCH (m:Member)-[a:ALLOCATED_TO]->(n:WorkItem {nodeId: $nodeId})
RETURN m.memberId AS memberId,
       m.name AS name,
       coalesce(m.weeklyCapacity, 0.0) AS weeklyCapacity,
       coalesce(m.hoursPerDay, 0.0) AS hoursPerDay,
       coalesce(m.daysPerWeek, 0.0) AS daysPerWeek,
       coalesce(m.dailyRate, 0.0) AS dailyRate,
       coalesce(m.allocationPercent, 100.0) AS allocationPercent,
       a.startDate AS startDate,
       a.endDate AS endDate,
       coalesce(a.weeklyHours, 0.0) AS weeklyHours,
       coalesce(a.hours, 0.0) AS hours
`

const nodeTeamAllocationsCypher = `
MATCH (t:Team)-[a:ALLOCATED_TO]->(n:WorkItem {nodeId: $nodeId})
OPTIONAL MATCH (m:Member)-[mo:MEMBER_OF]->(t)
RETURN t.teamId AS teamId,
       a.startDate AS startDate,
       a.endDate AS endDate,
       coalesce(a.weeklyHours, 0.0) AS weeklyHours,
       coalesce(a.hours, 0.0) AS hours,
       a.memberShares AS memberShares,
       collect({
         memberId: m.memberId,
         name: m.name,
         weeklyCapacity: coalesce(m.weeklyCapacity, 0.0),
         hoursPerDay: coalesce(m.hoursPerDay, 0.0),
         daysPerWeek: coalesce(m.daysPerWeek, 0.0),
         dailyRate: coalesce(m.dailyRate, 0.0),
         membershipPercent: coalesce(mo.allocationPercent, 100.0)
       }) AS members
`
