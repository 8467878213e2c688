package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dferrand/planweave/internal/domain"
	"github.com/dferrand/planweave/internal/graph"
)

// ListNodesOptions defines filters and pagination for work item listing.
type ListNodesOptions struct {
	Offset    int
	Limit     int
	Kind      string
	Search    string
	SortField string
	SortOrder string
}

// ListMembersOptions defines filters and pagination for member listing.
type ListMembersOptions struct {
	Offset    int
	Limit     int
	Search    string
	SortField string
	SortOrder string
}

// Repository encapsulates graph persistence for the planning model.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// UpsertWorkNode ensures a work item node exists with the latest properties.
func (r *Repository) UpsertWorkNode(ctx context.Context, node domain.WorkNode) error {
	if node.ID == "" {
		return errors.New("node id is required")
	}
	if !domain.ValidKind(node.Kind) {
		return fmt.Errorf("unknown node kind %q", node.Kind)
	}

	params := map[string]any{
		"nodeId": node.ID,
		"props": map[string]any{
			"kind":           string(node.Kind),
			"title":          node.Title,
			"directEstimate": node.DirectEstimate,
			"updatedAt":      formatTime(node.UpdatedAt),
		},
	}
	if !node.CreatedAt.IsZero() {
		params["props"].(map[string]any)["createdAt"] = formatTime(node.CreatedAt)
	}

	_, err := r.client.ExecuteWrite(ctx, upsertWorkNodeCypher, params)
	if err != nil {
		return fmt.Errorf("upsert work node %s: %w", node.ID, err)
	}
	return nil
}

// UpsertMember ensures a member node exists with the latest properties.
func (r *Repository) UpsertMember(ctx context.Context, member domain.TeamMember) error {
	if member.ID == "" {
		return errors.New("member id is required")
	}

	props := map[string]any{
		"name":              member.Name,
		"weeklyCapacity":    member.WeeklyCapacity,
		"hoursPerDay":       member.HoursPerDay,
		"daysPerWeek":       member.DaysPerWeek,
		"dailyRate":         member.DailyRate,
		"allocationPercent": member.AllocationPercent,
		"updatedAt":         formatTime(member.UpdatedAt),
	}
	if !member.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(member.CreatedAt)
	}

	_, err := r.client.ExecuteWrite(ctx, upsertMemberCypher, map[string]any{
		"memberId": member.ID,
		"props":    props,
	})
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", member.ID, err)
	}
	return nil
}

// UpsertTeam ensures a team node exists.
func (r *Repository) UpsertTeam(ctx context.Context, team domain.Team) error {
	if team.ID == "" {
		return errors.New("team id is required")
	}

	props := map[string]any{
		"name":      team.Name,
		"updatedAt": formatTime(team.UpdatedAt),
	}
	if !team.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(team.CreatedAt)
	}

	_, err := r.client.ExecuteWrite(ctx, upsertTeamCypher, map[string]any{
		"teamId": team.ID,
		"props":  props,
	})
	if err != nil {
		return fmt.Errorf("upsert team %s: %w", team.ID, err)
	}
	return nil
}

// AddTeamMember links a member to a team with the member's percentage
// allocation to that team.
func (r *Repository) AddTeamMember(ctx context.Context, memberID, teamID string, allocationPercent float64) error {
	if memberID == "" || teamID == "" {
		return errors.New("member and team ids are required")
	}

	_, err := r.client.ExecuteWrite(ctx, addTeamMemberCypher, map[string]any{
		"memberId":          memberID,
		"teamId":            teamID,
		"allocationPercent": allocationPercent,
	})
	if err != nil {
		return fmt.Errorf("add member %s to team %s: %w", memberID, teamID, err)
	}
	return nil
}

// LinkChild attaches child to parent with a contribution flag. A node has at
// most one parent, so any existing CHILD_OF edge is replaced.
func (r *Repository) LinkChild(ctx context.Context, childID, parentID string, rollupContribution bool) error {
	if childID == "" || parentID == "" {
		return errors.New("child and parent ids are required")
	}

	res, err := r.client.ExecuteWrite(ctx, linkChildCypher, map[string]any{
		"childId":            childID,
		"parentId":           parentID,
		"rollupContribution": rollupContribution,
	})
	if err != nil {
		return fmt.Errorf("link child %s to %s: %w", childID, parentID, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("link child %s to %s: %w", childID, parentID, domain.ErrNotFound)
	}
	return nil
}

// RemoveChild detaches a node from its parent, returning the former parent so
// the caller can re-propagate its rollup.
func (r *Repository) RemoveChild(ctx context.Context, childID string) (*domain.ParentRef, error) {
	res, err := r.client.ExecuteWrite(ctx, removeChildCypher, map[string]any{
		"childId": childID,
	})
	if err != nil {
		return nil, fmt.Errorf("remove child %s: %w", childID, err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	record := res.Records[0]
	return &domain.ParentRef{
		ID:   toString(record["parentId"]),
		Kind: domain.NodeKind(toString(record["parentKind"])),
	}, nil
}

// GetNode fetches a single work item by id. Kind, when non-empty, must match.
func (r *Repository) GetNode(ctx context.Context, kind domain.NodeKind, id string) (domain.WorkNode, error) {
	res, err := r.client.ExecuteRead(ctx, getNodeCypher, map[string]any{
		"nodeId": id,
		"kind":   string(kind),
	})
	if err != nil {
		return domain.WorkNode{}, fmt.Errorf("get node %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.WorkNode{}, fmt.Errorf("get node %s: %w", id, domain.ErrNotFound)
	}
	return nodeFromRecord(res.Records[0]), nil
}

// GetParent returns the node's parent reference, or nil at the root.
func (r *Repository) GetParent(ctx context.Context, nodeID string) (*domain.ParentRef, error) {
	res, err := r.client.ExecuteRead(ctx, getParentCypher, map[string]any{
		"nodeId": nodeID,
	})
	if err != nil {
		return nil, fmt.Errorf("get parent of %s: %w", nodeID, err)
	}
	if len(res.Records) == 0 {
		return nil, nil
	}
	record := res.Records[0]
	return &domain.ParentRef{
		ID:   toString(record["parentId"]),
		Kind: domain.NodeKind(toString(record["parentKind"])),
	}, nil
}

// GetChildren lists the direct children of a parent together with their
// contribution flags.
func (r *Repository) GetChildren(ctx context.Context, parentKind domain.NodeKind, parentID string) ([]domain.ChildSummary, error) {
	res, err := r.client.ExecuteRead(ctx, getChildrenCypher, map[string]any{
		"parentId": parentID,
		"kind":     string(parentKind),
	})
	if err != nil {
		return nil, fmt.Errorf("get children of %s: %w", parentID, err)
	}

	children := make([]domain.ChildSummary, 0, len(res.Records))
	for _, record := range res.Records {
		children = append(children, domain.ChildSummary{
			ID:                 toString(record["nodeId"]),
			Title:              toString(record["title"]),
			DirectEstimate:     toFloat64(record["directEstimate"]),
			RollupEstimate:     toFloat64(record["rollupEstimate"]),
			RollupContribution: toBool(record["rollupContribution"], true),
		})
	}
	return children, nil
}

// UpdateNodeRollup writes the derived rollup fields back to a node.
func (r *Repository) UpdateNodeRollup(ctx context.Context, kind domain.NodeKind, id string, patch domain.RollupPatch) error {
	res, err := r.client.ExecuteWrite(ctx, updateNodeRollupCypher, map[string]any{
		"nodeId":         id,
		"kind":           string(kind),
		"rollupEstimate": patch.RollupEstimate,
		"totalCost":      patch.TotalCost,
		"totalHours":     patch.TotalHours,
		"updatedAt":      formatTime(patch.UpdatedAt),
	})
	if err != nil {
		return fmt.Errorf("update rollup of %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("update rollup of %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetMember fetches a single member by id.
func (r *Repository) GetMember(ctx context.Context, memberID string) (domain.TeamMember, error) {
	res, err := r.client.ExecuteRead(ctx, getMemberCypher, map[string]any{
		"memberId": memberID,
	})
	if err != nil {
		return domain.TeamMember{}, fmt.Errorf("get member %s: %w", memberID, err)
	}
	if len(res.Records) == 0 {
		return domain.TeamMember{}, fmt.Errorf("get member %s: %w", memberID, domain.ErrNotFound)
	}
	return memberFromRecord(res.Records[0]), nil
}

// ListWorkNodes returns paginated work items matching provided filters.
func (r *Repository) ListWorkNodes(ctx context.Context, opts ListNodesOptions) (domain.NodeListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := map[string]any{
		"kind":   strings.ToUpper(strings.TrimSpace(opts.Kind)),
		"search": strings.ToLower(strings.TrimSpace(opts.Search)),
		"skip":   offset,
		"limit":  limit,
	}

	query := fmt.Sprintf(listNodesCypherTemplate, nodeFilterClause, nodeOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.NodeListResult{}, fmt.Errorf("list nodes query: %w", err)
	}

	var nodes []domain.NodeSummary
	for _, record := range res.Records {
		item := domain.NodeSummary{
			ID:             toString(record["nodeId"]),
			Kind:           domain.NodeKind(toString(record["kind"])),
			Title:          toString(record["title"]),
			DirectEstimate: toFloat64(record["directEstimate"]),
			RollupEstimate: toFloat64(record["rollupEstimate"]),
			TotalCost:      toFloat64(record["totalCost"]),
		}
		if created := toTimePtr(record["createdAt"]); created != nil {
			item.CreatedAt = *created
		}
		if updated := toTimePtr(record["updatedAt"]); updated != nil {
			item.UpdatedAt = *updated
		}
		nodes = append(nodes, item)
	}

	countQuery := fmt.Sprintf(countNodesCypherTemplate, nodeFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return domain.NodeListResult{}, fmt.Errorf("count nodes query: %w", err)
	}

	return domain.NodeListResult{
		Items: nodes,
		Total: totalFromRecords(countRes.Records),
	}, nil
}

// ListMembers returns paginated members matching provided filters.
func (r *Repository) ListMembers(ctx context.Context, opts ListMembersOptions) (domain.MemberListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := map[string]any{
		"search": strings.ToLower(strings.TrimSpace(opts.Search)),
		"skip":   offset,
		"limit":  limit,
	}

	query := fmt.Sprintf(listMembersCypherTemplate, memberFilterClause, memberOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.MemberListResult{}, fmt.Errorf("list members query: %w", err)
	}

	var members []domain.MemberSummary
	for _, record := range res.Records {
		item := domain.MemberSummary{
			ID:             toString(record["memberId"]),
			Name:           toString(record["name"]),
			WeeklyCapacity: toFloat64(record["weeklyCapacity"]),
			DailyRate:      toFloat64(record["dailyRate"]),
		}
		if created := toTimePtr(record["createdAt"]); created != nil {
			item.CreatedAt = *created
		}
		if updated := toTimePtr(record["updatedAt"]); updated != nil {
			item.UpdatedAt = *updated
		}
		members = append(members, item)
	}

	countQuery := fmt.Sprintf(countMembersCypherTemplate, memberFilterClause)
	countRes, err := r.client.ExecuteRead(ctx, countQuery, params)
	if err != nil {
		return domain.MemberListResult{}, fmt.Errorf("count members query: %w", err)
	}

	return domain.MemberListResult{
		Items: members,
		Total: totalFromRecords(countRes.Records),
	}, nil
}

func nodeFromRecord(record graph.Record) domain.WorkNode {
	node := domain.WorkNode{
		ID:             toString(record["nodeId"]),
		Kind:           domain.NodeKind(toString(record["kind"])),
		Title:          toString(record["title"]),
		DirectEstimate: toFloat64(record["directEstimate"]),
		RollupEstimate: toFloat64(record["rollupEstimate"]),
		TotalCost:      toFloat64(record["totalCost"]),
		TotalHours:     toFloat64(record["totalHours"]),
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		node.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		node.UpdatedAt = *updated
	}
	return node
}

func memberFromRecord(record graph.Record) domain.TeamMember {
	member := domain.TeamMember{
		ID:                toString(record["memberId"]),
		Name:              toString(record["name"]),
		WeeklyCapacity:    toFloat64(record["weeklyCapacity"]),
		HoursPerDay:       toFloat64(record["hoursPerDay"]),
		DaysPerWeek:       toFloat64(record["daysPerWeek"]),
		DailyRate:         toFloat64(record["dailyRate"]),
		AllocationPercent: toFloat64(record["allocationPercent"]),
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		member.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		member.UpdatedAt = *updated
	}
	return member
}

func totalFromRecords(records []graph.Record) int64 {
	if len(records) == 0 {
		return 0
	}
	switch v := records[0]["total"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

const upsertWorkNodeCypher = `
MERGE (n:WorkItem {nodeId: $nodeId})
SET n += $props
RETURN n.nodeId AS nodeId
`

const upsertMemberCypher = `
MERGE (m:Member {memberId: $memberId})
SET m += $props
RETURN m.memberId AS memberId
`

const upsertTeamCypher = `
MERGE (t:Team {teamId: $teamId})
SET t += $props
RETURN t.teamId AS teamId
`

const addTeamMemberCypher = `
MATCH (m:Member {memberId: $memberId})
MATCH (t:Team {teamId: $teamId})
MERGE (m)-[mo:MEMBER_OF]->(t)
SET mo.allocationPercent = $allocationPercent
RETURN m.memberId AS memberId
`

const linkChildCypher = `
MATCH (c:WorkItem {nodeId: $childId})
MATCH (p:WorkItem {nodeId: $parentId})
OPTIONAL MATCH (c)-[old:CHILD_OF]->(:WorkItem)
DELETE old
MERGE (c)-[r:CHILD_OF]->(p)
SET r.rollupContribution = $rollupContribution
RETURN c.nodeId AS nodeId
`

const removeChildCypher = `
MATCH (c:WorkItem {nodeId: $childId})-[r:CHILD_OF]->(p:WorkItem)
DELETE r
RETURN p.nodeId AS parentId, p.kind AS parentKind
`

const getNodeCypher = `
MATCH (n:WorkItem {nodeId: $nodeId})
WHERE $kind = "" OR n.kind = $kind
RETURN n.nodeId AS nodeId,
       n.kind AS kind,
       n.title AS title,
       coalesce(n.directEstimate, 0.0) AS directEstimate,
       coalesce(n.rollupEstimate, 0.0) AS rollupEstimate,
       coalesce(n.totalCost, 0.0) AS totalCost,
       coalesce(n.totalHours, 0.0) AS totalHours,
       n.createdAt AS createdAt,
       n.updatedAt AS updatedAt
`

const getParentCypher = `
MATCH (n:WorkItem {nodeId: $nodeId})-[:CHILD_OF]->(p:WorkItem)
RETURN p.nodeId AS parentId, p.kind AS parentKind
LIMIT 1
`

const getChildrenCypher = `
MATCH (c:WorkItem)-[r:CHILD_OF]->(p:WorkItem {nodeId: $parentId})
WHERE $kind = "" OR p.kind = $kind
RETURN c.nodeId AS nodeId,
       c.title AS title,
       coalesce(c.directEstimate, 0.0) AS directEstimate,
       coalesce(c.rollupEstimate, 0.0) AS rollupEstimate,
       coalesce(r.rollupContribution, true) AS rollupContribution
`

const updateNodeRollupCypher = `
MATCH (n:WorkItem {nodeId: $nodeId})
WHERE $kind = "" OR n.kind = $kind
SET n.rollupEstimate = $rollupEstimate,
    n.totalCost = $totalCost,
    n.totalHours = $totalHours,
    n.updatedAt = $updatedAt
RETURN n.nodeId AS nodeId
`

const getMemberCypher = `
MATCH (m:Member {memberId: $memberId})
RETURN m.memberId AS memberId,
       m.name AS name,
       coalesce(m.weeklyCapacity, 0.0) AS weeklyCapacity,
       coalesce(m.hoursPerDay, 0.0) AS hoursPerDay,
       coalesce(m.daysPerWeek, 0.0) AS daysPerWeek,
       coalesce(m.dailyRate, 0.0) AS dailyRate,
       coalesce(m.allocationPercent, 100.0) AS allocationPercent,
       m.createdAt AS createdAt,
       m.updatedAt AS updatedAt
`

const listNodesCypherTemplate = `
MATCH (n:WorkItem)
%s
RETURN n.nodeId AS nodeId,
       n.kind AS kind,
       n.title AS title,
       coalesce(n.directEstimate, 0.0) AS directEstimate,
       coalesce(n.rollupEstimate, 0.0) AS rollupEstimate,
       coalesce(n.totalCost, 0.0) AS totalCost,
       n.createdAt AS createdAt,
       n.updatedAt AS updatedAt
ORDER BY %s
SKIP $skip LIMIT $limit
`

const countNodesCypherTemplate = `
MATCH (n:WorkItem)
%s
RETURN count(n) AS total
`

const listMembersCypherTemplate = `
MATCH (m:Member)
%s
RETURN m.memberId AS memberId,
       m.name AS name,
       coalesce(m.weeklyCapacity, 0.0) AS weeklyCapacity,
       coalesce(m.dailyRate, 0.0) AS dailyRate,
       m.createdAt AS createdAt,
       m.updatedAt AS updatedAt
ORDER BY %s
SKIP $skip LIMIT $limit
`

const countMembersCypherTemplate = `
MATCH (m:Member)
%s
RETURN count(m) AS total
`

const nodeFilterClause = `
WHERE ($kind = "" OR n.kind = $kind)
  AND ($search = "" OR toLower(n.title) CONTAINS $search OR toLower(n.nodeId) CONTAINS $search)
`

const memberFilterClause = `
WHERE ($search = "" OR toLower(m.name) CONTAINS $search OR toLower(m.memberId) CONTAINS $search)
`

func nodeOrderClause(field, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "DESC") {
		dir = "DESC"
	}
	switch strings.ToLower(field) {
	case "title":
		return fmt.Sprintf("toLower(n.title) %s", dir)
	case "rollupestimate":
		return fmt.Sprintf("coalesce(n.rollupEstimate, 0.0) %s", dir)
	case "totalcost":
		return fmt.Sprintf("coalesce(n.totalCost, 0.0) %s", dir)
	case "updatedat":
		return fmt.Sprintf("datetime(n.updatedAt) %s", dir)
	default:
		return fmt.Sprintf("n.nodeId %s", dir)
	}
}

func memberOrderClause(field, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "DESC") {
		dir = "DESC"
	}
	switch strings.ToLower(field) {
	case "name":
		return fmt.Sprintf("toLower(m.name) %s", dir)
	case "dailyrate":
		return fmt.Sprintf("coalesce(m.dailyRate, 0.0) %s", dir)
	case "updatedat":
		return fmt.Sprintf("datetime(m.updatedAt) %s", dir)
	default:
		return fmt.Sprintf("m.memberId %s", dir)
	}
}
