package domain

import "time"

// WeeklyAllocation is the portion of a date-ranged allocation attributable to
// one calendar week. Derived on demand, never persisted.
type WeeklyAllocation struct {
	WeekID    string
	StartDate time.Time
	EndDate   time.Time
	Hours     float64
	NodeID    string
	NodeName  string
}

// WeeklyAvailability reports one member's load for one week.
// OverAllocated holds exactly when AllocatedHours > AvailableHours.
type WeeklyAvailability struct {
	WeekID          string
	AvailableHours  float64
	AllocatedHours  float64
	OverAllocated   bool
	OverAllocatedBy float64
	Allocations     []WeeklyAllocation
}

// CostLine is a single member's contribution to a cost summary.
// AllocationPercent may exceed 100 and is +Inf when the member has no
// available hours; callers report it as-is.
type CostLine struct {
	MemberID          string
	MemberName        string
	Hours             float64
	Days              float64
	Cost              float64
	AllocationPercent float64
}

// CostSummary aggregates allocation cost figures for one work node.
// DailyCost is TotalCost/TotalDays, 0 when TotalDays is 0.
type CostSummary struct {
	DailyCost   float64
	TotalCost   float64
	TotalHours  float64
	TotalDays   float64
	Allocations []CostLine
}

// NodeSummary represents lightweight work item information for list endpoints.
type NodeSummary struct {
	ID             string
	Kind           NodeKind
	Title          string
	DirectEstimate float64
	RollupEstimate float64
	TotalCost      float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MemberSummary represents lightweight member information for list endpoints.
type MemberSummary struct {
	ID             string
	Name           string
	WeeklyCapacity float64
	DailyRate      float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NodeListResult captures paginated work item list results.
type NodeListResult struct {
	Items []NodeSummary
	Total int64
}

// MemberListResult captures paginated member list results.
type MemberListResult struct {
	Items []MemberSummary
	Total int64
}
