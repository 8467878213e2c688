package domain

import "time"

// TimeAllocation is a single assignment of a member or team to a work node over
// a date range. Dates are date-only (midnight UTC). WeeklyHours is a per-week
// rate; Hours, when set, is the recorded total for the range.
type TimeAllocation struct {
	EdgeID      string
	MemberID    string
	TeamID      string
	NodeID      string
	NodeTitle   string
	StartDate   time.Time
	EndDate     time.Time
	WeeklyHours float64
	Hours       float64
}

// MemberAllocation is one member's share of a team allocation, used by the cost
// aggregator.
type MemberAllocation struct {
	MemberID    string
	Hours       float64
	HoursPerDay float64
}

// TeamAllocation carries a team's allocation to a work node together with the
// per-member breakdown.
type TeamAllocation struct {
	TeamID  string
	NodeID  string
	Members []MemberAllocation
}

// AllocationSet bundles a node's team allocations with the member records
// needed to cost them.
type AllocationSet struct {
	TeamAllocations []TeamAllocation
	Members         map[string]AvailableMember
}

// AllocationPatch describes an edit to an allocation edge. Nil fields are left
// untouched.
type AllocationPatch struct {
	StartDate   *time.Time
	EndDate     *time.Time
	WeeklyHours *float64
	Hours       *float64
}
