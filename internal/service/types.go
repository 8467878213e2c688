package service

import "time"

// NodeInput is the inbound payload for creating or updating a work item.
type NodeInput struct {
	ID                 string
	Kind               string
	Title              string
	DirectEstimate     float64
	ParentID           string
	RollupContribution *bool
	CreatedAt          *time.Time
	UpdatedAt          *time.Time
}

// MemberInput is the inbound payload for creating or updating a team member.
type MemberInput struct {
	ID                string
	Name              string
	WeeklyCapacity    float64
	HoursPerDay       float64
	DaysPerWeek       float64
	DailyRate         float64
	AllocationPercent float64
	CreatedAt         *time.Time
	UpdatedAt         *time.Time
}

// TeamMemberInput links a member into a team with a percentage allocation.
type TeamMemberInput struct {
	MemberID          string
	AllocationPercent float64
}

// TeamInput is the inbound payload for creating or updating a team.
type TeamInput struct {
	ID      string
	Name    string
	Members []TeamMemberInput
}

// AllocationInput assigns a member or a team (exactly one of the two) to a
// work node over a date range. Dates are ISO-8601 date strings.
type AllocationInput struct {
	EdgeID      string
	MemberID    string
	TeamID      string
	NodeID      string
	StartDate   string
	EndDate     string
	WeeklyHours float64
	Hours       float64
}

// AllocationPatchInput carries a partial edit to an allocation edge. Nil
// fields are left untouched.
type AllocationPatchInput struct {
	StartDate   *string
	EndDate     *string
	WeeklyHours *float64
	Hours       *float64
}

// AvailabilityWindow optionally restricts an availability query to a date
// range. Empty strings mean unbounded.
type AvailabilityWindow struct {
	StartDate string
	EndDate   string
}
