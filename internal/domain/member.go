package domain

import "time"

// TeamMember aggregates the canonical member node data. WeeklyCapacity may be
// zero, in which case it is derived from HoursPerDay and DaysPerWeek.
type TeamMember struct {
	ID                string
	Name              string
	WeeklyCapacity    float64
	HoursPerDay       float64
	DaysPerWeek       float64
	DailyRate         float64
	AllocationPercent float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Team groups members; allocation percentages live on the membership edge.
type Team struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailableMember pairs a member with the precomputed available hours used by
// the cost aggregator when deriving allocation percentages.
type AvailableMember struct {
	ID             string
	Name           string
	HoursPerDay    float64
	DailyRate      float64
	AvailableHours float64
}
