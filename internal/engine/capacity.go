package engine

import "github.com/dferrand/planweave/internal/domain"

const (
	defaultHoursPerDay = 8.0
	defaultDaysPerWeek = 5.0
)

// ComputeEffectiveCapacity converts a member's nominal weekly capacity, their
// percentage allocation and a duration into available hours.
//
// Allocation percentages above 100 are accepted and scale proportionally:
// over-allocation is a signal surfaced downstream, not an input error.
// Degenerate inputs (zero capacity, zero duration) yield zero.
func ComputeEffectiveCapacity(weeklyCapacityHours, allocationPercent, durationDays, workDaysPerWeek float64) float64 {
	if workDaysPerWeek <= 0 {
		workDaysPerWeek = defaultDaysPerWeek
	}
	dailyCapacity := weeklyCapacityHours / workDaysPerWeek
	effectiveDaily := dailyCapacity * (allocationPercent / 100)
	return effectiveDaily * durationDays
}

// MemberWeeklyCapacity resolves a member's weekly capacity, deriving it from
// hours/day and days/week when no explicit value is set.
func MemberWeeklyCapacity(m domain.TeamMember) float64 {
	if m.WeeklyCapacity > 0 {
		return m.WeeklyCapacity
	}
	hoursPerDay := m.HoursPerDay
	if hoursPerDay <= 0 {
		hoursPerDay = defaultHoursPerDay
	}
	daysPerWeek := m.DaysPerWeek
	if daysPerWeek <= 0 {
		daysPerWeek = defaultDaysPerWeek
	}
	return hoursPerDay * daysPerWeek
}
