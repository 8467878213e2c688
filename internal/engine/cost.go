package engine

import (
	"math"

	"github.com/dferrand/planweave/internal/domain"
)

// ComputeCostSummary combines team allocations with member rate data into
// per-member and total cost figures.
//
// Allocations referencing an unknown member are skipped: a stale member
// reference must not block the rest of the summary. Allocation percentages are
// not clamped; a member with zero available hours reports +Inf, which callers
// surface rather than coerce to zero.
func ComputeCostSummary(teamAllocations []domain.TeamAllocation, members map[string]domain.AvailableMember) domain.CostSummary {
	summary := domain.CostSummary{}

	for _, ta := range teamAllocations {
		for _, ma := range ta.Members {
			member, ok := members[ma.MemberID]
			if !ok {
				continue
			}

			hoursPerDay := member.HoursPerDay
			if hoursPerDay <= 0 {
				hoursPerDay = ma.HoursPerDay
			}
			if hoursPerDay <= 0 {
				hoursPerDay = defaultHoursPerDay
			}

			days := ma.Hours / hoursPerDay
			cost := days * member.DailyRate

			percent := math.Inf(1)
			if member.AvailableHours > 0 {
				percent = (ma.Hours / member.AvailableHours) * 100
			}

			summary.Allocations = append(summary.Allocations, domain.CostLine{
				MemberID:          member.ID,
				MemberName:        member.Name,
				Hours:             ma.Hours,
				Days:              days,
				Cost:              cost,
				AllocationPercent: percent,
			})
			summary.TotalCost += cost
			summary.TotalHours += ma.Hours
			summary.TotalDays += days
		}
	}

	if summary.TotalDays > 0 {
		summary.DailyCost = summary.TotalCost / summary.TotalDays
	}

	return summary
}
