package engine

import "github.com/dferrand/planweave/internal/domain"

// ComputeWeeklyAvailability folds weekly buckets into per-week load figures for
// a single member. Buckets sharing a week key are summed; weeks appear in
// first-seen order, so callers wanting chronological output should pre-sort
// their buckets. Capacity is constant across weeks in this model.
func ComputeWeeklyAvailability(allocations []domain.WeeklyAllocation, memberCapacity float64) []domain.WeeklyAvailability {
	if len(allocations) == 0 {
		return nil
	}

	index := make(map[string]int, len(allocations))
	var weeks []domain.WeeklyAvailability

	for _, alloc := range allocations {
		i, seen := index[alloc.WeekID]
		if !seen {
			i = len(weeks)
			index[alloc.WeekID] = i
			weeks = append(weeks, domain.WeeklyAvailability{
				WeekID:         alloc.WeekID,
				AvailableHours: memberCapacity,
			})
		}
		weeks[i].AllocatedHours += alloc.Hours
		weeks[i].Allocations = append(weeks[i].Allocations, alloc)
	}

	for i := range weeks {
		over := weeks[i].AllocatedHours - weeks[i].AvailableHours
		if over > 0 {
			weeks[i].OverAllocated = true
			weeks[i].OverAllocatedBy = over
		}
	}

	return weeks
}
