package engine

import "github.com/dferrand/planweave/internal/domain"

// BucketizeAllocation splits a date-ranged allocation into week-aligned
// buckets, one per ISO week intersecting [StartDate, EndDate].
//
// WeeklyHours is a per-week rate: an allocation covering whole weeks yields
// WeeklyHours per week, and a range fitting inside a single week yields exactly
// WeeklyHours. Partial weeks of a longer range receive a day-proportional
// share.
//
// A zero start or end date is reported as a DateParseError; a start after the
// end as ErrInvalidDateRange. No side effects; safe for concurrent callers.
func BucketizeAllocation(alloc domain.TimeAllocation, nodeID, nodeName string) ([]domain.WeeklyAllocation, error) {
	if alloc.StartDate.IsZero() || alloc.EndDate.IsZero() {
		return nil, &DateParseError{Value: "", Err: errMissingDate}
	}

	start := truncateDate(alloc.StartDate)
	end := truncateDate(alloc.EndDate)
	if start.After(end) {
		return nil, ErrInvalidDateRange
	}

	totalDays := DaysBetween(start, end) + 1
	divisor := totalDays
	if divisor > 7 {
		divisor = 7
	}
	if divisor < 1 {
		divisor = 1
	}

	var buckets []domain.WeeklyAllocation
	for ws := weekStart(start); !ws.After(end); ws = ws.AddDate(0, 0, 7) {
		we := ws.AddDate(0, 0, 6)
		effectiveStart := maxTime(ws, start)
		effectiveEnd := minTime(we, end)

		daysInWeek := DaysBetween(effectiveStart, effectiveEnd) + 1
		if daysInWeek < 1 {
			daysInWeek = 1
		}
		proportion := float64(daysInWeek) / float64(divisor)

		buckets = append(buckets, domain.WeeklyAllocation{
			WeekID:    weekID(ws),
			StartDate: effectiveStart,
			EndDate:   effectiveEnd,
			Hours:     alloc.WeeklyHours * proportion,
			NodeID:    nodeID,
			NodeName:  nodeName,
		})
	}

	return buckets, nil
}
