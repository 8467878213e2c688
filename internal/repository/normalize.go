package repository

import (
	"encoding/json"
	"fmt"

	"github.com/dferrand/planweave/internal/domain"
)

// normalizeMemberShares decodes a legacy per-member breakdown stored on a team
// allocation edge. Historical data carries the field as either a list of maps
// or a JSON-encoded string; both collapse to one typed shape here so nothing
// loosely typed ever reaches the engine. A nil or empty value is fine; any
// other shape is an error, not a silent drop.
func normalizeMemberShares(raw any) ([]domain.MemberAllocation, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return sharesFromList(v)
	case string:
		if v == "" {
			return nil, nil
		}
		var decoded []map[string]any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil, fmt.Errorf("decode member shares: %w", err)
		}
		list := make([]any, len(decoded))
		for i, entry := range decoded {
			list[i] = entry
		}
		return sharesFromList(list)
	default:
		return nil, fmt.Errorf("unsupported member shares type %T", raw)
	}
}

func sharesFromList(entries []any) ([]domain.MemberAllocation, error) {
	var shares []domain.MemberAllocation
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unsupported member share entry type %T", entry)
		}
		id := toString(fields["memberId"])
		if id == "" {
			continue
		}
		shares = append(shares, domain.MemberAllocation{
			MemberID:    id,
			Hours:       toFloat64(fields["hours"]),
			HoursPerDay: toFloat64(fields["hoursPerDay"]),
		})
	}
	return shares, nil
}
