package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dferrand/planweave/internal/domain"
)

func TestComputeCostSummary_Totals(t *testing.T) {
	allocations := []domain.TeamAllocation{
		{
			TeamID: "TEAM-1",
			NodeID: "NODE-1",
			Members: []domain.MemberAllocation{
				{MemberID: "MBR-1", Hours: 40},
				{MemberID: "MBR-2", Hours: 16},
			},
		},
	}
	members := map[string]domain.AvailableMember{
		"MBR-1": {ID: "MBR-1", Name: "Ada", HoursPerDay: 8, DailyRate: 600, AvailableHours: 40},
		"MBR-2": {ID: "MBR-2", Name: "Grace", HoursPerDay: 8, DailyRate: 500, AvailableHours: 40},
	}

	summary := ComputeCostSummary(allocations, members)
	require.Len(t, summary.Allocations, 2)

	// 40h/8 = 5 days at 600, 16h/8 = 2 days at 500.
	assert.Equal(t, 4000.0, summary.TotalCost)
	assert.Equal(t, 56.0, summary.TotalHours)
	assert.Equal(t, 7.0, summary.TotalDays)
	assert.InDelta(t, 4000.0/7.0, summary.DailyCost, 1e-9)

	var lineTotal float64
	for _, line := range summary.Allocations {
		lineTotal += line.Cost
	}
	assert.Equal(t, summary.TotalCost, lineTotal)

	assert.Equal(t, 100.0, summary.Allocations[0].AllocationPercent)
	assert.Equal(t, 40.0, summary.Allocations[1].AllocationPercent)
}

func TestComputeCostSummary_SkipsUnknownMembers(t *testing.T) {
	allocations := []domain.TeamAllocation{
		{
			TeamID: "TEAM-1",
			Members: []domain.MemberAllocation{
				{MemberID: "MBR-1", Hours: 8},
				{MemberID: "MBR-GONE", Hours: 80},
			},
		},
	}
	members := map[string]domain.AvailableMember{
		"MBR-1": {ID: "MBR-1", HoursPerDay: 8, DailyRate: 400, AvailableHours: 40},
	}

	summary := ComputeCostSummary(allocations, members)
	require.Len(t, summary.Allocations, 1)
	assert.Equal(t, 8.0, summary.TotalHours)
	assert.Equal(t, 400.0, summary.TotalCost)
}

func TestComputeCostSummary_ZeroAvailableHoursReportsInfinity(t *testing.T) {
	allocations := []domain.TeamAllocation{
		{Members: []domain.MemberAllocation{{MemberID: "MBR-1", Hours: 8}}},
	}
	members := map[string]domain.AvailableMember{
		"MBR-1": {ID: "MBR-1", HoursPerDay: 8, DailyRate: 400},
	}

	summary := ComputeCostSummary(allocations, members)
	require.Len(t, summary.Allocations, 1)
	assert.True(t, math.IsInf(summary.Allocations[0].AllocationPercent, 1))
}

func TestComputeCostSummary_HoursPerDayFallbackChain(t *testing.T) {
	allocations := []domain.TeamAllocation{
		{Members: []domain.MemberAllocation{{MemberID: "MBR-1", Hours: 12, HoursPerDay: 6}}},
		{Members: []domain.MemberAllocation{{MemberID: "MBR-2", Hours: 16}}},
	}
	members := map[string]domain.AvailableMember{
		"MBR-1": {ID: "MBR-1", DailyRate: 300, AvailableHours: 40}, // falls back to allocation's 6h/day
		"MBR-2": {ID: "MBR-2", DailyRate: 300, AvailableHours: 40}, // falls back to the 8h/day default
	}

	summary := ComputeCostSummary(allocations, members)
	require.Len(t, summary.Allocations, 2)
	assert.Equal(t, 2.0, summary.Allocations[0].Days)
	assert.Equal(t, 2.0, summary.Allocations[1].Days)
}

func TestComputeCostSummary_EmptyInput(t *testing.T) {
	summary := ComputeCostSummary(nil, nil)
	assert.Equal(t, 0.0, summary.DailyCost)
	assert.Equal(t, 0.0, summary.TotalCost)
	assert.Empty(t, summary.Allocations)
}
