package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dferrand/planweave/internal/domain"
)

func TestComputeWeeklyAvailability_OverAllocation(t *testing.T) {
	buckets := []domain.WeeklyAllocation{
		{WeekID: "2024-14", Hours: 20, NodeID: "NODE-1"},
		{WeekID: "2024-14", Hours: 25, NodeID: "NODE-2"},
	}

	weeks := ComputeWeeklyAvailability(buckets, 40)
	require.Len(t, weeks, 1)

	week := weeks[0]
	assert.Equal(t, "2024-14", week.WeekID)
	assert.Equal(t, 40.0, week.AvailableHours)
	assert.Equal(t, 45.0, week.AllocatedHours)
	assert.True(t, week.OverAllocated)
	assert.Equal(t, 5.0, week.OverAllocatedBy)
	assert.Len(t, week.Allocations, 2)
}

func TestComputeWeeklyAvailability_WithinCapacity(t *testing.T) {
	buckets := []domain.WeeklyAllocation{
		{WeekID: "2024-14", Hours: 16},
		{WeekID: "2024-15", Hours: 40},
	}

	weeks := ComputeWeeklyAvailability(buckets, 40)
	require.Len(t, weeks, 2)

	for _, week := range weeks {
		assert.False(t, week.OverAllocated, "week %s", week.WeekID)
		assert.Equal(t, 0.0, week.OverAllocatedBy)
	}
}

func TestComputeWeeklyAvailability_FirstSeenOrder(t *testing.T) {
	buckets := []domain.WeeklyAllocation{
		{WeekID: "2024-15", Hours: 5},
		{WeekID: "2024-14", Hours: 5},
		{WeekID: "2024-15", Hours: 5},
	}

	weeks := ComputeWeeklyAvailability(buckets, 40)
	require.Len(t, weeks, 2)
	assert.Equal(t, "2024-15", weeks[0].WeekID)
	assert.Equal(t, "2024-14", weeks[1].WeekID)
	assert.Equal(t, 10.0, weeks[0].AllocatedHours)
}

func TestComputeWeeklyAvailability_EmptyInput(t *testing.T) {
	assert.Empty(t, ComputeWeeklyAvailability(nil, 40))
}
