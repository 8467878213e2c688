package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dferrand/planweave/internal/domain"
)

func TestComputeEffectiveCapacity_FullAllocation(t *testing.T) {
	assert.Equal(t, 40.0, ComputeEffectiveCapacity(40, 100, 5, 5))
}

func TestComputeEffectiveCapacity_PartialAllocation(t *testing.T) {
	// 40h/week over 5 work days is 8h/day; 50% for 10 days is 40h.
	assert.Equal(t, 40.0, ComputeEffectiveCapacity(40, 50, 10, 5))
}

func TestComputeEffectiveCapacity_OverHundredPercentScales(t *testing.T) {
	// Over-allocation is a downstream signal, not an input error.
	assert.Equal(t, 60.0, ComputeEffectiveCapacity(40, 150, 5, 5))
}

func TestComputeEffectiveCapacity_DegenerateInputsYieldZero(t *testing.T) {
	assert.Equal(t, 0.0, ComputeEffectiveCapacity(0, 100, 5, 5))
	assert.Equal(t, 0.0, ComputeEffectiveCapacity(40, 100, 0, 5))
	assert.Equal(t, 0.0, ComputeEffectiveCapacity(40, 0, 5, 5))
}

func TestComputeEffectiveCapacity_Monotonic(t *testing.T) {
	base := ComputeEffectiveCapacity(40, 50, 5, 5)
	assert.GreaterOrEqual(t, ComputeEffectiveCapacity(45, 50, 5, 5), base)
	assert.GreaterOrEqual(t, ComputeEffectiveCapacity(40, 60, 5, 5), base)
	assert.GreaterOrEqual(t, ComputeEffectiveCapacity(40, 50, 6, 5), base)
}

func TestMemberWeeklyCapacity_ExplicitValueWins(t *testing.T) {
	m := domain.TeamMember{WeeklyCapacity: 32, HoursPerDay: 8, DaysPerWeek: 5}
	assert.Equal(t, 32.0, MemberWeeklyCapacity(m))
}

func TestMemberWeeklyCapacity_DerivedFromDailyFigures(t *testing.T) {
	m := domain.TeamMember{HoursPerDay: 6, DaysPerWeek: 4}
	assert.Equal(t, 24.0, MemberWeeklyCapacity(m))
}

func TestMemberWeeklyCapacity_Defaults(t *testing.T) {
	assert.Equal(t, 40.0, MemberWeeklyCapacity(domain.TeamMember{}))
}
