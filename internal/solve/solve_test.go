package solve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/your_project/vso-roster-solver/internal/candidates"
	"example.com/your_project/vso-roster-solver/internal/hardrules"
	"example.com/your_project/vso-roster-solver/internal/model"
	"example.com/your_project/vso-roster-solver/internal/roster"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// TestRun_AssignsSoleEligibleEmployee exercises the full model-build-solve
// round trip on a single slot with exactly one eligible candidate, the
// simplest case the backend has to get right before any hard rule matters.
func TestRun_AssignsSoleEligibleEmployee(t *testing.T) {
	ctx := &roster.Context{
		PlanningHorizon:     roster.PlanningHorizon{StartDate: date("2026-03-02"), EndDate: date("2026-03-02")},
		TimeLimit:           5 * time.Second,
		FixedRotationOffset: true,
		Employees: []roster.Employee{
			{EmployeeID: "E1", RankID: roster.RankAVSO, Scheme: roster.SchemeA},
		},
	}
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date:   date("2026-03-02"),
		Start:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		RankID: roster.RankAVSO,
	}
	slots := []roster.Slot{slot}

	idx := candidates.Build(slots, ctx.Employees)
	m, vars := model.Build(ctx, idx, slots)
	hardrules.Apply(m, ctx, slots, idx, vars)

	result, err := Run(ctx, m, vars, slots)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, roster.StatusAssigned, result.Assignments[0].Status)
	assert.Equal(t, "E1", result.Assignments[0].EmployeeID)
	assert.Contains(t, []Status{StatusOptimal, StatusFeasible}, result.Status)
}

// TestRun_LeavesSlotUnassignedWithoutCandidates exercises the no-candidate
// path: the structural model still builds and solves, but every slot with
// no surviving candidate var comes back unassigned with an explanatory
// reason rather than a solver error.
func TestRun_LeavesSlotUnassignedWithoutCandidates(t *testing.T) {
	ctx := &roster.Context{
		PlanningHorizon:     roster.PlanningHorizon{StartDate: date("2026-03-02"), EndDate: date("2026-03-02")},
		TimeLimit:           5 * time.Second,
		FixedRotationOffset: true,
		Employees: []roster.Employee{
			{EmployeeID: "E1", Gender: roster.GenderM, Scheme: roster.SchemeA},
		},
	}
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date:              date("2026-03-02"),
		Start:             time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:               time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		GenderRequirement: roster.GenderF, // no eligible female employee exists
		SchemeRequirement: roster.SchemeGlobal,
	}
	slots := []roster.Slot{slot}

	idx := candidates.Build(slots, ctx.Employees)
	m, vars := model.Build(ctx, idx, slots)
	hardrules.Apply(m, ctx, slots, idx, vars)

	result, err := Run(ctx, m, vars, slots)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 1)
	assert.Equal(t, roster.StatusUnassigned, result.Assignments[0].Status)
	assert.NotEmpty(t, result.Assignments[0].Reason)
}

func TestUnassignedFallback_CoversEverySlotWithAReason(t *testing.T) {
	slots := []roster.Slot{
		{SlotID: "S1", Start: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)},
		{SlotID: "S2", Start: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 3, 17, 0, 0, 0, time.UTC)},
	}

	out := unassignedFallback(slots)

	require.Len(t, out, 2)
	for _, a := range out {
		assert.Equal(t, roster.StatusUnassigned, a.Status)
		assert.NotEmpty(t, a.Reason)
	}
}
