package hardrules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nextmv-io/sdk/mip"

	"example.com/your_project/vso-roster-solver/internal/candidates"
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

// buildAndSolve runs the full model+hard-rule+solve pipeline over a small
// fixture, the same sequence cmd/roster-solver/main.go wires in production.
func buildAndSolve(t *testing.T, ctx *roster.Context, slots []roster.Slot) (mip.Solution, *model.Variables) {
	t.Helper()
	idx := candidates.Build(slots, ctx.Employees)
	m, vars := model.Build(ctx, idx, slots)
	Apply(m, ctx, slots, idx, vars)

	solver, err := mip.NewSolver(mip.Highs, m)
	require.NoError(t, err)

	var opts mip.SolveOptions
	opts.Limits.Duration = 5 * time.Second
	solution, err := solver.Solve(opts)
	require.NoError(t, err)
	return solution, vars
}

// TestApply_RankMismatchForcesUnassigned exercises C11: a single employee
// whose rank doesn't match the slot's required rank must leave the slot
// unassigned, even though the candidate filter (gender/scheme/blacklist/
// whitelist only) would have let the pair through.
func TestApply_RankMismatchForcesUnassigned(t *testing.T) {
	ctx := &roster.Context{
		PlanningHorizon: roster.PlanningHorizon{StartDate: date("2026-03-02"), EndDate: date("2026-03-02")},
		Employees: []roster.Employee{
			{EmployeeID: "E1", RankID: roster.RankCVSO, Scheme: roster.SchemeA},
		},
		FixedRotationOffset: true,
	}
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date:   date("2026-03-02"),
		Start:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		RankID: roster.RankAVSO, // mismatches the only employee's CVSO rank
	}

	solution, vars := buildAndSolve(t, ctx, []roster.Slot{slot})

	assert.GreaterOrEqual(t, solution.Value(vars.Unassigned["S1"]), 0.9)
}

// TestApply_DailyCapForcesUnassignedForSchemeP exercises C1: a scheme-P
// employee cannot be assigned an 11-hour shift, which exceeds their 9-hour
// daily cap, even as the sole candidate for that slot.
func TestApply_DailyCapForcesUnassignedForSchemeP(t *testing.T) {
	ctx := &roster.Context{
		PlanningHorizon: roster.PlanningHorizon{StartDate: date("2026-03-02"), EndDate: date("2026-03-02")},
		Employees: []roster.Employee{
			{EmployeeID: "E1", RankID: roster.RankAVSO, Scheme: roster.SchemeP},
		},
		FixedRotationOffset: true,
	}
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date:   date("2026-03-02"),
		Start:  time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
		End:    time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC), // 11h gross
		RankID: roster.RankAVSO,
	}

	solution, vars := buildAndSolve(t, ctx, []roster.Slot{slot})

	assert.GreaterOrEqual(t, solution.Value(vars.Unassigned["S1"]), 0.9)
}

// TestApply_RotationODayForcesUnassignedUnderFixedOffset exercises the
// hard rotation-pattern rule documented alongside the hard constraint pack:
// a fixed-offset employee landing on an "O" cycle day cannot be assigned
// even though every other hard rule would allow it.
func TestApply_RotationODayForcesUnassignedUnderFixedOffset(t *testing.T) {
	ctx := &roster.Context{
		PlanningHorizon: roster.PlanningHorizon{StartDate: date("2025-12-05"), EndDate: date("2025-12-05")},
		Employees: []roster.Employee{
			{EmployeeID: "E1", RankID: roster.RankAVSO, Scheme: roster.SchemeA, RotationOffset: 0},
		},
		FixedRotationOffset: true,
	}
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date:             date("2025-12-05"), // cycle day (4-0)%6=4 -> "O" per the rotation sequence below
		Start:            time.Date(2025, 12, 5, 9, 0, 0, 0, time.UTC),
		End:              time.Date(2025, 12, 5, 17, 0, 0, 0, time.UTC),
		RankID:           roster.RankAVSO,
		ShiftCode:        "D",
		RotationSequence: []string{"D", "D", "N", "N", "O", "O"},
		CoverageAnchor:   date("2025-12-01"),
	}

	solution, vars := buildAndSolve(t, ctx, []roster.Slot{slot})

	assert.GreaterOrEqual(t, solution.Value(vars.Unassigned["S1"]), 0.9)
}

func TestEffectiveExpiry_PrefersLaterTemporaryApproval(t *testing.T) {
	expiry := date("2026-01-01")
	later := date("2026-06-01")
	lic := roster.License{ExpiryDate: expiry, TemporaryApprovalExpiry: &later}

	assert.Equal(t, later, effectiveExpiry(lic))
}

func TestEffectiveExpiry_IgnoresEarlierTemporaryApproval(t *testing.T) {
	expiry := date("2026-06-01")
	earlier := date("2026-01-01")
	lic := roster.License{ExpiryDate: expiry, TemporaryApprovalExpiry: &earlier}

	assert.Equal(t, expiry, effectiveExpiry(lic))
}

func TestLicenseByCode_FindsHeldLicense(t *testing.T) {
	emp := roster.Employee{Licenses: []roster.License{
		{Code: "FIREARM", ExpiryDate: date("2027-01-01")},
	}}

	lic, ok := licenseByCode(emp, "FIREARM")
	require.True(t, ok)
	assert.Equal(t, "FIREARM", lic.Code)

	_, ok = licenseByCode(emp, "MISSING")
	assert.False(t, ok)
}
