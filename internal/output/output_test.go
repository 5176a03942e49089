package output

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/your_project/vso-roster-solver/internal/roster"
	"example.com/your_project/vso-roster-solver/internal/softrules"
	"example.com/your_project/vso-roster-solver/internal/solve"
	"example.com/your_project/vso-roster-solver/internal/validate"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuild_CleanRunReportsOptimalAndZeroScore(t *testing.T) {
	slot := roster.Slot{
		SlotID: "S1", DemandID: "D1", RequirementID: "R1",
		Date: date("2026-03-02"), ShiftCode: "AM",
		Start: date("2026-03-02"), End: date("2026-03-02").Add(8 * time.Hour),
	}
	result := solve.Result{
		Status: solve.StatusOptimal,
		Assignments: []roster.Assignment{
			{AssignmentID: "S1-A", Slot: slot, EmployeeID: "E1", Status: roster.StatusAssigned},
		},
	}
	report := validate.Report{}

	doc := Build(&roster.Context{}, result, report, Params{
		RunID: "run-1", PlanningReference: "REF-1", InputHash: "abc123",
		StartedAt: date("2026-03-02"), Ended: date("2026-03-02").Add(2 * time.Second),
	})

	assert.Equal(t, "0.4", doc.SchemaVersion)
	assert.Equal(t, "OPTIMAL", doc.SolverRun.Status)
	assert.Zero(t, doc.Score.Overall)
	assert.Len(t, doc.Assignments, 1)
	assert.Equal(t, "E1", *doc.Assignments[0].EmployeeID)
	assert.Empty(t, doc.Meta.Warnings)
}

func TestBuild_UnassignedSlotForcesInfeasibleStatus(t *testing.T) {
	slot := roster.Slot{SlotID: "S1", DemandID: "D1", RequirementID: "R1", Date: date("2026-03-02")}
	result := solve.Result{
		Status: solve.StatusOptimal,
		Assignments: []roster.Assignment{
			{AssignmentID: "S1-A", Slot: slot, Status: roster.StatusUnassigned, Reason: "no eligible candidate"},
		},
	}
	report := validate.Report{
		UnassignedSlots: []validate.UnassignedSlotRecord{
			{SlotID: "S1", DemandID: "D1", RequirementID: "R1", Reason: "no eligible candidate"},
		},
	}

	doc := Build(&roster.Context{}, result, report, Params{RunID: "run-1"})

	assert.Equal(t, "INFEASIBLE", doc.SolverRun.Status)
	assert.Equal(t, 1, doc.ScoreBreakdown.UnassignedSlots.Count)
	assert.Equal(t, 1, doc.ScoreBreakdown.UnassignedSlots.Total)
	assert.InDelta(t, 100.0, doc.ScoreBreakdown.UnassignedSlots.Percentage, 0.001)
}

func TestBuild_PropagatesHardAndSoftViolationDetail(t *testing.T) {
	result := solve.Result{Status: solve.StatusOptimal}
	report := validate.Report{
		HardCount:      1,
		HardViolations: []validate.HardViolation{{RuleID: "C1", EmployeeID: "E1", Note: "exceeds daily cap"}},
		SoftScoreBook: softrules.ScoreBook{
			TotalPenalty: 2.5,
			Violations:   []softrules.Violation{{RuleID: "S13", Weight: 2.5, Note: "assigned during unavailability"}},
		},
	}

	doc := Build(&roster.Context{}, result, report, Params{RunID: "run-1"})

	require.Len(t, doc.ScoreBreakdown.Hard.Violations, 1)
	assert.Equal(t, "C1", doc.ScoreBreakdown.Hard.Violations[0].ID)
	require.Len(t, doc.ScoreBreakdown.Soft.Details, 1)
	assert.Equal(t, "S13", doc.ScoreBreakdown.Soft.Details[0].RuleID)
	assert.Equal(t, float64(1_000_000)+2.5, doc.Score.Overall)
}

func TestBuild_NilWarningsBecomeEmptySlice(t *testing.T) {
	doc := Build(&roster.Context{}, solve.Result{}, validate.Report{}, Params{RunID: "run-1"})

	require.NotNil(t, doc.Meta.Warnings)
	assert.Empty(t, doc.Meta.Warnings)
}
