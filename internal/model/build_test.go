package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/your_project/vso-roster-solver/internal/candidates"
	"example.com/your_project/vso-roster-solver/internal/roster"
)

func twoSlotContext() (*roster.Context, []roster.Slot) {
	ctx := &roster.Context{
		Employees: []roster.Employee{
			{EmployeeID: "E1", Gender: roster.GenderM, Scheme: roster.SchemeA},
			{EmployeeID: "E2", Gender: roster.GenderF, Scheme: roster.SchemeA},
		},
	}
	slots := []roster.Slot{
		{
			SlotID:            "S1",
			Date:              time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			GenderRequirement: roster.GenderAny,
			SchemeRequirement: roster.SchemeGlobal,
		},
		{
			SlotID:            "S2",
			Date:              time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
			GenderRequirement: roster.GenderF,
			SchemeRequirement: roster.SchemeGlobal,
		},
	}
	return ctx, slots
}

func TestBuild_CreatesOneUnassignedVarPerSlot(t *testing.T) {
	ctx, slots := twoSlotContext()
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	assert.Len(t, vars.Unassigned, 2)
	assert.Contains(t, vars.Unassigned, "S1")
	assert.Contains(t, vars.Unassigned, "S2")
}

func TestBuild_CreatesAssignmentVarOnlyForEligiblePairs(t *testing.T) {
	ctx, slots := twoSlotContext()
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	// S1 accepts any gender: both employees eligible.
	require.Contains(t, vars.X, "S1")
	assert.Len(t, vars.X["S1"], 2)

	// S2 requires F gender: only E2 eligible.
	require.Contains(t, vars.X, "S2")
	assert.Len(t, vars.X["S2"], 1)
	_, hasE2 := vars.X["S2"]["E2"]
	assert.True(t, hasE2)
}

func TestBuild_CreatesAssignCountPerEmployee(t *testing.T) {
	ctx, slots := twoSlotContext()
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	assert.Contains(t, vars.AssignCount, "E1")
	assert.Contains(t, vars.AssignCount, "E2")
}

func TestBuild_DayWorkedGridCoversEmployeesWithCandidates(t *testing.T) {
	ctx, slots := twoSlotContext()
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	assert.Contains(t, vars.DayWorked, "E1")
	assert.Contains(t, vars.DayWorked, "E2")
	assert.Contains(t, vars.DayWorked["E1"], "2026-03-10")
}

func TestBuild_NoCandidateSlotStillGetsUnassignedVar(t *testing.T) {
	ctx := &roster.Context{
		Employees: []roster.Employee{
			{EmployeeID: "E1", Gender: roster.GenderM, Scheme: roster.SchemeA},
		},
	}
	slots := []roster.Slot{
		{
			SlotID:            "S1",
			Date:              time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			GenderRequirement: roster.GenderF, // no eligible employee
			SchemeRequirement: roster.SchemeGlobal,
		},
	}
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	assert.Contains(t, vars.Unassigned, "S1")
	assert.Empty(t, vars.X["S1"])
}

func TestBuild_VariableRotationModeCreatesOffsetVars(t *testing.T) {
	anchor := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	ctx := &roster.Context{
		FixedRotationOffset: false,
		Employees: []roster.Employee{
			{EmployeeID: "E1", Gender: roster.GenderM, Scheme: roster.SchemeA},
		},
	}
	slots := []roster.Slot{
		{
			SlotID:            "S1",
			Date:              time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			GenderRequirement: roster.GenderAny,
			SchemeRequirement: roster.SchemeGlobal,
			ShiftCode:         "AM",
			RotationSequence:  []string{"AM", "AM", "O"},
			CoverageAnchor:    anchor,
		},
	}
	idx := candidates.Build(slots, ctx.Employees)

	_, vars := Build(ctx, idx, slots)

	assert.Contains(t, vars.Offset, "E1")
}
