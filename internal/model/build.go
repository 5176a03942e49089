// Package model turns a slot list and a candidate index into a solvable
// model: the decision-variable grid, the structural constraints that apply
// regardless of which hard rules are layered on top (headcount, one-
// assignment-per-day, the shared day-worked grid, workload range, rotation-
// pattern enforcement), and the hierarchical objective.
package model

import (
	"github.com/nextmv-io/sdk/mip"

	"example.com/your_project/vso-roster-solver/internal/candidates"
	"example.com/your_project/vso-roster-solver/internal/mipx"
	"example.com/your_project/vso-roster-solver/internal/roster"
)

const (
	// BigMultiplier weights the primary objective term: minimizing unassigned
	// slots dominates every other consideration.
	BigMultiplier = 1_000_000.0
	// SoftMultiplier weights the secondary objective terms: rotation
	// mismatches, the anchor penalty, and workload imbalance.
	SoftMultiplier = 1_000.0

	dateKeyLayout = "2006-01-02"
)

// Variables holds every decision variable the model builder creates, keyed
// for the hard-rule pack and the solver driver to consume.
type Variables struct {
	X                  map[string]map[string]mip.Bool // slotID -> employeeID -> var
	Unassigned         map[string]mip.Bool            // slotID -> var
	AssignCount        map[string]mip.Int             // employeeID -> var
	DayWorked          map[string]map[string]mip.Bool // employeeID -> "2006-01-02" -> var
	Offset             map[string]mip.Int             // employeeID -> var (only when offsets are optimised)
	MaxAssign          mip.Int
	MinAssign          mip.Int
	WorkloadImbalance  mip.Int
	TotalUnassigned    mip.Int
	RotationViolations mip.Int
	AnchorPenalty      mip.Int
}

// Build constructs the full model: the variable grid, the always-present
// structural constraints, and the hierarchical objective. The hard rule pack
// and soft rule pack are layered on separately.
func Build(ctx *roster.Context, idx candidates.Index, slots []roster.Slot) (mip.Model, *Variables) {
	m := mip.NewModel()
	m.Objective().SetMinimize()

	vars := &Variables{
		X:           make(map[string]map[string]mip.Bool),
		Unassigned:  make(map[string]mip.Bool, len(slots)),
		AssignCount: make(map[string]mip.Int, len(ctx.Employees)),
		DayWorked:   make(map[string]map[string]mip.Bool, len(ctx.Employees)),
	}

	for _, slot := range slots {
		vars.Unassigned[slot.SlotID] = m.NewBool()
	}

	for _, pair := range idx.Pairs {
		row, ok := vars.X[pair.Slot.SlotID]
		if !ok {
			row = make(map[string]mip.Bool)
			vars.X[pair.Slot.SlotID] = row
		}
		if _, exists := row[pair.Employee.EmployeeID]; exists {
			continue
		}
		row[pair.Employee.EmployeeID] = m.NewBool()
	}

	addHeadcountConstraints(m, slots, idx, vars)
	addOnePerDayConstraints(m, ctx.Employees, slots, vars)
	buildDayWorkedGrid(m, ctx.Employees, idx, vars)
	addAssignCounts(m, ctx.Employees, slots, vars)
	addWorkloadRange(m, ctx.Employees, slots, vars)

	if !ctx.FixedRotationOffset {
		addVariableRotationPattern(m, ctx.Employees, slots, vars)
	} else {
		addFixedRotationPattern(m, ctx.Employees, slots, vars)
	}

	vars.RotationViolations = addRotationViolationTerms(m, slots, vars)
	vars.AnchorPenalty = m.NewInt(0, 0) // scaffolded: no anchor-penalty source feeds this yet

	addObjective(m, slots, vars)

	return m, vars
}

// addHeadcountConstraints enforces, for every slot, that exactly one
// candidate employee is assigned or the slot is marked unassigned. Slots with
// no surviving candidate have their unassigned variable fixed to 1.
func addHeadcountConstraints(m mip.Model, slots []roster.Slot, idx candidates.Index, vars *Variables) {
	for _, slot := range slots {
		row := vars.X[slot.SlotID]
		unassigned := vars.Unassigned[slot.SlotID]

		if idx.NoCandidate[slot.SlotID] || len(row) == 0 {
			c := m.NewConstraint(mip.Equal, 1.0)
			c.NewTerm(1.0, unassigned)
			continue
		}

		c := m.NewConstraint(mip.Equal, 1.0)
		c.NewTerm(1.0, unassigned)
		for _, v := range row {
			c.NewTerm(1.0, v)
		}
	}
}

// addOnePerDayConstraints forbids an employee from being assigned to more
// than one slot on the same calendar date.
func addOnePerDayConstraints(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *Variables) {
	byEmpDate := make(map[string]map[string][]mip.Bool)
	for _, slot := range slots {
		row := vars.X[slot.SlotID]
		dateKey := slot.Date.Format(dateKeyLayout)
		for _, emp := range employees {
			v, ok := row[emp.EmployeeID]
			if !ok {
				continue
			}
			if byEmpDate[emp.EmployeeID] == nil {
				byEmpDate[emp.EmployeeID] = make(map[string][]mip.Bool)
			}
			byEmpDate[emp.EmployeeID][dateKey] = append(byEmpDate[emp.EmployeeID][dateKey], v)
		}
	}
	for _, byDate := range byEmpDate {
		for _, vs := range byDate {
			if len(vs) >= 2 {
				mipx.AtMostOne(m, vs...)
			}
		}
	}
}

// buildDayWorkedGrid creates the shared day-worked indicator grid and
// channels it bidirectionally to the underlying slot assignments. The hard
// rule pack's consecutive-days and rest-day checks (C3, C5) consume this same
// grid rather than creating their own; the part-time tiered cap (C6) sums the
// slot assignment variables directly.
func buildDayWorkedGrid(m mip.Model, employees []roster.Employee, idx candidates.Index, vars *Variables) {
	for _, emp := range employees {
		byDate := make(map[string][]mip.Bool)
		for _, pair := range idx.ByEmployee[emp.EmployeeID] {
			v := vars.X[pair.Slot.SlotID][emp.EmployeeID]
			dateKey := pair.Slot.Date.Format(dateKeyLayout)
			byDate[dateKey] = append(byDate[dateKey], v)
		}
		if len(byDate) == 0 {
			continue
		}
		vars.DayWorked[emp.EmployeeID] = make(map[string]mip.Bool, len(byDate))
		for dateKey, members := range byDate {
			indicator := m.NewBool()
			mipx.Channel(m, indicator, members)
			vars.DayWorked[emp.EmployeeID][dateKey] = indicator
		}
	}
}

// addAssignCounts creates assignCount[emp] = sum of that employee's
// assignment variables.
func addAssignCounts(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *Variables) {
	for _, emp := range employees {
		var members []mip.Bool
		for _, slot := range slots {
			if v, ok := vars.X[slot.SlotID][emp.EmployeeID]; ok {
				members = append(members, v)
			}
		}
		count := m.NewInt(0, len(slots))
		c := m.NewConstraint(mip.Equal, 0.0)
		c.NewTerm(-1.0, count)
		for _, v := range members {
			c.NewTerm(1.0, v)
		}
		vars.AssignCount[emp.EmployeeID] = count
	}
}

// addWorkloadRange derives maxAssign, minAssign and workloadImbalance from
// the per-employee assignment counts via a standard max/min linearization:
// maxAssign >= every count, minAssign <= every count.
func addWorkloadRange(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *Variables) {
	upper := len(slots)
	maxAssign := m.NewInt(0, upper)
	minAssign := m.NewInt(0, upper)

	for _, emp := range employees {
		count, ok := vars.AssignCount[emp.EmployeeID]
		if !ok {
			continue
		}
		cMax := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		cMax.NewTerm(1.0, maxAssign)
		cMax.NewTerm(-1.0, count)

		cMin := m.NewConstraint(mip.LessThanOrEqual, 0.0)
		cMin.NewTerm(1.0, minAssign)
		cMin.NewTerm(-1.0, count)
	}

	imbalance := m.NewInt(0, upper)
	c := m.NewConstraint(mip.Equal, 0.0)
	c.NewTerm(1.0, imbalance)
	c.NewTerm(-1.0, maxAssign)
	c.NewTerm(1.0, minAssign)

	vars.MaxAssign = maxAssign
	vars.MinAssign = minAssign
	vars.WorkloadImbalance = imbalance
}

// addFixedRotationPattern forces x[slot,emp] = 0 whenever the employee's
// fixed rotation offset lands on an "O" day for that slot's date.
func addFixedRotationPattern(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *Variables) {
	empByID := make(map[string]roster.Employee, len(employees))
	for _, e := range employees {
		empByID[e.EmployeeID] = e
	}
	for _, slot := range slots {
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			if slot.ExpectedShiftCode(emp.RotationOffset) == "O" {
				mipx.Forbid(m, v)
			}
		}
	}
}

// addVariableRotationPattern handles the "optimise offsets" mode: one-hot
// encodes each employee's offset variable and forbids x[slot,emp] whenever
// the selected offset value would land on an "O" day. Only used when offsets
// are not fixed, since the employee x slot x patternLen fan-out otherwise
// grows quickly.
func addVariableRotationPattern(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *Variables) {
	vars.Offset = make(map[string]mip.Int, len(employees))
	patternLenByEmployee := make(map[string]int)

	for _, slot := range slots {
		for empID := range vars.X[slot.SlotID] {
			if l := len(slot.RotationSequence); l > patternLenByEmployee[empID] {
				patternLenByEmployee[empID] = l
			}
		}
	}

	offsetBools := make(map[string][]mip.Bool)
	for _, emp := range employees {
		patternLen := patternLenByEmployee[emp.EmployeeID]
		if patternLen == 0 {
			continue
		}
		offsetVar := m.NewInt(0, patternLen-1)
		vars.Offset[emp.EmployeeID] = offsetVar

		values := make([]int, patternLen)
		for i := range values {
			values[i] = i
		}
		offsetBools[emp.EmployeeID] = mipx.OneHot(m, offsetVar, values)
	}

	for _, slot := range slots {
		cycleLen := len(slot.RotationSequence)
		if cycleLen == 0 {
			continue
		}
		daysFromAnchor := int(slot.Date.Sub(slot.CoverageAnchor).Hours() / 24)

		for empID, v := range vars.X[slot.SlotID] {
			bools, ok := offsetBools[empID]
			if !ok {
				continue
			}
			for possibleOffset, b := range bools {
				cycleDay := ((daysFromAnchor-possibleOffset)%cycleLen + cycleLen) % cycleLen
				if slot.RotationSequence[cycleDay] != "O" {
					continue
				}
				mipx.AtMostOne(m, v, b)
			}
		}
	}
}

// addRotationViolationTerms counts slots whose own shiftCode contradicts the
// rotation sequence for that calendar date even though some employee is
// assigned to it: the objective's soft rotation-mismatch term.
func addRotationViolationTerms(m mip.Model, slots []roster.Slot, vars *Variables) mip.Int {
	var violationVars []mip.Bool

	for _, slot := range slots {
		cycleLen := len(slot.RotationSequence)
		if cycleLen == 0 {
			continue
		}
		daysFromAnchor := int(slot.Date.Sub(slot.CoverageAnchor).Hours() / 24)
		expected := slot.RotationSequence[((daysFromAnchor%cycleLen)+cycleLen)%cycleLen]
		if expected == slot.ShiftCode || slot.ShiftCode == "O" {
			continue
		}

		row := vars.X[slot.SlotID]
		if len(row) == 0 {
			continue
		}
		violation := m.NewBool()
		members := make([]mip.Bool, 0, len(row))
		for _, v := range row {
			members = append(members, v)
		}
		mipx.Channel(m, violation, members)
		violationVars = append(violationVars, violation)
	}

	total := m.NewInt(0, len(slots))
	c := m.NewConstraint(mip.Equal, 0.0)
	c.NewTerm(-1.0, total)
	for _, v := range violationVars {
		c.NewTerm(1.0, v)
	}
	return total
}

// addObjective assembles the hierarchical objective: minimise
// B1*unassigned + B2*(rotationViolations + anchorPenalties +
// workloadImbalance) - totalAssignments, so that filling slots always
// dominates every softer consideration and, among equally-filled rosters,
// more total assignments is preferred.
func addObjective(m mip.Model, slots []roster.Slot, vars *Variables) {
	total := m.NewInt(0, len(slots))
	c := m.NewConstraint(mip.Equal, 0.0)
	c.NewTerm(-1.0, total)
	for _, slot := range slots {
		c.NewTerm(1.0, vars.Unassigned[slot.SlotID])
	}
	vars.TotalUnassigned = total

	obj := m.Objective()
	obj.NewTerm(BigMultiplier, vars.TotalUnassigned)
	obj.NewTerm(SoftMultiplier, vars.RotationViolations)
	obj.NewTerm(SoftMultiplier, vars.AnchorPenalty)
	obj.NewTerm(SoftMultiplier, vars.WorkloadImbalance)

	for _, row := range vars.X {
		for _, v := range row {
			obj.NewTerm(-1.0, v)
		}
	}
}
