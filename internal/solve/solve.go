// Package solve drives the CP-SAT-equivalent MIP backend: it sets the time
// budget, invokes the solver, and turns the raw variable valuations back
// into the assignment list and optimised offsets the rest of the pipeline
// consumes. It never decides INFEASIBLE-by-policy itself (§4.G's
// unassigned-slot override lives in internal/validate, which is the one
// place that rule is applied).
package solve

import (
	"fmt"
	"sort"

	"github.com/nextmv-io/sdk/mip"

	"example.com/your_project/vso-roster-solver/internal/hours"
	"example.com/your_project/vso-roster-solver/internal/model"
	"example.com/your_project/vso-roster-solver/internal/roster"
)

// Status is the backend's own verdict, before any post-solve override.
type Status string

const (
	StatusOptimal      Status = "OPTIMAL"
	StatusFeasible     Status = "FEASIBLE"
	StatusInfeasible   Status = "INFEASIBLE"
	StatusModelInvalid Status = "MODEL_INVALID"
	StatusUnknown      Status = "UNKNOWN"
)

// Result is everything the post-solve validator and output builder consume:
// the realised assignment list, the backend's own status, and any optimised
// rotation offsets.
type Result struct {
	Status      Status
	Assignments []roster.Assignment
	Offsets     map[string]int // employeeID -> optimised offset; set only in variable-offset mode
}

// Run invokes the MIP backend with ctx's time budget and extracts the
// solution into a Result. A failure to create the solver is surfaced as
// StatusModelInvalid and a failed solve as StatusUnknown, each with the
// wrapped error and every slot unassigned; callers still run the post-solve validator against
// whatever (likely empty) assignment list comes back, per §7's "Backend
// error" handling.
func Run(ctx *roster.Context, m mip.Model, vars *model.Variables, slots []roster.Slot) (Result, error) {
	mipSolver, err := mip.NewSolver(mip.Highs, m)
	if err != nil {
		return Result{Status: StatusModelInvalid, Assignments: unassignedFallback(slots)}, fmt.Errorf("create solver: %w", err)
	}

	var opts mip.SolveOptions
	opts.Limits.Duration = ctx.TimeLimit

	solution, err := mipSolver.Solve(opts)
	if err != nil {
		return Result{Status: StatusUnknown, Assignments: unassignedFallback(slots)}, fmt.Errorf("solve: %w", err)
	}

	status := StatusInfeasible
	switch {
	case solution.IsOptimal():
		status = StatusOptimal
	case solution.IsSubOptimal():
		status = StatusFeasible
	}

	result := Result{
		Status:      status,
		Assignments: extractAssignments(solution, vars, slots),
	}

	if vars.Offset != nil {
		result.Offsets = make(map[string]int, len(vars.Offset))
		for empID, v := range vars.Offset {
			result.Offsets[empID] = int(solution.Value(v) + 0.5)
		}
	}

	return result, nil
}

// unassignedFallback produces the assignment list a failed solve still owes
// the caller: every slot explicitly unassigned, never a partial or absent
// output document.
func unassignedFallback(slots []roster.Slot) []roster.Assignment {
	out := make([]roster.Assignment, 0, len(slots))
	for _, slot := range slots {
		out = append(out, roster.Assignment{
			AssignmentID: slot.SlotID + "-A",
			Slot:         slot,
			Status:       roster.StatusUnassigned,
			Reason:       "solver backend did not return a usable solution",
			Hours:        hours.Span(slot.Start, slot.End),
		})
	}
	return out
}

func extractAssignments(solution mip.Solution, vars *model.Variables, slots []roster.Slot) []roster.Assignment {
	out := make([]roster.Assignment, 0, len(slots))
	for _, slot := range slots {
		row := vars.X[slot.SlotID]
		h := hours.Span(slot.Start, slot.End)

		empIDs := make([]string, 0, len(row))
		for empID := range row {
			empIDs = append(empIDs, empID)
		}
		sort.Strings(empIDs)

		assignedEmp := ""
		for _, empID := range empIDs {
			if solution.Value(row[empID]) > 0.9 {
				assignedEmp = empID
				break
			}
		}

		if assignedEmp != "" {
			out = append(out, roster.Assignment{
				AssignmentID: slot.SlotID + "-A",
				Slot:         slot,
				EmployeeID:   assignedEmp,
				Status:       roster.StatusAssigned,
				Hours:        h,
			})
			continue
		}

		out = append(out, roster.Assignment{
			AssignmentID: slot.SlotID + "-A",
			Slot:         slot,
			Status:       roster.StatusUnassigned,
			Reason:       "no eligible candidate survived hard-rule filtering for this slot",
			Hours:        h,
		})
	}
	return out
}
