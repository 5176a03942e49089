// Package output assembles the schema v0.4 output document from a solve
// result and its post-solve audit record. It never recomputes hour
// aggregates itself: internal/validate already computed them once, and this
// package only reads them, per the Open Question about the two post-solve
// passes that used to duplicate that work.
package output

import (
	"time"

	"example.com/your_project/vso-roster-solver/internal/roster"
	"example.com/your_project/vso-roster-solver/internal/solve"
	"example.com/your_project/vso-roster-solver/internal/validate"
)

const schemaVersion = "0.4"

// Document is the full output document, schema v0.4.
type Document struct {
	SchemaVersion     string            `json:"schemaVersion"`
	PlanningReference string            `json:"planningReference"`
	SolverRun         SolverRun         `json:"solverRun"`
	Score             Score             `json:"score"`
	ScoreBreakdown    ScoreBreakdown    `json:"scoreBreakdown"`
	Assignments       []AssignmentOut   `json:"assignments"`
	UnmetDemand       []struct{}        `json:"unmetDemand"`
	Meta              Meta              `json:"meta"`
}

// SolverRun records one solve invocation for the audit trail.
type SolverRun struct {
	RunID                   string    `json:"runId"`
	SolverVersion           string    `json:"solverVersion"`
	StartedAt               time.Time `json:"startedAt"`
	Ended                   time.Time `json:"ended"`
	DurationSeconds         float64   `json:"durationSeconds"`
	Status                  string    `json:"status"`
	OptimizedRotationOffsets map[string]int `json:"optimizedRotationOffsets,omitempty"`
}

// Score is the three-part score summary: overall combines hard and soft
// into a single sortable figure (hard dominates, matching the objective's
// own hierarchy), hard and soft are reported separately too.
type Score struct {
	Overall float64 `json:"overall"`
	Hard    int     `json:"hard"`
	Soft    float64 `json:"soft"`
}

// ScoreBreakdown carries the full violation detail the audit trail needs.
type ScoreBreakdown struct {
	Hard            HardBreakdown            `json:"hard"`
	Soft            SoftBreakdown            `json:"soft"`
	UnassignedSlots UnassignedSlotsBreakdown `json:"unassignedSlots"`
}

// HardBreakdown is the hard-rule violation detail list.
type HardBreakdown struct {
	Violations []HardViolationOut `json:"violations"`
}

// HardViolationOut is one hard-rule breach record.
type HardViolationOut struct {
	ID   string `json:"id"`
	Note string `json:"note"`
}

// SoftBreakdown is the soft-rule penalty detail list.
type SoftBreakdown struct {
	TotalPenalty float64          `json:"totalPenalty"`
	Details      []SoftDetailOut  `json:"details"`
}

// SoftDetailOut is one soft-rule penalty record.
type SoftDetailOut struct {
	RuleID       string  `json:"ruleId"`
	AssignmentID string  `json:"assignmentId,omitempty"`
	SlotID       string  `json:"slotId,omitempty"`
	EmployeeID   string  `json:"employeeId,omitempty"`
	Weight       float64 `json:"weight"`
	Note         string  `json:"note"`
}

// UnassignedSlotsBreakdown is the unassigned-slot roll-up.
type UnassignedSlotsBreakdown struct {
	Count      int                 `json:"count"`
	Total      int                 `json:"total"`
	Percentage float64             `json:"percentage"`
	Slots      []UnassignedSlotOut `json:"slots"`
}

// UnassignedSlotOut is one unfilled slot's advisory explanation.
type UnassignedSlotOut struct {
	SlotID        string `json:"slotId"`
	DemandID      string `json:"demandId"`
	RequirementID string `json:"requirementId"`
	Date          string `json:"date"`
	ShiftCode     string `json:"shiftCode"`
	Reason        string `json:"reason"`
}

// AssignmentOut is one output assignment record, filled or explicitly empty.
type AssignmentOut struct {
	AssignmentID  string    `json:"assignmentId"`
	DemandID      string    `json:"demandId"`
	RequirementID string    `json:"requirementId"`
	Date          string    `json:"date"`
	ShiftCode     string    `json:"shiftCode"`
	SlotID        string    `json:"slotId"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	EmployeeID    *string   `json:"employeeId"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	Hours         HoursOut  `json:"hours"`
}

// HoursOut is the per-assignment canonical hour breakdown.
type HoursOut struct {
	Gross  float64 `json:"gross"`
	Lunch  float64 `json:"lunch"`
	Normal float64 `json:"normal"`
	OT     float64 `json:"ot"`
	Paid   float64 `json:"paid"`
}

// Meta carries the reproducibility and observability fields.
type Meta struct {
	InputHash     string                        `json:"inputHash"`
	GeneratedAt   time.Time                     `json:"generatedAt"`
	EmployeeHours map[string]EmployeeHoursOut   `json:"employeeHours"`
	RequestID     string                        `json:"requestId,omitempty"`
	Warnings      []string                      `json:"warnings"`
}

// EmployeeHoursOut mirrors validate.EmployeeHours in the output's own key
// naming (weekly_normal / monthly_ot, matching the documented schema).
type EmployeeHoursOut struct {
	WeeklyNormal map[string]float64 `json:"weekly_normal"`
	MonthlyOT    map[string]float64 `json:"monthly_ot"`
}

// Params carries the run-level facts the builder needs beyond the audit
// record: identifiers, timing, and the input hash computed before solve.
type Params struct {
	RunID             string
	SolverVersion     string
	StartedAt         time.Time
	Ended             time.Time
	PlanningReference string
	InputHash         string
	RequestID         string
	Warnings          []string
}

// Build assembles the full output document from a solve result and its
// audit record.
func Build(ctx *roster.Context, result solve.Result, report validate.Report, params Params) Document {
	status := validate.FinalStatus(result.Status, report)

	assignments := make([]AssignmentOut, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		assignments = append(assignments, toAssignmentOut(a))
	}

	hardOut := make([]HardViolationOut, 0, len(report.HardViolations))
	for _, v := range report.HardViolations {
		hardOut = append(hardOut, HardViolationOut{ID: v.RuleID, Note: v.Note})
	}

	softOut := make([]SoftDetailOut, 0, len(report.SoftScoreBook.Violations))
	for _, v := range report.SoftScoreBook.Violations {
		softOut = append(softOut, SoftDetailOut{
			RuleID:       v.RuleID,
			AssignmentID: v.AssignmentID,
			SlotID:       v.SlotID,
			EmployeeID:   v.EmployeeID,
			Weight:       v.Weight,
			Note:         v.Note,
		})
	}

	unassignedOut := make([]UnassignedSlotOut, 0, len(report.UnassignedSlots))
	for _, u := range report.UnassignedSlots {
		unassignedOut = append(unassignedOut, UnassignedSlotOut{
			SlotID:        u.SlotID,
			DemandID:      u.DemandID,
			RequirementID: u.RequirementID,
			Date:          u.Date,
			ShiftCode:     u.ShiftCode,
			Reason:        u.Reason,
		})
	}

	total := len(result.Assignments)
	unassignedPct := 0.0
	if total > 0 {
		unassignedPct = float64(len(report.UnassignedSlots)) / float64(total) * 100
	}

	employeeHoursOut := make(map[string]EmployeeHoursOut, len(report.EmployeeHours))
	for empID, eh := range report.EmployeeHours {
		employeeHoursOut[empID] = EmployeeHoursOut{WeeklyNormal: eh.WeeklyNormal, MonthlyOT: eh.MonthlyOT}
	}

	warnings := params.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	return Document{
		SchemaVersion:     schemaVersion,
		PlanningReference: params.PlanningReference,
		SolverRun: SolverRun{
			RunID:                    params.RunID,
			SolverVersion:            params.SolverVersion,
			StartedAt:                params.StartedAt,
			Ended:                    params.Ended,
			DurationSeconds:          params.Ended.Sub(params.StartedAt).Seconds(),
			Status:                   string(status),
			OptimizedRotationOffsets: result.Offsets,
		},
		Score: Score{
			Overall: float64(report.HardCount)*1_000_000 + report.SoftScoreBook.TotalPenalty,
			Hard:    report.HardCount,
			Soft:    report.SoftScoreBook.TotalPenalty,
		},
		ScoreBreakdown: ScoreBreakdown{
			Hard: HardBreakdown{Violations: hardOut},
			Soft: SoftBreakdown{TotalPenalty: report.SoftScoreBook.TotalPenalty, Details: softOut},
			UnassignedSlots: UnassignedSlotsBreakdown{
				Count:      len(report.UnassignedSlots),
				Total:      total,
				Percentage: unassignedPct,
				Slots:      unassignedOut,
			},
		},
		Assignments: assignments,
		UnmetDemand: []struct{}{},
		Meta: Meta{
			InputHash:     params.InputHash,
			GeneratedAt:   params.Ended,
			EmployeeHours: employeeHoursOut,
			RequestID:     params.RequestID,
			Warnings:      warnings,
		},
	}
}

func toAssignmentOut(a roster.Assignment) AssignmentOut {
	var empID *string
	if a.Status == roster.StatusAssigned {
		id := a.EmployeeID
		empID = &id
	}
	return AssignmentOut{
		AssignmentID:  a.AssignmentID,
		DemandID:      a.Slot.DemandID,
		RequirementID: a.Slot.RequirementID,
		Date:          a.Slot.Date.Format("2006-01-02"),
		ShiftCode:     a.Slot.ShiftCode,
		SlotID:        a.Slot.SlotID,
		StartDateTime: a.Slot.Start,
		EndDateTime:   a.Slot.End,
		EmployeeID:    empID,
		Status:        string(a.Status),
		Reason:        a.Reason,
		Hours: HoursOut{
			Gross:  a.Hours.Gross,
			Lunch:  a.Hours.Lunch,
			Normal: a.Hours.Normal,
			OT:     a.Hours.OT,
			Paid:   a.Hours.Paid,
		},
	}
}
