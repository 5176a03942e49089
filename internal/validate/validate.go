// Package validate is the post-solve validator (component H): it walks the
// realised assignment list and independently re-derives every hard-rule
// violation by arithmetic over the assignments alone, never trusting that
// the model was built or solved correctly. It also runs the full soft-rule
// pack and assembles the audit record the output document is built from.
package validate

import (
	"sort"

	"example.com/your_project/vso-roster-solver/internal/hours"
	"example.com/your_project/vso-roster-solver/internal/roster"
	"example.com/your_project/vso-roster-solver/internal/softrules"
	"example.com/your_project/vso-roster-solver/internal/solve"
)

const (
	restMinHours       = 8.0
	travelBufferMins   = 30.0
	maxConsecutiveDays = 12
	offDayWindowDays   = 7
	weeklyNormalCap    = 44.0
	monthlyOTCap       = 72.0
	partTimeFourDayCap = 34.98
	partTimeFiveDayCap = 29.98
)

var schemeDailyCap = map[roster.Scheme]float64{
	roster.SchemeA: 14.0,
	roster.SchemeB: 13.0,
	roster.SchemeP: 9.0,
}

// HardViolation is one independently re-derived hard-rule breach.
type HardViolation struct {
	RuleID       string
	EmployeeID   string
	AssignmentID string
	Note         string
}

// EmployeeHours is the per-employee aggregate this validator computes once;
// the output builder reads it rather than recomputing (per the Open
// Questions: only one pass over the assignment list ever builds these sums).
type EmployeeHours struct {
	WeeklyNormal map[string]float64 // ISO week key -> summed normal hours
	MonthlyOT    map[string]float64 // month key -> summed OT hours
}

// UnassignedSlotRecord carries the advisory best-guess explanation for why a
// slot went unfilled.
type UnassignedSlotRecord struct {
	SlotID        string
	DemandID      string
	RequirementID string
	Date          string
	ShiftCode     string
	Reason        string
}

// Report is the full audit record: hard/soft violation counts, the
// violation detail lists, per-employee hour aggregates, and the unassigned
// slot roll-up.
type Report struct {
	HardCount       int
	SoftCount       int
	HardViolations  []HardViolation
	SoftScoreBook   softrules.ScoreBook
	UnassignedSlots []UnassignedSlotRecord
	EmployeeHours   map[string]EmployeeHours
}

// Run walks assignments independently of the model and produces the full
// audit record.
func Run(ctx *roster.Context, assignments []roster.Assignment) Report {
	empByID := make(map[string]roster.Employee, len(ctx.Employees))
	for _, e := range ctx.Employees {
		empByID[e.EmployeeID] = e
	}

	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assignments {
		if a.Status != roster.StatusAssigned {
			continue
		}
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}

	var violations []HardViolation
	employeeHours := make(map[string]EmployeeHours, len(byEmp))

	for empID, list := range byEmp {
		emp := empByID[empID]
		sort.Slice(list, func(i, j int) bool { return list[i].Slot.Start.Before(list[j].Slot.Start) })

		eh := EmployeeHours{WeeklyNormal: map[string]float64{}, MonthlyOT: map[string]float64{}}
		weeklyGross := map[string]float64{}
		weeklyDays := map[string]map[string]struct{}{}

		for _, a := range list {
			wk := hours.ISOWeekKey(a.Slot.Date)
			mk := hours.MonthKey(a.Slot.Date)
			eh.WeeklyNormal[wk] += a.Hours.Normal
			eh.MonthlyOT[mk] += a.Hours.OT
			weeklyGross[wk] += a.Hours.Gross
			if weeklyDays[wk] == nil {
				weeklyDays[wk] = map[string]struct{}{}
			}
			weeklyDays[wk][a.Slot.Date.Format("2006-01-02")] = struct{}{}

			// C1: daily gross vs scheme cap.
			if cap, ok := schemeDailyCap[emp.Scheme]; ok && a.Hours.Gross > cap {
				violations = append(violations, HardViolation{"C1", empID, a.AssignmentID, "daily gross hours exceed scheme cap"})
			}
			// C7 / C15: qualification expiry and override control.
			checkQualificationExpiry(emp, a, &violations)
			// C8: provisional licence expiry.
			checkProvisionalLicence(emp, a, &violations)
			// C10: required skills.
			if !emp.HasAllSkills(a.Slot.RequiredSkills) {
				violations = append(violations, HardViolation{"C10", empID, a.AssignmentID, "missing required skill"})
			}
			// C11: rank match.
			if emp.RankID != a.Slot.RankID {
				violations = append(violations, HardViolation{"C11", empID, a.AssignmentID, "rank mismatch"})
			}
			// C12: preferred-team restriction.
			if len(a.Slot.PreferredTeams) > 0 && !contains(a.Slot.PreferredTeams, emp.TeamID) {
				violations = append(violations, HardViolation{"C12", empID, a.AssignmentID, "employee outside slot's preferred teams"})
			}
		}

		for wk, g := range weeklyGross {
			if eh.WeeklyNormal[wk] > weeklyNormalCap {
				violations = append(violations, HardViolation{"C2", empID, "", "weekly normal hours exceed 44h for week " + wk})
			}
			if emp.Scheme == roster.SchemeP {
				checkPartTimeTieredCap(empID, wk, g, len(weeklyDays[wk]), &violations)
			}
		}
		for mk, ot := range eh.MonthlyOT {
			if ot > monthlyOTCap {
				violations = append(violations, HardViolation{"C17", empID, "", "monthly OT hours exceed 72h for month " + mk})
			}
		}

		checkConsecutiveDays(ctx, empID, list, &violations)
		checkOffDayWindow(ctx, empID, list, &violations)
		checkRestGap(empID, list, &violations)
		checkInterSiteTravel(empID, list, &violations)
		checkOverlap(empID, list, &violations)

		employeeHours[empID] = eh
	}

	checkGenderMix(ctx, assignments, empByID, &violations)

	unassigned := buildUnassignedRecords(ctx, assignments)
	scoreBook := softrules.Apply(ctx, assignments)

	return Report{
		HardCount:       len(violations),
		SoftCount:       len(scoreBook.Violations),
		HardViolations:  violations,
		SoftScoreBook:   scoreBook,
		UnassignedSlots: unassigned,
		EmployeeHours:   employeeHours,
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func checkQualificationExpiry(emp roster.Employee, a roster.Assignment, violations *[]HardViolation) {
	for _, code := range a.Slot.RequiredQualifications {
		lic, ok := licenseByCode(emp, code)
		if !ok {
			*violations = append(*violations, HardViolation{"C7", emp.EmployeeID, a.AssignmentID, "required qualification " + code + " not held"})
			continue
		}
		expired := a.Slot.Date.After(lic.ExpiryDate)
		overridden := lic.TemporaryApprovalExpiry != nil && !a.Slot.Date.After(*lic.TemporaryApprovalExpiry)
		if expired && !overridden {
			*violations = append(*violations, HardViolation{"C7", emp.EmployeeID, a.AssignmentID, "required qualification " + code + " expired"})
		}
		if expired && !overridden {
			*violations = append(*violations, HardViolation{"C15", emp.EmployeeID, a.AssignmentID, "expiry override does not cover slot date for " + code})
		}
	}
}

func checkProvisionalLicence(emp roster.Employee, a roster.Assignment, violations *[]HardViolation) {
	for _, l := range emp.Licenses {
		if l.IsProvisional() && a.Slot.Date.After(l.ExpiryDate) {
			*violations = append(*violations, HardViolation{"C8", emp.EmployeeID, a.AssignmentID, "provisional licence " + l.Code + " expired"})
		}
	}
}

func licenseByCode(emp roster.Employee, code string) (roster.License, bool) {
	for _, l := range emp.Licenses {
		if l.Code == code {
			return l, true
		}
	}
	return roster.License{}, false
}

func checkPartTimeTieredCap(empID, week string, gross float64, daysWorked int, violations *[]HardViolation) {
	cap := partTimeFiveDayCap
	if daysWorked <= 4 {
		cap = partTimeFourDayCap
	}
	if gross > cap {
		*violations = append(*violations, HardViolation{"C6", empID, "", "part-time tiered weekly cap exceeded for week " + week})
	}
}

func checkConsecutiveDays(ctx *roster.Context, empID string, list []roster.Assignment, violations *[]HardViolation) {
	days := ctx.PlanningHorizon.Days()
	if len(days) <= maxConsecutiveDays {
		return
	}
	worked := workedDateSet(list)
	for i := 0; i+maxConsecutiveDays < len(days); i++ {
		count := 0
		for _, d := range days[i : i+maxConsecutiveDays+1] {
			if _, ok := worked[d.Format("2006-01-02")]; ok {
				count++
			}
		}
		if count > maxConsecutiveDays {
			*violations = append(*violations, HardViolation{"C3", empID, "", "more than 12 worked days in a 13-day window"})
			return
		}
	}
}

func checkOffDayWindow(ctx *roster.Context, empID string, list []roster.Assignment, violations *[]HardViolation) {
	days := ctx.PlanningHorizon.Days()
	if len(days) < offDayWindowDays {
		return
	}
	worked := workedDateSet(list)
	for i := 0; i+offDayWindowDays <= len(days); i++ {
		count := 0
		for _, d := range days[i : i+offDayWindowDays] {
			if _, ok := worked[d.Format("2006-01-02")]; ok {
				count++
			}
		}
		if count > offDayWindowDays-1 {
			*violations = append(*violations, HardViolation{"C5", empID, "", "no off-day in a 7-day window"})
			return
		}
	}
}

func workedDateSet(list []roster.Assignment) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, a := range list {
		set[a.Slot.Date.Format("2006-01-02")] = struct{}{}
	}
	return set
}

func checkRestGap(empID string, list []roster.Assignment, violations *[]HardViolation) {
	sorted := append([]roster.Assignment(nil), list...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.End.Before(sorted[j].Slot.End) })
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			s1, s2 := sorted[i].Slot, sorted[j].Slot
			gap := s2.Start.Sub(s1.End).Hours()
			if gap >= restMinHours {
				break
			}
			if s2.Start.Before(s1.End) {
				continue
			}
			*violations = append(*violations, HardViolation{"C4", empID, sorted[j].AssignmentID, "rest gap under 8 hours between consecutive shifts"})
		}
	}
}

func checkInterSiteTravel(empID string, list []roster.Assignment, violations *[]HardViolation) {
	sorted := append([]roster.Assignment(nil), list...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.Start.Before(sorted[j].Slot.Start) })
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			s1, s2 := sorted[i].Slot, sorted[j].Slot
			if s1.Date.Format("2006-01-02") != s2.Date.Format("2006-01-02") || s1.LocationID == s2.LocationID {
				continue
			}
			gap := s2.Start.Sub(s1.End).Minutes()
			if gap < 0 {
				continue
			}
			if gap < travelBufferMins {
				*violations = append(*violations, HardViolation{"C14", empID, sorted[j].AssignmentID, "inter-site travel buffer under 30 minutes"})
			}
		}
	}
}

func checkOverlap(empID string, list []roster.Assignment, violations *[]HardViolation) {
	sorted := append([]roster.Assignment(nil), list...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.Start.Before(sorted[j].Slot.Start) })
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			s1, s2 := sorted[i].Slot, sorted[j].Slot
			if !s2.Start.Before(s1.End) {
				break
			}
			*violations = append(*violations, HardViolation{"C16", empID, sorted[j].AssignmentID, "overlapping shift assignments"})
		}
	}
}

func checkGenderMix(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, violations *[]HardViolation) {
	type groupKey struct{ date, demandID, requirementID string }
	groupAssigned := make(map[groupKey][]roster.Assignment)
	groupAny := make(map[groupKey]bool)

	for _, a := range assignments {
		if a.Slot.GenderRequirement != roster.GenderMix {
			continue
		}
		key := groupKey{a.Slot.Date.Format("2006-01-02"), a.Slot.DemandID, a.Slot.RequirementID}
		if a.Status == roster.StatusAssigned {
			groupAssigned[key] = append(groupAssigned[key], a)
			groupAny[key] = true
		}
	}

	for key, list := range groupAssigned {
		if !groupAny[key] {
			continue
		}
		hasM, hasF := false, false
		for _, a := range list {
			switch empByID[a.EmployeeID].Gender {
			case roster.GenderM:
				hasM = true
			case roster.GenderF:
				hasF = true
			}
		}
		if !hasM || !hasF {
			*violations = append(*violations, HardViolation{"C9", "", list[0].AssignmentID, "gender mix requirement not satisfied for demand " + key.demandID + " on " + key.date})
		}
	}
}

func buildUnassignedRecords(ctx *roster.Context, assignments []roster.Assignment) []UnassignedSlotRecord {
	hasRank := make(map[roster.Rank]bool)
	hasScheme := make(map[roster.Scheme]bool)
	hasGender := make(map[roster.Gender]bool)
	for _, e := range ctx.Employees {
		hasRank[e.RankID] = true
		hasScheme[e.Scheme] = true
		hasGender[e.Gender] = true
	}

	var out []UnassignedSlotRecord
	for _, a := range assignments {
		if a.Status != roster.StatusUnassigned {
			continue
		}
		out = append(out, UnassignedSlotRecord{
			SlotID:        a.Slot.SlotID,
			DemandID:      a.Slot.DemandID,
			RequirementID: a.Slot.RequirementID,
			Date:          a.Slot.Date.Format("2006-01-02"),
			ShiftCode:     a.Slot.ShiftCode,
			Reason:        guessBlockingConstraint(a.Slot, hasRank, hasScheme, hasGender),
		})
	}
	return out
}

// guessBlockingConstraint is advisory only, never load-bearing: a plausible
// explanation scanned from the slot's scheme/rank/duration/gender
// attributes against the workforce that exists, not a proof of
// infeasibility.
func guessBlockingConstraint(slot roster.Slot, hasRank map[roster.Rank]bool, hasScheme map[roster.Scheme]bool, hasGender map[roster.Gender]bool) string {
	if !hasRank[slot.RankID] {
		return "no employee of required rank " + string(slot.RankID) + " exists in the workforce"
	}
	gross := hours.Span(slot.Start, slot.End).Gross
	if gross > 14.0 {
		return "shift duration exceeds every scheme's daily cap"
	}
	if slot.SchemeRequirement != "" && slot.SchemeRequirement != roster.SchemeGlobal && !hasScheme[slot.SchemeRequirement] {
		return "no employee of required scheme " + string(slot.SchemeRequirement) + " exists in the workforce"
	}
	switch slot.GenderRequirement {
	case roster.GenderM:
		if !hasGender[roster.GenderM] {
			return "no male employee exists in the workforce"
		}
	case roster.GenderF:
		if !hasGender[roster.GenderF] {
			return "no female employee exists in the workforce"
		}
	case roster.GenderMix:
		if !hasGender[roster.GenderM] || !hasGender[roster.GenderF] {
			return "workforce cannot satisfy a mixed-gender requirement"
		}
	}
	if len(slot.RequiredQualifications) > 0 {
		return "no remaining candidate held every required qualification unexpired"
	}
	if len(slot.RequiredSkills) > 0 {
		return "no remaining candidate held every required skill"
	}
	return "no eligible candidate available once scheduling constraints were applied"
}

// FinalStatus applies §4.G's status override: a re-derived hard violation,
// or any unassigned slot, forces INFEASIBLE regardless of what the backend
// itself reported. This is the one place that domain rule is applied.
func FinalStatus(backendStatus solve.Status, report Report) solve.Status {
	if report.HardCount > 0 || len(report.UnassignedSlots) > 0 {
		return solve.StatusInfeasible
	}
	return backendStatus
}
