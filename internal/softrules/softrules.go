// Package softrules implements the sixteen soft preference rule families.
// Every rule is a pure function over the realised assignment list: none of
// them add model constraints, they only produce penalty records for the
// post-solve audit.
package softrules

import (
	"sort"
	"time"

	"example.com/your_project/vso-roster-solver/internal/roster"
)

// publicHolidayKey normalises a date to the same UTC-midnight key the
// public-holiday set is keyed by.
func publicHolidayKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Violation is one penalty record attributable to a single soft rule.
type Violation struct {
	RuleID       string
	AssignmentID string
	SlotID       string
	EmployeeID   string
	Note         string
	Weight       float64
}

// ScoreBook accumulates every soft-rule violation and its total weighted
// penalty.
type ScoreBook struct {
	Violations   []Violation
	TotalPenalty float64
}

func (sb *ScoreBook) add(ruleID string, weight float64, assignmentID, slotID, employeeID, note string) {
	sb.Violations = append(sb.Violations, Violation{
		RuleID:       ruleID,
		AssignmentID: assignmentID,
		SlotID:       slotID,
		EmployeeID:   employeeID,
		Note:         note,
		Weight:       weight,
	})
	sb.TotalPenalty += weight
}

var defaultWeight = map[string]float64{
	"S1": 1, "S2": 1, "S3": 1, "S4": 1, "S5": 1, "S6": 1, "S7": 1, "S8": 1,
	"S9": 1, "S10": 1, "S11": 1, "S12": 1, "S13": 1, "S14": 1, "S15": 1, "S16": 1,
}

func weightFor(cfg roster.SolverScoreConfig, ruleID string) float64 {
	if cfg != nil {
		if w, ok := cfg[ruleID]; ok {
			return w
		}
	}
	return defaultWeight[ruleID]
}

// Apply runs every soft rule over the realised assignment list and returns
// the combined score book.
func Apply(ctx *roster.Context, assignments []roster.Assignment) ScoreBook {
	empByID := make(map[string]roster.Employee, len(ctx.Employees))
	for _, e := range ctx.Employees {
		empByID[e.EmployeeID] = e
	}

	var sb ScoreBook
	rotationMismatch(ctx, assignments, empByID, &sb)
	preferenceList(ctx, assignments, empByID, &sb)
	startTimeConsistency(ctx, assignments, &sb)
	restGapSoft(ctx, assignments, &sb)
	sameDemandContinuity(ctx, assignments, &sb)
	majorityTeam(ctx, assignments, empByID, &sb)
	zoneSiteOUPreference(ctx, assignments, empByID, &sb)
	skillCoverageUnion(ctx, assignments, empByID, &sb)
	interSiteBufferSoft(ctx, assignments, &sb)
	overtimeFairness(ctx, assignments, &sb)
	publicHolidayStaffing(ctx, assignments, &sb)
	allowanceConcentration(ctx, assignments, &sb)
	unavailabilityBreach(ctx, assignments, empByID, &sb)
	midMonthCoverage(ctx, assignments, &sb)
	demandFillRate(ctx, assignments, &sb)
	blackWhitelistRecheck(ctx, assignments, empByID, &sb)
	return sb
}

func assigned(assignments []roster.Assignment) []roster.Assignment {
	out := make([]roster.Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.Status == roster.StatusAssigned {
			out = append(out, a)
		}
	}
	return out
}

// rotationMismatch is S1.
func rotationMismatch(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S1")
	for _, a := range assigned(assignments) {
		emp := empByID[a.EmployeeID]
		if a.Slot.ExpectedShiftCode(emp.RotationOffset) != a.Slot.ShiftCode {
			sb.add("S1", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assigned shiftCode does not match rotation sequence")
		}
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

// preferenceList is S2: unmatched preferred shift/team/site generates one
// penalty each, an unpreferred match generates one.
func preferenceList(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S2")
	for _, a := range assigned(assignments) {
		emp := empByID[a.EmployeeID]
		p := emp.Preferences

		if len(p.PreferredShifts) > 0 && !contains(p.PreferredShifts, a.Slot.ShiftCode) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment off preferred-shifts list")
		}
		if contains(p.UnpreferredShifts, a.Slot.ShiftCode) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment on unpreferred-shifts list")
		}
		if len(p.PreferredTeams) > 0 && !contains(p.PreferredTeams, emp.TeamID) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment off preferred-teams list")
		}
		if contains(p.UnpreferredTeams, emp.TeamID) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment on unpreferred-teams list")
		}
		if len(p.PreferredSites) > 0 && !contains(p.PreferredSites, a.Slot.LocationID) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment off preferred-sites list")
		}
		if contains(p.UnpreferredSites, a.Slot.LocationID) {
			sb.add("S2", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment on unpreferred-sites list")
		}
	}
}

// startTimeConsistency is S3: one penalty per assignment whose start-of-day
// differs from the employee's modal start time.
func startTimeConsistency(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S3")
	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assigned(assignments) {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, list := range byEmp {
		counts := make(map[string]int)
		for _, a := range list {
			counts[a.Slot.Start.Format("15:04")]++
		}
		mode, best := "", -1
		for t, n := range counts {
			if n > best {
				mode, best = t, n
			}
		}
		for _, a := range list {
			if a.Slot.Start.Format("15:04") != mode {
				sb.add("S3", w, a.AssignmentID, a.Slot.SlotID, empID, "start time differs from employee's modal start")
			}
		}
	}
}

// restGapSoft is S4: the same 8-hour rest test as the hard rule, reported
// here so a solution that slipped past a waived hard check is still visible.
func restGapSoft(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S4")
	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assigned(assignments) {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, list := range byEmp {
		sort.Slice(list, func(i, j int) bool { return list[i].Slot.End.Before(list[j].Slot.End) })
		for i := 1; i < len(list); i++ {
			gap := list[i].Slot.Start.Sub(list[i-1].Slot.End).Hours()
			if gap >= 0 && gap < 8.0 {
				sb.add("S4", w, list[i].AssignmentID, list[i].Slot.SlotID, empID, "rest gap under 8 hours")
			}
		}
	}
}

// sameDemandContinuity is S5: one penalty per departure from, and per
// arrival into, a demand on consecutive calendar days.
func sameDemandContinuity(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S5")
	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assigned(assignments) {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, list := range byEmp {
		sort.Slice(list, func(i, j int) bool { return list[i].Slot.Date.Before(list[j].Slot.Date) })
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if cur.Slot.Date.Sub(prev.Slot.Date).Hours() != 24 {
				continue
			}
			if prev.Slot.DemandID != cur.Slot.DemandID {
				sb.add("S5", w, prev.AssignmentID, prev.Slot.SlotID, empID, "departed demand on consecutive day")
				sb.add("S5", w, cur.AssignmentID, cur.Slot.SlotID, empID, "arrived at a different demand on consecutive day")
			}
		}
	}
}

// majorityTeam is S6: assignments outside an employee's majority demand
// generate one penalty each (demand stands in for "team" once a slot's own
// preferred-teams list is empty, since C12 already enforces it otherwise).
func majorityTeam(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S6")
	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assigned(assignments) {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, list := range byEmp {
		counts := make(map[string]int)
		for _, a := range list {
			counts[a.Slot.DemandID]++
		}
		majority, best := "", -1
		for d, n := range counts {
			if n > best {
				majority, best = d, n
			}
		}
		for _, a := range list {
			if a.Slot.DemandID != majority {
				sb.add("S6", w, a.AssignmentID, a.Slot.SlotID, empID, "assignment outside employee's majority demand")
			}
		}
	}
}

// zoneSiteOUPreference is S7: the OU preference variant of S2. Site
// preferences are scored by S2; zone preferences are not scored.
func zoneSiteOUPreference(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S7")
	for _, a := range assigned(assignments) {
		p := empByID[a.EmployeeID].Preferences
		if len(p.PreferredOUs) > 0 && !contains(p.PreferredOUs, a.Slot.OUID) {
			sb.add("S7", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment off preferred-OUs list")
		}
		if contains(p.UnpreferredOUs, a.Slot.OUID) {
			sb.add("S7", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment on unpreferred-OUs list")
		}
	}
}

// skillCoverageUnion is S8: the union of assigned employees' skills for a
// (demand, date) group must cover every required skill.
func skillCoverageUnion(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S8")
	type groupKey struct{ demandID, date string }
	held := make(map[groupKey]map[string]struct{})
	required := make(map[groupKey]map[string]struct{})
	repAssignment := make(map[groupKey]roster.Assignment)

	for _, a := range assigned(assignments) {
		key := groupKey{a.Slot.DemandID, a.Slot.Date.Format("2006-01-02")}
		if held[key] == nil {
			held[key] = make(map[string]struct{})
			required[key] = make(map[string]struct{})
		}
		for skill := range empByID[a.EmployeeID].Skills {
			held[key][skill] = struct{}{}
		}
		for _, s := range a.Slot.RequiredSkills {
			required[key][s] = struct{}{}
		}
		repAssignment[key] = a
	}

	for key, reqSet := range required {
		for skill := range reqSet {
			if _, ok := held[key][skill]; !ok {
				rep := repAssignment[key]
				sb.add("S8", w, rep.AssignmentID, rep.Slot.SlotID, "", "required skill "+skill+" not covered by any assignee on "+key.date)
			}
		}
	}
}

// interSiteBufferSoft is S9: a softer travel buffer than C14's 30 minutes.
func interSiteBufferSoft(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	const bufferMinutes = 60.0
	w := weightFor(ctx.SolverScoreConfig, "S9")
	byEmp := make(map[string][]roster.Assignment)
	for _, a := range assigned(assignments) {
		byEmp[a.EmployeeID] = append(byEmp[a.EmployeeID], a)
	}
	for empID, list := range byEmp {
		sort.Slice(list, func(i, j int) bool { return list[i].Slot.Start.Before(list[j].Slot.Start) })
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			if prev.Slot.Date.Format("2006-01-02") != cur.Slot.Date.Format("2006-01-02") {
				continue
			}
			if prev.Slot.LocationID == cur.Slot.LocationID {
				continue
			}
			gap := cur.Slot.Start.Sub(prev.Slot.End).Minutes()
			if gap >= 0 && gap < bufferMinutes {
				sb.add("S9", w, cur.AssignmentID, cur.Slot.SlotID, empID, "inter-site buffer under soft threshold")
			}
		}
	}
}

// overtimeFairness is S10: OT-eligible employees whose monthly OT is more
// than 1.5x, or (when the mean exceeds 5h) less than 0.5x, the mean.
func overtimeFairness(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S10")
	otByEmp := make(map[string]float64)
	var repByEmp = make(map[string]roster.Assignment)
	for _, a := range assigned(assignments) {
		otByEmp[a.EmployeeID] += a.Hours.OT
		repByEmp[a.EmployeeID] = a
	}
	if len(otByEmp) == 0 {
		return
	}
	var total float64
	for _, ot := range otByEmp {
		total += ot
	}
	mean := total / float64(len(otByEmp))
	for empID, ot := range otByEmp {
		if ot == 0 {
			continue
		}
		if ot > 1.5*mean || (mean > 5.0 && ot < 0.5*mean) {
			rep := repByEmp[empID]
			sb.add("S10", w, rep.AssignmentID, rep.Slot.SlotID, empID, "monthly OT deviates from workforce mean")
		}
	}
}

// publicHolidayStaffing is S11: per demand, staffing on a public holiday
// under 80% of the non-holiday daily mean, or zero.
func publicHolidayStaffing(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S11")
	type dayKey struct{ demandID, date string }
	countsByDay := make(map[dayKey]int)
	demands := make(map[string]struct{})
	for _, a := range assignments {
		key := dayKey{a.Slot.DemandID, a.Slot.Date.Format("2006-01-02")}
		if _, seen := countsByDay[key]; !seen {
			countsByDay[key] = 0
		}
		if a.Status == roster.StatusAssigned {
			countsByDay[key]++
		}
		demands[a.Slot.DemandID] = struct{}{}
	}

	for demandID := range demands {
		var phTotal, phCount, nonPHTotal, nonPHCount int
		for key, n := range countsByDay {
			if key.demandID != demandID {
				continue
			}
			d, err := time.Parse("2006-01-02", key.date)
			if err != nil {
				continue
			}
			if _, isPH := ctx.PublicHolidays[publicHolidayKey(d)]; isPH {
				phTotal += n
				phCount++
			} else {
				nonPHTotal += n
				nonPHCount++
			}
		}
		if phCount == 0 || nonPHCount == 0 {
			continue
		}
		nonPHMean := float64(nonPHTotal) / float64(nonPHCount)
		phMean := float64(phTotal) / float64(phCount)
		if nonPHMean > 0 && phMean < 0.8*nonPHMean {
			sb.add("S11", w, "", "", "", "public-holiday staffing under 80% of non-holiday mean for demand "+demandID)
		}
	}
}

// allowanceConcentration is S12: night/weekend/public-holiday hours
// concentrated more than 2x the per-employee mean.
func allowanceConcentration(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S12")
	isAllowanceSlot := func(a roster.Assignment) bool {
		if _, ok := ctx.PublicHolidays[publicHolidayKey(a.Slot.Date)]; ok {
			return true
		}
		wd := a.Slot.Date.Weekday()
		if wd == 0 || wd == 6 {
			return true
		}
		h, _, _ := a.Slot.Start.Clock()
		return h >= 22 || h < 6
	}

	allowanceByEmp := make(map[string]float64)
	repByEmp := make(map[string]roster.Assignment)
	for _, a := range assigned(assignments) {
		if !isAllowanceSlot(a) {
			continue
		}
		allowanceByEmp[a.EmployeeID] += a.Hours.Paid
		repByEmp[a.EmployeeID] = a
	}
	if len(allowanceByEmp) == 0 {
		return
	}
	var total float64
	for _, h := range allowanceByEmp {
		total += h
	}
	mean := total / float64(len(allowanceByEmp))
	if mean == 0 {
		return
	}
	for empID, h := range allowanceByEmp {
		if h > 2*mean {
			rep := repByEmp[empID]
			sb.add("S12", w, rep.AssignmentID, rep.Slot.SlotID, empID, "allowance-hours concentration over 2x mean")
		}
	}
}

// unavailabilityBreach is S13: an assignment falling inside an employee's
// declared unavailability window.
func unavailabilityBreach(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S13")
	for _, a := range assigned(assignments) {
		emp := empByID[a.EmployeeID]
		for _, win := range emp.Unavailability {
			if !a.Slot.Date.Before(win.Start) && !a.Slot.Date.After(win.End) {
				sb.add("S13", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment falls inside unavailability window")
				break
			}
		}
	}
}

// midMonthCoverage is S14: per demand, mid-month (day 11-20) coverage under
// 70% of the whole-month mean, and a second flag for any zero-coverage
// mid-month day.
func midMonthCoverage(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S14")
	type dayKey struct{ demandID, date string }
	countsByDay := make(map[dayKey]int)
	demands := make(map[string]struct{})
	for _, a := range assignments {
		key := dayKey{a.Slot.DemandID, a.Slot.Date.Format("2006-01-02")}
		if _, seen := countsByDay[key]; !seen {
			countsByDay[key] = 0
		}
		if a.Status == roster.StatusAssigned {
			countsByDay[key]++
		}
		demands[a.Slot.DemandID] = struct{}{}
	}

	for demandID := range demands {
		var monthTotal, monthDays, midTotal, midDays int
		midZero := false
		for key, n := range countsByDay {
			if key.demandID != demandID {
				continue
			}
			monthTotal += n
			monthDays++
			day := key.date[8:10]
			if day >= "11" && day <= "20" {
				midTotal += n
				midDays++
				if n == 0 {
					midZero = true
				}
			}
		}
		if monthDays == 0 || midDays == 0 {
			continue
		}
		monthMean := float64(monthTotal) / float64(monthDays)
		midMean := float64(midTotal) / float64(midDays)
		if monthMean > 0 && midMean < 0.7*monthMean {
			sb.add("S14", w, "", "", "", "mid-month coverage under 70% of month mean for demand "+demandID)
		}
		if midZero {
			sb.add("S14", w, "", "", "", "zero-coverage mid-month day for demand "+demandID)
		}
	}
}

// demandFillRate is S15: per (demand, date), filled/required ratio under
// 80% (second penalty under 50%, third when the demand has no assignments
// at all that day).
func demandFillRate(ctx *roster.Context, assignments []roster.Assignment, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S15")
	type dayKey struct{ demandID, date string }
	filled := make(map[dayKey]int)
	required := make(map[dayKey]int)
	for _, a := range assignments {
		key := dayKey{a.Slot.DemandID, a.Slot.Date.Format("2006-01-02")}
		required[key]++
		if a.Status == roster.StatusAssigned {
			filled[key]++
		}
	}
	for key, req := range required {
		if req == 0 {
			continue
		}
		ratio := float64(filled[key]) / float64(req)
		note := "demand " + key.demandID + " on " + key.date
		if filled[key] == 0 {
			sb.add("S15", w, "", "", "", note+" has no assignments at all")
		}
		if ratio < 0.5 {
			sb.add("S15", w, "", "", "", note+" filled under 50%")
		}
		if ratio < 0.8 {
			sb.add("S15", w, "", "", "", note+" filled under 80%")
		}
	}
}

// blackWhitelistRecheck is S16: the candidate-filter blacklist and whitelist
// rules are re-applied to the realised assignment, catching
// any drift between the filter stage and the final solution.
func blackWhitelistRecheck(ctx *roster.Context, assignments []roster.Assignment, empByID map[string]roster.Employee, sb *ScoreBook) {
	w := weightFor(ctx.SolverScoreConfig, "S16")
	for _, a := range assigned(assignments) {
		emp := empByID[a.EmployeeID]
		for _, entry := range a.Slot.Blacklist.EmployeeIDs {
			if entry.EmployeeID != emp.EmployeeID {
				continue
			}
			if !a.Slot.Date.Before(entry.BlacklistStartDate) && !a.Slot.Date.After(entry.BlacklistEndDate) {
				sb.add("S16", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment violates blacklist window")
			}
		}
		teams := a.Slot.Whitelist.TeamIDs
		ids := a.Slot.Whitelist.EmployeeIDs
		if len(teams) == 0 && len(ids) == 0 {
			continue
		}
		if contains(ids, emp.EmployeeID) || contains(teams, emp.TeamID) {
			continue
		}
		sb.add("S16", w, a.AssignmentID, a.Slot.SlotID, a.EmployeeID, "assignment violates whitelist restriction")
	}
}
