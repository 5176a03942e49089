// Package hardrules layers the sixteen hard constraint families onto the
// variable grid the model package builds. None of these add variables; they
// only forbid or further restrict assignments that the candidate filter
// already allowed to exist.
package hardrules

import (
	"sort"
	"time"

	"example.com/your_project/vso-roster-solver/internal/candidates"
	"example.com/your_project/vso-roster-solver/internal/hours"
	"example.com/your_project/vso-roster-solver/internal/mipx"
	"example.com/your_project/vso-roster-solver/internal/model"
	"example.com/your_project/vso-roster-solver/internal/roster"

	"github.com/nextmv-io/sdk/mip"
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

// Apply adds every hard rule family's constraints to m.
func Apply(m mip.Model, ctx *roster.Context, slots []roster.Slot, idx candidates.Index, vars *model.Variables) {
	empByID := make(map[string]roster.Employee, len(ctx.Employees))
	for _, e := range ctx.Employees {
		empByID[e.EmployeeID] = e
	}

	dailyCap(m, slots, vars, empByID)
	weeklyNormalAndMonthlyOT(m, ctx.Employees, slots, vars)
	maxConsecutive(m, ctx, vars)
	restBetweenShifts(m, ctx.Employees, idx, vars)
	minOffDayPerWindow(m, ctx, vars)
	partTimerTieredCap(m, ctx.Employees, slots, vars)
	qualificationExpiry(m, slots, vars, empByID)
	provisionalLicenceExpiry(m, slots, vars, empByID)
	genderMix(m, slots, vars, empByID)
	skillMatch(m, slots, vars, empByID)
	rankMatch(m, slots, vars, empByID)
	preferredTeamMatch(m, slots, vars, empByID)
	interSiteTravel(m, ctx.Employees, idx, vars)
	expiryOverrideControl(m, slots, vars, empByID)
	noOverlap(m, ctx.Employees, idx, vars)
	monthlyOTRedundant(m, ctx.Employees, slots, vars)
}

// dailyCap is C1: gross hours for any slot exceeding the employee's scheme
// cap (A:14, B:13, P:9) forbids that assignment outright.
func dailyCap(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		gross := hours.Span(slot.Start, slot.End).Gross
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			cap, ok := schemeDailyCap[emp.Scheme]
			if ok && gross > cap {
				mipx.Forbid(m, v)
			}
		}
	}
}

// weeklyNormalAndMonthlyOT is C2: per (employee, ISO week) normal hours stay
// at or under 44, and per (employee, calendar month) OT hours stay at or
// under 72.
func weeklyNormalAndMonthlyOT(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *model.Variables) {
	type weekKey struct{ emp, week string }
	type monthKey struct{ emp, month string }

	weekTerms := make(map[weekKey][]mipx.Term)
	monthTerms := make(map[monthKey][]mipx.Term)

	for _, slot := range slots {
		h := hours.Span(slot.Start, slot.End)
		wk := hours.ISOWeekKey(slot.Date)
		mk := hours.MonthKey(slot.Date)
		for empID, v := range vars.X[slot.SlotID] {
			weekTerms[weekKey{empID, wk}] = append(weekTerms[weekKey{empID, wk}], mipx.Term{Coefficient: h.Normal, Variable: v})
			monthTerms[monthKey{empID, mk}] = append(monthTerms[monthKey{empID, mk}], mipx.Term{Coefficient: h.OT, Variable: v})
		}
	}

	for _, terms := range weekTerms {
		c := m.NewConstraint(mip.LessThanOrEqual, weeklyNormalCap)
		for _, t := range terms {
			c.NewTerm(t.Coefficient, t.Variable)
		}
	}
	for _, terms := range monthTerms {
		c := m.NewConstraint(mip.LessThanOrEqual, monthlyOTCap)
		for _, t := range terms {
			c.NewTerm(t.Coefficient, t.Variable)
		}
	}
}

// maxConsecutive is C3: across every 13-day calendar window, an employee may
// have at most 12 worked days.
func maxConsecutive(m mip.Model, ctx *roster.Context, vars *model.Variables) {
	days := ctx.PlanningHorizon.Days()
	if len(days) <= maxConsecutiveDays {
		return
	}
	for _, byDate := range vars.DayWorked {
		for i := 0; i+maxConsecutiveDays < len(days); i++ {
			window := days[i : i+maxConsecutiveDays+1]
			var members []mip.Bool
			for _, d := range window {
				if v, ok := byDate[d.Format("2006-01-02")]; ok {
					members = append(members, v)
				}
			}
			if len(members) == 0 {
				continue
			}
			c := m.NewConstraint(mip.LessThanOrEqual, float64(maxConsecutiveDays))
			for _, v := range members {
				c.NewTerm(1.0, v)
			}
		}
	}
}

// restBetweenShifts is C4: two candidate slots for the same employee less
// than 8 hours apart (and not already overlapping, which C16 handles) cannot
// both be assigned.
func restBetweenShifts(m mip.Model, employees []roster.Employee, idx candidates.Index, vars *model.Variables) {
	for _, emp := range employees {
		pairs := idx.ByEmployee[emp.EmployeeID]
		sorted := make([]candidates.Pair, len(pairs))
		copy(sorted, pairs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.End.Before(sorted[j].Slot.End) })

		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				s1, s2 := sorted[i].Slot, sorted[j].Slot
				gap := s2.Start.Sub(s1.End).Hours()
				if gap >= restMinHours {
					break // sorted by end time: once satisfied, later pairs are too
				}
				if s2.Start.Before(s1.End) {
					continue // overlapping, not a rest-gap case
				}
				v1 := vars.X[s1.SlotID][emp.EmployeeID]
				v2 := vars.X[s2.SlotID][emp.EmployeeID]
				mipx.AtMostOne(m, v1, v2)
			}
		}
	}
}

// minOffDayPerWindow is C5: across every 7-day calendar window, an employee
// may have at most 6 worked days.
func minOffDayPerWindow(m mip.Model, ctx *roster.Context, vars *model.Variables) {
	days := ctx.PlanningHorizon.Days()
	if len(days) < offDayWindowDays {
		return
	}
	for _, byDate := range vars.DayWorked {
		for i := 0; i+offDayWindowDays <= len(days); i++ {
			window := days[i : i+offDayWindowDays]
			var members []mip.Bool
			for _, d := range window {
				if v, ok := byDate[d.Format("2006-01-02")]; ok {
					members = append(members, v)
				}
			}
			if len(members) == 0 {
				continue
			}
			c := m.NewConstraint(mip.LessThanOrEqual, float64(offDayWindowDays-1))
			for _, v := range members {
				c.NewTerm(1.0, v)
			}
		}
	}
}

// partTimerTieredCap is C6: scheme-P employees are capped at 34.98 gross
// hours in a week where they work 4 days or fewer, or 29.98 otherwise. The
// two-branch cap is enforced via a day-count indicator gated with a big-M
// constraint on each side.
func partTimerTieredCap(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *model.Variables) {
	const bigM = 1000.0

	empByID := make(map[string]roster.Employee, len(employees))
	for _, e := range employees {
		empByID[e.EmployeeID] = e
	}

	type weekKey struct{ emp, week string }
	dayVars := make(map[weekKey][]mip.Bool)
	grossTerms := make(map[weekKey][]mipx.Term)

	for _, slot := range slots {
		wk := hours.ISOWeekKey(slot.Date)
		gross := hours.Span(slot.Start, slot.End).Gross
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			if emp.Scheme != roster.SchemeP {
				continue
			}
			key := weekKey{empID, wk}
			dayVars[key] = append(dayVars[key], v)
			grossTerms[key] = append(grossTerms[key], mipx.Term{Coefficient: gross, Variable: v})
		}
	}

	for key, members := range dayVars {
		daysWorked := m.NewInt(0, len(members))
		c := m.NewConstraint(mip.Equal, 0.0)
		c.NewTerm(-1.0, daysWorked)
		for _, v := range members {
			c.NewTerm(1.0, v)
		}

		leFour := m.NewBool()

		// daysWorked + bigM*leFour <= 4 + bigM: binds to daysWorked<=4 when
		// leFour==1, relaxed when leFour==0.
		upper := m.NewConstraint(mip.LessThanOrEqual, 4.0+bigM)
		upper.NewTerm(1.0, daysWorked)
		upper.NewTerm(bigM, leFour)

		// daysWorked + bigM*leFour >= 5: binds to daysWorked>=5 when
		// leFour==0, relaxed when leFour==1.
		lower := m.NewConstraint(mip.GreaterThanOrEqual, 5.0)
		lower.NewTerm(1.0, daysWorked)
		lower.NewTerm(bigM, leFour)

		mipx.BigMLessThanOrEqual(m, grossTerms[key], partTimeFourDayCap, leFour, bigM)

		notLeFour := m.NewBool()
		notC := m.NewConstraint(mip.Equal, 1.0)
		notC.NewTerm(1.0, leFour)
		notC.NewTerm(1.0, notLeFour)
		mipx.BigMLessThanOrEqual(m, grossTerms[key], partTimeFiveDayCap, notLeFour, bigM)
	}
}

// licenseByCode looks up an employee's held licence for a qualification code.
func licenseByCode(emp roster.Employee, code string) (roster.License, bool) {
	for _, l := range emp.Licenses {
		if l.Code == code {
			return l, true
		}
	}
	return roster.License{}, false
}

// effectiveExpiry returns the latest date a licence remains usable: its
// recorded expiry, or its temporary approval expiry when that is later.
func effectiveExpiry(l roster.License) time.Time {
	if l.TemporaryApprovalExpiry != nil && l.TemporaryApprovalExpiry.After(l.ExpiryDate) {
		return *l.TemporaryApprovalExpiry
	}
	return l.ExpiryDate
}

// qualificationExpiry is C7: every required qualification must be held and
// unexpired (considering any temporary approval) as of the slot's date.
func qualificationExpiry(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		if len(slot.RequiredQualifications) == 0 {
			continue
		}
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			for _, code := range slot.RequiredQualifications {
				lic, ok := licenseByCode(emp, code)
				if !ok || slot.Date.After(effectiveExpiry(lic)) {
					mipx.Forbid(m, v)
					break
				}
			}
		}
	}
}

// provisionalLicenceExpiry is C8: a provisional (PDL/PROVISIONAL) licence
// still counts as expired on its own recorded expiry date, overrides aside.
func provisionalLicenceExpiry(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			for _, l := range emp.Licenses {
				if l.IsProvisional() && slot.Date.After(l.ExpiryDate) {
					mipx.Forbid(m, v)
					break
				}
			}
		}
	}
}

// genderMix is C9: for slots requiring a gender Mix, at least one male and
// at least one female must be assigned within the (date, demand,
// requirement) group whenever the group is filled at all. If only one
// gender is available in the eligible workforce, the group is left
// unassigned rather than violating the other half of the mix.
func genderMix(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	type groupKey struct {
		date, demandID, requirementID string
	}
	groups := make(map[groupKey][]roster.Slot)
	for _, slot := range slots {
		if slot.GenderRequirement != roster.GenderMix {
			continue
		}
		key := groupKey{slot.Date.Format("2006-01-02"), slot.DemandID, slot.RequirementID}
		groups[key] = append(groups[key], slot)
	}

	for _, groupSlots := range groups {
		if len(groupSlots) < 2 {
			continue
		}
		var filledBools []mip.Bool
		var maleTerms, femaleTerms []mip.Bool
		for _, slot := range groupSlots {
			filled := m.NewBool()
			fc := m.NewConstraint(mip.Equal, 1.0)
			fc.NewTerm(1.0, filled)
			fc.NewTerm(1.0, vars.Unassigned[slot.SlotID])
			filledBools = append(filledBools, filled)

			for empID, v := range vars.X[slot.SlotID] {
				switch empByID[empID].Gender {
				case roster.GenderM:
					maleTerms = append(maleTerms, v)
				case roster.GenderF:
					femaleTerms = append(femaleTerms, v)
				}
			}
		}

		anyFilled := m.NewBool()
		mipx.Channel(m, anyFilled, filledBools)

		maleC := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		maleC.NewTerm(-1.0, anyFilled)
		for _, v := range maleTerms {
			maleC.NewTerm(1.0, v)
		}
		femaleC := m.NewConstraint(mip.GreaterThanOrEqual, 0.0)
		femaleC.NewTerm(-1.0, anyFilled)
		for _, v := range femaleTerms {
			femaleC.NewTerm(1.0, v)
		}
	}
}

// skillMatch is C10: every required skill must be held by the assigned
// employee.
func skillMatch(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		if len(slot.RequiredSkills) == 0 {
			continue
		}
		for empID, v := range vars.X[slot.SlotID] {
			if !empByID[empID].HasAllSkills(slot.RequiredSkills) {
				mipx.Forbid(m, v)
			}
		}
	}
}

// rankMatch is C11: the assigned employee's rank must equal the slot's
// required rank.
func rankMatch(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		for empID, v := range vars.X[slot.SlotID] {
			if empByID[empID].RankID != slot.RankID {
				mipx.Forbid(m, v)
			}
		}
	}
}

// preferredTeamMatch is C12: when a slot names a non-empty preferred-teams
// list, only members of those teams may be assigned.
func preferredTeamMatch(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		if len(slot.PreferredTeams) == 0 {
			continue
		}
		allowed := make(map[string]struct{}, len(slot.PreferredTeams))
		for _, t := range slot.PreferredTeams {
			allowed[t] = struct{}{}
		}
		for empID, v := range vars.X[slot.SlotID] {
			if _, ok := allowed[empByID[empID].TeamID]; !ok {
				mipx.Forbid(m, v)
			}
		}
	}
}

// interSiteTravel is C14: two candidate slots for the same employee on the
// same date at different sites, less than 30 minutes apart, cannot both be
// assigned.
func interSiteTravel(m mip.Model, employees []roster.Employee, idx candidates.Index, vars *model.Variables) {
	for _, emp := range employees {
		pairs := idx.ByEmployee[emp.EmployeeID]
		sorted := make([]candidates.Pair, len(pairs))
		copy(sorted, pairs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.Start.Before(sorted[j].Slot.Start) })

		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				s1, s2 := sorted[i].Slot, sorted[j].Slot
				if s1.Date.Format("2006-01-02") != s2.Date.Format("2006-01-02") {
					continue
				}
				if s1.LocationID == s2.LocationID {
					continue
				}
				gapMinutes := s2.Start.Sub(s1.End).Minutes()
				if gapMinutes < 0 {
					continue // overlapping, C16's concern
				}
				if gapMinutes < travelBufferMins {
					v1 := vars.X[s1.SlotID][emp.EmployeeID]
					v2 := vars.X[s2.SlotID][emp.EmployeeID]
					mipx.AtMostOne(m, v1, v2)
				}
			}
		}
	}
}

// expiryOverrideControl is C15: a required qualification that is expired on
// the slot's date, with no temporary approval covering it (or one that is
// itself expired), forbids the assignment. This restates C7's override
// handling as an independent check, the way C17 restates C2's OT half.
func expiryOverrideControl(m mip.Model, slots []roster.Slot, vars *model.Variables, empByID map[string]roster.Employee) {
	for _, slot := range slots {
		if len(slot.RequiredQualifications) == 0 {
			continue
		}
		for empID, v := range vars.X[slot.SlotID] {
			emp := empByID[empID]
			for _, code := range slot.RequiredQualifications {
				lic, ok := licenseByCode(emp, code)
				if !ok || !slot.Date.After(lic.ExpiryDate) {
					continue
				}
				if lic.TemporaryApprovalExpiry != nil && !slot.Date.After(*lic.TemporaryApprovalExpiry) {
					continue
				}
				mipx.Forbid(m, v)
			}
		}
	}
}

// noOverlap is C16: two candidate slots for the same employee whose time
// ranges overlap cannot both be assigned.
func noOverlap(m mip.Model, employees []roster.Employee, idx candidates.Index, vars *model.Variables) {
	for _, emp := range employees {
		pairs := idx.ByEmployee[emp.EmployeeID]
		sorted := make([]candidates.Pair, len(pairs))
		copy(sorted, pairs)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slot.Start.Before(sorted[j].Slot.Start) })

		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				s1, s2 := sorted[i].Slot, sorted[j].Slot
				if !s2.Start.Before(s1.End) {
					break // sorted by start: once no longer overlapping, none after do either
				}
				v1 := vars.X[s1.SlotID][emp.EmployeeID]
				v2 := vars.X[s2.SlotID][emp.EmployeeID]
				mipx.AtMostOne(m, v1, v2)
			}
		}
	}
}

// monthlyOTRedundant is C17: the same monthly-OT cap as C2, kept as a
// separate constraint deliberately; duplicate constraints over the same
// variables are permitted and not harmful.
func monthlyOTRedundant(m mip.Model, employees []roster.Employee, slots []roster.Slot, vars *model.Variables) {
	type monthKey struct{ emp, month string }
	terms := make(map[monthKey][]mipx.Term)
	for _, slot := range slots {
		h := hours.Span(slot.Start, slot.End)
		mk := hours.MonthKey(slot.Date)
		for empID, v := range vars.X[slot.SlotID] {
			terms[monthKey{empID, mk}] = append(terms[monthKey{empID, mk}], mipx.Term{Coefficient: h.OT, Variable: v})
		}
	}
	for _, ts := range terms {
		c := m.NewConstraint(mip.LessThanOrEqual, monthlyOTCap)
		for _, t := range ts {
			c.NewTerm(t.Coefficient, t.Variable)
		}
	}
}
