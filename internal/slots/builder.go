// Package slots expands demand items, rotation patterns and coverage-day
// rules into atomic, headcount-1 Slot records: one Slot per (demand,
// requirement, shift code, position, calendar day) combination that needs
// covering.
package slots

import (
	"sort"
	"time"

	"example.com/your_project/vso-roster-solver/internal/roster"
	"example.com/your_project/vso-roster-solver/internal/slotid"
)

// Build expands every demand item in ctx into the flat list of slots that
// must be covered over the planning horizon. Slot order is deterministic:
// by demand, shift group, requirement, shift code, position, then date.
func Build(ctx *roster.Context) []roster.Slot {
	var out []roster.Slot

	for _, dmd := range ctx.DemandItems {
		for _, sg := range dmd.Shifts {
			detailByCode := make(map[string]roster.ShiftDetail, len(sg.ShiftDetails))
			for _, sd := range sg.ShiftDetails {
				detailByCode[sd.ShiftCode] = sd
			}

			anchor := dmd.ShiftStartDate
			if sg.CoverageAnchor != nil {
				anchor = *sg.CoverageAnchor
			}

			coverageWeekdays := make(map[time.Weekday]struct{}, len(sg.CoverageDays))
			for _, wd := range sg.CoverageDays {
				coverageWeekdays[wd] = struct{}{}
			}

			for _, req := range dmd.Requirements {
				if len(req.WorkPattern) == 0 {
					continue
				}

				codes := uniqueNonOffCodes(req.WorkPattern)
				sort.Strings(codes)

				for _, code := range codes {
					detail, ok := detailByCode[code]
					if !ok {
						continue
					}

					for position := 0; position < req.Headcount; position++ {
						for _, day := range ctx.PlanningHorizon.Days() {
							if !dayIncluded(ctx, day, coverageWeekdays, sg) {
								continue
							}

							start, end := shiftSpan(day, detail)

							out = append(out, roster.Slot{
								SlotID:                 slotid.Derive(dmd.DemandID, req.RequirementID, code, position, day),
								DemandID:               dmd.DemandID,
								RequirementID:          req.RequirementID,
								Position:               position,
								Date:                   day,
								ShiftCode:              code,
								Start:                  start,
								End:                    end,
								LocationID:             dmd.LocationID,
								OUID:                   dmd.OUID,
								ProductTypeID:          req.ProductTypeID,
								RankID:                 req.RankID,
								GenderRequirement:      req.Gender,
								SchemeRequirement:      req.Scheme,
								RequiredQualifications: req.RequiredQualifications,
								RequiredSkills:         req.RequiredSkills,
								RotationSequence:       req.WorkPattern,
								CoverageAnchor:         anchor,
								PreferredTeams:         sg.PreferredTeams,
								Whitelist:              sg.Whitelist,
								Blacklist:              sg.Blacklist,
							})
						}
					}
				}
			}
		}
	}

	return out
}

// uniqueNonOffCodes returns the distinct shift codes in a work pattern,
// excluding "O" (off). Pattern "O" entries govern employee matching only,
// never slot creation.
func uniqueNonOffCodes(pattern []string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, c := range pattern {
		if c == "O" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	return codes
}

func dayIncluded(ctx *roster.Context, day time.Time, coverageWeekdays map[time.Weekday]struct{}, sg roster.ShiftGroup) bool {
	if _, ok := coverageWeekdays[day.Weekday()]; !ok {
		return false
	}
	if isPublicHoliday(ctx, day) && !sg.IncludePublicHolidays {
		return false
	}
	nextDay := day.AddDate(0, 0, 1)
	if isPublicHoliday(ctx, nextDay) && !sg.IncludeEveOfPublicHolidays {
		return false
	}
	return true
}

func isPublicHoliday(ctx *roster.Context, day time.Time) bool {
	key := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	_, ok := ctx.PublicHolidays[key]
	return ok
}

func shiftSpan(day time.Time, detail roster.ShiftDetail) (start, end time.Time) {
	start = combine(day, detail.Start)
	end = combine(day, detail.End)
	if detail.NextDay || !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end
}

func combine(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}
