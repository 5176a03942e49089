// Package inputdoc is the tagged deserialisation layer between the JSON
// input document (schema v0.43-0.70) and the fully typed internal data
// model in internal/roster. Every optional field's default lives here, once,
// rather than scattered across the solver as ad-hoc nil checks.
package inputdoc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"example.com/your_project/vso-roster-solver/internal/roster"
)

const dateLayout = "2006-01-02"

var weekdayByName = map[string]time.Weekday{
	"Sun": time.Sunday, "Sunday": time.Sunday,
	"Mon": time.Monday, "Monday": time.Monday,
	"Tue": time.Tuesday, "Tuesday": time.Tuesday,
	"Wed": time.Wednesday, "Wednesday": time.Wednesday,
	"Thu": time.Thursday, "Thursday": time.Thursday,
	"Fri": time.Friday, "Friday": time.Friday,
	"Sat": time.Saturday, "Saturday": time.Saturday,
}

// Document is the root of the input JSON document.
type Document struct {
	SchemaVersion       string             `json:"schemaVersion" validate:"required"`
	PlanningReference   string             `json:"planningReference" validate:"required"`
	PlanningHorizon     horizonDoc         `json:"planningHorizon" validate:"required"`
	PublicHolidays      []string           `json:"publicHolidays"`
	Employees           []employeeDoc      `json:"employees" validate:"required,dive"`
	DemandItems         []demandItemDoc    `json:"demandItems" validate:"required,dive"`
	SolverScoreConfig   map[string]float64 `json:"solverScoreConfig"`
	TimeLimit           float64            `json:"timeLimit"`
	FixedRotationOffset *bool              `json:"fixedRotationOffset"`
}

type horizonDoc struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
}

type licenseDoc struct {
	Code                    string  `json:"code" validate:"required"`
	Type                    string  `json:"type"`
	ExpiryDate              string  `json:"expiryDate" validate:"required"`
	ApprovalCode            string  `json:"approvalCode"`
	TemporaryApprovalExpiry *string `json:"temporaryApprovalExpiry"`
}

type preferencesDoc struct {
	PreferredShifts   []string `json:"preferredShifts"`
	PreferredTeams    []string `json:"preferredTeams"`
	PreferredSites    []string `json:"preferredSites"`
	PreferredZones    []string `json:"preferredZones"`
	PreferredOUs      []string `json:"preferredOUs"`
	UnpreferredShifts []string `json:"unpreferredShifts"`
	UnpreferredTeams  []string `json:"unpreferredTeams"`
	UnpreferredSites  []string `json:"unpreferredSites"`
	UnpreferredZones  []string `json:"unpreferredZones"`
	UnpreferredOUs    []string `json:"unpreferredOUs"`
}

type unavailabilityDoc struct {
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason"`
}

type employeeDoc struct {
	EmployeeID         string             `json:"employeeId" validate:"required"`
	RankID             string             `json:"rankId" validate:"required"`
	ProductTypeID      string             `json:"productTypeId"`
	Scheme             string             `json:"scheme" validate:"required"`
	Gender             string             `json:"gender"`
	TeamID             string             `json:"teamId"`
	OrganizationalUnit string             `json:"organizationalUnit"`
	SiteID             string             `json:"siteId"`
	ZoneID             string             `json:"zoneId"`
	RotationOffset     *int               `json:"rotationOffset"`
	Licenses           []licenseDoc       `json:"licenses"`
	Skills             []string           `json:"skills"`
	Preferences        *preferencesDoc    `json:"preferences"`
	Unavailability     []unavailabilityDoc `json:"unavailability"`
}

type blacklistEntryDoc struct {
	EmployeeID         string `json:"employeeId" validate:"required"`
	BlacklistStartDate string `json:"blacklistStartDate" validate:"required"`
	BlacklistEndDate   string `json:"blacklistEndDate" validate:"required"`
}

type whitelistDoc struct {
	TeamIDs     []string `json:"teamIds"`
	EmployeeIDs []string `json:"employeeIds"`
}

type blacklistDoc struct {
	EmployeeIDs []blacklistEntryDoc `json:"employeeIds"`
}

type shiftDetailDoc struct {
	ShiftCode string `json:"shiftCode" validate:"required"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	NextDay   bool   `json:"nextDay"`
}

// coverageDaysDoc accepts either a named weekday list or the legacy integer
// bitmask/count form some producers still emit.
type coverageDaysDoc struct {
	raw json.RawMessage
}

func (c *coverageDaysDoc) UnmarshalJSON(b []byte) error {
	c.raw = append([]byte(nil), b...)
	return nil
}

func (c coverageDaysDoc) weekdays() ([]time.Weekday, error) {
	if len(c.raw) == 0 || string(c.raw) == "null" {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(c.raw, &names); err == nil {
		days := make([]time.Weekday, 0, len(names))
		for _, n := range names {
			wd, ok := weekdayByName[n]
			if !ok {
				return nil, fmt.Errorf("coverageDays: unknown weekday %q", n)
			}
			days = append(days, wd)
		}
		return days, nil
	}
	// Legacy form: an integer meaning "every day of the week".
	var n int
	if err := json.Unmarshal(c.raw, &n); err == nil {
		if n <= 0 {
			return nil, nil
		}
		return []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}, nil
	}
	return nil, fmt.Errorf("coverageDays: unsupported value %s", string(c.raw))
}

type shiftGroupDoc struct {
	ShiftDetails               []shiftDetailDoc `json:"shiftDetails" validate:"required,dive"`
	CoverageDays               coverageDaysDoc  `json:"coverageDays"`
	CoverageAnchor             *string          `json:"coverageAnchor"`
	IncludePublicHolidays      bool             `json:"includePublicHolidays"`
	IncludeEveOfPublicHolidays bool             `json:"includeEveOfPublicHolidays"`
	PreferredTeams             []string         `json:"preferredTeams"`
	Whitelist                  whitelistDoc     `json:"whitelist"`
	Blacklist                  blacklistDoc     `json:"blacklist"`
}

type requirementDoc struct {
	RequirementID          string   `json:"requirementId" validate:"required"`
	ProductTypeID          string   `json:"productTypeId"`
	RankID                 string   `json:"rankId" validate:"required"`
	Headcount              int      `json:"headcount" validate:"required,min=1"`
	Gender                 string   `json:"gender"`
	Scheme                 string   `json:"Scheme"`
	RequiredQualifications []string `json:"requiredQualifications"`
	RequiredSkills         []string `json:"requiredSkills"`
	WorkPattern            []string `json:"workPattern"`
	RotationSequence       []string `json:"rotationSequence"`
}

type demandItemDoc struct {
	DemandID       string           `json:"demandId" validate:"required"`
	LocationID     string           `json:"locationId"`
	OUID           string           `json:"ouId"`
	ShiftStartDate string           `json:"shiftStartDate" validate:"required"`
	Shifts         []shiftGroupDoc  `json:"shifts" validate:"required,dive"`
	Requirements   []requirementDoc `json:"requirements" validate:"required,dive"`
}

var validate = validator.New()

// Parse decodes and validates raw JSON into a Document. Validation failures
// surface here, before any slot expansion or solve is attempted, per the
// "Input error" class: no partial output is ever produced for a malformed
// document.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse input document: %w", err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate runs struct-tag validation plus the horizon ordering check a
// caller must apply to any Document obtained outside of Parse — in
// particular one unmarshalled directly by the CLI runner's own flag/input
// filler rather than through this package.
func Validate(doc *Document) error {
	if err := validate.Struct(doc); err != nil {
		return fmt.Errorf("validate input document: %w", err)
	}
	start, err := parseDate(doc.PlanningHorizon.StartDate)
	if err != nil {
		return fmt.Errorf("planningHorizon.startDate: %w", err)
	}
	end, err := parseDate(doc.PlanningHorizon.EndDate)
	if err != nil {
		return fmt.Errorf("planningHorizon.endDate: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("planningHorizon: endDate %s precedes startDate %s", doc.PlanningHorizon.EndDate, doc.PlanningHorizon.StartDate)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func mustDate(s string) time.Time {
	t, _ := parseDate(s)
	return t
}

// ToContext converts a validated Document into the immutable roster.Context
// the rest of the solver operates on. Every optional field's fallback is
// applied here: unset rotationOffset defaults to 0, unset gender to "U",
// absent Scheme on a requirement defaults to "Global", absent preferences to
// the zero value.
func (d *Document) ToContext() (*roster.Context, error) {
	ctx := &roster.Context{
		SchemaVersion:     d.SchemaVersion,
		PlanningReference: d.PlanningReference,
		PlanningHorizon: roster.PlanningHorizon{
			StartDate: mustDate(d.PlanningHorizon.StartDate),
			EndDate:   mustDate(d.PlanningHorizon.EndDate),
		},
		PublicHolidays:    make(map[time.Time]struct{}, len(d.PublicHolidays)),
		SolverScoreConfig: roster.SolverScoreConfig(d.SolverScoreConfig),
		TimeLimit:         time.Duration(d.TimeLimit * float64(time.Second)),
		FixedRotationOffset: d.FixedRotationOffset == nil || *d.FixedRotationOffset,
	}
	if ctx.TimeLimit <= 0 {
		ctx.TimeLimit = 15 * time.Second
	}

	for _, s := range d.PublicHolidays {
		t, err := parseDate(s)
		if err != nil {
			return nil, fmt.Errorf("publicHolidays: %w", err)
		}
		ctx.PublicHolidays[t] = struct{}{}
	}

	for _, e := range d.Employees {
		emp, err := e.toEmployee()
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", e.EmployeeID, err)
		}
		ctx.Employees = append(ctx.Employees, emp)
	}

	for _, item := range d.DemandItems {
		di, err := item.toDemandItem()
		if err != nil {
			return nil, fmt.Errorf("demandItem %s: %w", item.DemandID, err)
		}
		ctx.DemandItems = append(ctx.DemandItems, di)
	}

	return ctx, nil
}

func (e employeeDoc) toEmployee() (roster.Employee, error) {
	gender := roster.Gender(e.Gender)
	if gender == "" {
		gender = roster.GenderUnknown
	}
	offset := 0
	fixed := true
	if e.RotationOffset != nil {
		offset = *e.RotationOffset
	} else {
		fixed = false
	}

	licenses := make([]roster.License, 0, len(e.Licenses))
	for _, l := range e.Licenses {
		expiry, err := parseDate(l.ExpiryDate)
		if err != nil {
			return roster.Employee{}, fmt.Errorf("licence %s: %w", l.Code, err)
		}
		var tmp *time.Time
		if l.TemporaryApprovalExpiry != nil {
			t, err := parseDate(*l.TemporaryApprovalExpiry)
			if err != nil {
				return roster.Employee{}, fmt.Errorf("licence %s temporaryApprovalExpiry: %w", l.Code, err)
			}
			tmp = &t
		}
		licenses = append(licenses, roster.License{
			Code:                    l.Code,
			Type:                    l.Type,
			ExpiryDate:              expiry,
			ApprovalCode:            l.ApprovalCode,
			TemporaryApprovalExpiry: tmp,
		})
	}

	skills := make(map[string]struct{}, len(e.Skills))
	for _, s := range e.Skills {
		skills[s] = struct{}{}
	}

	var prefs roster.Preferences
	if e.Preferences != nil {
		prefs = roster.Preferences{
			PreferredShifts:   e.Preferences.PreferredShifts,
			PreferredTeams:    e.Preferences.PreferredTeams,
			PreferredSites:    e.Preferences.PreferredSites,
			PreferredZones:    e.Preferences.PreferredZones,
			PreferredOUs:      e.Preferences.PreferredOUs,
			UnpreferredShifts: e.Preferences.UnpreferredShifts,
			UnpreferredTeams:  e.Preferences.UnpreferredTeams,
			UnpreferredSites:  e.Preferences.UnpreferredSites,
			UnpreferredZones:  e.Preferences.UnpreferredZones,
			UnpreferredOUs:    e.Preferences.UnpreferredOUs,
		}
	}

	unavailability := make([]roster.UnavailabilityWindow, 0, len(e.Unavailability))
	for _, u := range e.Unavailability {
		start, err := parseDate(u.StartDate)
		if err != nil {
			return roster.Employee{}, fmt.Errorf("unavailability: %w", err)
		}
		end, err := parseDate(u.EndDate)
		if err != nil {
			return roster.Employee{}, fmt.Errorf("unavailability: %w", err)
		}
		unavailability = append(unavailability, roster.UnavailabilityWindow{Start: start, End: end, Reason: u.Reason})
	}

	return roster.Employee{
		EmployeeID:          e.EmployeeID,
		RankID:              roster.Rank(e.RankID),
		ProductTypeID:       e.ProductTypeID,
		Scheme:              roster.Scheme(e.Scheme),
		Gender:              gender,
		TeamID:              e.TeamID,
		OrganizationalUnit:  e.OrganizationalUnit,
		SiteID:              e.SiteID,
		ZoneID:              e.ZoneID,
		RotationOffset:      offset,
		RotationOffsetFixed: fixed,
		Licenses:            licenses,
		Skills:              skills,
		Preferences:         prefs,
		Unavailability:      unavailability,
	}, nil
}

func (item demandItemDoc) toDemandItem() (roster.DemandItem, error) {
	shiftStart, err := parseDate(item.ShiftStartDate)
	if err != nil {
		return roster.DemandItem{}, fmt.Errorf("shiftStartDate: %w", err)
	}

	di := roster.DemandItem{
		DemandID:       item.DemandID,
		LocationID:     item.LocationID,
		OUID:           item.OUID,
		ShiftStartDate: shiftStart,
	}

	for _, sg := range item.Shifts {
		group, err := sg.toShiftGroup()
		if err != nil {
			return roster.DemandItem{}, err
		}
		di.Shifts = append(di.Shifts, group)
	}

	for _, req := range item.Requirements {
		di.Requirements = append(di.Requirements, req.toRequirement())
	}

	return di, nil
}

func (sg shiftGroupDoc) toShiftGroup() (roster.ShiftGroup, error) {
	details := make([]roster.ShiftDetail, 0, len(sg.ShiftDetails))
	for _, d := range sg.ShiftDetails {
		details = append(details, roster.ShiftDetail{
			ShiftCode: d.ShiftCode,
			Start:     d.Start,
			End:       d.End,
			NextDay:   d.NextDay,
		})
	}

	days, err := sg.CoverageDays.weekdays()
	if err != nil {
		return roster.ShiftGroup{}, err
	}
	if days == nil {
		days = []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		}
	}

	var anchor *time.Time
	if sg.CoverageAnchor != nil {
		t, err := parseDate(*sg.CoverageAnchor)
		if err != nil {
			return roster.ShiftGroup{}, fmt.Errorf("coverageAnchor: %w", err)
		}
		anchor = &t
	}

	blacklist := roster.Blacklist{}
	for _, b := range sg.Blacklist.EmployeeIDs {
		start, err := parseDate(b.BlacklistStartDate)
		if err != nil {
			return roster.ShiftGroup{}, fmt.Errorf("blacklist: %w", err)
		}
		end, err := parseDate(b.BlacklistEndDate)
		if err != nil {
			return roster.ShiftGroup{}, fmt.Errorf("blacklist: %w", err)
		}
		blacklist.EmployeeIDs = append(blacklist.EmployeeIDs, roster.BlacklistEntry{
			EmployeeID:         b.EmployeeID,
			BlacklistStartDate: start,
			BlacklistEndDate:   end,
		})
	}

	return roster.ShiftGroup{
		ShiftDetails:               details,
		CoverageDays:               days,
		CoverageAnchor:             anchor,
		IncludePublicHolidays:      sg.IncludePublicHolidays,
		IncludeEveOfPublicHolidays: sg.IncludeEveOfPublicHolidays,
		PreferredTeams:             sg.PreferredTeams,
		Whitelist:                  roster.Whitelist{TeamIDs: sg.Whitelist.TeamIDs, EmployeeIDs: sg.Whitelist.EmployeeIDs},
		Blacklist:                  blacklist,
	}, nil
}

func (req requirementDoc) toRequirement() roster.Requirement {
	gender := roster.Gender(req.Gender)
	if gender == "" {
		gender = roster.GenderAny
	}
	scheme := roster.Scheme(req.Scheme)
	if scheme == "" {
		scheme = roster.SchemeGlobal
	}
	pattern := req.WorkPattern
	if len(pattern) == 0 {
		pattern = req.RotationSequence
	}
	return roster.Requirement{
		RequirementID:          req.RequirementID,
		ProductTypeID:          req.ProductTypeID,
		RankID:                 roster.Rank(req.RankID),
		Headcount:              req.Headcount,
		Gender:                 gender,
		Scheme:                 scheme,
		RequiredQualifications: req.RequiredQualifications,
		RequiredSkills:         req.RequiredSkills,
		WorkPattern:            pattern,
	}
}
