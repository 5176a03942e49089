package inputdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/your_project/vso-roster-solver/internal/roster"
)

const minimalValidDoc = `{
	"schemaVersion": "0.70",
	"planningReference": "REF-1",
	"planningHorizon": {"startDate": "2026-03-01", "endDate": "2026-03-07"},
	"employees": [
		{"employeeId": "E1", "rankId": "AVSO", "scheme": "A"}
	],
	"demandItems": [
		{
			"demandId": "D1",
			"shiftStartDate": "2026-03-01",
			"shifts": [
				{"shiftDetails": [{"shiftCode": "AM", "start": "08:00", "end": "17:00"}]}
			],
			"requirements": [
				{"requirementId": "R1", "rankId": "AVSO", "headcount": 1}
			]
		}
	]
}`

func TestParse_AcceptsMinimalValidDocument(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)
	assert.Equal(t, "REF-1", doc.PlanningReference)
	assert.Len(t, doc.Employees, 1)
}

func TestParse_RejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParse_RejectsMissingRequiredFields(t *testing.T) {
	_, err := Parse([]byte(`{"schemaVersion": "0.70"}`))
	assert.Error(t, err)
}

func TestValidate_RejectsEndDateBeforeStartDate(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	doc.PlanningHorizon.StartDate = "2026-03-10"
	doc.PlanningHorizon.EndDate = "2026-03-01"

	err = Validate(doc)
	assert.Error(t, err)
}

func TestToContext_DefaultsUnsetRotationOffsetToVariableMode(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	require.Len(t, ctx.Employees, 1)

	assert.Equal(t, 0, ctx.Employees[0].RotationOffset)
	assert.False(t, ctx.Employees[0].RotationOffsetFixed)
	assert.Equal(t, roster.GenderUnknown, ctx.Employees[0].Gender)
}

func TestToContext_DefaultsTimeLimitWhenUnset(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)

	assert.Equal(t, 15e9, float64(ctx.TimeLimit)) // 15s in nanoseconds
}

func TestToContext_RequirementDefaultsGenderAnyAndSchemeGlobal(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	require.Len(t, ctx.DemandItems, 1)
	require.Len(t, ctx.DemandItems[0].Requirements, 1)

	req := ctx.DemandItems[0].Requirements[0]
	assert.Equal(t, roster.GenderAny, req.Gender)
	assert.Equal(t, roster.SchemeGlobal, req.Scheme)
}

func TestToContext_CoverageDaysDefaultsToEveryDayWhenOmitted(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	require.Len(t, ctx.DemandItems[0].Shifts, 1)
	assert.Len(t, ctx.DemandItems[0].Shifts[0].CoverageDays, 7)
}

func TestToContext_CoverageDaysAcceptsNamedWeekdayList(t *testing.T) {
	raw := `{
		"schemaVersion": "0.70", "planningReference": "REF-1",
		"planningHorizon": {"startDate": "2026-03-01", "endDate": "2026-03-07"},
		"employees": [{"employeeId": "E1", "rankId": "AVSO", "scheme": "A"}],
		"demandItems": [{
			"demandId": "D1", "shiftStartDate": "2026-03-01",
			"shifts": [{
				"shiftDetails": [{"shiftCode": "AM", "start": "08:00", "end": "17:00"}],
				"coverageDays": ["Monday", "Tuesday"]
			}],
			"requirements": [{"requirementId": "R1", "rankId": "AVSO", "headcount": 1}]
		}]
	}`
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	assert.Len(t, ctx.DemandItems[0].Shifts[0].CoverageDays, 2)
}

func TestToContext_CoverageDaysAcceptsLegacyIntegerForm(t *testing.T) {
	raw := `{
		"schemaVersion": "0.70", "planningReference": "REF-1",
		"planningHorizon": {"startDate": "2026-03-01", "endDate": "2026-03-07"},
		"employees": [{"employeeId": "E1", "rankId": "AVSO", "scheme": "A"}],
		"demandItems": [{
			"demandId": "D1", "shiftStartDate": "2026-03-01",
			"shifts": [{
				"shiftDetails": [{"shiftCode": "AM", "start": "08:00", "end": "17:00"}],
				"coverageDays": 1
			}],
			"requirements": [{"requirementId": "R1", "rankId": "AVSO", "headcount": 1}]
		}]
	}`
	doc, err := Parse([]byte(raw))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	assert.Len(t, ctx.DemandItems[0].Shifts[0].CoverageDays, 7)
}

func TestToContext_FixedRotationOffsetDefaultsTrueWhenOmitted(t *testing.T) {
	doc, err := Parse([]byte(minimalValidDoc))
	require.NoError(t, err)

	ctx, err := doc.ToContext()
	require.NoError(t, err)
	assert.True(t, ctx.FixedRotationOffset)
}
