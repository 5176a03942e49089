// Package hours computes the canonical working-hours split for a single
// shift span: gross duration, the unpaid meal break, and the normal/overtime
// split once the break is deducted.
package hours

import (
	"fmt"
	"math"
	"time"

	"example.com/your_project/vso-roster-solver/internal/roster"
)

const (
	lunchThresholdHours = 6.0
	normalCapHours      = 9.0
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Span computes the canonical hour breakdown for a shift running from start
// to end. end must already be rolled onto the next calendar day for
// overnight shifts (the slot builder handles the rollover).
func Span(start, end time.Time) roster.ShiftHours {
	gross := round2(end.Sub(start).Hours())
	lunch := Lunch(gross)
	normal, ot := SplitNormalOT(gross, lunch)
	return roster.ShiftHours{
		Gross:  gross,
		Lunch:  lunch,
		Normal: normal,
		OT:     ot,
		Paid:   gross,
	}
}

// Lunch returns the unpaid meal-break duration for a shift of the given
// gross length: exactly one hour once gross exceeds six hours, zero otherwise.
func Lunch(gross float64) float64 {
	if gross > lunchThresholdHours {
		return 1.0
	}
	return 0.0
}

// SplitNormalOT splits gross hours (minus the lunch break) into normal hours
// (capped at 9h per shift) and overtime (everything beyond 9h).
func SplitNormalOT(gross, lunch float64) (normal, ot float64) {
	normal = math.Max(0, math.Min(gross, normalCapHours)-lunch)
	ot = math.Max(0, gross-normalCapHours)
	return round2(normal), round2(ot)
}

// ISOWeekKey returns a stable "YYYY-Www" key for weekly aggregation.
func ISOWeekKey(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns a stable "YYYY-MM" key for monthly aggregation.
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}
