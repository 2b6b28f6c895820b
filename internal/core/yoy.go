package core

import "time"

// yoyPeriods is the number of monthly observations in one year.
const yoyPeriods = 12

// YoYPoint is a year-over-year percentage change at a date.
type YoYPoint struct {
	Date time.Time
	Pct  float64
	// Defined is false for the leading observations that have no
	// counterpart twelve periods earlier.
	Defined bool
}

// YearOverYear computes the percent change of each observation against the
// observation twelve positions earlier, matching a monthly CPI cadence.
// The result has one point per input observation; the first twelve are
// undefined. Observations with a zero base value are undefined as well.
func YearOverYear(obs []Observation) []YoYPoint {
	out := make([]YoYPoint, len(obs))
	for i, o := range obs {
		out[i] = YoYPoint{Date: o.Date}
		if i < yoyPeriods {
			continue
		}
		base := obs[i-yoyPeriods].Value
		if base == 0 {
			continue
		}
		out[i].Pct = (o.Value/base - 1) * 100
		out[i].Defined = true
	}
	return out
}
