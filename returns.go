package portfolio

import "fmt"

// ReturnPoint is one day of the derived return series. Daily is nil on the
// first day of a series: day zero has no return, and the engine never
// substitutes a zero for it.
type ReturnPoint struct {
	On         Date
	Daily      *Return
	Cumulative Return
	NAV        Money
}

// ReturnSeries is the daily return track of a portfolio over a window.
type ReturnSeries struct {
	Points []ReturnPoint

	// FlowAdjusted is true when external cash flows were removed from the
	// daily returns (the time-weighted-return convention). When flow data
	// is unavailable the series falls back to plain NAV changes and this
	// is false, so callers can surface the caveat.
	FlowAdjusted bool
}

// DailyReturns derives the daily return series from ordered NAV snapshots.
//
// The daily return at day t is (nav[t] - flow[t]) / nav[t-1] - 1, where
// flow[t] is the external cash moved in or out between t-1 and t. Pass a
// nil flows history when that data is unavailable; the series then uses
// plain NAV returns and is flagged accordingly.
//
// The cumulative track compounds geometrically: cum[t] = ∏(1+r_i) - 1.
// Arithmetic summation is never used for a headline return.
func DailyReturns(snapshots []DailySnapshot, flows *History[float64]) ReturnSeries {
	series := ReturnSeries{FlowAdjusted: flows != nil}
	if len(snapshots) == 0 {
		return series
	}

	series.Points = make([]ReturnPoint, 0, len(snapshots))
	series.Points = append(series.Points, ReturnPoint{On: snapshots[0].On, NAV: snapshots[0].NAV})

	growth := 1.0
	for t := 1; t < len(snapshots); t++ {
		prev, curr := snapshots[t-1], snapshots[t]
		prevNAV := prev.NAV.AsFloat()
		if prevNAV == 0 {
			// A valuation cannot grow out of a zero base; skip the day but
			// keep the point so the date axis stays complete.
			series.Points = append(series.Points, ReturnPoint{On: curr.On, Cumulative: Return(growth - 1), NAV: curr.NAV})
			continue
		}
		nav := curr.NAV.AsFloat()
		if flows != nil {
			if flow, ok := flows.Get(curr.On); ok {
				nav -= flow
			}
		}
		r := Return(nav/prevNAV - 1)
		growth *= 1 + float64(r)
		series.Points = append(series.Points, ReturnPoint{
			On:         curr.On,
			Daily:      &r,
			Cumulative: Return(growth - 1),
			NAV:        curr.NAV,
		})
	}
	return series
}

// Cumulative returns the compounded return over the whole series.
func (s ReturnSeries) Cumulative() Return {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Cumulative
}

// Daily returns the per-day return fractions, skipping the absent day-zero
// return. The result feeds the risk calculators.
func (s ReturnSeries) Daily() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if p.Daily != nil {
			out = append(out, float64(*p.Daily))
		}
	}
	return out
}

// PeriodReturn computes the compounded return over ordered snapshots.
// It fails with ErrInsufficientData when fewer than two snapshots exist,
// because a period return needs both endpoints.
func PeriodReturn(snapshots []DailySnapshot, flows *History[float64]) (Return, error) {
	if len(snapshots) < 2 {
		return 0, fmt.Errorf("period return needs 2 snapshots, have %d: %w", len(snapshots), ErrInsufficientData)
	}
	return DailyReturns(snapshots, flows).Cumulative(), nil
}
