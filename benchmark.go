package portfolio

import "fmt"

// BenchmarkConfig maps a portfolio's reporting currency to the benchmark
// instrument symbols it is compared against. Which indices apply to a
// portfolio is configuration, never hardcoded logic: a KRW fund compares
// against Korean indices, a USD fund against American ones, and a fund may
// carry several (e.g. domestic index plus a currency-adjusted foreign one).
type BenchmarkConfig map[string][]string

// DefaultBenchmarkConfig mirrors the upstream dashboard's mapping.
func DefaultBenchmarkConfig() BenchmarkConfig {
	return BenchmarkConfig{
		"KRW": {"^KS11", "^KS200"},
		"USD": {"^GSPC"},
	}
}

// Symbols returns the benchmark symbols for a currency, or nil when none
// are configured.
func (c BenchmarkConfig) Symbols(currency string) []string {
	return c[currency]
}

// BenchmarkReturn is the outcome of comparing the portfolio against one
// benchmark over a period.
type BenchmarkReturn struct {
	Symbol string
	Name   string

	// Return is the benchmark's own compounded return over the window.
	Return Return
	// Excess is the portfolio return minus the benchmark return: a simple
	// difference of geometric returns, not a ratio.
	Excess Return
}

// IndexedPoint is one day of an indexed comparison chart, rebased to 100
// at the first common date.
type IndexedPoint struct {
	On    Date
	Value float64
}

// IndexedComparison is a portfolio-vs-benchmark chart series.
type IndexedComparison struct {
	Symbol    string
	Name      string
	Portfolio []IndexedPoint
	Benchmark []IndexedPoint
}

// Compare computes the benchmark return over the portfolio's trading dates
// and the excess of the given portfolio return over it.
//
// The benchmark is valued with carry-forward: when the benchmark has no
// close on a portfolio trading date (holiday mismatch), the last known
// close before it applies; the series is never read ahead. It fails with
// ErrNoBenchmarkData when the series is empty; callers that extend the
// fetch before the window also check the window itself holds a close.
func Compare(portfolioReturn Return, series BenchmarkSeries, dates []Date) (BenchmarkReturn, error) {
	if series.Closes == nil || series.Closes.Len() == 0 {
		return BenchmarkReturn{}, fmt.Errorf("benchmark %s: %w", series.Instrument.Symbol, ErrNoBenchmarkData)
	}
	if len(dates) == 0 {
		return BenchmarkReturn{}, fmt.Errorf("benchmark %s: empty portfolio window: %w", series.Instrument.Symbol, ErrNoBenchmarkData)
	}

	// Geometric compounding over the portfolio's date axis. With
	// carry-forward closes this telescopes to last/first, but walking the
	// axis keeps the semantics aligned with the portfolio calculation.
	growth := 1.0
	prev, ok := series.Closes.ValueAsOf(dates[0])
	if !ok || prev <= 0 {
		// No close on or before the first portfolio date: anchor at the
		// first close inside the window instead.
		_, prev = series.Closes.First()
	}
	for _, on := range dates[1:] {
		close, ok := series.Closes.ValueAsOf(on)
		if !ok || close <= 0 {
			continue
		}
		if prev > 0 {
			growth *= close / prev
		}
		prev = close
	}

	benchReturn := Return(growth - 1)
	return BenchmarkReturn{
		Symbol: series.Instrument.Symbol,
		Name:   series.Instrument.Name,
		Return: benchReturn,
		Excess: portfolioReturn - benchReturn,
	}, nil
}

// IndexedChart builds the rebased comparison series: portfolio NAV and
// benchmark closes both indexed to 100 at the first date where both have
// a value.
func IndexedChart(snapshots []DailySnapshot, series BenchmarkSeries) (IndexedComparison, error) {
	if series.Closes == nil || series.Closes.Len() == 0 {
		return IndexedComparison{}, fmt.Errorf("benchmark %s: %w", series.Instrument.Symbol, ErrNoBenchmarkData)
	}

	out := IndexedComparison{Symbol: series.Instrument.Symbol, Name: series.Instrument.Name}
	var baseNAV, baseClose float64
	for _, snap := range snapshots {
		close, ok := series.Closes.Get(snap.On)
		if !ok || close <= 0 {
			continue
		}
		nav := snap.NAV.AsFloat()
		if nav <= 0 {
			continue
		}
		if baseNAV == 0 {
			baseNAV, baseClose = nav, close
		}
		out.Portfolio = append(out.Portfolio, IndexedPoint{On: snap.On, Value: nav / baseNAV * 100})
		out.Benchmark = append(out.Benchmark, IndexedPoint{On: snap.On, Value: close / baseClose * 100})
	}
	if len(out.Portfolio) == 0 {
		return IndexedComparison{}, fmt.Errorf("benchmark %s: no overlapping dates: %w", series.Instrument.Symbol, ErrNoBenchmarkData)
	}
	return out, nil
}
