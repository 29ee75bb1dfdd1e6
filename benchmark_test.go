package portfolio

import (
	"errors"
	"math"
	"testing"
)

func kospi(points map[Date]float64) BenchmarkSeries {
	return BenchmarkSeries{
		Instrument: Instrument{Symbol: "^KS11", Name: "KOSPI", Kind: "STOCK_INDEX", Country: "KR", Currency: "KRW"},
		Closes:     closes(points),
	}
}

func TestCompare_ExcessIsSimpleDifference(t *testing.T) {
	dates := []Date{NewDate(2025, 1, 2), NewDate(2025, 1, 3), NewDate(2025, 1, 6)}
	series := kospi(map[Date]float64{
		NewDate(2025, 1, 2): 2500,
		NewDate(2025, 1, 3): 2525,
		NewDate(2025, 1, 6): 2550,
	})

	got, err := Compare(Return(0.05), series, dates)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if want := Return(2550.0/2500.0 - 1); !got.Return.Equal(want) {
		t.Errorf("Return = %v, want %v", got.Return, want)
	}
	if want := Return(0.05) - got.Return; !got.Excess.Equal(want) {
		t.Errorf("Excess = %v, want %v (difference, not ratio)", got.Excess, want)
	}
	if got.Symbol != "^KS11" || got.Name != "KOSPI" {
		t.Errorf("identity = %q/%q", got.Symbol, got.Name)
	}
}

func TestCompare_CarriesForwardOverHolidays(t *testing.T) {
	// The portfolio trades on 1/3 but the benchmark market is closed: the
	// last known close applies and no look-ahead happens.
	dates := []Date{NewDate(2025, 1, 2), NewDate(2025, 1, 3), NewDate(2025, 1, 6)}
	series := kospi(map[Date]float64{
		NewDate(2025, 1, 2): 2500,
		NewDate(2025, 1, 6): 2550,
	})

	got, err := Compare(0, series, dates)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if want := Return(2550.0/2500.0 - 1); !got.Return.Equal(want) {
		t.Errorf("Return = %v, want %v", got.Return, want)
	}
}

func TestCompare_NoData(t *testing.T) {
	dates := []Date{NewDate(2025, 1, 2), NewDate(2025, 1, 3)}
	_, err := Compare(0, kospi(nil), dates)
	if !errors.Is(err, ErrNoBenchmarkData) {
		t.Errorf("Compare() error = %v, want ErrNoBenchmarkData", err)
	}
}

func TestIndexedChart_RebasesTo100(t *testing.T) {
	snaps := []DailySnapshot{
		snap(NewDate(2025, 1, 2), 1000000, 0),
		snap(NewDate(2025, 1, 3), 1020000, 0),
		snap(NewDate(2025, 1, 6), 1010000, 0),
	}
	series := kospi(map[Date]float64{
		NewDate(2025, 1, 2): 2500,
		NewDate(2025, 1, 3): 2550,
		NewDate(2025, 1, 6): 2525,
	})

	chart, err := IndexedChart(snaps, series)
	if err != nil {
		t.Fatalf("IndexedChart() error = %v", err)
	}
	if got, want := len(chart.Portfolio), 3; got != want {
		t.Fatalf("len(Portfolio) = %d, want %d", got, want)
	}
	if chart.Portfolio[0].Value != 100 || chart.Benchmark[0].Value != 100 {
		t.Errorf("first points = %v, %v, want both 100", chart.Portfolio[0].Value, chart.Benchmark[0].Value)
	}
	if got, want := chart.Portfolio[1].Value, 102.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Portfolio[1] = %v, want %v", got, want)
	}
	if got, want := chart.Benchmark[1].Value, 102.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Benchmark[1] = %v, want %v", got, want)
	}
}

func TestIndexedChart_NoOverlap(t *testing.T) {
	snaps := []DailySnapshot{snap(NewDate(2025, 1, 2), 1000000, 0)}
	series := kospi(map[Date]float64{NewDate(2024, 6, 3): 2500})
	_, err := IndexedChart(snaps, series)
	if !errors.Is(err, ErrNoBenchmarkData) {
		t.Errorf("IndexedChart() error = %v, want ErrNoBenchmarkData", err)
	}
}

func TestBenchmarkConfig_Symbols(t *testing.T) {
	cfg := DefaultBenchmarkConfig()
	if got := cfg.Symbols("KRW"); len(got) != 2 || got[0] != "^KS11" {
		t.Errorf("Symbols(KRW) = %v", got)
	}
	if got := cfg.Symbols("JPY"); got != nil {
		t.Errorf("Symbols(JPY) = %v, want nil", got)
	}
}
