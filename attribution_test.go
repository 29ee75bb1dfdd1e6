package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func newTestEngine() *AttributionEngine {
	return NewAttributionEngine(zerolog.Nop())
}

func TestAttribute_SingleAssetCarriesWholeReturn(t *testing.T) {
	// One asset at weight 1: its contribution must equal the portfolio
	// return exactly.
	positions := []PositionRecord{
		pos(NewDate(2025, 1, 2), 1, 10, 10000, 100000),
		pos(NewDate(2025, 1, 3), 1, 10, 10500, 105000),
	}
	attr, err := newTestEngine().Attribute(context.Background(), positions, testAssets(), FilterAll)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}

	if got, want := attr.TotalReturn, Return(0.05); !got.Equal(want) {
		t.Errorf("TotalReturn = %v, want %v", got, want)
	}
	if got, want := len(attr.TopContributors), 1; got != want {
		t.Fatalf("len(TopContributors) = %d, want %d", got, want)
	}
	top := attr.TopContributors[0]
	if got, want := top.Contribution, Return(0.05); !got.Equal(want) {
		t.Errorf("Contribution = %v, want %v", got, want)
	}
	if got, want := top.AvgWeight, 1.0; got != want {
		t.Errorf("AvgWeight = %v, want %v", got, want)
	}
	if got, want := attr.ContributionCheck, attr.TotalReturn; !got.Equal(want) {
		t.Errorf("ContributionCheck = %v, want %v", got, want)
	}
}

// twoAssetWeek is a five-day, two-asset portfolio with uneven moves, used
// to exercise the weight and aggregation mechanics.
func twoAssetWeek() []PositionRecord {
	days := []Date{
		NewDate(2025, 1, 2),
		NewDate(2025, 1, 3),
		NewDate(2025, 1, 6),
		NewDate(2025, 1, 7),
		NewDate(2025, 1, 8),
	}
	prices1 := []float64{10000, 10200, 10100, 10400, 10300}
	prices2 := []float64{150, 151, 155, 152, 158}

	var out []PositionRecord
	for i, on := range days {
		out = append(out, pos(on, 1, 10, prices1[i], prices1[i]*10))
		out = append(out, pos(on, 2, 100, prices2[i], prices2[i]*100))
	}
	return out
}

func TestAttribute_ContributionsSumToTotal(t *testing.T) {
	attr, err := newTestEngine().Attribute(context.Background(), twoAssetWeek(), testAssets(), FilterAll)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}

	var sum float64
	for _, cc := range attr.Classes {
		sum += float64(cc.Contribution)
	}
	if gap := math.Abs(sum - float64(attr.TotalReturn)); gap > 1e-4 {
		t.Errorf("contribution sum %v diverges from total %v by %v", sum, attr.TotalReturn, gap)
	}
	if gap := math.Abs(float64(attr.ContributionCheck - attr.TotalReturn)); gap > 1e-4 {
		t.Errorf("ContributionCheck %v diverges from total %v", attr.ContributionCheck, attr.TotalReturn)
	}
}

func TestAttribute_IsDeterministic(t *testing.T) {
	engine := newTestEngine()
	first, err := engine.Attribute(context.Background(), twoAssetWeek(), testAssets(), FilterAll)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	for range 5 {
		again, err := engine.Attribute(context.Background(), twoAssetWeek(), testAssets(), FilterAll)
		if err != nil {
			t.Fatalf("Attribute() error = %v", err)
		}
		if !again.TotalReturn.Equal(first.TotalReturn) {
			t.Fatalf("TotalReturn varies across runs: %v vs %v", again.TotalReturn, first.TotalReturn)
		}
		for i := range first.TopContributors {
			if again.TopContributors[i].AssetID != first.TopContributors[i].AssetID {
				t.Fatalf("contributor order varies across runs")
			}
		}
	}
}

func TestAttribute_FilterExcludesFromDenominator(t *testing.T) {
	// With the foreign asset filtered out, the domestic asset is the whole
	// universe: weight 1, contribution == total.
	attr, err := newTestEngine().Attribute(context.Background(), twoAssetWeek(), testAssets(), FilterDomestic)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}
	if got, want := len(attr.TopContributors)+len(attr.TopDetractors), 1; got != want {
		t.Fatalf("filtered universe has %d assets, want %d", got, want)
	}

	var only AssetContribution
	if len(attr.TopContributors) == 1 {
		only = attr.TopContributors[0]
	} else {
		only = attr.TopDetractors[0]
	}
	if only.AssetID != 1 {
		t.Errorf("filtered universe kept asset %d, want 1", only.AssetID)
	}
	if got, want := only.AvgWeight, 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("AvgWeight = %v, want %v (filter must shrink the denominator)", got, want)
	}
	if !only.Contribution.Equal(attr.TotalReturn) {
		t.Errorf("Contribution = %v, want total %v", only.Contribution, attr.TotalReturn)
	}
}

func TestAttribute_LiquidatedAssetKeepsContribution(t *testing.T) {
	// Asset 2 is sold after day two; its earned contribution must survive
	// and its current allocation must be zero.
	positions := []PositionRecord{
		pos(NewDate(2025, 1, 2), 1, 10, 10000, 100000),
		pos(NewDate(2025, 1, 2), 2, 100, 150, 15000),
		pos(NewDate(2025, 1, 3), 1, 10, 10100, 101000),
		pos(NewDate(2025, 1, 3), 2, 100, 165, 16500),
		pos(NewDate(2025, 1, 6), 1, 10, 10200, 102000),
	}
	attr, err := newTestEngine().Attribute(context.Background(), positions, testAssets(), FilterAll)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}

	var sold *AssetContribution
	for i := range attr.TopContributors {
		if attr.TopContributors[i].AssetID == 2 {
			sold = &attr.TopContributors[i]
		}
	}
	if sold == nil {
		t.Fatal("liquidated asset dropped from contributors")
	}
	if sold.Contribution <= 0 {
		t.Errorf("Contribution = %v, want > 0", sold.Contribution)
	}
	if sold.CurrentAllocation != 0 {
		t.Errorf("CurrentAllocation = %v, want 0 after liquidation", sold.CurrentAllocation)
	}
}

func TestAttribute_ClassAggregation(t *testing.T) {
	positions := append(twoAssetWeek(),
		pos(NewDate(2025, 1, 2), 3, 50, 1000, 50000),
		pos(NewDate(2025, 1, 3), 3, 50, 1001, 50050),
		pos(NewDate(2025, 1, 6), 3, 50, 1002, 50100),
		pos(NewDate(2025, 1, 7), 3, 50, 1003, 50150),
		pos(NewDate(2025, 1, 8), 3, 50, 1004, 50200),
	)
	attr, err := newTestEngine().Attribute(context.Background(), positions, testAssets(), FilterAll)
	if err != nil {
		t.Fatalf("Attribute() error = %v", err)
	}

	if got, want := len(attr.Classes), 2; got != want {
		t.Fatalf("len(Classes) = %d, want %d", got, want)
	}
	for _, cc := range attr.Classes {
		var sum Return
		for _, a := range cc.Assets {
			sum += a.Contribution
		}
		if !sum.Equal(cc.Contribution) {
			t.Errorf("class %s contribution %v != member sum %v", cc.Class, cc.Contribution, sum)
		}
		if got, want := len(cc.WeightTrend), 5; got != want {
			t.Errorf("class %s WeightTrend has %d points, want %d", cc.Class, got, want)
		}
	}
}

func TestAttribute_NoPositions(t *testing.T) {
	_, err := newTestEngine().Attribute(context.Background(), nil, testAssets(), FilterAll)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("Attribute() error = %v, want ErrInsufficientData", err)
	}
}

func TestAttribute_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestEngine().Attribute(ctx, twoAssetWeek(), testAssets(), FilterAll)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Attribute() error = %v, want context.Canceled", err)
	}
}
