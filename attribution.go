package portfolio

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// AssetContribution is the per-asset attribution drill-down for a period.
type AssetContribution struct {
	AssetID int64
	Ticker  string
	Name    string
	Class   AssetClass
	Region  Region

	// AvgWeight is the mean previous-day portfolio weight over the period.
	AvgWeight float64
	// CurrentAllocation is the weight on the last day of the period.
	CurrentAllocation float64
	// PeriodReturn is the asset's own price return over the period.
	PeriodReturn Return
	// Contribution is the asset's share of the portfolio period return:
	// Σ_t weight[t-1] · return[t].
	Contribution Return
}

// WeightPoint is one day of an asset class weight trend.
type WeightPoint struct {
	On     Date
	Weight float64
}

// ClassReturnPoint is one day of an asset class return trend.
type ClassReturnPoint struct {
	On         Date
	Daily      Return
	Cumulative Return
}

// ClassContribution aggregates the contributions of one asset class.
type ClassContribution struct {
	Class             AssetClass
	AvgWeight         float64
	CurrentAllocation float64
	Contribution      Return
	WeightTrend       []WeightPoint
	ReturnTrend       []ClassReturnPoint
	Assets            []AssetContribution
}

// Attribution decomposes a portfolio's period return into per-asset and
// per-asset-class contributions.
type Attribution struct {
	Range       Range
	TotalReturn Return

	// Daily is the portfolio return track rebuilt from position weights
	// and asset price moves (not from NAV), so it is consistent with the
	// contribution decomposition below.
	Daily []ReturnPoint

	Classes         []ClassContribution
	TopContributors []AssetContribution
	TopDetractors   []AssetContribution

	// ContributionCheck is the sum of all contributions. With daily
	// re-weighting it should match TotalReturn within Epsilon; a mismatch
	// indicates a weighting bug and is reported as a diagnostic, never as
	// a failure.
	ContributionCheck Return
}

// AttributionEngine computes daily-reweighted return attribution.
//
// The engine uses the daily re-weighting method throughout: weights are
// recomputed from previous-day market values each day, per-asset
// contributions are summed daily, and the total return compounds the daily
// portfolio returns. A single average-weight approximation is never used;
// the two methods disagree over long periods.
type AttributionEngine struct {
	// Epsilon bounds the accepted gap between ContributionCheck and
	// TotalReturn before a diagnostic is logged.
	Epsilon float64

	log zerolog.Logger
}

// NewAttributionEngine returns an engine logging diagnostics to log.
func NewAttributionEngine(log zerolog.Logger) *AttributionEngine {
	return &AttributionEngine{
		Epsilon: 1e-4,
		log:     log.With().Str("component", "attribution").Logger(),
	}
}

// Attribute decomposes the period return over the given position rows.
// The rows must cover every trading day of the window, ordered or not;
// assets resolves reference data for every asset id present. The filter
// restricts the universe before any aggregation, so filtered-out assets
// are excluded from the weight denominators too.
//
// Long windows over many assets can be slow; cancellation is checked
// between per-asset computations.
func (e *AttributionEngine) Attribute(ctx context.Context, positions []PositionRecord, assets map[int64]Asset, filter AssetFilter) (*Attribution, error) {
	byDate, dates, assetIDs := e.index(positions, assets, filter)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no position data in period: %w", ErrInsufficientData)
	}

	// Previous-day total market value per date, for the weight denominators.
	totals := make(map[Date]float64, len(dates))
	for _, on := range dates {
		var total float64
		for _, pos := range byDate[on] {
			total += pos.MarketValue.AsFloat()
		}
		totals[on] = total
	}

	contributions := make(map[int64]float64, len(assetIDs))
	daily := make([]ReturnPoint, 0, len(dates))
	daily = append(daily, ReturnPoint{On: dates[0], NAV: M(totals[dates[0]], "")})

	growth := 1.0
	for t := 1; t < len(dates); t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prev, curr := dates[t-1], dates[t]
		prevTotal := totals[prev]
		if prevTotal <= 0 {
			daily = append(daily, ReturnPoint{On: curr, Cumulative: Return(growth - 1), NAV: M(totals[curr], "")})
			continue
		}
		var dayReturn float64
		for _, id := range assetIDs {
			prevPos, hasPrev := byDate[prev][id]
			if !hasPrev {
				continue // weight was zero, contributes nothing today
			}
			weight := prevPos.MarketValue.AsFloat() / prevTotal
			r := assetDailyReturn(prevPos, byDate[curr][id])
			contributions[id] += weight * r
			dayReturn += weight * r
		}
		growth *= 1 + dayReturn
		r := Return(dayReturn)
		daily = append(daily, ReturnPoint{On: curr, Daily: &r, Cumulative: Return(growth - 1), NAV: M(totals[curr], "")})
	}
	total := Return(growth - 1)

	perAsset, err := e.assetDetails(ctx, byDate, dates, totals, contributions, assetIDs, assets)
	if err != nil {
		return nil, err
	}

	result := &Attribution{
		Range:           NewRange(dates[0], dates[len(dates)-1]),
		TotalReturn:     total,
		Daily:           daily,
		Classes:         e.classes(byDate, dates, totals, perAsset, assets),
		TopContributors: topContributors(perAsset),
		TopDetractors:   topDetractors(perAsset),
	}
	for _, a := range perAsset {
		result.ContributionCheck += a.Contribution
	}

	if gap := float64(result.ContributionCheck - result.TotalReturn); gap > e.Epsilon || gap < -e.Epsilon {
		e.log.Warn().
			Float64("total_return", float64(result.TotalReturn)).
			Float64("contribution_check", float64(result.ContributionCheck)).
			Float64("gap", gap).
			Msg("contribution sum diverges from compounded return")
	}
	return result, nil
}

// index groups the filtered positions by date and collects the sorted date
// axis and the deterministic asset id order.
func (e *AttributionEngine) index(positions []PositionRecord, assets map[int64]Asset, filter AssetFilter) (map[Date]map[int64]PositionRecord, []Date, []int64) {
	byDate := make(map[Date]map[int64]PositionRecord)
	seen := make(map[int64]bool)
	for _, pos := range positions {
		if a, ok := assets[pos.AssetID]; ok && !filter.Match(a) {
			continue
		}
		day, ok := byDate[pos.On]
		if !ok {
			day = make(map[int64]PositionRecord)
			byDate[pos.On] = day
		}
		day[pos.AssetID] = pos
		seen[pos.AssetID] = true
	}

	dates := make([]Date, 0, len(byDate))
	for on := range byDate {
		dates = append(dates, on)
	}
	slices.SortFunc(dates, Date.Compare)

	assetIDs := make([]int64, 0, len(seen))
	for id := range seen {
		assetIDs = append(assetIDs, id)
	}
	slices.Sort(assetIDs)
	return byDate, dates, assetIDs
}

// assetDailyReturn computes one asset's price return from yesterday's
// position row to today's. A liquidated asset has no row today; its last
// known price then carries no move, so the return is zero for the day.
func assetDailyReturn(prev PositionRecord, curr PositionRecord) float64 {
	prevPrice := prev.Price.AsFloat()
	currPrice := curr.Price.AsFloat()
	if prevPrice <= 0 || currPrice <= 0 {
		return 0
	}
	return currPrice/prevPrice - 1
}

func (e *AttributionEngine) assetDetails(ctx context.Context, byDate map[Date]map[int64]PositionRecord, dates []Date, totals map[Date]float64, contributions map[int64]float64, assetIDs []int64, assets map[int64]Asset) ([]AssetContribution, error) {
	latest := dates[len(dates)-1]
	latestTotal := totals[latest]

	out := make([]AssetContribution, 0, len(assetIDs))
	for _, id := range assetIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Average previous-day weight; the last date never serves as a
		// previous day, so it is excluded.
		var weightSum float64
		var weightDays int
		for _, on := range dates[:max(len(dates)-1, 1)] {
			if total := totals[on]; total > 0 {
				if pos, ok := byDate[on][id]; ok {
					weightSum += pos.MarketValue.AsFloat() / total
				}
				weightDays++
			}
		}
		var avgWeight float64
		if weightDays > 0 {
			avgWeight = weightSum / float64(weightDays)
		}

		var currentAllocation float64
		if latestTotal > 0 {
			if pos, ok := byDate[latest][id]; ok {
				currentAllocation = pos.MarketValue.AsFloat() / latestTotal
			}
		}

		ac := AssetContribution{
			AssetID:           id,
			Class:             ClassUnknown,
			AvgWeight:         avgWeight,
			CurrentAllocation: currentAllocation,
			PeriodReturn:      assetPeriodReturn(byDate, dates, id),
			Contribution:      Return(contributions[id]),
		}
		if a, ok := assets[id]; ok {
			ac.Ticker, ac.Name, ac.Region = a.Ticker, a.Name, a.Region
			if a.Class != "" {
				ac.Class = a.Class
			}
		}
		out = append(out, ac)
	}
	return out, nil
}

// assetPeriodReturn is the asset's own price move over the window, from
// its first priced day to its last one (pro-rated for partial holdings).
func assetPeriodReturn(byDate map[Date]map[int64]PositionRecord, dates []Date, id int64) Return {
	var first, last float64
	for _, on := range dates {
		if pos, ok := byDate[on][id]; ok {
			if p := pos.Price.AsFloat(); p > 0 {
				if first == 0 {
					first = p
				}
				last = p
			}
		}
	}
	if first <= 0 || last <= 0 {
		return 0
	}
	return Return(last/first - 1)
}

// classes aggregates asset contributions per asset class and builds the
// class weight and return trends.
func (e *AttributionEngine) classes(byDate map[Date]map[int64]PositionRecord, dates []Date, totals map[Date]float64, perAsset []AssetContribution, assets map[int64]Asset) []ClassContribution {
	classOf := func(id int64) AssetClass {
		if a, ok := assets[id]; ok && a.Class != "" {
			return a.Class
		}
		return ClassUnknown
	}

	grouped := make(map[AssetClass]*ClassContribution)
	var order []AssetClass
	for _, a := range perAsset {
		cc, ok := grouped[a.Class]
		if !ok {
			cc = &ClassContribution{Class: a.Class}
			grouped[a.Class] = cc
			order = append(order, a.Class)
		}
		cc.AvgWeight += a.AvgWeight
		cc.CurrentAllocation += a.CurrentAllocation
		cc.Contribution += a.Contribution
		cc.Assets = append(cc.Assets, a)
	}
	slices.Sort(order)

	// Class market value per day drives the trends.
	for _, class := range order {
		cc := grouped[class]
		var base, prev float64
		for i, on := range dates {
			var classMV float64
			for id, pos := range byDate[on] {
				if classOf(id) == class {
					classMV += pos.MarketValue.AsFloat()
				}
			}
			var weight float64
			if total := totals[on]; total > 0 {
				weight = classMV / total
			}
			cc.WeightTrend = append(cc.WeightTrend, WeightPoint{On: on, Weight: weight})

			point := ClassReturnPoint{On: on}
			if i == 0 {
				base = classMV
			} else {
				if prev > 0 {
					point.Daily = Return(classMV/prev - 1)
				}
				if base > 0 {
					point.Cumulative = Return(classMV/base - 1)
				}
			}
			cc.ReturnTrend = append(cc.ReturnTrend, point)
			prev = classMV
		}
	}

	out := make([]ClassContribution, 0, len(order))
	for _, class := range order {
		out = append(out, *grouped[class])
	}
	return out
}

// topContributors returns the assets with positive contribution, largest
// first. Ties break by ascending asset id so the order is deterministic.
func topContributors(perAsset []AssetContribution) []AssetContribution {
	var out []AssetContribution
	for _, a := range perAsset {
		if a.Contribution > 0 {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b AssetContribution) int {
		switch {
		case a.Contribution > b.Contribution:
			return -1
		case a.Contribution < b.Contribution:
			return 1
		default:
			return cmp.Compare(a.AssetID, b.AssetID)
		}
	})
	return out
}

// topDetractors returns the assets with negative contribution, most
// negative first, same tiebreak.
func topDetractors(perAsset []AssetContribution) []AssetContribution {
	var out []AssetContribution
	for _, a := range perAsset {
		if a.Contribution < 0 {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b AssetContribution) int {
		switch {
		case a.Contribution < b.Contribution:
			return -1
		case a.Contribution > b.Contribution:
			return 1
		default:
			return cmp.Compare(a.AssetID, b.AssetID)
		}
	})
	return out
}
