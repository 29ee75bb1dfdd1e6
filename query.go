package portfolio

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// PeriodSpec selects the analysis window of a query: the whole recorded
// history, the trailing n periods, or an explicit date range. The zero
// value means all-time.
type PeriodSpec struct {
	// Count and Unit select the trailing Count × Unit window ending at the
	// last recorded snapshot. Count zero means not a trailing window.
	Count int
	Unit  Period

	// Window is an explicit range; it is clamped to the recorded history.
	Window Range
}

// WholeHistory spans everything from inception to the latest snapshot.
func WholeHistory() PeriodSpec { return PeriodSpec{} }

// LastPeriods spans the trailing n units ending at the latest snapshot.
func LastPeriods(n int, unit Period) PeriodSpec { return PeriodSpec{Count: n, Unit: unit} }

// Between spans an explicit date range.
func Between(from, to Date) PeriodSpec { return PeriodSpec{Window: NewRange(from, to)} }

func (s PeriodSpec) String() string {
	switch {
	case s.Count > 0:
		return fmt.Sprintf("last %d %s", s.Count, s.Unit)
	case !s.Window.From.IsZero() || !s.Window.To.IsZero():
		return s.Window.String()
	default:
		return "all-time"
	}
}

// Resolve clamps the spec to the recorded coverage. Requesting a window
// before inception yields the coverage start, never an error; a window
// with no overlap at all fails with ErrInsufficientData.
func (s PeriodSpec) Resolve(coverage Range) (Range, error) {
	switch {
	case s.Count > 0:
		from := coverage.To.Add(-s.Count*s.Unit.Days() + 1)
		if from.Before(coverage.From) {
			from = coverage.From
		}
		return Range{From: from, To: coverage.To}, nil

	case !s.Window.From.IsZero() || !s.Window.To.IsZero():
		r := s.Window
		if r.To.Before(coverage.From) || r.From.After(coverage.To) {
			return Range{}, fmt.Errorf("window %s is outside recorded history %s: %w", r, coverage, ErrInsufficientData)
		}
		if r.From.Before(coverage.From) {
			r.From = coverage.From
		}
		if r.To.After(coverage.To) {
			r.To = coverage.To
		}
		return r, nil

	default:
		return coverage, nil
	}
}

// baselineLookbackDays is how far before the window start the facade looks
// for the baseline snapshot, so the first in-window day gets a return
// measured against the last trading day before the window.
const baselineLookbackDays = 10

// FacadeConfig tunes a Facade; zero-value fields fall back to defaults.
type FacadeConfig struct {
	Benchmarks  BenchmarkConfig
	Risk        RiskConfig
	LoadTimeout time.Duration
}

// Facade is the single entry point for analytical queries. It resolves
// periods against recorded coverage, loads series from the store under a
// timeout, runs the calculators and assembles response aggregates.
// Responses are memoized per (portfolio, period, filter, store version),
// so a data refresh invalidates by construction.
//
// A Facade is safe for concurrent use.
type Facade struct {
	store   TimeSeriesStore
	bench   BenchmarkConfig
	risk    *RiskCalculator
	attr    *AttributionEngine
	cache   *resultCache
	timeout time.Duration
	log     zerolog.Logger
}

// NewFacade returns a facade over the given store.
func NewFacade(store TimeSeriesStore, cfg FacadeConfig, log zerolog.Logger) *Facade {
	if cfg.Benchmarks == nil {
		cfg.Benchmarks = DefaultBenchmarkConfig()
	}
	if cfg.LoadTimeout == 0 {
		cfg.LoadTimeout = 10 * time.Second
	}
	return &Facade{
		store:   store,
		bench:   cfg.Benchmarks,
		risk:    NewRiskCalculator(cfg.Risk),
		attr:    NewAttributionEngine(log),
		cache:   newResultCache(),
		timeout: cfg.LoadTimeout,
		log:     log.With().Str("component", "facade").Logger(),
	}
}

// InvalidatePortfolio drops every cached response of one portfolio.
// Stores whose Version method tracks ingestion make this unnecessary;
// it exists for backends where the version is polled lazily.
func (f *Facade) InvalidatePortfolio(portfolioID int64) {
	f.cache.invalidate(portfolioID)
}

func (f *Facade) loadCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, f.timeout)
}

// storeErr maps a deadline expiry on a store read to ErrDataUnavailable,
// so callers can distinguish "backend slow" from "data missing".
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("store read timed out: %w", ErrDataUnavailable)
	}
	return err
}

func (f *Facade) key(portfolioID int64, op string, spec PeriodSpec, filter AssetFilter) cacheKey {
	return cacheKey{
		portfolioID: portfolioID,
		spec:        op + "|" + spec.String(),
		filter:      filter,
		version:     f.store.Version(portfolioID),
	}
}

// window resolves a spec against the portfolio's recorded coverage.
func (f *Facade) window(ctx context.Context, portfolioID int64, spec PeriodSpec) (Range, error) {
	coverage, err := f.store.Coverage(ctx, portfolioID)
	if err != nil {
		return Range{}, storeErr(err)
	}
	return spec.Resolve(coverage)
}

// returnSeries loads the NAV return track over a resolved window. The
// snapshot query reaches back a few days before the window so the first
// in-window return is measured against the last prior trading day; when
// no prior snapshot exists the first day carries a nil return.
func (f *Facade) returnSeries(ctx context.Context, portfolioID int64, r Range) (ReturnSeries, error) {
	ext := Range{From: r.From.Add(-baselineLookbackDays), To: r.To}
	snaps, err := f.store.Snapshots(ctx, portfolioID, ext)
	if err != nil {
		return ReturnSeries{}, storeErr(err)
	}
	flows, ok, err := f.store.Flows(ctx, portfolioID, ext)
	if err != nil {
		return ReturnSeries{}, storeErr(err)
	}
	if !ok {
		flows = nil
	}

	// Keep only the last snapshot before the window as baseline.
	first := 0
	for i, snap := range snaps {
		if snap.On.Before(r.From) {
			first = i
		}
	}
	hasBaseline := len(snaps) > 0 && snaps[first].On.Before(r.From)
	inWindow := len(snaps) - first
	if hasBaseline {
		inWindow--
	}
	if inWindow == 0 {
		// The window overlaps coverage but holds no snapshots (a data
		// gap). An empty series would read as a flat zero return.
		return ReturnSeries{}, fmt.Errorf("no snapshots in %s: %w", r, ErrInsufficientData)
	}
	series := DailyReturns(snaps[first:], flows)
	if hasBaseline && len(series.Points) > 0 {
		series.Points = series.Points[1:]
	}
	return series, nil
}

// AttributionResponse is the full attribution view of one portfolio.
type AttributionResponse struct {
	PortfolioID int64
	Period      Range
	Filter      AssetFilter
	*Attribution
}

// Attribution decomposes the portfolio's period return into per-asset and
// per-class contributions over the resolved window.
func (f *Facade) Attribution(ctx context.Context, portfolioID int64, spec PeriodSpec, filter AssetFilter) (*AttributionResponse, error) {
	key := f.key(portfolioID, "attribution", spec, filter)
	if v, ok := f.cache.get(key); ok {
		return v.(*AttributionResponse), nil
	}

	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	r, err := f.window(ctx, portfolioID, spec)
	if err != nil {
		return nil, err
	}
	positions, err := f.store.Positions(ctx, portfolioID, r)
	if err != nil {
		return nil, storeErr(err)
	}
	assets, err := f.store.Assets(ctx, assetIDsOf(positions))
	if err != nil {
		return nil, storeErr(err)
	}
	attr, err := f.attr.Attribute(ctx, positions, assets, filter)
	if err != nil {
		return nil, err
	}

	resp := &AttributionResponse{
		PortfolioID: portfolioID,
		Period:      r,
		Filter:      filter,
		Attribution: attr,
	}
	f.cache.put(key, resp)
	return resp, nil
}

func assetIDsOf(positions []PositionRecord) []int64 {
	seen := make(map[int64]bool)
	var ids []int64
	for _, p := range positions {
		if !seen[p.AssetID] {
			seen[p.AssetID] = true
			ids = append(ids, p.AssetID)
		}
	}
	return ids
}

// RecentReturns are the trailing short-horizon returns of the latest
// snapshot. A horizon with no prior snapshot to measure against is nil,
// never zero.
type RecentReturns struct {
	Daily   *Return
	Weekly  *Return
	Monthly *Return
}

// PerformanceResponse is the return view of one portfolio: the daily
// track, the compounded period return, trailing short-horizon returns and
// the configured benchmark comparisons.
type PerformanceResponse struct {
	PortfolioID      int64
	Period           Range
	CumulativeReturn Return
	FlowAdjusted     bool
	Daily            []ReturnPoint
	Recent           RecentReturns
	Benchmarks       []BenchmarkReturn

	// Warnings names the sections omitted because their inputs were
	// missing, e.g. a configured benchmark with no closes in the window.
	// An omitted section is reported here, never filled with zeros.
	Warnings []string
}

// Performance assembles the return view over the resolved window.
// Benchmark rows that cannot be computed are omitted and reported in
// Warnings; the portfolio's own returns never depend on benchmark data.
func (f *Facade) Performance(ctx context.Context, portfolioID int64, spec PeriodSpec) (*PerformanceResponse, error) {
	key := f.key(portfolioID, "performance", spec, FilterAll)
	if v, ok := f.cache.get(key); ok {
		return v.(*PerformanceResponse), nil
	}

	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	ref, err := f.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return nil, storeErr(err)
	}
	r, err := f.window(ctx, portfolioID, spec)
	if err != nil {
		return nil, err
	}
	series, err := f.returnSeries(ctx, portfolioID, r)
	if err != nil {
		return nil, err
	}

	resp := &PerformanceResponse{
		PortfolioID:      portfolioID,
		Period:           r,
		CumulativeReturn: series.Cumulative(),
		FlowAdjusted:     series.FlowAdjusted,
		Daily:            series.Points,
	}
	resp.Recent, err = f.recentReturns(ctx, portfolioID, r.To)
	if err != nil {
		return nil, err
	}

	dates := make([]Date, len(series.Points))
	for i, p := range series.Points {
		dates[i] = p.On
	}
	for _, symbol := range f.bench.Symbols(ref.Currency) {
		row, err := f.benchmarkRow(ctx, symbol, resp.CumulativeReturn, r, dates)
		if err != nil {
			if errors.Is(err, ErrNoBenchmarkData) {
				resp.Warnings = append(resp.Warnings, fmt.Sprintf("benchmark %s: no data in window", symbol))
				f.log.Warn().Str("symbol", symbol).Stringer("range", r).Msg("benchmark omitted")
				continue
			}
			return nil, err
		}
		resp.Benchmarks = append(resp.Benchmarks, row)
	}

	f.cache.put(key, resp)
	return resp, nil
}

func (f *Facade) benchmarkRow(ctx context.Context, symbol string, portfolioReturn Return, r Range, dates []Date) (BenchmarkReturn, error) {
	series, err := f.store.Benchmark(ctx, symbol, Range{From: r.From.Add(-baselineLookbackDays), To: r.To})
	if err != nil {
		return BenchmarkReturn{}, storeErr(err)
	}
	// The fetch reaches back before the window for a carry-forward
	// baseline. A series that is stale for the whole window would still
	// carry those old closes forward and report a flat zero return, so
	// require at least one close inside the window itself.
	if series.Closes == nil || series.Closes.Between(r).Len() == 0 {
		return BenchmarkReturn{}, fmt.Errorf("benchmark %s: %w", symbol, ErrNoBenchmarkData)
	}
	return Compare(portfolioReturn, series, dates)
}

// recentReturns measures the latest snapshot against the last snapshots on
// or before 1, 7 and 30 calendar days earlier.
func (f *Facade) recentReturns(ctx context.Context, portfolioID int64, asOf Date) (RecentReturns, error) {
	snaps, err := f.store.Snapshots(ctx, portfolioID, Range{From: asOf.Add(-40), To: asOf})
	if err != nil {
		return RecentReturns{}, storeErr(err)
	}
	if len(snaps) == 0 {
		return RecentReturns{}, nil
	}
	navs := &History[float64]{}
	for _, snap := range snaps {
		navs.Append(snap.On, snap.NAV.AsFloat())
	}
	last := snaps[len(snaps)-1]

	at := func(lookback int) *Return {
		base, ok := navs.ValueAsOf(last.On.Add(-lookback))
		if !ok || base == 0 {
			return nil
		}
		r := Return(last.NAV.AsFloat()/base - 1)
		return &r
	}
	return RecentReturns{Daily: at(1), Weekly: at(7), Monthly: at(30)}, nil
}

// RiskResponse is the risk view of one portfolio. Metrics is nil when the
// sample is below the minimum; Unavailable then says why.
type RiskResponse struct {
	PortfolioID int64
	Period      Range
	Sample      int
	Metrics     *RiskMetrics
	Unavailable string
}

// Risk derives volatility, Sharpe ratio, max drawdown and value-at-risk
// over the resolved window. A sample below the configured floor yields a
// response with Metrics nil and the reason in Unavailable; only transport
// and coverage failures are errors.
func (f *Facade) Risk(ctx context.Context, portfolioID int64, spec PeriodSpec) (*RiskResponse, error) {
	key := f.key(portfolioID, "risk", spec, FilterAll)
	if v, ok := f.cache.get(key); ok {
		return v.(*RiskResponse), nil
	}

	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	r, err := f.window(ctx, portfolioID, spec)
	if err != nil {
		return nil, err
	}
	series, err := f.returnSeries(ctx, portfolioID, r)
	if err != nil {
		return nil, err
	}
	daily := series.Daily()

	resp := &RiskResponse{PortfolioID: portfolioID, Period: r, Sample: len(daily)}
	resp.Metrics, err = f.risk.Compute(daily)
	if err != nil {
		if !errors.Is(err, ErrInsufficientSample) {
			return nil, err
		}
		resp.Unavailable = err.Error()
	}

	f.cache.put(key, resp)
	return resp, nil
}

// AllocationAsset is one holding inside an allocation group.
type AllocationAsset struct {
	AssetID  int64
	Ticker   string
	Name     string
	Quantity Quantity
	Value    Money
	Weight   float64
}

// AllocationGroup aggregates the holdings of one asset class.
type AllocationGroup struct {
	Class  AssetClass
	Value  Money
	Weight float64
	Assets []AllocationAsset
}

// AllocationResponse is the portfolio composition on one trading day.
type AllocationResponse struct {
	PortfolioID int64
	AsOf        Date
	Total       Money
	Cash        Money
	CashWeight  float64
	Groups      []AllocationGroup
}

// Allocation reports the composition on the last trading day at or before
// asOf; a zero asOf means the latest snapshot. Weights are fractions of
// total NAV, so groups plus cash sum to one within rounding.
func (f *Facade) Allocation(ctx context.Context, portfolioID int64, asOf Date) (*AllocationResponse, error) {
	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	coverage, err := f.store.Coverage(ctx, portfolioID)
	if err != nil {
		return nil, storeErr(err)
	}
	if asOf.IsZero() || asOf.After(coverage.To) {
		asOf = coverage.To
	}
	snaps, err := f.store.Snapshots(ctx, portfolioID, Range{From: asOf.Add(-baselineLookbackDays), To: asOf})
	if err != nil {
		return nil, storeErr(err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshot at or before %s: %w", asOf, ErrInsufficientData)
	}
	snap := snaps[len(snaps)-1]

	positions, err := f.store.Positions(ctx, portfolioID, Range{From: snap.On, To: snap.On})
	if err != nil {
		return nil, storeErr(err)
	}
	assets, err := f.store.Assets(ctx, assetIDsOf(positions))
	if err != nil {
		return nil, storeErr(err)
	}

	weight := func(v Money) float64 {
		if snap.NAV.IsZero() {
			return 0
		}
		return v.Ratio(snap.NAV)
	}

	byClass := make(map[AssetClass]*AllocationGroup)
	for _, pos := range positions {
		asset, ok := assets[pos.AssetID]
		if !ok {
			asset = Asset{ID: pos.AssetID, Class: ClassUnknown}
		}
		class := asset.Class
		if class == "" {
			class = ClassUnknown
		}
		g, ok := byClass[class]
		if !ok {
			g = &AllocationGroup{Class: class, Value: M(0, pos.MarketValue.Currency())}
			byClass[class] = g
		}
		g.Value = g.Value.Add(pos.MarketValue)
		g.Assets = append(g.Assets, AllocationAsset{
			AssetID:  pos.AssetID,
			Ticker:   asset.Ticker,
			Name:     asset.Name,
			Quantity: pos.Quantity,
			Value:    pos.MarketValue,
			Weight:   weight(pos.MarketValue),
		})
	}

	resp := &AllocationResponse{
		PortfolioID: portfolioID,
		AsOf:        snap.On,
		Total:       snap.NAV,
		Cash:        snap.Cash,
		CashWeight:  weight(snap.Cash),
	}
	for _, g := range byClass {
		g.Weight = weight(g.Value)
		sortByValueDesc(g.Assets)
		resp.Groups = append(resp.Groups, *g)
	}
	sortGroupsByWeightDesc(resp.Groups)
	return resp, nil
}

func sortByValueDesc(assets []AllocationAsset) {
	slices.SortFunc(assets, func(a, b AllocationAsset) int {
		if c := cmp.Compare(b.Value.AsFloat(), a.Value.AsFloat()); c != 0 {
			return c
		}
		return cmp.Compare(a.AssetID, b.AssetID)
	})
}

func sortGroupsByWeightDesc(groups []AllocationGroup) {
	slices.SortFunc(groups, func(a, b AllocationGroup) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(string(a.Class), string(b.Class))
	})
}

// AssetDetailPoint is one day of an asset's in-portfolio history.
type AssetDetailPoint struct {
	On       Date
	Price    Money
	Quantity Quantity
	Value    Money
	Weight   float64
}

// AssetDetailResponse is the per-asset drill-down over a window.
// PeriodReturn is nil when the asset was priced on fewer than two days.
type AssetDetailResponse struct {
	PortfolioID  int64
	Period       Range
	Asset        Asset
	PeriodReturn *Return
	Points       []AssetDetailPoint
}

// AssetDetail reports one asset's price, quantity and weight track over
// the resolved window.
func (f *Facade) AssetDetail(ctx context.Context, portfolioID, assetID int64, spec PeriodSpec) (*AssetDetailResponse, error) {
	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	r, err := f.window(ctx, portfolioID, spec)
	if err != nil {
		return nil, err
	}
	positions, err := f.store.Positions(ctx, portfolioID, r)
	if err != nil {
		return nil, storeErr(err)
	}
	snaps, err := f.store.Snapshots(ctx, portfolioID, r)
	if err != nil {
		return nil, storeErr(err)
	}
	navByDate := make(map[Date]float64, len(snaps))
	for _, snap := range snaps {
		navByDate[snap.On] = snap.NAV.AsFloat()
	}

	assets, err := f.store.Assets(ctx, []int64{assetID})
	if err != nil {
		return nil, storeErr(err)
	}
	asset, ok := assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %d is not known: %w", assetID, ErrInsufficientData)
	}

	resp := &AssetDetailResponse{PortfolioID: portfolioID, Period: r, Asset: asset}
	var firstPrice, lastPrice float64
	for _, pos := range positions {
		if pos.AssetID != assetID {
			continue
		}
		w := 0.0
		if nav := navByDate[pos.On]; nav != 0 {
			w = pos.MarketValue.AsFloat() / nav
		}
		resp.Points = append(resp.Points, AssetDetailPoint{
			On:       pos.On,
			Price:    pos.Price,
			Quantity: pos.Quantity,
			Value:    pos.MarketValue,
			Weight:   w,
		})
		if price := pos.Price.AsFloat(); price != 0 {
			if firstPrice == 0 {
				firstPrice = price
			}
			lastPrice = price
		}
	}
	if firstPrice != 0 && lastPrice != 0 && len(resp.Points) >= 2 {
		ret := Return(lastPrice/firstPrice - 1)
		resp.PeriodReturn = &ret
	}
	return resp, nil
}

// IndexedBenchmarks builds indexed-to-100 comparison series against every
// benchmark configured for the portfolio's currency. Benchmarks with no
// overlapping data are skipped with a log line; having none at all fails
// with ErrNoBenchmarkData.
func (f *Facade) IndexedBenchmarks(ctx context.Context, portfolioID int64, spec PeriodSpec) ([]IndexedComparison, error) {
	ctx, cancel := f.loadCtx(ctx)
	defer cancel()

	ref, err := f.store.Portfolio(ctx, portfolioID)
	if err != nil {
		return nil, storeErr(err)
	}
	symbols := f.bench.Symbols(ref.Currency)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no benchmarks configured for currency %q: %w", ref.Currency, ErrNoBenchmarkData)
	}
	r, err := f.window(ctx, portfolioID, spec)
	if err != nil {
		return nil, err
	}
	snaps, err := f.store.Snapshots(ctx, portfolioID, r)
	if err != nil {
		return nil, storeErr(err)
	}

	var out []IndexedComparison
	for _, symbol := range symbols {
		series, err := f.store.Benchmark(ctx, symbol, r)
		if err == nil {
			var chart IndexedComparison
			chart, err = IndexedChart(snaps, series)
			if err == nil {
				out = append(out, chart)
				continue
			}
		}
		if errors.Is(err, ErrNoBenchmarkData) {
			f.log.Warn().Str("symbol", symbol).Stringer("range", r).Msg("indexed chart omitted")
			continue
		}
		return nil, storeErr(err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no benchmark overlaps %s: %w", r, ErrNoBenchmarkData)
	}
	return out, nil
}
