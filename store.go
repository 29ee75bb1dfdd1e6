package portfolio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// TimeSeriesStore is the read-only source of snapshot data. The engine
// never writes through it; ingestion happens elsewhere. Implementations
// must return series strictly ordered by ascending date.
//
// All methods honour context cancellation; loading from a backing store is
// the engine's one suspend point and implementations should map deadline
// expiry to ErrDataUnavailable.
type TimeSeriesStore interface {
	// Portfolio returns the reference record of one portfolio, or
	// ErrInsufficientData when it does not exist.
	Portfolio(ctx context.Context, portfolioID int64) (Portfolio, error)

	// Coverage returns the inclusive date range for which snapshots exist,
	// or ErrInsufficientData when the portfolio has none.
	Coverage(ctx context.Context, portfolioID int64) (Range, error)

	// Snapshots returns the daily NAV snapshots inside r.
	Snapshots(ctx context.Context, portfolioID int64, r Range) ([]DailySnapshot, error)

	// Positions returns all daily position rows inside r.
	Positions(ctx context.Context, portfolioID int64, r Range) ([]PositionRecord, error)

	// Flows returns the external cash flow series (deposits positive,
	// withdrawals negative) inside r. ok is false when flow data was never
	// ingested for this portfolio; returns then fall back to plain NAV
	// changes and are flagged as not cash-flow adjusted.
	Flows(ctx context.Context, portfolioID int64, r Range) (flows *History[float64], ok bool, err error)

	// Assets resolves reference data for the given asset ids.
	Assets(ctx context.Context, ids []int64) (map[int64]Asset, error)

	// Benchmark returns the close series of one instrument inside r.
	// The instrument not existing at all is an error; an existing
	// instrument with no points in r yields an empty series.
	Benchmark(ctx context.Context, symbol string, r Range) (BenchmarkSeries, error)

	// Version is a monotonically increasing counter bumped whenever a new
	// DailySnapshot is ingested for the portfolio. Cached results are
	// keyed by it so in-flight readers never observe a half-updated view.
	Version(portfolioID int64) uint64
}

// portfolioData is one portfolio's immutable dataset. A MemoryStore swaps
// whole datasets atomically: readers either see the old or the new one.
type portfolioData struct {
	snapshots []DailySnapshot
	positions []PositionRecord
	flows     *History[float64] // nil when flow data is unavailable
	version   uint64
}

// MemoryStore is an in-memory TimeSeriesStore. Reads are lock-free over an
// atomically swapped dataset pointer; Replace is the single writer.
type MemoryStore struct {
	mu         sync.Mutex // serializes writers only
	portfolios map[int64]*atomic.Pointer[portfolioData]
	refs       atomic.Pointer[map[int64]Portfolio]
	assets     atomic.Pointer[map[int64]Asset]
	benchmarks atomic.Pointer[map[string]BenchmarkSeries]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{portfolios: make(map[int64]*atomic.Pointer[portfolioData])}
	emptyRefs := map[int64]Portfolio{}
	s.refs.Store(&emptyRefs)
	empty := map[int64]Asset{}
	s.assets.Store(&empty)
	emptyBench := map[string]BenchmarkSeries{}
	s.benchmarks.Store(&emptyBench)
	return s
}

// SetPortfolios replaces the portfolio reference data.
func (s *MemoryStore) SetPortfolios(portfolios []Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[int64]Portfolio, len(portfolios))
	for _, p := range portfolios {
		m[p.ID] = p
	}
	s.refs.Store(&m)
}

// Replace installs a new dataset for a portfolio and bumps its version.
// Snapshots and positions must already be sorted by ascending date; pass a
// nil flows history when cash flow data is unavailable.
func (s *MemoryStore) Replace(portfolioID int64, snapshots []DailySnapshot, positions []PositionRecord, flows *History[float64]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ptr, ok := s.portfolios[portfolioID]
	if !ok {
		ptr = &atomic.Pointer[portfolioData]{}
		s.portfolios[portfolioID] = ptr
	}
	var version uint64 = 1
	if prev := ptr.Load(); prev != nil {
		version = prev.version + 1
	}
	ptr.Store(&portfolioData{
		snapshots: snapshots,
		positions: positions,
		flows:     flows,
		version:   version,
	})
}

// SetAssets replaces the asset reference data.
func (s *MemoryStore) SetAssets(assets []Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[int64]Asset, len(assets))
	for _, a := range assets {
		m[a.ID] = a
	}
	s.assets.Store(&m)
}

// SetBenchmark installs (or replaces) one benchmark series.
func (s *MemoryStore) SetBenchmark(series BenchmarkSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.benchmarks.Load()
	m := make(map[string]BenchmarkSeries, len(old)+1)
	for k, v := range old {
		m[k] = v
	}
	m[series.Instrument.Symbol] = series
	s.benchmarks.Store(&m)
}

func (s *MemoryStore) data(portfolioID int64) *portfolioData {
	s.mu.Lock()
	ptr, ok := s.portfolios[portfolioID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return ptr.Load()
}

func (s *MemoryStore) Portfolio(ctx context.Context, portfolioID int64) (Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return Portfolio{}, err
	}
	all := *s.refs.Load()
	p, ok := all[portfolioID]
	if !ok {
		return Portfolio{}, fmt.Errorf("portfolio %d is not known: %w", portfolioID, ErrInsufficientData)
	}
	return p, nil
}

func (s *MemoryStore) Coverage(ctx context.Context, portfolioID int64) (Range, error) {
	if err := ctx.Err(); err != nil {
		return Range{}, err
	}
	d := s.data(portfolioID)
	if d == nil || len(d.snapshots) == 0 {
		return Range{}, fmt.Errorf("portfolio %d has no snapshots: %w", portfolioID, ErrInsufficientData)
	}
	return Range{From: d.snapshots[0].On, To: d.snapshots[len(d.snapshots)-1].On}, nil
}

func (s *MemoryStore) Snapshots(ctx context.Context, portfolioID int64, r Range) ([]DailySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := s.data(portfolioID)
	if d == nil {
		return nil, nil
	}
	var out []DailySnapshot
	for _, snap := range d.snapshots {
		if r.Contains(snap.On) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *MemoryStore) Positions(ctx context.Context, portfolioID int64, r Range) ([]PositionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := s.data(portfolioID)
	if d == nil {
		return nil, nil
	}
	var out []PositionRecord
	for _, pos := range d.positions {
		if r.Contains(pos.On) {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (s *MemoryStore) Flows(ctx context.Context, portfolioID int64, r Range) (*History[float64], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	d := s.data(portfolioID)
	if d == nil || d.flows == nil {
		return nil, false, nil
	}
	return d.flows.Between(r), true, nil
}

func (s *MemoryStore) Assets(ctx context.Context, ids []int64) (map[int64]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := *s.assets.Load()
	out := make(map[int64]Asset, len(ids))
	for _, id := range ids {
		if a, ok := all[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *MemoryStore) Benchmark(ctx context.Context, symbol string, r Range) (BenchmarkSeries, error) {
	if err := ctx.Err(); err != nil {
		return BenchmarkSeries{}, err
	}
	all := *s.benchmarks.Load()
	series, ok := all[symbol]
	if !ok {
		return BenchmarkSeries{}, fmt.Errorf("benchmark %q is not known: %w", symbol, ErrNoBenchmarkData)
	}
	return BenchmarkSeries{
		Instrument: series.Instrument,
		Closes:     series.Closes.Between(r),
	}, nil
}

func (s *MemoryStore) Version(portfolioID int64) uint64 {
	d := s.data(portfolioID)
	if d == nil {
		return 0
	}
	return d.version
}

var _ TimeSeriesStore = (*MemoryStore)(nil)
