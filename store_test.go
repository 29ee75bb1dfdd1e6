package portfolio

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore() *MemoryStore {
	store := NewMemoryStore()
	store.SetPortfolios([]Portfolio{{ID: 1, Name: "Growth Fund", Currency: "KRW"}})
	var assets []Asset
	for _, a := range testAssets() {
		assets = append(assets, a)
	}
	store.SetAssets(assets)
	store.Replace(1,
		[]DailySnapshot{
			snap(NewDate(2025, 1, 2), 100, 10),
			snap(NewDate(2025, 1, 3), 110, 10),
			snap(NewDate(2025, 1, 6), 99, 10),
		},
		[]PositionRecord{
			pos(NewDate(2025, 1, 2), 1, 10, 9000, 90000),
			pos(NewDate(2025, 1, 3), 1, 10, 10000, 100000),
		},
		nil,
	)
	return store
}

func TestMemoryStore_Coverage(t *testing.T) {
	store := seedStore()
	ctx := context.Background()

	r, err := store.Coverage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, 1, 2), r.From)
	assert.Equal(t, NewDate(2025, 1, 6), r.To)

	_, err = store.Coverage(ctx, 99)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMemoryStore_RangeQueries(t *testing.T) {
	store := seedStore()
	ctx := context.Background()

	snaps, err := store.Snapshots(ctx, 1, NewRange(NewDate(2025, 1, 3), NewDate(2025, 1, 6)))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, NewDate(2025, 1, 3), snaps[0].On)

	positions, err := store.Positions(ctx, 1, NewRange(NewDate(2025, 1, 2), NewDate(2025, 1, 2)))
	require.NoError(t, err)
	require.Len(t, positions, 1)

	_, ok, err := store.Flows(ctx, 1, NewRange(NewDate(2025, 1, 2), NewDate(2025, 1, 6)))
	require.NoError(t, err)
	assert.False(t, ok, "flow data was never ingested")
}

func TestMemoryStore_VersionBumpsOnReplace(t *testing.T) {
	store := seedStore()
	assert.Equal(t, uint64(1), store.Version(1))
	assert.Equal(t, uint64(0), store.Version(99))

	store.Replace(1, []DailySnapshot{snap(NewDate(2025, 1, 2), 100, 10)}, nil, nil)
	assert.Equal(t, uint64(2), store.Version(1))
}

func TestMemoryStore_Portfolio(t *testing.T) {
	store := seedStore()
	p, err := store.Portfolio(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "KRW", p.Currency)

	_, err = store.Portfolio(context.Background(), 99)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMemoryStore_Benchmark(t *testing.T) {
	store := seedStore()
	store.SetBenchmark(kospi(map[Date]float64{
		NewDate(2025, 1, 2): 2500,
		NewDate(2025, 1, 3): 2550,
		NewDate(2025, 2, 3): 2600,
	}))

	series, err := store.Benchmark(context.Background(), "^KS11", NewRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31)))
	require.NoError(t, err)
	assert.Equal(t, 2, series.Closes.Len(), "closes outside the range are cut")

	_, err = store.Benchmark(context.Background(), "^FTSE", NewRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31)))
	assert.ErrorIs(t, err, ErrNoBenchmarkData)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	store := seedStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Snapshots(ctx, 1, NewRange(NewDate(2025, 1, 2), NewDate(2025, 1, 6)))
	assert.ErrorIs(t, err, context.Canceled)
}

// Readers racing a writer must only ever observe complete datasets.
func TestMemoryStore_ConcurrentReplace(t *testing.T) {
	store := seedStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snaps, err := store.Snapshots(ctx, 1, NewRange(NewDate(2025, 1, 1), NewDate(2025, 12, 31)))
				if err != nil {
					t.Error(err)
					return
				}
				for k := 1; k < len(snaps); k++ {
					if !snaps[k-1].On.Before(snaps[k].On) {
						t.Error("snapshots out of order")
						return
					}
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 100; j++ {
			store.Replace(1, []DailySnapshot{
				snap(NewDate(2025, 1, 2), 100, 10),
				snap(NewDate(2025, 1, 3), 110, 10),
			}, nil, nil)
		}
	}()
	wg.Wait()
}
