package portfolio

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

const sampleJSONL = `{"record":"portfolio","portfolio_id":1,"name":"Growth Fund","currency":"KRW"}
{"record":"asset","asset_id":1,"ticker":"005930","name":"Samsung Electronics","asset_class":"equity","region":"domestic","currency":"KRW"}
{"record":"benchmark","symbol":"^KS11","name":"KOSPI","market_type":"STOCK_INDEX","country":"KR","currency":"KRW"}
{"record":"close","symbol":"^KS11","date":"2025-01-03","close":2525.5}
{"record":"close","symbol":"^KS11","date":"2025-01-02","close":2500}
{"record":"snapshot","portfolio":1,"date":"2025-01-03","nav":1010000,"cash":50000,"currency":"KRW"}
{"record":"snapshot","portfolio":1,"date":"2025-01-02","nav":1000000,"cash":50000,"currency":"KRW"}
{"record":"position","portfolio":1,"date":"2025-01-02","asset":1,"quantity":10,"avgCost":90000,"price":95000,"marketValue":950000,"currency":"KRW"}
{"record":"flow","portfolio":1,"date":"2025-01-03","amount":5000}
`

func TestDecodeDataset(t *testing.T) {
	ds, err := DecodeDataset(strings.NewReader(sampleJSONL))
	if err != nil {
		t.Fatalf("DecodeDataset() error = %v", err)
	}

	if got, want := len(ds.Portfolios), 1; got != want {
		t.Fatalf("len(Portfolios) = %d, want %d", got, want)
	}
	if got, want := ds.Portfolios[0].Currency, "KRW"; got != want {
		t.Errorf("Currency = %q, want %q", got, want)
	}

	// Out-of-order lines come back sorted.
	snaps := ds.Snapshots[1]
	if got, want := len(snaps), 2; got != want {
		t.Fatalf("len(Snapshots) = %d, want %d", got, want)
	}
	if got, want := snaps[0].On, NewDate(2025, 1, 2); got != want {
		t.Errorf("Snapshots[0].On = %v, want %v", got, want)
	}
	if got, want := snaps[0].NAV, KRW(1000000); !got.Equal(want) {
		t.Errorf("NAV = %v, want %v", got, want)
	}

	first, close := ds.Benchmarks["^KS11"].Closes.First()
	if first != NewDate(2025, 1, 2) || close != 2500 {
		t.Errorf("first close = %v %v", first, close)
	}

	flow, ok := ds.Flows[1].Get(NewDate(2025, 1, 3))
	if !ok || flow != 5000 {
		t.Errorf("flow = %v, %v", flow, ok)
	}
}

func TestDecodeDataset_Errors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown record", `{"record":"dividend","amount":5}`},
		{"close before benchmark", `{"record":"close","symbol":"^GSPC","date":"2025-01-02","close":5000}`},
		{"not json", `snapshot,1,2025-01-02`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeDataset(strings.NewReader(tt.line + "\n")); err == nil {
				t.Error("DecodeDataset() accepted a bad stream")
			}
		})
	}
}

func TestDataset_RoundTrip(t *testing.T) {
	ds, err := DecodeDataset(strings.NewReader(sampleJSONL))
	if err != nil {
		t.Fatalf("DecodeDataset() error = %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeDataset(&buf, ds); err != nil {
		t.Fatalf("EncodeDataset() error = %v", err)
	}
	again, err := DecodeDataset(&buf)
	if err != nil {
		t.Fatalf("DecodeDataset(reencoded) error = %v", err)
	}

	if got, want := len(again.Snapshots[1]), len(ds.Snapshots[1]); got != want {
		t.Errorf("snapshots after round trip = %d, want %d", got, want)
	}
	if got, want := again.Snapshots[1][1].NAV, ds.Snapshots[1][1].NAV; !got.Equal(want) {
		t.Errorf("NAV after round trip = %v, want %v", got, want)
	}
	if got, want := again.Positions[1][0].MarketValue, ds.Positions[1][0].MarketValue; !got.Equal(want) {
		t.Errorf("MarketValue after round trip = %v, want %v", got, want)
	}
}

func TestDataset_Load(t *testing.T) {
	ds, err := DecodeDataset(strings.NewReader(sampleJSONL))
	if err != nil {
		t.Fatalf("DecodeDataset() error = %v", err)
	}
	store := NewMemoryStore()
	ds.Load(store)

	ctx := context.Background()
	coverage, err := store.Coverage(ctx, 1)
	if err != nil {
		t.Fatalf("Coverage() error = %v", err)
	}
	if got, want := coverage, NewRange(NewDate(2025, 1, 2), NewDate(2025, 1, 3)); got != want {
		t.Errorf("Coverage() = %v, want %v", got, want)
	}
	flows, ok, err := store.Flows(ctx, 1, coverage)
	if err != nil || !ok {
		t.Fatalf("Flows() = %v, %v", ok, err)
	}
	if flows.Len() != 1 {
		t.Errorf("flows.Len() = %d, want 1", flows.Len())
	}
	if got := store.Version(1); got != 1 {
		t.Errorf("Version = %d, want 1", got)
	}
}
