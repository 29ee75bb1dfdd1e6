package portfolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// The interchange format is JSONL: one record per line, discriminated by a
// "record" field. Lines may arrive in any order; decoding sorts each
// series by date before it reaches a store.
const (
	recPortfolio = "portfolio"
	recAsset     = "asset"
	recSnapshot  = "snapshot"
	recPosition  = "position"
	recFlow      = "flow"
	recBenchmark = "benchmark"
	recClose     = "close"
)

// Dataset is the decoded content of a JSONL interchange stream, grouped
// and sorted, ready to load into a store.
type Dataset struct {
	Portfolios []Portfolio
	Assets     []Asset
	Snapshots  map[int64][]DailySnapshot
	Positions  map[int64][]PositionRecord
	Flows      map[int64]*History[float64]
	Benchmarks map[string]*BenchmarkSeries
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		Snapshots:  make(map[int64][]DailySnapshot),
		Positions:  make(map[int64][]PositionRecord),
		Flows:      make(map[int64]*History[float64]),
		Benchmarks: make(map[string]*BenchmarkSeries),
	}
}

// Load installs the dataset into a MemoryStore. Each portfolio with
// snapshot data gets one atomic Replace, so readers never observe a
// half-loaded portfolio.
func (ds *Dataset) Load(store *MemoryStore) {
	store.SetPortfolios(ds.Portfolios)
	store.SetAssets(ds.Assets)
	for _, series := range ds.Benchmarks {
		store.SetBenchmark(*series)
	}
	for id, snaps := range ds.Snapshots {
		store.Replace(id, snaps, ds.Positions[id], ds.Flows[id])
	}
}

type snapshotRec struct {
	Portfolio int64           `json:"portfolio"`
	Date      Date            `json:"date"`
	NAV       decimal.Decimal `json:"nav"`
	Cash      decimal.Decimal `json:"cash"`
	Currency  string          `json:"currency"`
}

type positionRec struct {
	Portfolio   int64           `json:"portfolio"`
	Date        Date            `json:"date"`
	Asset       int64           `json:"asset"`
	Quantity    Quantity        `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avgCost"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"marketValue"`
	Currency    string          `json:"currency"`
}

type flowRec struct {
	Portfolio int64   `json:"portfolio"`
	Date      Date    `json:"date"`
	Amount    float64 `json:"amount"`
}

type closeRec struct {
	Symbol string  `json:"symbol"`
	Date   Date    `json:"date"`
	Close  float64 `json:"close"`
}

// DecodeDataset decodes a JSONL interchange stream. Empty lines are
// skipped; an unknown record kind is an error, so a truncated or foreign
// stream fails loudly instead of loading partially.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	ds := NewDataset()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var identifier struct {
			Record string `json:"record"`
		}
		if err := json.Unmarshal(raw, &identifier); err != nil {
			return nil, fmt.Errorf("line %d: could not identify record: %w", line, err)
		}

		var err error
		switch identifier.Record {
		case recPortfolio:
			var p Portfolio
			if err = json.Unmarshal(raw, &p); err == nil {
				ds.Portfolios = append(ds.Portfolios, p)
			}
		case recAsset:
			var a Asset
			if err = json.Unmarshal(raw, &a); err == nil {
				ds.Assets = append(ds.Assets, a)
			}
		case recSnapshot:
			var rec snapshotRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				ds.Snapshots[rec.Portfolio] = append(ds.Snapshots[rec.Portfolio], DailySnapshot{
					On:   rec.Date,
					NAV:  M(rec.NAV, rec.Currency),
					Cash: M(rec.Cash, rec.Currency),
				})
			}
		case recPosition:
			var rec positionRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				ds.Positions[rec.Portfolio] = append(ds.Positions[rec.Portfolio], PositionRecord{
					On:          rec.Date,
					AssetID:     rec.Asset,
					Quantity:    rec.Quantity,
					AvgCost:     M(rec.AvgCost, rec.Currency),
					Price:       M(rec.Price, rec.Currency),
					MarketValue: M(rec.MarketValue, rec.Currency),
				})
			}
		case recFlow:
			var rec flowRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				h := ds.Flows[rec.Portfolio]
				if h == nil {
					h = &History[float64]{}
					ds.Flows[rec.Portfolio] = h
				}
				h.Append(rec.Date, rec.Amount)
			}
		case recBenchmark:
			var inst Instrument
			if err = json.Unmarshal(raw, &inst); err == nil {
				ds.Benchmarks[inst.Symbol] = &BenchmarkSeries{Instrument: inst, Closes: &History[float64]{}}
			}
		case recClose:
			var rec closeRec
			if err = json.Unmarshal(raw, &rec); err == nil {
				series, ok := ds.Benchmarks[rec.Symbol]
				if !ok {
					err = fmt.Errorf("close for undeclared benchmark %q", rec.Symbol)
					break
				}
				series.Closes.Append(rec.Date, rec.Close)
			}
		default:
			err = fmt.Errorf("unknown record kind %q", identifier.Record)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}

	for id := range ds.Snapshots {
		slices.SortStableFunc(ds.Snapshots[id], func(a, b DailySnapshot) int { return a.On.Compare(b.On) })
	}
	for id := range ds.Positions {
		slices.SortStableFunc(ds.Positions[id], func(a, b PositionRecord) int { return a.On.Compare(b.On) })
	}
	return ds, nil
}

func encodeLine(w io.Writer, obj *jsonObjectWriter) error {
	b, err := obj.MarshalJSON()
	if err != nil {
		return err
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

// EncodeDataset writes a dataset back to JSONL with canonical field order:
// reference records first, then the per-portfolio series sorted by date.
// DecodeDataset reads it back losslessly.
func EncodeDataset(w io.Writer, ds *Dataset) error {
	for _, p := range ds.Portfolios {
		obj := &jsonObjectWriter{}
		obj.Append("record", recPortfolio).
			Append("portfolio_id", p.ID).
			Optional("name", p.Name).
			Optional("currency", p.Currency)
		if err := encodeLine(w, obj); err != nil {
			return err
		}
	}
	for _, a := range ds.Assets {
		obj := &jsonObjectWriter{}
		obj.Append("record", recAsset).
			Append("asset_id", a.ID).
			Append("ticker", a.Ticker).
			Optional("name", a.Name).
			Optional("asset_class", a.Class).
			Optional("region", a.Region).
			Optional("currency", a.Currency)
		if err := encodeLine(w, obj); err != nil {
			return err
		}
	}
	for _, symbol := range sortedKeys(ds.Benchmarks) {
		series := ds.Benchmarks[symbol]
		obj := &jsonObjectWriter{}
		obj.Append("record", recBenchmark).
			Append("symbol", series.Instrument.Symbol).
			Optional("name", series.Instrument.Name).
			Optional("market_type", series.Instrument.Kind).
			Optional("country", series.Instrument.Country).
			Optional("currency", series.Instrument.Currency)
		if err := encodeLine(w, obj); err != nil {
			return err
		}
		for day, close := range series.Closes.Values() {
			obj := &jsonObjectWriter{}
			obj.Append("record", recClose).
				Append("symbol", symbol).
				Append("date", day).
				Append("close", close)
			if err := encodeLine(w, obj); err != nil {
				return err
			}
		}
	}
	for _, id := range sortedKeys(ds.Snapshots) {
		for _, snap := range ds.Snapshots[id] {
			obj := &jsonObjectWriter{}
			obj.Append("record", recSnapshot).
				Append("portfolio", id).
				Append("date", snap.On).
				Append("nav", snap.NAV.value).
				Append("cash", snap.Cash.value).
				Append("currency", snap.NAV.Currency())
			if err := encodeLine(w, obj); err != nil {
				return err
			}
		}
		for _, pos := range ds.Positions[id] {
			obj := &jsonObjectWriter{}
			obj.Append("record", recPosition).
				Append("portfolio", id).
				Append("date", pos.On).
				Append("asset", pos.AssetID).
				Append("quantity", pos.Quantity).
				Append("avgCost", pos.AvgCost.value).
				Append("price", pos.Price.value).
				Append("marketValue", pos.MarketValue.value).
				Append("currency", pos.MarketValue.Currency())
			if err := encodeLine(w, obj); err != nil {
				return err
			}
		}
		if flows := ds.Flows[id]; flows != nil {
			for day, amount := range flows.Values() {
				obj := &jsonObjectWriter{}
				obj.Append("record", recFlow).
					Append("portfolio", id).
					Append("date", day).
					Append("amount", amount)
				if err := encodeLine(w, obj); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func sortedKeys[K int64 | string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
