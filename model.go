package portfolio

import "fmt"

// The persisted entities below mirror the ingestion schema: daily NAV rows,
// daily position rows, static asset reference data and market instrument
// series. They are written by an external ETL process and are read-only
// here; derived values (returns, contributions) never persist.

// Region classifies an asset relative to the portfolio's home market.
type Region string

const (
	RegionDomestic Region = "domestic"
	RegionForeign  Region = "foreign"
)

// AssetClass is the reference classification of an asset ("equity",
// "bond", "alternative", ...). Free-form because the reference data owns
// the taxonomy; ClassUnknown is the fallback for unclassified assets.
type AssetClass string

const ClassUnknown AssetClass = "unknown"

// Portfolio is the reference record of one managed portfolio. Currency is
// the reporting currency and selects the default benchmark set.
type Portfolio struct {
	ID       int64  `json:"portfolio_id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// Asset is static reference data for one holdable instrument.
type Asset struct {
	ID       int64      `json:"asset_id"`
	Ticker   string     `json:"ticker"`
	Name     string     `json:"name"`
	Class    AssetClass `json:"asset_class"`
	Region   Region     `json:"region"`
	Currency string     `json:"currency"`
}

// DailySnapshot is the end-of-day portfolio valuation: total NAV and the
// cash component. One per portfolio per trading day, append-only.
type DailySnapshot struct {
	On   Date  `json:"date"`
	NAV  Money `json:"nav"`
	Cash Money `json:"cash_balance"`
}

// PositionRecord is one held asset inside a DailySnapshot. The invariant
// sum(MarketValue) + Cash == NAV holds within rounding tolerance.
type PositionRecord struct {
	On          Date     `json:"date"`
	AssetID     int64    `json:"asset_id"`
	Quantity    Quantity `json:"quantity"`
	AvgCost     Money    `json:"avg_cost"`
	Price       Money    `json:"market_price"`
	MarketValue Money    `json:"market_value"`
}

// Instrument identifies a benchmark series: an index, FX rate or rate
// series, independent of any portfolio.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Kind     string `json:"market_type"` // STOCK_INDEX, CURRENCY, RATE
	Country  string `json:"country"`
	Currency string `json:"currency"`
}

// BenchmarkSeries is the daily close series of one instrument.
type BenchmarkSeries struct {
	Instrument Instrument
	Closes     *History[float64]
}

// AssetFilter restricts the attribution universe before aggregation.
// Filtered-out assets are excluded from both the contribution numerator
// and the weight-normalization denominator.
type AssetFilter string

const (
	FilterAll      AssetFilter = "all"
	FilterDomestic AssetFilter = "domestic"
	FilterForeign  AssetFilter = "foreign"
)

// Match reports whether an asset passes the filter.
func (f AssetFilter) Match(a Asset) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterDomestic:
		return a.Region == RegionDomestic
	case FilterForeign:
		return a.Region == RegionForeign
	default:
		return true
	}
}

// ParseAssetFilter parses "all", "domestic" or "foreign".
func ParseAssetFilter(s string) (AssetFilter, error) {
	switch AssetFilter(s) {
	case FilterAll, FilterDomestic, FilterForeign:
		return AssetFilter(s), nil
	case "":
		return FilterAll, nil
	}
	return FilterAll, fmt.Errorf("invalid asset filter %q (want all, domestic or foreign)", s)
}
