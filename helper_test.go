package portfolio

// KRW is a helper for tests to create won money from const
func KRW(v float64) Money { return M(v, "KRW") }

// USD is a helper for tests to create dollar money from const
func USD(v float64) Money { return M(v, "USD") }

func snap(on Date, nav, cash float64) DailySnapshot {
	return DailySnapshot{On: on, NAV: KRW(nav), Cash: KRW(cash)}
}

func pos(on Date, assetID int64, qty, price, value float64) PositionRecord {
	return PositionRecord{
		On:          on,
		AssetID:     assetID,
		Quantity:    Q(qty),
		Price:       KRW(price),
		MarketValue: KRW(value),
	}
}

// testAssets is the reference universe shared by attribution and facade
// tests: one domestic equity, one foreign equity, one domestic bond.
func testAssets() map[int64]Asset {
	return map[int64]Asset{
		1: {ID: 1, Ticker: "005930", Name: "Samsung Electronics", Class: "equity", Region: RegionDomestic, Currency: "KRW"},
		2: {ID: 2, Ticker: "AAPL", Name: "Apple Inc", Class: "equity", Region: RegionForeign, Currency: "USD"},
		3: {ID: 3, Ticker: "148070", Name: "KOSEF 10Y KTB", Class: "bond", Region: RegionDomestic, Currency: "KRW"},
	}
}

func closes(points map[Date]float64) *History[float64] {
	h := &History[float64]{}
	for on, v := range points {
		h.Append(on, v)
	}
	return h
}
