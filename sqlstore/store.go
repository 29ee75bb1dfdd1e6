package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/goyangwoody/portfolio-manager"
)

// Store serves portfolio time series from SQLite. All reads go through
// QueryContext so a caller's deadline cuts a slow read short.
type Store struct {
	db *DB
}

// NewStore returns a store over an opened database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func parseMoney(amount, currency string) (portfolio.Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return portfolio.Money{}, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	return portfolio.M(d, currency), nil
}

func (s *Store) Portfolio(ctx context.Context, portfolioID int64) (portfolio.Portfolio, error) {
	var p portfolio.Portfolio
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT id, name, currency FROM portfolios WHERE id = ?`, portfolioID).
		Scan(&p.ID, &p.Name, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.Portfolio{}, fmt.Errorf("portfolio %d is not known: %w", portfolioID, portfolio.ErrInsufficientData)
	}
	if err != nil {
		return portfolio.Portfolio{}, fmt.Errorf("failed to read portfolio %d: %w", portfolioID, err)
	}
	return p, nil
}

func (s *Store) Coverage(ctx context.Context, portfolioID int64) (portfolio.Range, error) {
	var from, to sql.NullString
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT MIN(date), MAX(date) FROM portfolio_nav_daily WHERE portfolio_id = ?`, portfolioID).
		Scan(&from, &to)
	if err != nil {
		return portfolio.Range{}, fmt.Errorf("failed to read coverage of portfolio %d: %w", portfolioID, err)
	}
	if !from.Valid || !to.Valid {
		return portfolio.Range{}, fmt.Errorf("portfolio %d has no snapshots: %w", portfolioID, portfolio.ErrInsufficientData)
	}
	fromDate, err := portfolio.ParseDate(from.String)
	if err != nil {
		return portfolio.Range{}, err
	}
	toDate, err := portfolio.ParseDate(to.String)
	if err != nil {
		return portfolio.Range{}, err
	}
	return portfolio.NewRange(fromDate, toDate), nil
}

func (s *Store) Snapshots(ctx context.Context, portfolioID int64, r portfolio.Range) ([]portfolio.DailySnapshot, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT date, nav, cash, currency FROM portfolio_nav_daily
		 WHERE portfolio_id = ? AND date >= ? AND date <= ?
		 ORDER BY date`, portfolioID, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots of portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var out []portfolio.DailySnapshot
	for rows.Next() {
		var date, nav, cash, currency string
		if err := rows.Scan(&date, &nav, &cash, &currency); err != nil {
			return nil, err
		}
		snap := portfolio.DailySnapshot{}
		if snap.On, err = portfolio.ParseDate(date); err != nil {
			return nil, err
		}
		if snap.NAV, err = parseMoney(nav, currency); err != nil {
			return nil, err
		}
		if snap.Cash, err = parseMoney(cash, currency); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *Store) Positions(ctx context.Context, portfolioID int64, r portfolio.Range) ([]portfolio.PositionRecord, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT date, asset_id, quantity, avg_cost, price, market_value, currency
		 FROM portfolio_positions_daily
		 WHERE portfolio_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, asset_id`, portfolioID, r.From.String(), r.To.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read positions of portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()

	var out []portfolio.PositionRecord
	for rows.Next() {
		var date, quantity, avgCost, price, marketValue, currency string
		var assetID int64
		if err := rows.Scan(&date, &assetID, &quantity, &avgCost, &price, &marketValue, &currency); err != nil {
			return nil, err
		}
		rec := portfolio.PositionRecord{AssetID: assetID}
		if rec.On, err = portfolio.ParseDate(date); err != nil {
			return nil, err
		}
		q, err := decimal.NewFromString(quantity)
		if err != nil {
			return nil, fmt.Errorf("bad quantity %q: %w", quantity, err)
		}
		rec.Quantity = portfolio.Q(q)
		if rec.AvgCost, err = parseMoney(avgCost, currency); err != nil {
			return nil, err
		}
		if rec.Price, err = parseMoney(price, currency); err != nil {
			return nil, err
		}
		if rec.MarketValue, err = parseMoney(marketValue, currency); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Flows(ctx context.Context, portfolioID int64, r portfolio.Range) (*portfolio.History[float64], bool, error) {
	var count int
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM portfolio_flows_daily WHERE portfolio_id = ?`, portfolioID).
		Scan(&count)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read flows of portfolio %d: %w", portfolioID, err)
	}
	if count == 0 {
		return nil, false, nil
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT date, amount FROM portfolio_flows_daily
		 WHERE portfolio_id = ? AND date >= ? AND date <= ?
		 ORDER BY date`, portfolioID, r.From.String(), r.To.String())
	if err != nil {
		return nil, false, fmt.Errorf("failed to read flows of portfolio %d: %w", portfolioID, err)
	}
	defer rows.Close()

	flows := &portfolio.History[float64]{}
	for rows.Next() {
		var date string
		var amount float64
		if err := rows.Scan(&date, &amount); err != nil {
			return nil, false, err
		}
		day, err := portfolio.ParseDate(date)
		if err != nil {
			return nil, false, err
		}
		flows.Append(day, amount)
	}
	return flows, true, rows.Err()
}

func (s *Store) Assets(ctx context.Context, ids []int64) (map[int64]portfolio.Asset, error) {
	out := make(map[int64]portfolio.Asset, len(ids))
	// Asset universes are small; per-id lookups beat assembling an IN
	// clause by hand.
	stmt, err := s.db.conn.PrepareContext(ctx,
		`SELECT id, ticker, name, asset_class, region, currency FROM assets WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare asset lookup: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		var a portfolio.Asset
		var class, region string
		err := stmt.QueryRowContext(ctx, id).Scan(&a.ID, &a.Ticker, &a.Name, &class, &region, &a.Currency)
		if errors.Is(err, sql.ErrNoRows) {
			continue // unknown assets fall back to defaults downstream
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %d: %w", id, err)
		}
		a.Class = portfolio.AssetClass(class)
		a.Region = portfolio.Region(region)
		out[a.ID] = a
	}
	return out, nil
}

func (s *Store) Benchmark(ctx context.Context, symbol string, r portfolio.Range) (portfolio.BenchmarkSeries, error) {
	var inst portfolio.Instrument
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT symbol, name, market_type, country, currency FROM market_instruments WHERE symbol = ?`, symbol).
		Scan(&inst.Symbol, &inst.Name, &inst.Kind, &inst.Country, &inst.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return portfolio.BenchmarkSeries{}, fmt.Errorf("benchmark %q is not known: %w", symbol, portfolio.ErrNoBenchmarkData)
	}
	if err != nil {
		return portfolio.BenchmarkSeries{}, fmt.Errorf("failed to read instrument %q: %w", symbol, err)
	}

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT date, close FROM market_prices_daily
		 WHERE symbol = ? AND date >= ? AND date <= ?
		 ORDER BY date`, symbol, r.From.String(), r.To.String())
	if err != nil {
		return portfolio.BenchmarkSeries{}, fmt.Errorf("failed to read prices of %q: %w", symbol, err)
	}
	defer rows.Close()

	closes := &portfolio.History[float64]{}
	for rows.Next() {
		var date string
		var close float64
		if err := rows.Scan(&date, &close); err != nil {
			return portfolio.BenchmarkSeries{}, err
		}
		day, err := portfolio.ParseDate(date)
		if err != nil {
			return portfolio.BenchmarkSeries{}, err
		}
		closes.Append(day, close)
	}
	return portfolio.BenchmarkSeries{Instrument: inst, Closes: closes}, rows.Err()
}

// Version counts the portfolio's NAV rows. The tables are append-only, so
// the count rises monotonically with every ingested snapshot and serves
// as a cache-key version without extra bookkeeping.
func (s *Store) Version(portfolioID int64) uint64 {
	var count uint64
	err := s.db.conn.QueryRow(
		`SELECT COUNT(*) FROM portfolio_nav_daily WHERE portfolio_id = ?`, portfolioID).
		Scan(&count)
	if err != nil {
		return 0
	}
	return count
}

var _ portfolio.TimeSeriesStore = (*Store)(nil)
