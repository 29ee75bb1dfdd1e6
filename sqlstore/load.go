package sqlstore

import (
	"context"
	"fmt"

	"github.com/goyangwoody/portfolio-manager"
)

// Load inserts a decoded dataset in one transaction, so readers never see
// a half-loaded portfolio. Existing rows with the same key are replaced,
// which makes a re-run of the same ingest idempotent.
func (s *Store) Load(ctx context.Context, ds *portfolio.Dataset) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ingest: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ds.Portfolios {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO portfolios (id, name, currency) VALUES (?, ?, ?)`,
			p.ID, p.Name, p.Currency); err != nil {
			return fmt.Errorf("failed to insert portfolio %d: %w", p.ID, err)
		}
	}
	for _, a := range ds.Assets {
		class := a.Class
		if class == "" {
			class = portfolio.ClassUnknown
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO assets (id, ticker, name, asset_class, region, currency)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.Ticker, a.Name, string(class), string(a.Region), a.Currency); err != nil {
			return fmt.Errorf("failed to insert asset %d: %w", a.ID, err)
		}
	}
	for symbol, series := range ds.Benchmarks {
		inst := series.Instrument
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO market_instruments (symbol, name, market_type, country, currency)
			 VALUES (?, ?, ?, ?, ?)`,
			inst.Symbol, inst.Name, inst.Kind, inst.Country, inst.Currency); err != nil {
			return fmt.Errorf("failed to insert instrument %q: %w", symbol, err)
		}
		for day, close := range series.Closes.Values() {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO market_prices_daily (symbol, date, close) VALUES (?, ?, ?)`,
				symbol, day.String(), close); err != nil {
				return fmt.Errorf("failed to insert close of %q: %w", symbol, err)
			}
		}
	}
	for id, snaps := range ds.Snapshots {
		for _, snap := range snaps {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO portfolio_nav_daily (portfolio_id, date, nav, cash, currency)
				 VALUES (?, ?, ?, ?, ?)`,
				id, snap.On.String(), snap.NAV.Amount(), snap.Cash.Amount(), snap.NAV.Currency()); err != nil {
				return fmt.Errorf("failed to insert snapshot of portfolio %d: %w", id, err)
			}
		}
	}
	for id, positions := range ds.Positions {
		for _, pos := range positions {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO portfolio_positions_daily
				 (portfolio_id, date, asset_id, quantity, avg_cost, price, market_value, currency)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, pos.On.String(), pos.AssetID, pos.Quantity.String(),
				pos.AvgCost.Amount(), pos.Price.Amount(), pos.MarketValue.Amount(),
				pos.MarketValue.Currency()); err != nil {
				return fmt.Errorf("failed to insert position of portfolio %d: %w", id, err)
			}
		}
	}
	for id, flows := range ds.Flows {
		for day, amount := range flows.Values() {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO portfolio_flows_daily (portfolio_id, date, amount) VALUES (?, ?, ?)`,
				id, day.String(), amount); err != nil {
				return fmt.Errorf("failed to insert flow of portfolio %d: %w", id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingest: %w", err)
	}
	return nil
}
