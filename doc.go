// Package portfolio implements a return and attribution engine for
// portfolios tracked as daily snapshots. It reads immutable time series
// (daily NAV, per-asset positions, benchmark index levels) from a
// TimeSeriesStore and derives:
//
//   - Daily and period returns using the time-weighted-return convention,
//     so external deposits and withdrawals do not distort performance.
//   - Per-asset and per-asset-class contributions to the period return,
//     using daily re-weighting (previous-day weight times daily asset
//     return, summed over the period).
//   - Benchmark comparisons, aligning portfolio and index series over the
//     same calendar window with carry-forward on benchmark holidays.
//   - Risk metrics: annualized volatility, Sharpe ratio, maximum drawdown,
//     and historical value-at-risk.
//
// The Facade type is the single entry point: it resolves a period
// specification against the store's available history, orchestrates the
// calculators, memoizes responses per store version, and assembles the
// report payloads consumed by a presentation layer.
//
// All persisted entities are written by an external ingestion process and
// treated here as read-only. Returns are decimal fractions (0.012, not
// "1.2%"); formatting belongs to the renderer package.
package portfolio
