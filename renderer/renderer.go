// Package renderer turns analytical responses into markdown reports.
package renderer

import (
	"fmt"
	"strings"

	"github.com/goyangwoody/portfolio-manager"
)

// Performance renders the return view: headline figures, trailing
// returns, and the benchmark comparison table.
func Performance(resp *portfolio.PerformanceResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Performance %s\n\n", resp.Period)
	fmt.Fprintf(&b, "Cumulative return: **%s**", resp.CumulativeReturn.SignedPercent())
	if !resp.FlowAdjusted {
		fmt.Fprintf(&b, " (not cash-flow adjusted)")
	}
	fmt.Fprintf(&b, "\n\n")

	fmt.Fprintln(&b, "| Horizon | Return |")
	fmt.Fprintln(&b, "|:---|---:|")
	printRecent(&b, "1 day", resp.Recent.Daily)
	printRecent(&b, "1 week", resp.Recent.Weekly)
	printRecent(&b, "1 month", resp.Recent.Monthly)
	fmt.Fprintln(&b)

	if len(resp.Benchmarks) > 0 {
		fmt.Fprintln(&b, "## Benchmarks")
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "| Benchmark | Return | Excess |")
		fmt.Fprintln(&b, "|:---|---:|---:|")
		for _, row := range resp.Benchmarks {
			name := row.Name
			if name == "" {
				name = row.Symbol
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", name, row.Return.SignedPercent(), row.Excess.SignedPercent())
		}
		fmt.Fprintln(&b)
	}
	for _, warning := range resp.Warnings {
		fmt.Fprintf(&b, "> %s\n", warning)
	}
	return b.String()
}

func printRecent(b *strings.Builder, label string, r *portfolio.Return) {
	if r == nil {
		fmt.Fprintf(b, "| %s | n/a |\n", label)
		return
	}
	fmt.Fprintf(b, "| %s | %s |\n", label, r.SignedPercent())
}

// Attribution renders the contribution decomposition: per-class summary
// and the top contributor and detractor tables.
func Attribution(resp *portfolio.AttributionResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Attribution %s\n\n", resp.Period)
	fmt.Fprintf(&b, "Total return: **%s**", resp.TotalReturn.SignedPercent())
	if resp.Filter != "" && resp.Filter != portfolio.FilterAll {
		fmt.Fprintf(&b, " (%s assets only)", resp.Filter)
	}
	fmt.Fprintf(&b, "\n\n")

	fmt.Fprintln(&b, "## By asset class")
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "| Class | Avg Weight | Allocation | Contribution |")
	fmt.Fprintln(&b, "|:---|---:|---:|---:|")
	for _, cc := range resp.Classes {
		fmt.Fprintf(&b, "| %s | %.1f%% | %.1f%% | %s |\n",
			cc.Class, cc.AvgWeight*100, cc.CurrentAllocation*100, cc.Contribution.SignedPercent())
	}
	fmt.Fprintln(&b)

	printAssetTable(&b, "Top contributors", resp.TopContributors)
	printAssetTable(&b, "Top detractors", resp.TopDetractors)
	return b.String()
}

func printAssetTable(b *strings.Builder, title string, assets []portfolio.AssetContribution) {
	if len(assets) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintln(b, "| Ticker | Name | Avg Weight | Return | Contribution |")
	fmt.Fprintln(b, "|:---|:---|---:|---:|---:|")
	for _, a := range assets {
		fmt.Fprintf(b, "| %s | %s | %.1f%% | %s | %s |\n",
			a.Ticker, a.Name, a.AvgWeight*100, a.PeriodReturn.SignedPercent(), a.Contribution.SignedPercent())
	}
	fmt.Fprintln(b)
}

// Risk renders the risk profile, or the reason it is unavailable.
func Risk(resp *portfolio.RiskResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Risk %s\n\n", resp.Period)
	if resp.Metrics == nil {
		fmt.Fprintf(&b, "Not available: %s.\n", resp.Unavailable)
		return b.String()
	}
	m := resp.Metrics

	fmt.Fprintln(&b, "| Metric | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Annualized volatility | %.2f%% |\n", m.Volatility*100)
	if m.Sharpe != nil {
		fmt.Fprintf(&b, "| Sharpe ratio | %.2f |\n", *m.Sharpe)
	} else {
		fmt.Fprintln(&b, "| Sharpe ratio | n/a |")
	}
	fmt.Fprintf(&b, "| Max drawdown | %.2f%% |\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "| VaR 95%% (1d) | %.2f%% |\n", m.VaR95*100)
	fmt.Fprintf(&b, "| VaR 99%% (1d) | %.2f%% |\n", m.VaR99*100)
	fmt.Fprintf(&b, "\nSample: %d daily returns.\n", resp.Sample)
	return b.String()
}

// Allocation renders the composition on one day, grouped by asset class.
func Allocation(resp *portfolio.AllocationResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Allocation on %s\n\n", resp.AsOf)
	fmt.Fprintf(&b, "Total: **%s**\n\n", resp.Total)

	fmt.Fprintln(&b, "| Class | Value | Weight |")
	fmt.Fprintln(&b, "|:---|---:|---:|")
	for _, g := range resp.Groups {
		fmt.Fprintf(&b, "| %s | %s | %.1f%% |\n", g.Class, g.Value, g.Weight*100)
	}
	fmt.Fprintf(&b, "| cash | %s | %.1f%% |\n", resp.Cash, resp.CashWeight*100)
	fmt.Fprintln(&b)

	for _, g := range resp.Groups {
		fmt.Fprintf(&b, "## %s\n\n", g.Class)
		fmt.Fprintln(&b, "| Ticker | Name | Quantity | Value | Weight |")
		fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
		for _, a := range g.Assets {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %.1f%% |\n",
				a.Ticker, a.Name, a.Quantity, a.Value, a.Weight*100)
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}
