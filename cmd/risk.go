package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/goyangwoody/portfolio-manager/renderer"
)

type riskCmd struct {
	periodFlags
}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "show volatility, Sharpe ratio, drawdown and VaR" }
func (*riskCmd) Usage() string {
	return `pam risk [-n <count> -p <period> | -s <start> -e <end>]

  Derives the risk profile of the daily return series over the window:
  annualized volatility, Sharpe ratio, maximum drawdown, and historical
  value-at-risk at 95% and 99% confidence.
`
}

func (c *riskCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *riskCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	spec, err := c.spec()
	if err != nil {
		return fail(err)
	}
	facade, close, err := OpenFacade()
	if err != nil {
		return fail(err)
	}
	defer close()

	resp, err := facade.Risk(ctx, *portfolioID, spec)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Risk(resp))
	return subcommands.ExitSuccess
}
