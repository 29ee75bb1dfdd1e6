package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/goyangwoody/portfolio-manager/renderer"
)

type performanceCmd struct {
	periodFlags
}

func (*performanceCmd) Name() string     { return "performance" }
func (*performanceCmd) Synopsis() string { return "show returns and benchmark comparison" }
func (*performanceCmd) Usage() string {
	return `pam performance [-n <count> -p <period> | -s <start> -e <end>]

  Shows the compounded time-weighted return over the window, the trailing
  short-horizon returns, and the comparison against the portfolio's
  configured benchmarks.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *performanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	spec, err := c.spec()
	if err != nil {
		return fail(err)
	}
	facade, close, err := OpenFacade()
	if err != nil {
		return fail(err)
	}
	defer close()

	resp, err := facade.Performance(ctx, *portfolioID, spec)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Performance(resp))
	return subcommands.ExitSuccess
}
