package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/goyangwoody/portfolio-manager"
	"github.com/goyangwoody/portfolio-manager/renderer"
)

type attributionCmd struct {
	periodFlags
	filter string
}

func (*attributionCmd) Name() string     { return "attribution" }
func (*attributionCmd) Synopsis() string { return "decompose the period return by asset and class" }
func (*attributionCmd) Usage() string {
	return `pam attribution [-f <filter>] [-n <count> -p <period> | -s <start> -e <end>]

  Decomposes the portfolio period return into per-asset-class and
  per-asset contributions using daily re-weighting, and lists the top
  contributors and detractors.
`
}

func (c *attributionCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.StringVar(&c.filter, "f", "all", "Restrict the universe to all, domestic or foreign assets.")
}

func (c *attributionCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	spec, err := c.spec()
	if err != nil {
		return fail(err)
	}
	filter, err := portfolio.ParseAssetFilter(c.filter)
	if err != nil {
		return fail(err)
	}
	facade, close, err := OpenFacade()
	if err != nil {
		return fail(err)
	}
	defer close()

	resp, err := facade.Attribution(ctx, *portfolioID, spec, filter)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Attribution(resp))
	return subcommands.ExitSuccess
}
