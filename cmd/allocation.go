package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/goyangwoody/portfolio-manager"
	"github.com/goyangwoody/portfolio-manager/renderer"
)

type allocationCmd struct {
	date string
}

func (*allocationCmd) Name() string     { return "allocation" }
func (*allocationCmd) Synopsis() string { return "show the portfolio composition by asset class" }
func (*allocationCmd) Usage() string {
	return `pam allocation [-d <date>]

  Shows the portfolio composition on the last trading day at or before
  the given date (latest snapshot by default), grouped by asset class.
`
}

func (c *allocationCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", "", "Date (YYYY-MM-DD) to report on. Defaults to the latest snapshot.")
}

func (c *allocationCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var asOf portfolio.Date
	if c.date != "" {
		var err error
		if asOf, err = portfolio.ParseDate(c.date); err != nil {
			return fail(err)
		}
	}
	facade, close, err := OpenFacade()
	if err != nil {
		return fail(err)
	}
	defer close()

	resp, err := facade.Allocation(ctx, *portfolioID, asOf)
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.Allocation(resp))
	return subcommands.ExitSuccess
}
