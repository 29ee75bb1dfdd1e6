// Package cmd implements the CLI application to analyze a portfolio.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"

	"github.com/goyangwoody/portfolio-manager"
	"github.com/goyangwoody/portfolio-manager/sqlstore"
)

// Commands are the subcommands a main package registers.
var Commands = []subcommands.Command{
	&ingestCmd{},
	&performanceCmd{},
	&attributionCmd{},
	&riskCmd{},
	&allocationCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dbPath = flag.String("db", "portfolio.db", "Path to the SQLite database file")
var portfolioID = flag.Int64("portfolio", 1, "Portfolio id to analyze")
var verbose = flag.Bool("v", false, "Enable debug logging")

// Logger returns the application logger, console-formatted on stderr.
func Logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// OpenFacade opens the database and builds the query facade over it.
// The returned close function releases the database.
func OpenFacade() (*portfolio.Facade, func() error, error) {
	db, err := sqlstore.Open(*dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open database %q: %w", *dbPath, err)
	}
	f := portfolio.NewFacade(sqlstore.NewStore(db), portfolio.FacadeConfig{}, Logger())
	return f, db.Close, nil
}

// printMarkdown renders markdown for the terminal; when that fails the
// raw markdown is still printed.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// periodFlags are the window-selection flags shared by the report
// commands.
type periodFlags struct {
	last  int
	unit  string
	start string
	end   string
}

func (p *periodFlags) register(f *flag.FlagSet) {
	f.IntVar(&p.last, "n", 0, "Analyze the trailing n periods (requires -p). 0 means all time.")
	f.StringVar(&p.unit, "p", "month", "Period unit for -n (day, week, month, quarter, year).")
	f.StringVar(&p.start, "s", "", "Start date (YYYY-MM-DD) of an explicit window. Overrides -n.")
	f.StringVar(&p.end, "e", "", "End date (YYYY-MM-DD) of an explicit window.")
}

func (p *periodFlags) spec() (portfolio.PeriodSpec, error) {
	if p.start != "" || p.end != "" {
		if p.start == "" || p.end == "" {
			return portfolio.PeriodSpec{}, fmt.Errorf("-s and -e must be given together")
		}
		from, err := portfolio.ParseDate(p.start)
		if err != nil {
			return portfolio.PeriodSpec{}, fmt.Errorf("bad start date: %w", err)
		}
		to, err := portfolio.ParseDate(p.end)
		if err != nil {
			return portfolio.PeriodSpec{}, fmt.Errorf("bad end date: %w", err)
		}
		return portfolio.Between(from, to), nil
	}
	if p.last > 0 {
		unit, err := portfolio.ParsePeriod(p.unit)
		if err != nil {
			return portfolio.PeriodSpec{}, err
		}
		return portfolio.LastPeriods(p.last, unit), nil
	}
	return portfolio.WholeHistory(), nil
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, err)
	return subcommands.ExitFailure
}
