package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/goyangwoody/portfolio-manager"
	"github.com/goyangwoody/portfolio-manager/sqlstore"
)

type ingestCmd struct{}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "load a JSONL data file into the database" }
func (*ingestCmd) Usage() string {
	return `pam ingest <file.jsonl> [...]

  Reads snapshot, position, asset and benchmark records from one or more
  JSONL files and loads them into the database. Re-ingesting the same
  file is harmless.
`
}

func (*ingestCmd) SetFlags(*flag.FlagSet) {}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		return fail(fmt.Errorf("ingest needs at least one JSONL file"))
	}

	db, err := sqlstore.Open(*dbPath)
	if err != nil {
		return fail(fmt.Errorf("could not open database %q: %w", *dbPath, err))
	}
	defer db.Close()
	store := sqlstore.NewStore(db)
	log := Logger()

	for _, name := range f.Args() {
		file, err := os.Open(name)
		if err != nil {
			return fail(err)
		}
		ds, err := portfolio.DecodeDataset(file)
		file.Close()
		if err != nil {
			return fail(fmt.Errorf("could not decode %q: %w", name, err))
		}
		if err := store.Load(ctx, ds); err != nil {
			return fail(fmt.Errorf("could not load %q: %w", name, err))
		}
		log.Info().Str("file", name).Int("portfolios", len(ds.Snapshots)).Msg("ingested")
		fmt.Printf("Successfully ingested %s\n", name)
	}
	return subcommands.ExitSuccess
}
