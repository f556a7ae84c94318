package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"xirr-service/repository"
)

type seedCmd struct{}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "import installments into the configured store" }
func (*seedCmd) Usage() string {
	return `xirrctl -config file seed <seed.json>

  Appends the installments of a seed file to a sqlite or postgres store.
  The seed is a JSON array of {"member_id", "amount", "date"}.
`
}

func (*seedCmd) SetFlags(*flag.FlagSet) {}

func (*seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "seed takes exactly one file")
		return subcommands.ExitUsageError
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}

	rows, err := repository.ReadSeedFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	// The store's own seed_file is ignored here; only the argument is imported.
	storeCfg := cfg.Store
	storeCfg.SeedFile = ""
	store, err := repository.OpenCashflowStore(ctx, storeCfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	seedable, ok := store.(repository.SeedableRepository)
	if !ok {
		fmt.Fprintf(os.Stderr, "store driver %q is not persistent, use sqlite or postgres\n", cfg.Store.Driver)
		return subcommands.ExitUsageError
	}
	if err := seedable.Insert(ctx, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Error inserting rows: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("inserted %d installments\n", len(rows))
	return subcommands.ExitSuccess
}
