package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"

	"xirr-service/repository"
	"xirr-service/service"
)

type allCmd struct {
	workers int
}

func (*allCmd) Name() string     { return "all" }
func (*allCmd) Synopsis() string { return "compute the XIRR of every member in the store" }
func (*allCmd) Usage() string {
	return `xirrctl [-config file] all [-workers n]

  Loads every member from the configured store and prints one line per member.
`
}

func (c *allCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.workers, "workers", 0, "Members computed at once (0 uses batch.workers from the config)")
}

func (c *allCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}

	store, err := repository.OpenCashflowStore(ctx, cfg.Store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	workers := cfg.Batch.Workers
	if c.workers > 0 {
		workers = c.workers
	}
	svc := service.NewXirrService(store, nil, nil, service.WithLogger(logger), service.WithWorkers(workers))

	batch, err := svc.CalculateAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tSTATUS\tXIRR")
	for _, e := range batch.Entries {
		fmt.Fprintf(w, "%d\t%s\t%s\n", e.MemberID, e.Result.Status, e.Result)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
