// Command xirrctl computes XIRR from the command line, either over a
// cashflow file or over the configured store.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"xirr-service/config"
)

var configPath = flag.String("config", "", "Path to the YAML configuration file (defaults to an in-memory setup)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&calcCmd{}, "compute")
	commander.Register(&allCmd{}, "compute")
	commander.Register(&seedCmd{}, "store")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// loadConfig reads -config and builds a stderr logger at the configured level.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		return nil, nil, err
	}
	level, _ := cfg.Log.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}
