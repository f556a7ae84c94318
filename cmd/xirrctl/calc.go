package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"xirr-service/service"
)

type calcCmd struct {
	asJSON bool
}

func (*calcCmd) Name() string     { return "calc" }
func (*calcCmd) Synopsis() string { return "compute the XIRR of a cashflow file" }
func (*calcCmd) Usage() string {
	return `xirrctl calc [-json] <file.json|file.csv>

  Computes the XIRR of the cashflows in a file. JSON files hold an array of
  {"amount": ..., "date": "YYYY-MM-DD"} objects; CSV files hold amount,date rows.
`
}

func (c *calcCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.asJSON, "json", false, "Print the full result as JSON")
}

func (c *calcCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "calc takes exactly one file")
		return subcommands.ExitUsageError
	}

	records, err := readCashflowFile(f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", f.Arg(0), err)
		return subcommands.ExitFailure
	}

	result := service.Compute(records)
	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		fmt.Println(result)
	}

	if !result.IsSolved() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
