package main

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/urfave/cli/v3"
)

//go:embed facts_format.txt
var factsText string

func (a *app) factsCommand() *cli.Command {
	return &cli.Command{
		Name:  "facts-format",
		Usage: "describe the fact stream read by ingest",
		Description: "Print the reference for the JSON-lines fact stream.\n" +
			"Output is designed to be grep-friendly.\n\n" +
			"Examples:\n" +
			"  gcj facts-format                 # show the whole reference\n" +
			"  gcj facts-format | grep declare  # show one op",
		Action: func(_ context.Context, _ *cli.Command) error {
			_, err := fmt.Fprint(a.stdout, factsText)
			return err
		},
	}
}
