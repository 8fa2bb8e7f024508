package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v3"

	"github.com/yuchenkan/gcc-jump/gcj"
	"github.com/yuchenkan/gcc-jump/output"
	"github.com/yuchenkan/gcc-jump/parser"
)

func (a *app) listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list_elf",
		Usage:     "list units, or the units linked into an object and its link-set",
		ArgsUsage: "[object]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "match",
				Usage: "only list units whose name matches this glob",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   int64(runtime.NumCPU()),
				Usage:   "number of units decoded in parallel while linking",
			},
		},
		Action: a.runList,
	}
}

func (a *app) runList(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() > 1 {
		return fmt.Errorf("usage: %s %s", cmd.Name, cmd.ArgsUsage)
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := gcj.ListUnits(q, gcj.ListOptions{
		Object:  cmd.Args().First(),
		Section: s.cfg.Section,
		Match:   cmd.String("match"),
	})
	if err != nil {
		return err
	}
	return s.out.Write(output.List(result))
}

func (a *app) selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select_unit",
		Usage:     "print the top-level file of a unit",
		ArgsUsage: "<unit>",
		Action:    a.runSelect,
	}
}

func (a *app) runSelect(_ context.Context, cmd *cli.Command) error {
	args, err := intArgs(cmd, "unit")
	if err != nil {
		return err
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := gcj.SelectUnit(q, args[0])
	if err != nil {
		return err
	}
	if result == nil {
		s.diag.None()
		return nil
	}
	s.diag.Selected(result)
	return s.out.Write(output.Select(result))
}

func (a *app) expandCommand() *cli.Command {
	return &cli.Command{
		Name:      "expand",
		Usage:     "print the tokens a macro invocation expands to",
		ArgsUsage: "<unit> <include> <point> <line> <col>",
		Action:    a.runExpand,
	}
}

func (a *app) runExpand(_ context.Context, cmd *cli.Command) error {
	args, err := intArgs(cmd, "unit", "include", "point", "line", "col")
	if err != nil {
		return err
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := gcj.Expand(q, gcj.ExpandOptions{
		Unit:    args[0],
		Include: args[1],
		Point:   args[2],
		Line:    args[3],
		Col:     args[4],
	})
	if err != nil {
		return err
	}
	if result == nil {
		s.diag.None()
		return nil
	}
	s.diag.Tokens(result.Tokens)
	return s.out.Write(output.Expand(result))
}

func (a *app) jumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "jump",
		Usage:     "resolve a location to what it refers to",
		ArgsUsage: "<linkset> <unit> <include> <point> <line> <col> <expid>",
		Action:    a.runJump,
	}
}

func (a *app) runJump(_ context.Context, cmd *cli.Command) error {
	args, err := intArgs(cmd, "linkset", "unit", "include", "point", "line", "col", "expid")
	if err != nil {
		return err
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	result, err := gcj.Jump(q, gcj.JumpOptions{
		LinkSet: args[0],
		Unit:    args[1],
		Include: args[2],
		Point:   args[3],
		Line:    args[4],
		Col:     args[5],
		ExpID:   args[6],
	})
	if err != nil {
		return err
	}
	if result == nil {
		s.diag.None()
		return nil
	}
	s.diag.JumpTo(*result)
	return s.out.Write(output.Jump(*result))
}

func (a *app) referCommand() *cli.Command {
	return &cli.Command{
		Name:      "refer",
		Usage:     "list the locations referring to a location",
		ArgsUsage: "<linkset> <unit> <include> <line> <col> <expid>",
		Action:    a.runRefer,
	}
}

func (a *app) runRefer(_ context.Context, cmd *cli.Command) error {
	args, err := intArgs(cmd, "linkset", "unit", "include", "line", "col", "expid")
	if err != nil {
		return err
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	results, err := gcj.Refer(q, gcj.ReferOptions{
		LinkSet: args[0],
		Unit:    args[1],
		Include: args[2],
		Line:    args[3],
		Col:     args[4],
		ExpID:   args[5],
	})
	if err != nil {
		return err
	}
	s.diag.ReferredBy(results)
	return s.out.Write(output.Refer(results))
}

func (a *app) dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "print the text form of a unit",
		ArgsUsage: "<unit>",
		Action:    a.runDump,
	}
}

func (a *app) runDump(_ context.Context, cmd *cli.Command) error {
	args, err := intArgs(cmd, "unit")
	if err != nil {
		return err
	}
	s, q, err := a.open(cmd)
	if err != nil {
		return err
	}

	found, err := gcj.DumpUnit(q, args[0], a.stdout)
	if err != nil {
		return err
	}
	if !found {
		s.diag.None()
	}
	return nil
}

func (a *app) ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "build units from a fact stream",
		ArgsUsage: "[facts]",
		Description: "Read facts (JSON lines, see facts-format) from a file or stdin\n" +
			"and store the units they describe.\n\n" +
			"Examples:\n" +
			"  gcj --db .gcj ingest build.facts\n" +
			"  producer | gcj --db .gcj ingest --base-dir src",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dump",
				Usage: "print every stored unit to stderr",
			},
			&cli.StringFlag{
				Name:  "base-dir",
				Usage: "directory relative file names are resolved against",
			},
		},
		Action: a.runIngest,
	}
}

func (a *app) runIngest(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() > 1 {
		return fmt.Errorf("usage: %s %s", cmd.Name, cmd.ArgsUsage)
	}
	s, err := a.settings(cmd)
	if err != nil {
		return err
	}
	db, err := s.db()
	if err != nil {
		return err
	}

	var in io.Reader = a.stdin
	base := cmd.String("base-dir")
	if path := cmd.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
		if base == "" {
			base = filepath.Dir(path)
		}
	}

	opts := []gcj.Option{gcj.WithLogger(s.logger)}
	if s.cfg.Dump || cmd.Bool("dump") {
		opts = append(opts, gcj.WithDump(a.stderr))
	}
	repo, err := gcj.OpenRepository(db, opts...)
	if err != nil {
		return err
	}
	return parser.Replay(in, repo, parser.Options{BaseDir: base, Logger: s.logger})
}
