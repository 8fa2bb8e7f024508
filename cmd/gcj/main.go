package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/yuchenkan/gcc-jump/config"
	"github.com/yuchenkan/gcc-jump/gcj"
	"github.com/yuchenkan/gcc-jump/output"
)

func main() {
	if err := newApp(os.Stdin, os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		output.WriteError(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the streams every command writes to.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	return &cli.Command{
		Name:      "gcj",
		Usage:     "query a gcc-jump cross-reference database",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "database directory",
				Sources: cli.EnvVars("GCJ_DB"),
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML config file (default $GCJ_CONFIG or ./.gcj.toml)",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "log debug records to stderr",
			},
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "print JSON on one line",
			},
		},
		Commands: []*cli.Command{
			a.listCommand(),
			a.selectCommand(),
			a.expandCommand(),
			a.jumpCommand(),
			a.referCommand(),
			a.dumpCommand(),
			a.ingestCommand(),
			a.factsCommand(),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return fmt.Errorf("unknown command %q", cmd.Args().First())
			}
			return errors.New("command required")
		},
	}
}

// settings are the resolved global options of one invocation.
type settings struct {
	cfg    *config.Config
	logger *slog.Logger
	diag   *output.Diagnostics
	out    *output.Writer
}

func (a *app) settings(cmd *cli.Command) (*settings, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if db := cmd.String("db"); db != "" {
		cfg.DB = db
	}
	cfg.Trace = cfg.Trace || cmd.Bool("trace")
	cfg.Compact = cfg.Compact || cmd.Bool("compact")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Trace {
		logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return &settings{
		cfg:    cfg,
		logger: logger,
		diag:   output.NewDiagnostics(a.stderr),
		out:    output.New(output.Config{Compact: cfg.Compact, Output: a.stdout}),
	}, nil
}

func (s *settings) db() (string, error) {
	if s.cfg.DB == "" {
		return "", errors.New("--db is required")
	}
	return s.cfg.DB, nil
}

// open resolves settings and opens the database for querying.
func (a *app) open(cmd *cli.Command) (*settings, *gcj.QueryRepository, error) {
	s, err := a.settings(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := s.db()
	if err != nil {
		return nil, nil, err
	}
	opts := []gcj.Option{gcj.WithLogger(s.logger)}
	if jobs := cmd.Int("jobs"); jobs > 0 {
		opts = append(opts, gcj.WithJobs(int(jobs)))
	}
	q, err := gcj.OpenQuery(db, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s, q, nil
}

// intArgs parses exactly len(names) positional int32 arguments.
func intArgs(cmd *cli.Command, names ...string) ([]int32, error) {
	args := cmd.Args().Slice()
	if len(args) != len(names) {
		return nil, fmt.Errorf("usage: %s %s", cmd.Name, cmd.ArgsUsage)
	}
	vals := make([]int32, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", names[i], arg)
		}
		vals[i] = int32(v)
	}
	return vals, nil
}
