package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

func testCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "Run elm-test",
		ArgsUsage: "[files...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "output results as JSON",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose output",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "stop on first failure",
			},
			&cli.StringSliceFlag{
				Name:    "select",
				Aliases: []string{"s"},
				Usage:   "run the files declaring this suite or test id of the last run (repeatable)",
			},
			&cli.StringFlag{
				Name:  "seed",
				Usage: "elm-test random seed",
			},
			&cli.StringFlag{
				Name:  "fuzz",
				Usage: "elm-test fuzz runs per test",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the elm-test command line and exit",
			},
		},
		Action: runTest,
	}
}

// summaryHandler is a handler printing a summary once the run ends.
type summaryHandler interface {
	runner.Handler
	Summary(tree *runner.ResultTree) error
}

func runTest(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	defer func() { _ = logger.Sync() }()

	files, err := testFiles(cmd, cfg)
	if err != nil {
		return err
	}

	extra, err := cfg.ExtraArgs()
	if err != nil {
		return err
	}

	if seed := cmd.String("seed"); seed != "" {
		extra = append(extra, "--seed", seed)
	}

	if fuzz := cmd.String("fuzz"); fuzz != "" {
		extra = append(extra, "--fuzz", fuzz)
	}

	out := cmd.Root().Writer
	errOut := cmd.Root().ErrWriter

	opts := []runner.Option{
		runner.WithBinaries(cfg.ResolveBinaries()),
		runner.WithExtraArgs(extra...),
		runner.WithFailFast(cmd.Bool("fail-fast")),
		runner.WithLogger(logger.Named("runner")),
	}

	if cmd.Bool("dry-run") {
		_, err := fmt.Fprintln(out, strings.Join(runner.New(opts...).Args(files), " "))

		return err
	}

	transcript, err := runner.OpenTranscript(cfg.TranscriptPath())
	if err != nil {
		logger.Warn("transcript disabled", zap.Error(err))
	} else {
		defer func() { _ = transcript.Close() }()

		opts = append(opts, runner.WithTranscript(transcript))
	}

	handler, err := newHandler(cmd, cfg, out, errOut)
	if err != nil {
		return err
	}

	opts = append(opts, runner.WithHandler(handler))

	tree, runErr := runner.New(opts...).Run(ctx, cfg.Dir(), files)

	if err := handler.Summary(tree); err != nil {
		logger.Warn("summary failed", zap.Error(err))
	}

	switch {
	case errors.Is(runErr, runner.ErrRunFailed):
		return cli.Exit("", 1)
	case runErr != nil:
		return runErr
	case !tree.Ok():
		return cli.Exit("", 1)
	}

	return nil
}

//nolint:ireturn // the output mode picks the handler.
func newHandler(cmd *cli.Command, cfg *elmtest.Config, out, errOut io.Writer) (summaryHandler, error) {
	switch {
	case cmd.Bool("json"):
		return runner.NewFormatHandler(runner.NewFormatter("json", out), errOut), nil
	case cmd.Bool("verbose"):
		return runner.NewFormatHandler(runner.NewFormatter("verbose", out), errOut), nil
	case runner.IsTerminal(out):
		h := runner.NewTUIHandler(out, cfg.Dir())
		if err := h.Start(); err != nil {
			return nil, fmt.Errorf("starting TUI: %w", err)
		}

		return h, nil
	default:
		return runner.NewFormatHandler(runner.NewFormatter("dots", out), errOut), nil
	}
}

// testFiles returns the files named on the command line, made absolute,
// followed by the files declaring the --select ids in the last run.
func testFiles(cmd *cli.Command, cfg *elmtest.Config) ([]string, error) {
	var files []string

	for _, arg := range cmd.Args().Slice() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving path %s: %w", arg, err)
		}

		files = append(files, abs)
	}

	ids := cmd.StringSlice("select")
	if len(ids) == 0 {
		return files, nil
	}

	tree, err := runner.LoadTranscript(cfg.TranscriptPath(), cfg.Dir())
	if err != nil {
		return nil, err
	}

	root := tree.Suite(cfg.TestsDir())

	selected, _ := elmtest.FilesAndAllTestIDs(elmtest.ExpandSelection(ids, root), root)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %s", runner.ErrNoFiles, strings.Join(ids, ", "))
	}

	return append(files, selected...), nil
}
