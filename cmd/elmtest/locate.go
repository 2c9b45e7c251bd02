package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/urfave/cli/v3"

	"github.com/rlch/elmtest"
)

// ErrNoLabels is returned by locate without labels.
var ErrNoLabels = errors.New("locate: at least one label required")

func locateCommand() *cli.Command {
	return &cli.Command{
		Name:      "locate",
		Usage:     "Print where a suite or test is declared",
		ArgsUsage: "[Module] <label>...",
		Description: "Labels run from the outermost describe to the test. When the first " +
			"label names a test module only that module is searched.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "search only this file",
			},
		},
		Action: runLocate,
	}
}

func runLocate(_ context.Context, cmd *cli.Command) error {
	labels := cmd.Args().Slice()
	if len(labels) == 0 {
		return ErrNoLabels
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	files, err := locateFiles(cmd, cfg)
	if err != nil {
		return err
	}

	// A leading module label narrows the search to that module.
	if len(labels) > 1 {
		moduleFile := elmtest.ModuleFile(cfg.TestsDir(), labels[0])
		if slices.Contains(files, moduleFile) {
			files = []string{moduleFile}
			labels = labels[1:]
		}
	}

	out := cmd.Root().Writer
	found := false

	for _, file := range files {
		data, err := os.ReadFile(file) //nolint:gosec // G304: paths come from the user or the tests dir
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		text := string(data)

		offset, ok := elmtest.FindOffsetForTest(labels, text)
		if !ok {
			continue
		}

		line, col := lineColumn(text, offset)
		found = true

		if _, err := fmt.Fprintf(out, "%s:%d:%d\n", file, line, col); err != nil {
			return err
		}
	}

	if !found {
		return cli.Exit(fmt.Sprintf("%s: not found", strings.Join(labels, " / ")), 1)
	}

	return nil
}

// locateFiles returns --file, or every .elm file below the tests dir in
// path order.
func locateFiles(cmd *cli.Command, cfg *elmtest.Config) ([]string, error) {
	if file := cmd.String("file"); file != "" {
		return []string{file}, nil
	}

	var files []string

	if err := walkElmFiles(cfg.TestsDir(), func(path string) {
		files = append(files, path)
	}); err != nil {
		return nil, fmt.Errorf("walking %s: %w", cfg.TestsDir(), err)
	}

	slices.Sort(files)

	return files, nil
}

// lineColumn converts a byte offset to a 1-based line and rune column.
func lineColumn(text string, offset int) (line, col int) {
	before := text[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1

	return strings.Count(before, "\n") + 1, utf8.RuneCountInString(before[lineStart:]) + 1
}
