// Command elmtest runs elm-test and relates its results to the test
// sources.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	err := newApp().Run(context.Background(), os.Args)
	if err == nil {
		return
	}

	var exitErr cli.ExitCoder
	if errors.As(err, &exitErr) {
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}

		os.Exit(exitErr.ExitCode())
	}

	fmt.Fprintln(os.Stderr, "elmtest:", err)
	os.Exit(1)
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "elmtest",
		Usage: "Run elm-test and find tests in their sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Usage:   "project directory",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			testCommand(),
			treeCommand(),
			locateCommand(),
		},
		// Test ids may contain commas.
		DisableSliceFlagSeparator: true,
		// Exit codes are handled by main.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}
