package main

import (
	"errors"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/elmtest"
)

// loadConfig loads the config found walking up from --dir. Without a
// config file the defaults apply, rooted at --dir.
func loadConfig(cmd *cli.Command) (*elmtest.Config, error) {
	cfg, err := elmtest.LoadConfig(cmd.String("dir"))
	if err != nil && !errors.Is(err, elmtest.ErrConfigNotFound) {
		return nil, err
	}

	return cfg, nil
}

// newLogger logs to stderr at info level, debug with --debug.
func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if cmd.Bool("debug") {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return config.Build()
}

// walkElmFiles calls fn for every .elm file below root, respecting
// .gitignore and .ignore files.
func walkElmFiles(root string, fn func(path string)) error {
	fileListQueue := make(chan *gocodewalker.File, 100) //nolint:mnd

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{"elm"}

	var walkErr error

	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e

		return true
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range fileListQueue {
			fn(f.Location)
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return err
	}

	wg.Wait()

	return walkErr
}
