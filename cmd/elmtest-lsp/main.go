// Command elmtest-lsp is a Language Server Protocol server running elm-test
// from the editor.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rlch/elmtest/lsp"
)

var debugFlag = flag.Bool("debug", false, "Enable debug logging")

func main() {
	flag.Parse()

	// stdout carries the protocol.
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	if *debugFlag {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting elmtest-lsp", zap.String("version", lsp.Version))

	err = run(context.Background(), logger, config.Level, os.Stdin, os.Stdout)
	if err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger, level zapcore.LevelEnabler, in io.Reader, out io.Writer) error {
	stream := jsonrpc2.NewStream(&readWriteCloser{in, out})
	conn := jsonrpc2.NewConn(stream)

	client := protocol.ClientDispatcher(conn, logger)

	clientLogger, stop := lsp.NewClientLogger(client, logger.Core(), level)
	defer stop()

	server := lsp.NewServer(client, clientLogger)

	conn.Go(ctx, server.Handler())

	<-conn.Done()

	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// readWriteCloser joins stdin and stdout into one stream.
type readWriteCloser struct {
	io.Reader
	io.Writer
}

func (rwc *readWriteCloser) Close() error {
	if c, ok := rwc.Writer.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
