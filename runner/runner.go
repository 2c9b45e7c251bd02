package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rlch/elmtest"
)

// waitDelay bounds how long Run waits for output pipes after the process
// exits or is killed; elm-test's workers may hold them open.
const waitDelay = 2 * time.Second

const readSize = 32 * 1024

// Runner executes elm-test and folds its report into a ResultTree.
type Runner struct {
	binaries   elmtest.Binaries
	extraArgs  []string
	handler    Handler
	failFast   bool
	logger     *zap.Logger
	transcript io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithBinaries sets the elm-test and compiler executables.
func WithBinaries(b elmtest.Binaries) Option {
	return func(r *Runner) {
		r.binaries = b
	}
}

// WithExtraArgs appends arguments after the generated ones, e.g. --seed.
func WithExtraArgs(args ...string) Option {
	return func(r *Runner) {
		r.extraArgs = append(r.extraArgs, args...)
	}
}

// WithHandler sets the event handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithFailFast stops on first failure.
func WithFailFast(enabled bool) Option {
	return func(r *Runner) {
		r.failFast = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithTranscript copies every stdout line of the run to w.
func WithTranscript(w io.Writer) Option {
	return func(r *Runner) {
		r.transcript = w
	}
}

// New creates a Runner with the given options.
func New(opts ...Option) *Runner {
	r := &Runner{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Args returns the full command line for running files.
func (r *Runner) Args(files []string) []string {
	args := elmtest.WithReport(elmtest.BuildArgs(r.binaries, files))

	return append(args, r.extraArgs...)
}

// Run executes elm-test in dir for files, all tests when files is empty.
// Failing tests are not an error; the returned tree carries them. A run
// that ends before reporting any test returns ErrRunFailed with stderr
// text in the tree's errors.
func (r *Runner) Run(ctx context.Context, dir string, files []string) (*ResultTree, error) {
	tree := NewResultTree(dir)
	handler := r.handlerFor(tree)
	args := r.Args(files)

	r.logger.Debug("starting elm-test",
		zap.String("run", tree.RunID()),
		zap.String("dir", dir),
		zap.Strings("args", args),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return tree, fmt.Errorf("runner: stdout: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return tree, fmt.Errorf("runner: stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return tree, fmt.Errorf("runner: start %s: %w", args[0], err)
	}

	var (
		g       errgroup.Group
		errText strings.Builder
	)

	g.Go(func() error {
		err := r.stream(runCtx, stdout, tree, handler)
		if err != nil {
			cancel()
		}

		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&errText, stderr)

		return err
	})

	streamErr := g.Wait()
	waitErr := cmd.Wait()

	if text := strings.TrimSpace(errText.String()); text != "" {
		_ = handler.Err(text)
	}

	c := tree.Counts()
	r.logger.Debug("elm-test finished",
		zap.String("run", tree.RunID()),
		zap.Int("total", c.Total),
		zap.Int("failed", c.Failed),
		zap.Error(waitErr),
	)

	switch {
	case errors.Is(streamErr, ErrMaxFailures):
		return tree, nil
	case ctx.Err() != nil:
		return tree, ctx.Err()
	case streamErr != nil:
		return tree, streamErr
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if c.Total == 0 {
			return tree, fmt.Errorf("%w: exit status %d", ErrRunFailed, exitErr.ExitCode())
		}

		return tree, nil
	}

	if waitErr != nil {
		return tree, fmt.Errorf("runner: wait: %w", waitErr)
	}

	return tree, nil
}

// Replay folds a recorded report read from rd through the configured
// handlers, as if it came from a live run in dir.
func (r *Runner) Replay(ctx context.Context, dir string, rd io.Reader) (*ResultTree, error) {
	tree := NewResultTree(dir)

	err := r.stream(ctx, rd, tree, r.handlerFor(tree))
	if errors.Is(err, ErrMaxFailures) {
		return tree, nil
	}

	return tree, err
}

func (r *Runner) handlerFor(tree *ResultTree) Handler {
	handlers := []Handler{NewTreeHandler(tree)}
	if r.handler != nil {
		handlers = append(handlers, r.handler)
	}

	if r.failFast {
		handlers = append(handlers, NewStopOnFailHandler(1))
	}

	return NewMultiHandler(handlers...)
}

// stream splits rd into lines and hands each decoded event to handler.
// It is the only writer of tree.
func (r *Runner) stream(ctx context.Context, rd io.Reader, tree *ResultTree, handler Handler) error {
	var splitter LineSplitter

	buf := make([]byte, readSize)

	for {
		n, readErr := rd.Read(buf)

		for _, line := range splitter.Write(buf[:n]) {
			if err := r.line(ctx, line, tree, handler); err != nil {
				return err
			}
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return fmt.Errorf("runner: read: %w", readErr)
		}
	}

	if line, ok := splitter.Flush(); ok {
		return r.line(ctx, line, tree, handler)
	}

	return nil
}

func (r *Runner) line(ctx context.Context, line string, tree *ResultTree, handler Handler) error {
	if r.transcript != nil {
		if _, err := io.WriteString(r.transcript, line+"\n"); err != nil {
			r.logger.Warn("transcript write failed", zap.Error(err))
			r.transcript = nil
		}
	}

	event, ok := Decode(line)
	if !ok {
		if strings.TrimSpace(line) != "" {
			r.logger.Debug("skipping output line", zap.String("line", line))
		}

		return nil
	}

	return handler.Event(ctx, event, tree)
}
