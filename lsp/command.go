package lsp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

// Commands offered through workspace/executeCommand.
const (
	// CommandRunFile runs every test of one file: [path].
	CommandRunFile = "elmtest.runFile"
	// CommandRunTests runs the files declaring the given suites and
	// tests: [id...].
	CommandRunTests = "elmtest.runTests"
	// CommandLocate returns the Location of a suite or test: [id].
	CommandLocate = "elmtest.locate"
)

// Commands returns the command names the server executes.
func Commands() []string {
	return []string{CommandRunFile, CommandRunTests, CommandLocate}
}

// RunResult is the reply of the run commands.
type RunResult struct {
	Run     string   `json:"run"`
	Files   []string `json:"files,omitempty"`
	Tests   []string `json:"tests,omitempty"`
	Total   int      `json:"total"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Todo    int      `json:"todo"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
	Ok      bool     `json:"ok"`
}

// ExecuteCommand handles workspace/executeCommand requests.
func (s *Server) ExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (any, error) {
	s.logger.Info("ExecuteCommand",
		zap.String("command", params.Command),
		zap.Any("arguments", params.Arguments))

	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()

	if down {
		return nil, jsonrpc2.ErrInvalidRequest
	}

	args, err := stringArgs(params.Arguments)
	if err != nil {
		return nil, err
	}

	switch params.Command {
	case CommandRunFile:
		if len(args) != 1 {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: want one file", params.Command)
		}

		return s.RunFile(ctx, args[0])

	case CommandRunTests:
		if len(args) == 0 {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: want at least one id", params.Command)
		}

		return s.RunTests(ctx, args)

	case CommandLocate:
		if len(args) != 1 {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "%s: want one id", params.Command)
		}

		loc, ok, err := s.Locate(args[0])
		if err != nil || !ok {
			return nil, err
		}

		return loc, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, params.Command)
}

func stringArgs(arguments []any) ([]string, error) {
	args := make([]string, 0, len(arguments))

	for i, arg := range arguments {
		str, ok := arg.(string)
		if !ok {
			return nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "argument %d: want string, got %T", i, arg)
		}

		args = append(args, str)
	}

	return args, nil
}

// RunFile runs the tests of one file.
func (s *Server) RunFile(ctx context.Context, path string) (*RunResult, error) {
	path = uriToPath(protocol.DocumentURI(path))

	cfg, err := s.projectFor(filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	return s.runFiles(ctx, cfg, []string{path}, nil)
}

// RunTests expands ids over the last result tree of the workspace project
// and the open test modules, then runs every file declaring a selected
// test.
func (s *Server) RunTests(ctx context.Context, ids []string) (*RunResult, error) {
	cfg, err := s.workspaceProject()
	if err != nil {
		return nil, err
	}

	root := s.selectionRoot(cfg)

	files, allIDs := elmtest.FilesAndAllTestIDs(elmtest.ExpandSelection(ids, root), root)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", runner.ErrNoFiles, strings.Join(ids, ", "))
	}

	return s.runFiles(ctx, cfg, files, allIDs)
}

// selectionRoot merges the last recorded tree with the declarations of
// open modules that tree does not know yet.
func (s *Server) selectionRoot(cfg *elmtest.Config) *elmtest.SuiteInfo {
	tree, ok := s.lastTree(cfg.Dir())
	if !ok {
		loaded, err := runner.LoadTranscript(cfg.TranscriptPath(), cfg.Dir())
		if err == nil {
			tree = loaded
			s.setTree(cfg.Dir(), tree)
		} else if !errors.Is(err, runner.ErrNoTranscript) {
			s.logger.Warn("Failed to load transcript", zap.Error(err))
		}
	}

	root := &elmtest.SuiteInfo{Header: elmtest.Header{Label: filepath.Base(cfg.Dir())}}
	known := make(map[string]bool)

	if tree != nil {
		for _, child := range tree.Suite(cfg.TestsDir()).Children {
			root.Children = append(root.Children, child)
			known[child.Head().ID] = true
		}
	}

	for _, suite := range s.openSuites(cfg.TestsDir()) {
		if !known[suite.ID] {
			root.Children = append(root.Children, suite)
		}
	}

	return root
}

// runFiles runs files once per project at a time: concurrent requests for
// the same selection share one run. Cancelling one request does not stop a
// shared run.
func (s *Server) runFiles(ctx context.Context, cfg *elmtest.Config, files, allIDs []string) (*RunResult, error) {
	key := cfg.Dir() + "\x00" + strings.Join(files, "\x00")

	v, err, shared := s.runs.Do(key, func() (any, error) {
		// The run outlives the request that started it.
		runCtx := context.WithoutCancel(ctx)

		tree, err := s.run(runCtx, cfg, files)
		if tree != nil {
			s.setTree(cfg.Dir(), tree)
			s.publishResults(runCtx, cfg, tree)
		}

		return tree, err
	})

	s.logger.Debug("Run finished",
		zap.String("project", cfg.Dir()),
		zap.Strings("files", files),
		zap.Bool("shared", shared),
		zap.Error(err))

	tree, _ := v.(*runner.ResultTree)
	if err != nil {
		s.showError(ctx, err)

		if tree == nil {
			return nil, err
		}
	}

	c := tree.Counts()

	return &RunResult{
		Run:     tree.RunID(),
		Files:   files,
		Tests:   allIDs,
		Total:   c.Total,
		Passed:  c.Passed,
		Failed:  c.Failed,
		Todo:    c.Todo,
		Skipped: c.Skipped,
		Errors:  tree.Errors(),
		Ok:      err == nil && tree.Ok(),
	}, nil
}

func (s *Server) runElmTest(ctx context.Context, cfg *elmtest.Config, files []string) (*runner.ResultTree, error) {
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return nil, err
	}

	opts := []runner.Option{
		runner.WithBinaries(cfg.ResolveBinaries()),
		runner.WithExtraArgs(extra...),
		runner.WithLogger(s.logger.Named("runner")),
	}

	transcript, err := runner.OpenTranscript(cfg.TranscriptPath())
	if err != nil {
		s.logger.Warn("Transcript disabled", zap.Error(err))
	} else {
		defer func() { _ = transcript.Close() }()

		opts = append(opts, runner.WithTranscript(transcript))
	}

	return runner.New(opts...).Run(ctx, cfg.Dir(), files)
}

func (s *Server) showError(ctx context.Context, err error) {
	showErr := s.client.ShowMessage(ctx, &protocol.ShowMessageParams{
		Type:    protocol.MessageTypeError,
		Message: err.Error(),
	})
	if showErr != nil {
		s.logger.Error("Failed to show message", zap.Error(showErr))
	}
}

// Locate returns the position of the suite or test with id in the
// workspace project.
func (s *Server) Locate(id string) (*protocol.Location, bool, error) {
	cfg, err := s.workspaceProject()
	if err != nil {
		return nil, false, err
	}

	labels := s.labelsFor(cfg, id)
	file := elmtest.ModuleFile(cfg.TestsDir(), labels[0])

	text, _, err := s.text(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}

		return nil, false, err
	}

	var span protocol.Range

	if len(labels) > 1 {
		offset, ok := elmtest.FindOffsetForTest(labels[1:], text)
		if !ok {
			return nil, false, nil
		}

		span = spanRange(text, offset, len(elmtest.Quote(labels[len(labels)-1])))
	}

	return &protocol.Location{URI: pathToURI(file), Range: span}, true, nil
}

// labelsFor resolves id to its label path. Labels may themselves contain
// the id separator, so known nodes are preferred over splitting.
func (s *Server) labelsFor(cfg *elmtest.Config, id string) []string {
	if tree, ok := s.lastTree(cfg.Dir()); ok {
		if node, ok := tree.Find(id); ok {
			return node.Labels
		}
	}

	if labels, ok := s.declarationLabels(id); ok {
		return labels
	}

	return strings.Split(id, elmtest.IDSeparator)
}

// text returns the content of path, preferring the open document.
func (s *Server) text(path string) (string, int32, error) {
	if doc, ok := s.getDocument(pathToURI(path)); ok {
		return doc.Content, doc.Version, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}

	return string(data), 0, nil
}
