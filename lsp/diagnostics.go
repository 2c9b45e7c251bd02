package lsp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

const diagnosticSource = "elm-test"

// publishResults publishes the diagnostics of every file in tree. Files
// whose tests all passed get an empty list, clearing earlier failures.
func (s *Server) publishResults(ctx context.Context, cfg *elmtest.Config, tree *runner.ResultTree) {
	tests := tree.TestsByID()

	for _, group := range elmtest.TestInfosByFile(tree.Suite(cfg.TestsDir())) {
		text, version, err := s.text(group.File)
		if err != nil {
			s.logger.Debug("publishResults: no text", zap.String("file", group.File), zap.Error(err))
		}

		diagnostics := make([]protocol.Diagnostic, 0)

		for _, test := range group.Tests {
			node, ok := tests[test.ID]
			if !ok {
				continue
			}

			if d, ok := testDiagnostic(node, text); ok {
				diagnostics = append(diagnostics, d)
			}
		}

		s.publish(ctx, pathToURI(group.File), version, diagnostics)
	}
}

// publishDocument places the last results of doc's project on doc.
func (s *Server) publishDocument(ctx context.Context, doc *Document) {
	if doc.Decls == nil {
		return
	}

	cfg, err := s.projectFor(filepath.Dir(doc.Path))
	if err != nil {
		return
	}

	tree, ok := s.lastTree(cfg.Dir())
	if !ok {
		return
	}

	root, ok := tree.Find(doc.Decls.Module)
	if !ok {
		return
	}

	diagnostics := make([]protocol.Diagnostic, 0)

	for node := range root.All() {
		if !node.IsLeaf() {
			continue
		}

		if d, ok := testDiagnostic(node, doc.Content); ok {
			diagnostics = append(diagnostics, d)
		}
	}

	s.publish(ctx, doc.URI, doc.Version, diagnostics)
}

func (s *Server) publish(ctx context.Context, u protocol.DocumentURI, version int32, diagnostics []protocol.Diagnostic) {
	s.logger.Debug("publishDiagnostics",
		zap.String("uri", string(u)),
		zap.Int("count", len(diagnostics)))

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         u,
		Version:     uint32(max(version, 0)), //nolint:gosec // non-negative
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("publishDiagnostics: RPC failed", zap.Error(err))
	}
}

// testDiagnostic describes a failed or todo test at its description in
// text, or at the start of the file when it cannot be found there.
func testDiagnostic(node *runner.Node, text string) (protocol.Diagnostic, bool) {
	var severity protocol.DiagnosticSeverity

	switch node.Result.Status {
	case runner.StatusFail:
		severity = protocol.DiagnosticSeverityError
	case runner.StatusTodo:
		severity = protocol.DiagnosticSeverityInformation
	default:
		return protocol.Diagnostic{}, false
	}

	var span protocol.Range

	if len(node.Labels) > 1 {
		if offset, ok := elmtest.FindOffsetForTest(node.Labels[1:], text); ok {
			span = spanRange(text, offset, len(elmtest.Quote(node.Name)))
		}
	}

	return protocol.Diagnostic{
		Range:    span,
		Severity: severity,
		Source:   diagnosticSource,
		Message:  diagnosticMessage(node),
	}, true
}

func diagnosticMessage(node *runner.Node) string {
	if diff, ok := node.Diff(); ok {
		return fmt.Sprintf("%s\nExpected: %s\nActual:   %s", node.ID, diff.Expected, diff.Actual)
	}

	lines := append([]string{node.ID}, node.Messages()...)

	return strings.Join(lines, "\n")
}
