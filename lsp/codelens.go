package lsp

import (
	"context"
	"path/filepath"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

// CodeLens handles textDocument/codeLens requests: one lens running the
// whole file, then one per describe and test, titled with the last result.
func (s *Server) CodeLens(_ context.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	s.logger.Debug("CodeLens", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Decls == nil {
		return nil, nil
	}

	var tree *runner.ResultTree
	if cfg, err := s.projectFor(filepath.Dir(doc.Path)); err == nil {
		tree, _ = s.lastTree(cfg.Dir())
	}

	lenses := make([]protocol.CodeLens, 0, len(doc.Decls.Items)+1)
	lenses = append(lenses, protocol.CodeLens{
		Range: protocol.Range{},
		Command: &protocol.Command{
			Title:     "▶ Run file",
			Command:   CommandRunFile,
			Arguments: []any{doc.Path},
		},
	})

	for _, d := range doc.Decls.Items {
		if d.Keyword == "todo" {
			continue
		}

		id := doc.Decls.ID(d)

		title := "▶ Run test"
		if d.IsSuite() {
			title = "▶ Run suite"
		}

		if tree != nil {
			if node, ok := tree.Find(id); ok {
				title = resultSymbol(node) + " " + title
			}
		}

		lenses = append(lenses, protocol.CodeLens{
			Range: spanRange(doc.Content, d.Pos.Offset, len(d.Keyword)),
			Command: &protocol.Command{
				Title:     title,
				Command:   CommandRunTests,
				Arguments: []any{id},
			},
		})
	}

	return lenses, nil
}

func resultSymbol(node *runner.Node) string {
	if node.IsLeaf() {
		switch node.Result.Status {
		case runner.StatusFail:
			return "✗"
		case runner.StatusTodo:
			return "○"
		case runner.StatusSkip:
			return "↷"
		}
	}

	if node.Green() {
		return "✓"
	}

	return "✗"
}

// declarationLabels returns the label path of the open declaration with id,
// module first.
func (s *Server) declarationLabels(id string) ([]string, bool) {
	for _, doc := range s.openDocuments() {
		if doc.Decls == nil {
			continue
		}

		if id == doc.Decls.Module {
			return []string{doc.Decls.Module}, true
		}

		for _, d := range doc.Decls.Items {
			if doc.Decls.ID(d) == id {
				return append([]string{doc.Decls.Module}, d.Labels...), true
			}
		}
	}

	return nil, false
}

// openSuites returns the declaration trees of the open test modules below
// testsDir.
func (s *Server) openSuites(testsDir string) []*elmtest.SuiteInfo {
	var suites []*elmtest.SuiteInfo

	for _, doc := range s.openDocuments() {
		if doc.Decls == nil {
			continue
		}

		if _, ok := elmtest.ModuleName(testsDir, doc.Path); !ok {
			continue
		}

		suites = append(suites, doc.Decls.Info())
	}

	return suites
}
