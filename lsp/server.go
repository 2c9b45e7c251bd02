// Package lsp implements a Language Server Protocol server that runs
// elm-test from the editor and reports results on the test declarations.
package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

// ServerName is reported to the client in the initialize result.
const ServerName = "elmtest-lsp"

// Version is the server version reported to the client.
var Version = "dev"

// RunFunc runs elm-test for files of the project described by cfg.
type RunFunc func(ctx context.Context, cfg *elmtest.Config, files []string) (*runner.ResultTree, error)

// Server handles LSP requests for Elm test modules.
type Server struct {
	client protocol.Client
	logger *zap.Logger
	run    RunFunc

	mu        sync.Mutex
	documents map[protocol.DocumentURI]*Document
	// trees holds the last result tree of every project, by project dir.
	trees map[string]*runner.ResultTree

	runs singleflight.Group

	initialized   bool
	shutdown      bool
	workspaceRoot string
}

// Document represents an open document.
type Document struct {
	URI     protocol.DocumentURI
	Path    string
	Version int32
	Content string
	// Decls is nil when the document is not a test module.
	Decls *elmtest.Declarations
}

// Option configures a Server.
type Option func(*Server)

// WithRunFunc replaces how test runs are executed.
func WithRunFunc(fn RunFunc) Option {
	return func(s *Server) {
		s.run = fn
	}
}

// WithWorkspaceRoot sets the workspace root before initialize.
func WithWorkspaceRoot(root string) Option {
	return func(s *Server) {
		s.workspaceRoot = root
	}
}

// NewServer creates a new LSP server.
func NewServer(client protocol.Client, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*Document),
		trees:     make(map[string]*runner.ResultTree),
	}
	s.run = s.runElmTest

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the JSON-RPC handler serving s. Command executions run
// in their own goroutine so a long test run does not block the stream.
func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == protocol.MethodWorkspaceExecuteCommand {
			go func() {
				if err := s.handle(ctx, reply, req); err != nil {
					s.logger.Error("executeCommand failed", zap.Error(err))
				}
			}()

			return nil
		}

		return s.handle(ctx, reply, req)
	}
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	defer s.traceHandler(req.Method())()

	switch req.Method() {
	case protocol.MethodInitialize:
		var params protocol.InitializeParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		result, err := s.Initialize(ctx, &params)

		return reply(ctx, result, err)

	case protocol.MethodInitialized:
		return reply(ctx, nil, s.Initialized(ctx, &protocol.InitializedParams{}))

	case protocol.MethodShutdown:
		return reply(ctx, nil, s.Shutdown(ctx))

	case protocol.MethodExit:
		return reply(ctx, nil, s.Exit(ctx))

	case protocol.MethodTextDocumentDidOpen:
		var params protocol.DidOpenTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		return reply(ctx, nil, s.DidOpen(ctx, &params))

	case protocol.MethodTextDocumentDidChange:
		var params protocol.DidChangeTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		return reply(ctx, nil, s.DidChange(ctx, &params))

	case protocol.MethodTextDocumentDidClose:
		var params protocol.DidCloseTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		return reply(ctx, nil, s.DidClose(ctx, &params))

	case protocol.MethodTextDocumentDidSave:
		var params protocol.DidSaveTextDocumentParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		return reply(ctx, nil, s.DidSave(ctx, &params))

	case protocol.MethodTextDocumentCodeLens:
		var params protocol.CodeLensParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		lenses, err := s.CodeLens(ctx, &params)

		return reply(ctx, lenses, err)

	case protocol.MethodWorkspaceExecuteCommand:
		var params protocol.ExecuteCommandParams
		if err := decodeParams(req, &params); err != nil {
			return reply(ctx, nil, err)
		}

		result, err := s.ExecuteCommand(ctx, &params)

		return reply(ctx, result, err)
	}

	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

func decodeParams(req jsonrpc2.Request, v any) error {
	raw := req.Params()
	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return jsonrpc2.Errorf(jsonrpc2.ParseError, "%s: %v", req.Method(), err)
	}

	return nil
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootUri", string(params.RootURI)))

	s.mu.Lock()
	switch {
	case params.RootURI != "":
		s.workspaceRoot = uriToPath(params.RootURI)
	case params.RootPath != "":
		s.workspaceRoot = params.RootPath
	}
	root := s.workspaceRoot
	s.mu.Unlock()

	s.logger.Info("Workspace root", zap.String("root", root))

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{IncludeText: true},
			},
			CodeLensProvider: &protocol.CodeLensOptions{},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: Commands(),
			},
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    ServerName,
			Version: Version,
		},
	}, nil
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")

	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	return nil
}

// Exit handles the exit notification. The connection owner stops serving
// once the client closes the stream.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")

	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Debug("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	doc := s.newDocument(params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)

	s.mu.Lock()
	s.documents[doc.URI] = doc
	s.mu.Unlock()

	s.publishDocument(ctx, doc)

	return nil
}

// DidChange handles textDocument/didChange notifications. Only full sync
// is advertised, so the last change holds the whole text.
func (s *Server) DidChange(_ context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Debug("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	if len(params.ContentChanges) == 0 {
		return nil
	}

	doc := s.newDocument(
		params.TextDocument.URI,
		params.TextDocument.Version,
		params.ContentChanges[len(params.ContentChanges)-1].Text,
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.URI]; !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(doc.URI)))

		return nil
	}

	s.documents[doc.URI] = doc

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Debug("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	delete(s.documents, params.TextDocument.URI)
	s.mu.Unlock()

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications. Declarations moved
// by the edit get their result diagnostics placed again.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Debug("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil
	}

	if params.Text != "" && params.Text != doc.Content {
		doc = s.newDocument(doc.URI, doc.Version, params.Text)

		s.mu.Lock()
		s.documents[doc.URI] = doc
		s.mu.Unlock()
	}

	s.publishDocument(ctx, doc)

	return nil
}

func (s *Server) newDocument(u protocol.DocumentURI, version int32, text string) *Document {
	doc := &Document{
		URI:     u,
		Path:    uriToPath(u),
		Version: version,
		Content: text,
	}

	decls, err := elmtest.ScanDeclarations(doc.Path, text)
	if err != nil {
		s.logger.Debug("Not a test module", zap.String("path", doc.Path), zap.Error(err))

		return doc
	}

	doc.Decls = decls

	return doc
}

// getDocument returns a document by URI.
func (s *Server) getDocument(u protocol.DocumentURI) (*Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[u]

	return doc, ok
}

func (s *Server) openDocuments() []*Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]*Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}

	slices.SortFunc(docs, func(a, b *Document) int {
		return strings.Compare(string(a.URI), string(b.URI))
	})

	return docs
}

func (s *Server) root() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.workspaceRoot
}

// projectFor returns the configuration of the project containing dir. A
// directory without a config file belongs to the workspace root project.
func (s *Server) projectFor(dir string) (*elmtest.Config, error) {
	cfg, err := elmtest.LoadConfig(dir)

	switch {
	case errors.Is(err, elmtest.ErrConfigNotFound):
		if root := s.root(); root != "" {
			return elmtest.DefaultConfig(root), nil
		}

		return cfg, nil
	case err != nil:
		return nil, err
	}

	return cfg, nil
}

// workspaceProject returns the configuration of the workspace root.
func (s *Server) workspaceProject() (*elmtest.Config, error) {
	root := s.root()
	if root == "" {
		return nil, ErrNoWorkspace
	}

	return s.projectFor(root)
}

func (s *Server) lastTree(dir string) (*runner.ResultTree, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.trees[filepath.Clean(dir)]

	return tree, ok
}

func (s *Server) setTree(dir string, tree *runner.ResultTree) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trees[filepath.Clean(dir)] = tree
}
