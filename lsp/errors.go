package lsp

import "errors"

var (
	// ErrNoWorkspace is returned by commands that need a workspace root
	// when the client sent none.
	ErrNoWorkspace = errors.New("lsp: no workspace root")

	// ErrUnknownCommand is returned for commands the server does not offer.
	ErrUnknownCommand = errors.New("lsp: unknown command")
)
