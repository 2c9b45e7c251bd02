package lsp

import (
	"strings"
	"unicode/utf16"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// offsetToPosition converts a byte offset in text to an LSP position,
// whose character counts UTF-16 code units.
func offsetToPosition(text string, offset int) protocol.Position {
	offset = max(0, min(offset, len(text)))
	before := text[:offset]

	lineStart := strings.LastIndexByte(before, '\n') + 1

	var char int
	for _, r := range before[lineStart:] {
		char += utf16.RuneLen(r)
	}

	return protocol.Position{
		Line:      uint32(strings.Count(before, "\n")), //nolint:gosec // bounded by text length
		Character: uint32(char),                        //nolint:gosec // bounded by text length
	}
}

// spanRange returns the range covering text[start:start+length].
func spanRange(text string, start, length int) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(text, start),
		End:   offsetToPosition(text, start+length),
	}
}

func pathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}

// uriToPath returns the file path of a file URI. Other URIs are returned
// unchanged.
func uriToPath(u protocol.DocumentURI) string {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return string(u)
	}

	return uri.URI(u).Filename()
}
