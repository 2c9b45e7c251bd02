// Package elmtest correlates elm-test results with the suites and tests
// declared in Elm source files.
package elmtest

import (
	"fmt"

	"github.com/segmentio/encoding/json"
)

// Kind tags a declaration node.
type Kind string

// Declaration kinds.
const (
	KindSuite Kind = "suite"
	KindTest  Kind = "test"
)

// Header holds the fields shared by suites and tests.
type Header struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	File  string `json:"file,omitempty"`
	// Line is 1-based; 0 means unknown.
	Line int `json:"line,omitempty"`
}

// Head returns the shared header. Promoted to SuiteInfo and TestInfo.
func (h *Header) Head() *Header {
	return h
}

// Info is a node of the suite/test declaration tree: either a *SuiteInfo
// or a *TestInfo.
type Info interface {
	Kind() Kind
	Head() *Header
}

// SuiteInfo is a suite with ordered children.
type SuiteInfo struct {
	Header

	Children []Info `json:"children"`
}

// Kind implements Info.
func (*SuiteInfo) Kind() Kind { return KindSuite }

// TestInfo is a single test.
type TestInfo struct {
	Header

	Description string `json:"description,omitempty"`
}

// Kind implements Info.
func (*TestInfo) Kind() Kind { return KindTest }

// Children returns the direct children of a node. Tests have none.
func Children(node Info) []Info {
	if suite, ok := node.(*SuiteInfo); ok {
		return suite.Children
	}

	return nil
}

// DecodeInfo decodes a JSON declaration tree whose nodes are tagged by a
// "type" field of "suite" or "test".
//
//nolint:ireturn // Info is a closed sum type.
func DecodeInfo(data []byte) (Info, error) {
	var probe struct {
		Type     Kind              `json:"type"`
		Children []json.RawMessage `json:"children"`
	}

	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case KindTest:
		var test TestInfo
		if err := json.Unmarshal(data, &test); err != nil {
			return nil, err
		}

		return &test, nil

	case KindSuite:
		var header Header
		if err := json.Unmarshal(data, &header); err != nil {
			return nil, err
		}

		suite := &SuiteInfo{Header: header, Children: make([]Info, 0, len(probe.Children))}

		for _, raw := range probe.Children {
			child, err := DecodeInfo(raw)
			if err != nil {
				return nil, fmt.Errorf("suite %q: %w", header.ID, err)
			}

			suite.Children = append(suite.Children, child)
		}

		return suite, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, probe.Type)
	}
}
