// Package runner folds elm-test's JSON report into result trees and drives
// the elm-test process.
package runner

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/rlch/elmtest"
)

// Kind is the "event" field of a report record.
type Kind string

// Kinds emitted by elm-test --report json.
const (
	KindRunStart      Kind = "runStart"
	KindTestCompleted Kind = "testCompleted"
	KindRunComplete   Kind = "runComplete"
)

// Known reports whether k is a kind this package models.
func (k Kind) Known() bool {
	return k == KindRunStart || k == KindTestCompleted || k == KindRunComplete
}

// Status is the outcome of a completed test.
type Status string

// Test statuses.
const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusTodo Status = "todo"
	StatusSkip Status = "skip"
)

// Reason types elm-test attaches to failures.
const (
	ReasonCustom     = "Custom"
	ReasonEquality   = "Equality"
	ReasonComparison = "Comparison"
	ReasonTODO       = "TODO"
	ReasonListDiff   = "ListDiff"
)

// Event is a single record of the report.
type Event struct {
	Kind     Kind      `json:"event"`
	Status   Status    `json:"status,omitempty"`
	Labels   []string  `json:"labels,omitempty"`
	Failures []Failure `json:"failures,omitempty"`
	Duration Text      `json:"duration,omitempty"`

	// runStart
	TestCount   Text     `json:"testCount,omitempty"`
	FuzzRuns    Text     `json:"fuzzRuns,omitempty"`
	InitialSeed Text     `json:"initialSeed,omitempty"`
	Paths       []string `json:"paths,omitempty"`

	// runComplete
	Passed   Text `json:"passed,omitempty"`
	Failed   Text `json:"failed,omitempty"`
	AutoFail Text `json:"autoFail,omitempty"`
}

// Text is a report field elm-test writes as a string. Numbers are
// accepted too and kept in their JSON spelling; null is empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*t = Text(s)
	default:
		*t = Text(data)
	}

	return nil
}

// Int parses t as a decimal integer, 0 when it is not one.
func (t Text) Int() int {
	n, err := strconv.Atoi(string(t))
	if err != nil {
		return 0
	}

	return n
}

// ID returns the labels joined into a node id.
func (e Event) ID() string {
	return elmtest.JoinID(e.Labels)
}

// TestName returns the innermost label.
func (e Event) TestName() string {
	if len(e.Labels) == 0 {
		return ""
	}

	return e.Labels[len(e.Labels)-1]
}

// Elapsed returns Duration in milliseconds, or 0 when absent.
func (e Event) Elapsed() int {
	return e.Duration.Int()
}

// Failure is one entry of an event's failures.
type Failure struct {
	Given   string `json:"given,omitempty"`
	Message string `json:"message"`
	Reason  Reason `json:"reason"`
}

// UnmarshalJSON accepts the object form and the bare string elm-test uses
// for todo entries.
func (f *Failure) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '"' {
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}

		*f = Failure{Message: msg, Reason: Reason{Type: ReasonTODO, Description: msg}}

		return nil
	}

	type plain Failure

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*f = Failure(p)

	return nil
}

// Reason describes why a test failed. Data is either a plain description
// or, for comparisons, the values involved.
type Reason struct {
	Type string `json:"type"`

	// Description holds string data.
	Description string `json:"-"`
	// Expected, Actual and Comparison hold object data.
	Expected   string `json:"-"`
	Actual     string `json:"-"`
	Comparison string `json:"-"`
}

// UnmarshalJSON flattens the polymorphic data field.
func (r *Reason) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Reason{Type: raw.Type}

	payload := bytes.TrimSpace(raw.Data)

	switch {
	case len(payload) == 0 || bytes.Equal(payload, []byte("null")):
	case payload[0] == '"':
		return json.Unmarshal(payload, &r.Description)
	case payload[0] == '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(payload, &obj); err != nil {
			return err
		}

		r.Expected = rawText(obj["expected"])
		r.Actual = rawText(obj["actual"])
		r.Comparison = rawText(obj["comparison"])

		if r.Expected == "" && r.Actual == "" {
			r.Expected = rawText(obj["first"])
			r.Actual = rawText(obj["second"])
		}
	}

	return nil
}

// MarshalJSON writes the reason back in elm-test's shape.
func (r Reason) MarshalJSON() ([]byte, error) {
	var data any = r.Description

	if r.HasValues() {
		data = map[string]string{
			"expected":   r.Expected,
			"actual":     r.Actual,
			"comparison": r.Comparison,
		}
	}

	return json.Marshal(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{r.Type, data})
}

// HasValues reports whether the reason carries an expected/actual pair.
func (r Reason) HasValues() bool {
	return r.Expected != "" || r.Actual != ""
}

// rawText returns a JSON string's value, or the raw JSON for other values
// such as the lists of a ListDiff.
func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// Decode parses one line of report output. It reports false for blank
// lines, text that is not a JSON object, and records of an unknown kind;
// such lines are routine when output is split mid-record.
func Decode(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return Event{}, false
	}

	var event Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return Event{}, false
	}

	if !event.Kind.Known() {
		return Event{}, false
	}

	if event.Kind == KindTestCompleted && len(event.Labels) == 0 {
		return Event{}, false
	}

	return event, true
}
