package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/encoding/json"
)

// Formatter renders report events and the final tree.
type Formatter interface {
	Format(event Event, tree *ResultTree) error
	Summary(tree *ResultTree) error
}

// FormatHandler is a Handler that delegates to a Formatter.
type FormatHandler struct {
	formatter Formatter
	stderr    io.Writer
}

// NewFormatHandler creates a handler that formats events.
func NewFormatHandler(f Formatter, stderr io.Writer) *FormatHandler {
	return &FormatHandler{formatter: f, stderr: stderr}
}

// Event formats the event.
func (h *FormatHandler) Event(_ context.Context, event Event, tree *ResultTree) error {
	return h.formatter.Format(event, tree)
}

// Err writes to stderr.
func (h *FormatHandler) Err(text string) error {
	_, err := h.stderr.Write([]byte(text + "\n"))

	return err
}

// Summary renders the final summary.
func (h *FormatHandler) Summary(tree *ResultTree) error {
	return h.formatter.Summary(tree)
}

func statusLabel(tree *ResultTree) string {
	if tree.Ok() {
		return "PASS"
	}

	return "FAIL"
}

// problems returns the tests that did not pass or skip.
func problems(tree *ResultTree) []*Node {
	var nodes []*Node

	for _, test := range tree.Tests() {
		if test.Result.Status == StatusFail || test.Result.Status == StatusTodo {
			nodes = append(nodes, test)
		}
	}

	return nodes
}

// -----------------------------------------------------------------------------
// Dots Formatter
// -----------------------------------------------------------------------------

// DotsFormatter is a minimal formatter that prints dots for progress.
type DotsFormatter struct {
	w     io.Writer
	count int
}

// NewDotsFormatter creates a dots formatter.
func NewDotsFormatter(w io.Writer) *DotsFormatter {
	return &DotsFormatter{w: w}
}

const lineWidth = 80

// Format prints a single character per completed test.
func (d *DotsFormatter) Format(event Event, _ *ResultTree) error {
	if event.Kind != KindTestCompleted {
		return nil
	}

	var char string

	switch event.Status {
	case StatusPass:
		char = "."
	case StatusFail:
		char = "F"
	case StatusTodo:
		char = "T"
	case StatusSkip:
		char = "S"
	default:
		return nil
	}

	_, err := fmt.Fprint(d.w, char)
	d.count++

	if d.count%lineWidth == 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	return err
}

// Summary prints failures and the final counts.
func (d *DotsFormatter) Summary(tree *ResultTree) error {
	if d.count > 0 && d.count%lineWidth != 0 {
		_, _ = fmt.Fprintln(d.w)
	}

	_, _ = fmt.Fprintln(d.w)

	for _, node := range problems(tree) {
		label := "FAIL"
		if node.Result.Status == StatusTodo {
			label = "TODO"
		}

		_, _ = fmt.Fprintf(d.w, "%s %s\n", label, node.ID)

		for _, line := range node.Messages() {
			_, _ = fmt.Fprintf(d.w, "    %s\n", line)
		}

		_, _ = fmt.Fprintln(d.w)
	}

	for _, text := range tree.Errors() {
		_, _ = fmt.Fprintln(d.w, text)
	}

	c := tree.Counts()

	_, _ = fmt.Fprintf(d.w, "%s %d tests, %d passed, %d failed, %d todo, %d skipped in %s\n",
		statusLabel(tree),
		c.Total,
		c.Passed,
		c.Failed,
		c.Todo,
		c.Skipped,
		tree.Elapsed().Round(time.Millisecond),
	)

	return nil
}

// -----------------------------------------------------------------------------
// Verbose Formatter
// -----------------------------------------------------------------------------

// VerboseFormatter prints full test ids and failure details.
type VerboseFormatter struct {
	w io.Writer
}

// NewVerboseFormatter creates a verbose formatter.
func NewVerboseFormatter(w io.Writer) *VerboseFormatter {
	return &VerboseFormatter{w: w}
}

// Format prints each event as it occurs.
func (v *VerboseFormatter) Format(event Event, tree *ResultTree) error {
	switch event.Kind {
	case KindRunStart:
		_, _ = fmt.Fprintf(v.w, "=== RUN   %s tests (seed %s, fuzz %s)\n",
			event.TestCount, event.InitialSeed, event.FuzzRuns)
	case KindTestCompleted:
		elapsed := time.Duration(event.Elapsed()) * time.Millisecond

		switch event.Status {
		case StatusPass:
			_, _ = fmt.Fprintf(v.w, "--- PASS: %s (%s)\n", event.ID(), elapsed)
		case StatusFail:
			_, _ = fmt.Fprintf(v.w, "--- FAIL: %s (%s)\n", event.ID(), elapsed)
			v.details(event, tree)
		case StatusTodo:
			_, _ = fmt.Fprintf(v.w, "--- TODO: %s\n", event.ID())
			v.details(event, tree)
		case StatusSkip:
			_, _ = fmt.Fprintf(v.w, "--- SKIP: %s\n", event.ID())
		}
	case KindRunComplete:
	}

	return nil
}

func (v *VerboseFormatter) details(event Event, tree *ResultTree) {
	node, ok := tree.Find(event.ID())
	if !ok {
		return
	}

	if diff, ok := node.Diff(); ok {
		_, _ = fmt.Fprintf(v.w, "        expected: %s\n", diff.Expected)
		_, _ = fmt.Fprintf(v.w, "        actual:   %s\n", diff.Actual)

		return
	}

	for _, line := range node.Messages() {
		_, _ = fmt.Fprintf(v.w, "    %s\n", line)
	}
}

// Summary prints the final results.
func (v *VerboseFormatter) Summary(tree *ResultTree) error {
	_, _ = fmt.Fprintln(v.w)

	for _, text := range tree.Errors() {
		_, _ = fmt.Fprintln(v.w, text)
	}

	c := tree.Counts()

	_, _ = fmt.Fprintf(v.w, "%s\n", statusLabel(tree))
	_, _ = fmt.Fprintf(v.w, "  %d total, %d passed, %d failed, %d todo, %d skipped\n",
		c.Total,
		c.Passed,
		c.Failed,
		c.Todo,
		c.Skipped,
	)
	_, _ = fmt.Fprintf(v.w, "  elapsed: %s\n", tree.Elapsed().Round(time.Millisecond))

	return nil
}

// -----------------------------------------------------------------------------
// JSON Formatter
// -----------------------------------------------------------------------------

// JSONFormatter outputs newline-delimited JSON events.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

type jsonEvent struct {
	Run      string   `json:"run"`
	Action   string   `json:"action"`
	Path     string   `json:"path,omitempty"`
	Test     string   `json:"test,omitempty"`
	Elapsed  int      `json:"elapsed,omitempty"`
	Messages []string `json:"messages,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Actual   string   `json:"actual,omitempty"`
}

// Format outputs a JSON event per completed test.
func (j *JSONFormatter) Format(event Event, tree *ResultTree) error {
	if event.Kind != KindTestCompleted {
		return nil
	}

	je := jsonEvent{
		Run:     tree.RunID(),
		Action:  string(event.Status),
		Path:    event.ID(),
		Test:    event.TestName(),
		Elapsed: event.Elapsed(),
	}

	if node, ok := tree.Find(event.ID()); ok {
		je.Messages = node.Messages()

		if diff, ok := node.Diff(); ok {
			je.Expected = diff.Expected
			je.Actual = diff.Actual
		}
	}

	return j.enc.Encode(je)
}

type jsonSummary struct {
	Run     string   `json:"run"`
	Action  string   `json:"action"`
	Total   int      `json:"total"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
	Todo    int      `json:"todo"`
	Skipped int      `json:"skipped"`
	Elapsed float64  `json:"elapsed"`
	Errors  []string `json:"errors,omitempty"`
	Ok      bool     `json:"ok"`
}

// Summary outputs the final JSON summary.
func (j *JSONFormatter) Summary(tree *ResultTree) error {
	c := tree.Counts()

	return j.enc.Encode(jsonSummary{
		Run:     tree.RunID(),
		Action:  "summary",
		Total:   c.Total,
		Passed:  c.Passed,
		Failed:  c.Failed,
		Todo:    c.Todo,
		Skipped: c.Skipped,
		Elapsed: tree.Elapsed().Seconds(),
		Errors:  tree.Errors(),
		Ok:      tree.Ok(),
	})
}

// NewFormatter creates a formatter by name.
//
//nolint:ireturn // callers select the concrete formatter by name.
func NewFormatter(name string, w io.Writer) Formatter {
	switch name {
	case "verbose":
		return NewVerboseFormatter(w)
	case "json":
		return NewJSONFormatter(w)
	default:
		return NewDotsFormatter(w)
	}
}
