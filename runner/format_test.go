package runner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/segmentio/encoding/json"
)

func sampleTree() *ResultTree {
	tree := NewResultTree("/project")
	tree.Parse([]string{
		`{"event":"runStart","testCount":"3","fuzzRuns":"100","paths":[],"initialSeed":"7"}`,
		`{"event":"testCompleted","status":"pass","labels":["M","ok"],"failures":[],"duration":"10"}`,
		`{"event":"testCompleted","status":"fail","labels":["M","s","bad"],"failures":[{"given":null,"message":"Expect.equal","reason":{"type":"Equality","data":{"expected":"1","actual":"2","comparison":"Expect.equal"}}}],"duration":"3"}`,
		`{"event":"testCompleted","status":"todo","labels":["M","later"],"failures":["write me"],"duration":"0"}`,
		`{"event":"runComplete","passed":"1","failed":"2","duration":"42","autoFail":null}`,
	})

	return tree
}

func eventFor(t *testing.T, tree *ResultTree, id string) Event {
	t.Helper()

	node, ok := tree.Find(id)
	if !ok {
		t.Fatalf("no node %q", id)
	}

	return *node.Result
}

func TestDotsFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	f := NewDotsFormatter(&buf)
	tree := sampleTree()

	_ = f.Format(Event{Kind: KindRunStart}, tree)

	if buf.Len() != 0 {
		t.Error("runStart should produce no output")
	}

	for _, status := range []Status{StatusPass, StatusFail, StatusTodo, StatusSkip} {
		_ = f.Format(Event{Kind: KindTestCompleted, Status: status, Labels: []string{"x"}}, tree)
	}

	if got := buf.String(); got != ".FTS" {
		t.Errorf("got %q, want %q", got, ".FTS")
	}
}

func TestDotsFormatter_Summary(t *testing.T) {
	var buf bytes.Buffer

	f := NewDotsFormatter(&buf)
	tree := sampleTree()
	tree.AddError("compiler warning")

	_ = f.Summary(tree)

	got := buf.String()

	for _, want := range []string{
		"FAIL M/s/bad",
		"TODO M/later",
		"TODO: write me",
		"compiler warning",
		"FAIL 3 tests, 1 passed, 1 failed, 1 todo, 0 skipped in 42ms",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestVerboseFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	f := NewVerboseFormatter(&buf)
	tree := sampleTree()

	_ = f.Format(eventFor(t, tree, "M/ok"), tree)

	if got, want := buf.String(), "--- PASS: M/ok (10ms)\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	buf.Reset()

	_ = f.Format(eventFor(t, tree, "M/s/bad"), tree)

	want := `--- FAIL: M/s/bad (3ms)
        expected: 1
        actual:   2
`
	if got := buf.String(); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	buf.Reset()

	_ = f.Format(Event{Kind: KindRunStart, TestCount: "3", InitialSeed: "7", FuzzRuns: "100"}, tree)

	if got, want := buf.String(), "=== RUN   3 tests (seed 7, fuzz 100)\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	f := NewJSONFormatter(&buf)
	tree := sampleTree()

	_ = f.Format(eventFor(t, tree, "M/s/bad"), tree)

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got["action"] != "fail" {
		t.Errorf("action = %v, want fail", got["action"])
	}

	if got["path"] != "M/s/bad" {
		t.Errorf("path = %v, want M/s/bad", got["path"])
	}

	if got["test"] != "bad" {
		t.Errorf("test = %v, want bad", got["test"])
	}

	if got["expected"] != "1" || got["actual"] != "2" {
		t.Errorf("diff = %v/%v, want 1/2", got["expected"], got["actual"])
	}

	if got["run"] != tree.RunID() {
		t.Errorf("run = %v, want %s", got["run"], tree.RunID())
	}
}

func TestJSONFormatter_Summary(t *testing.T) {
	var buf bytes.Buffer

	f := NewJSONFormatter(&buf)

	_ = f.Summary(sampleTree())

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if got["action"] != "summary" {
		t.Errorf("action = %v, want summary", got["action"])
	}

	total, ok := got["total"].(float64)
	if !ok || total != 3 {
		t.Errorf("total = %v, want 3", got["total"])
	}

	okVal, ok := got["ok"].(bool)
	if !ok || okVal {
		t.Errorf("ok = %v, want false", got["ok"])
	}
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer

	if _, ok := NewFormatter("verbose", &buf).(*VerboseFormatter); !ok {
		t.Error("verbose should select VerboseFormatter")
	}

	if _, ok := NewFormatter("json", &buf).(*JSONFormatter); !ok {
		t.Error("json should select JSONFormatter")
	}

	if _, ok := NewFormatter("", &buf).(*DotsFormatter); !ok {
		t.Error("default should be DotsFormatter")
	}
}
