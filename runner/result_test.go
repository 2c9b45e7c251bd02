package runner_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

func completed(status runner.Status, labels ...string) runner.Event {
	return runner.Event{Kind: runner.KindTestCompleted, Status: status, Labels: labels, Duration: "1"}
}

func TestResultTree_Parse(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("/project")
	tree.Parse([]string{
		`{"event":"runStart","testCount":"1","fuzzRuns":"100","paths":[],"initialSeed":"1"}`,
		`not json`,
		`{"event":"testCompleted","status":"pass","labels":["suite","nested","test"],"failures":[],"duration":"13"}`,
		`{"event":"runComplete","passed":"1","failed":"0","duration":"20","autoFail":null}`,
	})

	require.Len(t, tree.Tests(), 1)
	assert.Equal(t, "suite/nested/test", tree.Tests()[0].ID)
	assert.True(t, tree.Done())
	assert.True(t, tree.Ok())

	start, ok := tree.Start()
	require.True(t, ok)
	assert.Equal(t, 1, start.TestCount.Int())
	assert.NotEmpty(t, tree.RunID())
}

func TestResultTree_Root(t *testing.T) {
	t.Parallel()

	root := runner.NewResultTree("").Root()

	assert.Empty(t, root.Name)
	assert.True(t, root.IsRoot())
	assert.False(t, root.Green())
}

func TestResultTree_AddOne(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	result := completed(runner.StatusPass, "suite")
	tree.AddResult(result)

	root := tree.Root()
	require.Len(t, root.Subs, 1)
	assert.Equal(t, "suite", root.Subs[0].Name)
	assert.Equal(t, &result, root.Subs[0].Result)
}

func TestResultTree_AddTwo(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "test"))
	tree.AddResult(completed(runner.StatusFail, "test2"))

	root := tree.Root()
	require.Len(t, root.Subs, 2)
	assert.Equal(t, "test", root.Subs[0].Name)
	assert.Equal(t, "test2", root.Subs[1].Name)
	assert.Equal(t, runner.StatusFail, root.Subs[1].Result.Status)
}

func TestResultTree_AddDeep(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "suite", "test"))
	tree.AddResult(completed(runner.StatusPass, "suite2", "test2"))
	tree.AddResult(completed(runner.StatusPass, "suite", "test3"))

	root := tree.Root()
	require.Len(t, root.Subs, 2)

	suite := root.Subs[0]
	assert.Equal(t, "suite", suite.Name)
	assert.Nil(t, suite.Result)
	require.Len(t, suite.Subs, 2)
	assert.Equal(t, "test", suite.Subs[0].Name)
	assert.Equal(t, "test3", suite.Subs[1].Name)
	assert.Equal(t, "suite/test3", suite.Subs[1].ID)
	assert.Same(t, suite, suite.Subs[1].Parent())

	assert.Equal(t, "suite2", root.Subs[1].Name)
	assert.Nil(t, root.Subs[1].Result)
	require.Len(t, root.Subs[1].Subs, 1)
}

func TestResultTree_ReplacesInPlace(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusFail, "M", "a"))
	tree.AddResult(completed(runner.StatusPass, "M", "b"))
	tree.AddResult(completed(runner.StatusPass, "M", "a"))

	suite := tree.Root().Subs[0]
	require.Len(t, suite.Subs, 2)
	assert.Equal(t, "a", suite.Subs[0].Name)
	assert.Equal(t, runner.StatusPass, suite.Subs[0].Result.Status)
	assert.True(t, tree.Ok())
}

func TestResultTree_ShapeConflicts(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "M", "t"))
	tree.AddResult(completed(runner.StatusPass, "M", "t", "deeper"))
	tree.AddResult(completed(runner.StatusPass, "M"))

	assert.Len(t, tree.Tests(), 1)
	assert.Len(t, tree.Errors(), 2)

	for node := range tree.Root().All() {
		if len(node.Subs) > 0 {
			assert.Nil(t, node.Result, node.ID)
		}
	}
}

func TestNode_Green(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []runner.Event
		want   bool
	}{
		{"all pass", []runner.Event{completed(runner.StatusPass, "M", "a"), completed(runner.StatusPass, "M", "s", "b")}, true},
		{"one fail", []runner.Event{completed(runner.StatusPass, "M", "a"), completed(runner.StatusFail, "M", "s", "b")}, false},
		{"todo", []runner.Event{completed(runner.StatusTodo, "M", "a")}, false},
		{"skip", []runner.Event{completed(runner.StatusSkip, "M", "a")}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := runner.NewResultTree("")
			for _, e := range tt.events {
				tree.AddResult(e)
			}

			assert.Equal(t, tt.want, tree.Ok())
		})
	}
}

func TestNode_Diff(t *testing.T) {
	t.Parallel()

	console := "\"actual\"\n╷\n│ Expect.equal\n╵\n\"expected\""

	tests := []struct {
		name    string
		failure runner.Failure
		want    runner.Diff
		ok      bool
	}{
		{
			name: "equality reason",
			failure: runner.Failure{Message: "Expect.equal", Reason: runner.Reason{
				Type: runner.ReasonEquality, Expected: "1", Actual: "2", Comparison: "Expect.equal",
			}},
			want: runner.Diff{Expected: "1", Actual: "2"},
			ok:   true,
		},
		{
			name:    "console message",
			failure: runner.Failure{Message: console, Reason: runner.Reason{Type: runner.ReasonCustom, Description: console}},
			want:    runner.Diff{Expected: `"expected"`, Actual: `"actual"`},
			ok:      true,
		},
		{
			name: "ordering comparison",
			failure: runner.Failure{Message: "5\n╷\n│ Expect.lessThan\n╵\n3", Reason: runner.Reason{
				Type: runner.ReasonComparison, Expected: "3", Actual: "5", Comparison: "Expect.lessThan",
			}},
		},
		{
			name:    "custom",
			failure: runner.Failure{Message: "boom", Reason: runner.Reason{Type: runner.ReasonCustom, Description: "boom"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			event := completed(runner.StatusFail, "M", "t")
			event.Failures = []runner.Failure{tt.failure}

			tree := runner.NewResultTree("")
			tree.AddResult(event)

			node := tree.Tests()[0]
			got, ok := node.Diff()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, node.CanDiff())
		})
	}
}

func TestNode_Messages(t *testing.T) {
	t.Parallel()

	event := completed(runner.StatusFail, "M", "t")
	event.Failures = []runner.Failure{
		{Given: "42", Message: "line one\nline two", Reason: runner.Reason{Type: runner.ReasonCustom}},
	}

	tree := runner.NewResultTree("")
	tree.AddResult(event)
	tree.AddResult(runner.Event{
		Kind: runner.KindTestCompleted, Status: runner.StatusTodo, Labels: []string{"M", "later"},
		Failures: []runner.Failure{{Message: "write me"}},
	})

	tests := tree.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, []string{"Given 42", "line one", "line two"}, tests[0].Messages())
	assert.Equal(t, []string{"TODO: write me"}, tests[1].Messages())
}

func TestNode_TestModuleAndName(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "A.B", "suite", "test"))
	tree.AddResult(completed(runner.StatusPass, "Lonely"))

	tests := tree.Tests()

	module, name, ok := tests[0].TestModuleAndName()
	require.True(t, ok)
	assert.Equal(t, "A.B", module)
	assert.Equal(t, "test", name)

	_, _, ok = tests[1].TestModuleAndName()
	assert.False(t, ok)
	assert.Equal(t, "Lonely", tests[1].TestModule())
}

func TestResultTree_Counts(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "M", "a"))
	tree.AddResult(completed(runner.StatusFail, "M", "b"))
	tree.AddResult(completed(runner.StatusTodo, "M", "c"))
	tree.AddResult(completed(runner.StatusSkip, "M", "d"))

	assert.Equal(t, runner.Counts{Total: 4, Passed: 1, Failed: 1, Todo: 1, Skipped: 1}, tree.Counts())

	node, ok := tree.Find("M/b")
	require.True(t, ok)
	assert.Equal(t, "b", node.Name)

	_, ok = tree.Find("M/z")
	assert.False(t, ok)
}

func TestResultTree_TestsByID(t *testing.T) {
	t.Parallel()

	tree := runner.NewResultTree("")
	tree.AddResult(completed(runner.StatusPass, "M", "s", "a"))
	tree.AddResult(completed(runner.StatusFail, "M", "b"))

	tests := tree.TestsByID()
	require.Len(t, tests, 2)
	assert.Equal(t, "a", tests["M/s/a"].Name)
	assert.Equal(t, runner.StatusFail, tests["M/b"].Result.Status)
	assert.NotContains(t, tests, "M/s")
	assert.Empty(t, runner.NewResultTree("").TestsByID())
}

func TestResultTree_Suite(t *testing.T) {
	t.Parallel()

	dir := filepath.Join("/", "project")

	tree := runner.NewResultTree(dir)
	tree.AddResult(completed(runner.StatusPass, "A.B", "s", "x"))
	tree.AddResult(completed(runner.StatusFail, "A.B", "y"))
	tree.AddResult(completed(runner.StatusPass, "C", "z"))

	info := tree.Suite("tests")
	file := filepath.Join(dir, "tests", "A", "B.elm")

	groups := elmtest.TestInfosByFile(info)
	assert.Equal(t, []string{file, filepath.Join(dir, "tests", "C.elm")}, groups.Files())

	tests, ok := groups.Lookup(file)
	require.True(t, ok)
	require.Len(t, tests, 2)
	assert.Equal(t, "A.B/s/x", tests[0].ID)
	assert.Equal(t, "fail", tests[1].Description)

	files, ids := elmtest.FilesAndAllTestIDs([]string{"A.B/y"}, info)
	assert.Equal(t, []string{file}, files)
	assert.Equal(t, []string{"A.B/s/x", "A.B/y"}, ids)
}
