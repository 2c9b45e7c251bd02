package runner

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rlch/elmtest"
)

// Node is a suite or test in a result tree. Suites have Subs and no
// Result; tests have a Result and no Subs.
type Node struct {
	Name   string
	ID     string
	Labels []string
	Subs   []*Node
	Result *Event

	parent *Node
	index  map[string]*Node
}

func newNode(parent *Node, name string) *Node {
	labels := make([]string, 0, len(parent.Labels)+1)
	labels = append(labels, parent.Labels...)
	labels = append(labels, name)

	return &Node{
		Name:   name,
		ID:     elmtest.JoinID(labels),
		Labels: labels,
		parent: parent,
	}
}

// Parent returns the enclosing node, nil for the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// IsRoot reports whether n is a tree root.
func (n *Node) IsRoot() bool {
	return n.parent == nil
}

// IsLeaf reports whether n holds a test result.
func (n *Node) IsLeaf() bool {
	return n.Result != nil
}

// child returns the sub named name, creating it when create is set.
func (n *Node) child(name string, create bool) *Node {
	if sub, ok := n.index[name]; ok {
		return sub
	}

	if !create {
		return nil
	}

	if n.index == nil {
		n.index = make(map[string]*Node)
	}

	sub := newNode(n, name)
	n.index[name] = sub
	n.Subs = append(n.Subs, sub)

	return sub
}

// All yields n and its descendants in depth-first pre-order.
func (n *Node) All() iter.Seq[*Node] {
	return elmtest.WalkTree(n, func(node *Node) []*Node { return node.Subs })
}

// Green reports whether n passed: a test passed, or a suite has subs and
// every one of them is green. A node with neither subs nor a result is
// not green.
func (n *Node) Green() bool {
	if n.Result != nil {
		return n.Result.Status == StatusPass
	}

	if len(n.Subs) == 0 {
		return false
	}

	for _, sub := range n.Subs {
		if !sub.Green() {
			return false
		}
	}

	return true
}

// TestModule returns the Elm module the node belongs to, which elm-test
// reports as the first label.
func (n *Node) TestModule() string {
	if len(n.Labels) == 0 {
		return ""
	}

	return n.Labels[0]
}

// TestModuleAndName returns the module and description of a test with at
// least two labels.
func (n *Node) TestModuleAndName() (module, name string, ok bool) {
	if n.Result == nil || len(n.Labels) < 2 {
		return "", "", false
	}

	return n.Labels[0], n.Labels[len(n.Labels)-1], true
}

// Duration returns the reported duration in milliseconds.
func (n *Node) Duration() int {
	if n.Result == nil {
		return 0
	}

	return n.Result.Elapsed()
}

// Diff is the expected and actual text of an equality failure.
type Diff struct {
	Expected string
	Actual   string
}

// Diff returns the first equality failure of the node's result.
func (n *Node) Diff() (Diff, bool) {
	if n.Result == nil {
		return Diff{}, false
	}

	for _, f := range n.Result.Failures {
		if d, ok := failureDiff(f); ok {
			return d, true
		}
	}

	return Diff{}, false
}

// CanDiff reports whether Diff would succeed.
func (n *Node) CanDiff() bool {
	_, ok := n.Diff()

	return ok
}

// Messages returns the failure text of the node, one entry per line.
func (n *Node) Messages() []string {
	if n.Result == nil {
		return nil
	}

	var lines []string

	for _, f := range n.Result.Failures {
		if f.Given != "" {
			lines = append(lines, "Given "+f.Given)
		}

		msg := f.Message
		if msg == "" {
			msg = f.Reason.Description
		}

		if n.Result.Status == StatusTodo {
			msg = "TODO: " + msg
		}

		if msg != "" {
			lines = append(lines, strings.Split(msg, "\n")...)
		}

		if d, ok := failureDiff(f); ok && f.Message == "" {
			lines = append(lines, "expected: "+d.Expected, "actual:   "+d.Actual)
		}
	}

	return lines
}

// Counts tallies test outcomes.
type Counts struct {
	Total   int
	Passed  int
	Failed  int
	Todo    int
	Skipped int
}

// ResultTree is the hierarchy built from one run's events. It is fed by a
// single producer and needs no locking; a new run gets a new tree.
type ResultTree struct {
	dir    string
	runID  string
	root   *Node
	errors []string

	start    *Event
	complete *Event
}

// NewResultTree creates an empty tree for a run in dir.
func NewResultTree(dir string) *ResultTree {
	return &ResultTree{
		dir:   dir,
		runID: uuid.NewString(),
		root:  &Node{},
	}
}

// Dir returns the working directory of the run.
func (t *ResultTree) Dir() string {
	return t.dir
}

// RunID identifies the run.
func (t *ResultTree) RunID() string {
	return t.runID
}

// Root returns the unnamed root node.
func (t *ResultTree) Root() *Node {
	return t.root
}

// Parse decodes lines and folds every event into the tree. Lines that do
// not decode are skipped. Callers pass each line once; the same label path
// reported twice replaces the earlier result.
func (t *ResultTree) Parse(lines []string) {
	for _, line := range lines {
		if event, ok := Decode(line); ok {
			t.Fold(event)
		}
	}
}

// Fold applies one decoded event.
func (t *ResultTree) Fold(event Event) {
	switch event.Kind {
	case KindTestCompleted:
		t.AddResult(event)
	case KindRunStart:
		t.start = &event
	case KindRunComplete:
		t.complete = &event
	}
}

// AddResult attaches event to the node named by its labels, creating
// missing suites on the way. A result for an existing test replaces the
// old one in place. Events that would turn a test into a suite, or a suite
// into a test, are recorded as errors and dropped.
func (t *ResultTree) AddResult(event Event) {
	if len(event.Labels) == 0 {
		return
	}

	node := t.root

	for i, label := range event.Labels {
		if node.Result != nil {
			t.AddError(fmt.Sprintf("%s: %q is a test, not a suite", event.ID(), node.ID))

			return
		}

		last := i == len(event.Labels)-1

		next := node.child(label, false)
		if next == nil {
			next = node.child(label, true)
		} else if last && len(next.Subs) > 0 {
			t.AddError(fmt.Sprintf("%s: is a suite, not a test", event.ID()))

			return
		}

		node = next
	}

	result := event
	node.Result = &result
}

// AddError appends text to the run's error buffer.
func (t *ResultTree) AddError(text string) {
	t.errors = append(t.errors, text)
}

// Errors returns the accumulated error text.
func (t *ResultTree) Errors() []string {
	return t.errors
}

// Start returns the runStart event, if seen.
func (t *ResultTree) Start() (Event, bool) {
	if t.start == nil {
		return Event{}, false
	}

	return *t.start, true
}

// Complete returns the runComplete event, if seen.
func (t *ResultTree) Complete() (Event, bool) {
	if t.complete == nil {
		return Event{}, false
	}

	return *t.complete, true
}

// Done reports whether the run reported completion.
func (t *ResultTree) Done() bool {
	return t.complete != nil
}

// Elapsed returns the run duration reported by runComplete, or the sum of
// test durations before the run completes.
func (t *ResultTree) Elapsed() time.Duration {
	if t.complete != nil {
		return time.Duration(t.complete.Elapsed()) * time.Millisecond
	}

	var ms int
	for _, test := range t.Tests() {
		ms += test.Duration()
	}

	return time.Duration(ms) * time.Millisecond
}

// Tests returns the test nodes in walk order.
func (t *ResultTree) Tests() []*Node {
	var tests []*Node

	for node := range t.root.All() {
		if node.IsLeaf() {
			tests = append(tests, node)
		}
	}

	return tests
}

// TestsByID indexes the test nodes by id.
func (t *ResultTree) TestsByID() map[string]*Node {
	tests := make(map[string]*Node)

	for node := range t.root.All() {
		if node.IsLeaf() && !node.IsRoot() {
			tests[node.ID] = node
		}
	}

	return tests
}

// Find returns the node with the given id.
func (t *ResultTree) Find(id string) (*Node, bool) {
	for node := range t.root.All() {
		if node.ID == id && !node.IsRoot() {
			return node, true
		}
	}

	return nil, false
}

// Counts tallies the statuses of all tests.
func (t *ResultTree) Counts() Counts {
	var c Counts

	for _, test := range t.Tests() {
		c.Total++

		switch test.Result.Status {
		case StatusPass:
			c.Passed++
		case StatusFail:
			c.Failed++
		case StatusTodo:
			c.Todo++
		case StatusSkip:
			c.Skipped++
		}
	}

	return c
}

// Ok reports whether every test passed.
func (t *ResultTree) Ok() bool {
	return t.root.Green()
}
