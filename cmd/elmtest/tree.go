package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/urfave/cli/v3"

	"github.com/rlch/elmtest"
	"github.com/rlch/elmtest/runner"
)

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "Print the results of the last run",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "files",
				Usage: "group tests by the file declaring them",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: `keep tests matching an expression, e.g. 'status == "fail" && duration > 100'`,
			},
		},
		Action: runTree,
	}
}

// testEnv is what a --filter expression sees of a test.
type testEnv struct {
	ID       string   `expr:"id"`
	Name     string   `expr:"name"`
	Labels   []string `expr:"labels"`
	Module   string   `expr:"module"`
	File     string   `expr:"file"`
	Status   string   `expr:"status"`
	Duration int      `expr:"duration"`
	Green    bool     `expr:"green"`
}

func newTestEnv(node *runner.Node, testsDir string) testEnv {
	return testEnv{
		ID:       node.ID,
		Name:     node.Name,
		Labels:   node.Labels,
		Module:   node.TestModule(),
		File:     elmtest.ModuleFile(testsDir, node.TestModule()),
		Status:   string(node.Result.Status),
		Duration: node.Duration(),
		Green:    node.Green(),
	}
}

func runTree(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tree, err := runner.LoadTranscript(cfg.TranscriptPath(), cfg.Dir())
	if err != nil {
		return err
	}

	kept, err := filterTests(tree, cfg.TestsDir(), cmd.String("filter"))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer

	if cmd.Bool("files") {
		return printFiles(out, tree, cfg, kept)
	}

	return printTree(out, tree, kept)
}

// filterTests returns the ids of the tests for which filter holds, every
// test when filter is empty.
func filterTests(tree *runner.ResultTree, testsDir, filter string) (map[string]bool, error) {
	var program *vm.Program

	if filter != "" {
		p, err := expr.Compile(filter, expr.Env(testEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compiling filter: %w", err)
		}

		program = p
	}

	kept := make(map[string]bool)

	for _, test := range tree.Tests() {
		if program == nil {
			kept[test.ID] = true

			continue
		}

		result, err := expr.Run(program, newTestEnv(test, testsDir))
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", test.ID, err)
		}

		if ok, _ := result.(bool); ok {
			kept[test.ID] = true
		}
	}

	return kept, nil
}

// printTree prints kept tests below their suites, one node per line.
func printTree(w io.Writer, tree *runner.ResultTree, kept map[string]bool) error {
	visible := make(map[*runner.Node]bool)

	for _, test := range tree.Tests() {
		if !kept[test.ID] {
			continue
		}

		for n := test; n != nil && !n.IsRoot(); n = n.Parent() {
			visible[n] = true
		}
	}

	styles := runner.DefaultStyles()

	for node := range tree.Root().All() {
		if !visible[node] {
			continue
		}

		indent := strings.Repeat("  ", len(node.Labels)-1)

		line := fmt.Sprintf("%s%s %s", indent, symbol(styles, node), node.Name)
		if node.IsLeaf() {
			line += fmt.Sprintf(" (%dms)", node.Duration())
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	c := tree.Counts()
	_, err := fmt.Fprintf(w, "\n%d tests, %d passed, %d failed, %d todo, %d skipped\n",
		c.Total, c.Passed, c.Failed, c.Todo, c.Skipped)

	return err
}

// printFiles prints kept tests grouped by declaring file.
func printFiles(w io.Writer, tree *runner.ResultTree, cfg *elmtest.Config, kept map[string]bool) error {
	for _, group := range elmtest.TestInfosByFile(tree.Suite(cfg.TestsDir())) {
		var lines []string

		for _, test := range group.Tests {
			if kept[test.ID] {
				lines = append(lines, fmt.Sprintf("  %s [%s]", test.ID, test.Description))
			}
		}

		if len(lines) == 0 {
			continue
		}

		file := group.File
		if rel, err := filepath.Rel(cfg.Dir(), file); err == nil {
			file = rel
		}

		if _, err := fmt.Fprintf(w, "%s\n%s\n", file, strings.Join(lines, "\n")); err != nil {
			return err
		}
	}

	return nil
}

func symbol(styles *runner.Styles, node *runner.Node) string {
	if node.IsLeaf() {
		switch node.Result.Status {
		case runner.StatusFail:
			return styles.Fail.Render(styles.SymbolFail)
		case runner.StatusTodo:
			return styles.Todo.Render(styles.SymbolTodo)
		case runner.StatusSkip:
			return styles.Skip.Render(styles.SymbolSkip)
		}
	}

	if node.Green() {
		return styles.Pass.Render(styles.SymbolPass)
	}

	return styles.Fail.Render(styles.SymbolFail)
}
