package runner

import (
	"path/filepath"

	"github.com/rlch/elmtest"
)

// Suite converts the tree into declaration form. Every node below the root
// carries the file of its module, resolved against the run directory.
func (t *ResultTree) Suite(testsDir string) *elmtest.SuiteInfo {
	if !filepath.IsAbs(testsDir) {
		testsDir = filepath.Join(t.dir, testsDir)
	}

	root := &elmtest.SuiteInfo{Header: elmtest.Header{Label: filepath.Base(t.dir)}}

	for _, sub := range t.root.Subs {
		root.Children = append(root.Children, nodeInfo(sub, testsDir))
	}

	return root
}

func nodeInfo(n *Node, testsDir string) elmtest.Info {
	header := elmtest.Header{
		ID:    n.ID,
		Label: n.Name,
		File:  elmtest.ModuleFile(testsDir, n.TestModule()),
	}

	if n.IsLeaf() {
		return &elmtest.TestInfo{Header: header, Description: string(n.Result.Status)}
	}

	suite := &elmtest.SuiteInfo{Header: header}
	for _, sub := range n.Subs {
		suite.Children = append(suite.Children, nodeInfo(sub, testsDir))
	}

	return suite
}
