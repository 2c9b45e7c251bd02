package elmtest

import "strings"

// FileTests is the ordered list of tests declared in one file.
type FileTests struct {
	File  string
	Tests []*TestInfo
}

// FileGroups is an ordered mapping from file path to its tests.
type FileGroups []FileTests

// Files returns the file paths in order.
func (g FileGroups) Files() []string {
	files := make([]string, len(g))
	for i, ft := range g {
		files[i] = ft.File
	}

	return files
}

// Lookup returns the tests declared in file.
func (g FileGroups) Lookup(file string) ([]*TestInfo, bool) {
	for _, ft := range g {
		if ft.File == file {
			return ft.Tests, true
		}
	}

	return nil, false
}

// TestInfosByFile groups the tests under root by the file that declares
// them. Files appear in the order their first test is walked, and tests
// keep walk order within a file. Suites and tests without a file are left
// out; a suite's file is not inherited by its children.
func TestInfosByFile(root Info) FileGroups {
	var groups FileGroups

	index := make(map[string]int)

	for node := range Walk(root) {
		test, ok := node.(*TestInfo)
		if !ok || test.File == "" {
			continue
		}

		i, seen := index[test.File]
		if !seen {
			i = len(groups)
			index[test.File] = i
			groups = append(groups, FileTests{File: test.File})
		}

		groups[i].Tests = append(groups[i].Tests, test)
	}

	return groups
}

// FilesAndAllTestIDs expands a selection to what the runner will actually
// execute. files holds, in walk order, the distinct files declaring a
// selected test. allIDs holds every test declared in one of those files,
// selected or not, because elm-test runs whole files. Selected suites and
// tests without a file contribute nothing.
func FilesAndAllTestIDs(ids []string, root Info) (files, allIDs []string) {
	selected := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		selected[id] = struct{}{}
	}

	fileSet := make(map[string]struct{})

	for node := range Walk(root) {
		test, ok := node.(*TestInfo)
		if !ok || test.File == "" {
			continue
		}

		if _, ok := selected[test.ID]; !ok {
			continue
		}

		if _, ok := fileSet[test.File]; ok {
			continue
		}

		fileSet[test.File] = struct{}{}
		files = append(files, test.File)
	}

	if len(files) == 0 {
		return nil, nil
	}

	for node := range Walk(root) {
		test, ok := node.(*TestInfo)
		if !ok || test.File == "" {
			continue
		}

		if _, ok := fileSet[test.File]; ok {
			allIDs = append(allIDs, test.ID)
		}
	}

	return files, allIDs
}

// ExpandSelection replaces every suite id in ids by the ids of the tests
// below it. Ids that name neither a suite nor a test are treated as id
// prefixes and match every test whose id starts with the prefix followed
// by "/". The result keeps walk order and has no duplicates.
func ExpandSelection(ids []string, root Info) []string {
	suites := make(map[string]bool)
	tests := make(map[string]bool)

	for node := range Walk(root) {
		switch n := node.(type) {
		case *SuiteInfo:
			suites[n.ID] = true
		case *TestInfo:
			tests[n.ID] = true
		}
	}

	var prefixes []string

	wanted := make(map[string]bool)

	for _, id := range ids {
		switch {
		case tests[id]:
			wanted[id] = true
		case suites[id]:
			if suite := findSuite(root, id); suite != nil {
				for node := range Walk(suite) {
					if test, ok := node.(*TestInfo); ok {
						wanted[test.ID] = true
					}
				}
			}
		default:
			prefixes = append(prefixes, strings.TrimSuffix(id, "/")+"/")
		}
	}

	var expanded []string

	for node := range Walk(root) {
		test, ok := node.(*TestInfo)
		if !ok {
			continue
		}

		if wanted[test.ID] || hasAnyPrefix(test.ID, prefixes) {
			expanded = append(expanded, test.ID)
		}
	}

	return expanded
}

func findSuite(root Info, id string) *SuiteInfo {
	for node := range Walk(root) {
		if suite, ok := node.(*SuiteInfo); ok && suite.ID == id {
			return suite
		}
	}

	return nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}
