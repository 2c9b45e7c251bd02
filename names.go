package elmtest

import (
	"path/filepath"
	"strings"
)

// ElmExt is the extension of Elm source files.
const ElmExt = ".elm"

// IDSeparator joins label segments into node ids.
const IDSeparator = "/"

// JoinID builds the id of the node reached by labels.
func JoinID(labels []string) string {
	return strings.Join(labels, IDSeparator)
}

// ModuleFile returns the path of the file declaring module, e.g.
// "Foo.Bar" in tests dir "tests" is "tests/Foo/Bar.elm".
func ModuleFile(testsDir, module string) string {
	return filepath.Join(testsDir, filepath.FromSlash(strings.ReplaceAll(module, ".", "/"))+ElmExt)
}

// ModuleName is the inverse of ModuleFile. It reports false when file is
// not an Elm file below testsDir.
func ModuleName(testsDir, file string) (string, bool) {
	rel, err := filepath.Rel(testsDir, file)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.Ext(rel) != ElmExt {
		return "", false
	}

	return strings.ReplaceAll(filepath.ToSlash(strings.TrimSuffix(rel, ElmExt)), "/", "."), true
}
