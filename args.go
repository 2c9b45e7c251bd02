package elmtest

import (
	"os"
	"path/filepath"
)

// DefaultTestBinary is invoked when no local elm-test is known.
const DefaultTestBinary = "elm-test"

// Binaries holds optional paths to project-local tools.
type Binaries struct {
	ElmTest string `yaml:"elmTest,omitempty"`
	ElmMake string `yaml:"elmMake,omitempty"`
	Elm     string `yaml:"elm,omitempty"`
}

// Compiler returns the compiler to pass to elm-test, preferring elm-make.
func (b Binaries) Compiler() string {
	if b.ElmMake != "" {
		return b.ElmMake
	}

	return b.Elm
}

// Merge fills unset fields of b from other.
func (b Binaries) Merge(other Binaries) Binaries {
	if b.ElmTest == "" {
		b.ElmTest = other.ElmTest
	}

	if b.ElmMake == "" {
		b.ElmMake = other.ElmMake
	}

	if b.Elm == "" {
		b.Elm = other.Elm
	}

	return b
}

// BuildArgs returns the command line for a run: the test binary, then
// "--compiler <path>" when a compiler is known, then files.
func BuildArgs(b Binaries, files []string) []string {
	binary := b.ElmTest
	if binary == "" {
		binary = DefaultTestBinary
	}

	args := []string{binary}

	if compiler := b.Compiler(); compiler != "" {
		args = append(args, "--compiler", compiler)
	}

	return append(args, files...)
}

// WithReport appends the flags requesting machine-readable output.
func WithReport(args []string) []string {
	out := make([]string, 0, len(args)+2)
	out = append(out, args...)

	return append(out, "--report", "json")
}

// FindLocalBinaries looks for elm-test, elm-make and elm installed under
// root/node_modules/.bin.
func FindLocalBinaries(root string) Binaries {
	return Binaries{
		ElmTest: localNpmBinary(root, "elm-test"),
		ElmMake: localNpmBinary(root, "elm-make"),
		Elm:     localNpmBinary(root, "elm"),
	}
}

func localNpmBinary(root, name string) string {
	path := filepath.Join(root, "node_modules", ".bin", name)

	if _, err := os.Stat(path); err != nil {
		return ""
	}

	return path
}
