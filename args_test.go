package elmtest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/elmtest"
)

func TestBuildArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		binaries elmtest.Binaries
		files    []string
		want     []string
	}{
		{
			name: "defaults",
			want: []string{"elm-test"},
		},
		{
			name:     "binaries",
			binaries: elmtest.Binaries{ElmTest: "test-binary", ElmMake: "compiler-binary"},
			want:     []string{"test-binary", "--compiler", "compiler-binary"},
		},
		{
			name:     "elm as compiler",
			binaries: elmtest.Binaries{Elm: "elm-binary"},
			want:     []string{"elm-test", "--compiler", "elm-binary"},
		},
		{
			name:     "files last",
			binaries: elmtest.Binaries{ElmTest: "test-binary", ElmMake: "compiler-binary"},
			files:    []string{"tests/A.elm", "tests/B.elm"},
			want:     []string{"test-binary", "--compiler", "compiler-binary", "tests/A.elm", "tests/B.elm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, elmtest.BuildArgs(tt.binaries, tt.files))
		})
	}
}

func TestWithReport(t *testing.T) {
	t.Parallel()

	args := elmtest.BuildArgs(elmtest.Binaries{ElmMake: "make"}, []string{"tests/A.elm"})
	got := elmtest.WithReport(args)

	assert.Equal(t, []string{"elm-test", "--compiler", "make", "tests/A.elm", "--report", "json"}, got)
	assert.Len(t, args, 4, "input is not modified")
}

func TestFindLocalBinaries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	bin := filepath.Join(root, "node_modules", ".bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "elm-test"), nil, 0o755))

	got := elmtest.FindLocalBinaries(root)

	assert.Equal(t, elmtest.Binaries{ElmTest: filepath.Join(bin, "elm-test")}, got)
}

func TestBinaries_Merge(t *testing.T) {
	t.Parallel()

	b := elmtest.Binaries{ElmTest: "mine"}.Merge(elmtest.Binaries{ElmTest: "found", Elm: "elm"})

	assert.Equal(t, elmtest.Binaries{ElmTest: "mine", Elm: "elm"}, b)
}
