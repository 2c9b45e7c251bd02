package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/rlch/elmtest"
)

const module = `module M exposing (suite)

import Expect
import Test exposing (..)


suite : Test
suite =
    describe "outer"
        [ test "first" <|
            \_ -> Expect.equal 1 1
        , test "second" <|
            \_ -> Expect.equal 1 2
        ]
`

const report = `{"event":"runStart","testCount":"2","fuzzRuns":"100","paths":[],"initialSeed":"7"}
{"event":"testCompleted","status":"pass","labels":["M","outer","first"],"failures":[],"duration":"3"}
{"event":"testCompleted","status":"fail","labels":["M","outer","second"],"failures":[{"given":null,"message":"1 is not 2","reason":{"type":"Custom","data":"1 is not 2"}}],"duration":"120"}
{"event":"runComplete","passed":"1","failed":"1","duration":"5","autoFail":null}
`

// project writes an Elm project with one test module and a recorded run.
func project(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	file := filepath.Join(dir, "tests", "M.elm")
	transcript := filepath.Join(dir, filepath.FromSlash(elmtest.DefaultTranscript))

	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
	require.NoError(t, os.WriteFile(file, []byte(module), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Dir(transcript), 0o755))
	require.NoError(t, os.WriteFile(transcript, []byte(report), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".elmtest.yaml"), []byte("args: \"--fuzz 10\"\n"), 0o600))

	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut

	err := app.Run(context.Background(), append([]string{"elmtest"}, args...))

	return out.String(), err
}

func TestTree(t *testing.T) {
	t.Parallel()

	dir := project(t)

	out, err := run(t, "-C", dir, "tree")
	require.NoError(t, err)

	assert.Contains(t, out, " M\n")
	assert.Contains(t, out, " outer\n")
	assert.Contains(t, out, "first (3ms)\n")
	assert.Contains(t, out, "second (120ms)\n")
	assert.Contains(t, out, "2 tests, 1 passed, 1 failed, 0 todo, 0 skipped")
}

func TestTree_Filter(t *testing.T) {
	t.Parallel()

	dir := project(t)

	out, err := run(t, "-C", dir, "tree", "--filter", `status == "fail" && duration > 100`)
	require.NoError(t, err)

	assert.Contains(t, out, "second")
	assert.NotContains(t, out, "first")
}

func TestTree_FilterInvalid(t *testing.T) {
	t.Parallel()

	dir := project(t)

	_, err := run(t, "-C", dir, "tree", "--filter", "status +")
	require.Error(t, err)
}

func TestTree_Files(t *testing.T) {
	t.Parallel()

	dir := project(t)

	out, err := run(t, "-C", dir, "tree", "--files")
	require.NoError(t, err)

	assert.Equal(t,
		filepath.Join("tests", "M.elm")+"\n  M/outer/first [pass]\n  M/outer/second [fail]\n",
		out,
	)
}

func TestTree_NoTranscript(t *testing.T) {
	t.Parallel()

	_, err := run(t, "-C", t.TempDir(), "tree")
	require.Error(t, err)
}

func TestLocate(t *testing.T) {
	t.Parallel()

	dir := project(t)
	file := filepath.Join(dir, "tests", "M.elm")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"labels", []string{"outer", "second"}, file + ":12:16\n"},
		{"module and labels", []string{"M", "outer", "first"}, file + ":10:16\n"},
		{"suite", []string{"outer"}, file + ":9:14\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := run(t, append([]string{"-C", dir, "locate"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestLocate_NotFound(t *testing.T) {
	t.Parallel()

	dir := project(t)

	_, err := run(t, "-C", dir, "locate", "outer", "third")

	var exitErr cli.ExitCoder
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestLocate_NoLabels(t *testing.T) {
	t.Parallel()

	_, err := run(t, "-C", project(t), "locate")
	require.ErrorIs(t, err, ErrNoLabels)
}

func TestTest_DryRun(t *testing.T) {
	t.Parallel()

	dir := project(t)
	file := filepath.Join(dir, "tests", "M.elm")

	out, err := run(t, "-C", dir, "test", "--dry-run", "--seed", "3", file)
	require.NoError(t, err)
	assert.Equal(t, "elm-test "+file+" --report json --fuzz 10 --seed 3\n", out)
}

func TestTest_DryRunSelect(t *testing.T) {
	t.Parallel()

	dir := project(t)

	out, err := run(t, "-C", dir, "test", "--dry-run", "--select", "M/outer")
	require.NoError(t, err)
	assert.Equal(t, "elm-test "+filepath.Join(dir, "tests", "M.elm")+" --report json --fuzz 10\n", out)
}

func TestTest_SelectUnknown(t *testing.T) {
	t.Parallel()

	dir := project(t)

	_, err := run(t, "-C", dir, "test", "--dry-run", "--select", "Other")
	require.Error(t, err)
}
