package elmtest_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/elmtest"
)

type decl struct {
	Keyword string
	Labels  []string
	Offset  int
	Line    int
	Column  int
}

func summarize(ds *elmtest.Declarations) []decl {
	out := make([]decl, len(ds.Items))
	for i, d := range ds.Items {
		out[i] = decl{d.Keyword, d.Labels, d.Offset, d.Pos.Line, d.Pos.Column}
	}

	return out
}

func TestScanDeclarations(t *testing.T) {
	t.Parallel()

	ds, err := elmtest.ScanDeclarations("tests/ParserTest.elm", parserTest)
	require.NoError(t, err)

	assert.Equal(t, "ParserTest", ds.Module)

	want := []decl{
		{"describe", []string{"Parser"}, 112, 9, 5},
		{"describe", []string{"Parser", "numbers"}, 140, 10, 11},
		{"test", []string{"Parser", "numbers", "parses integers"}, 169, 11, 15},
		{"fuzz", []string{"Parser", "numbers", "round trips"}, 252, 13, 15},
		{"describe", []string{"Parser", "strings"}, 341, 16, 11},
		{"test", []string{"Parser", "strings", "parses integers"}, 370, 17, 15},
	}

	if diff := cmp.Diff(want, summarize(ds)); diff != "" {
		t.Errorf("ScanDeclarations() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanDeclarations_OffsetsAgreeWithLocator(t *testing.T) {
	t.Parallel()

	ds, err := elmtest.ScanDeclarations("tests/ParserTest.elm", parserTest)
	require.NoError(t, err)

	for _, d := range ds.Items {
		offset, ok := elmtest.FindOffsetForTest(d.Labels, parserTest)
		require.True(t, ok, d.Labels)
		assert.Equal(t, d.Offset, offset, d.Labels)
	}
}

func TestScanDeclarations_IgnoresCommentsAndStrings(t *testing.T) {
	t.Parallel()

	src := `module Foo.BarTest exposing (..)

{- describe "commented out"
   {- nested -} test "still a comment"
-}
-- test "line comment"
all =
    Test.describe "Foo"
        [ test """multi "quoted" line""" <| \_ -> Expect.equal "test \"x\"" "y"
        , todo "later"
        , Test.test "qualified"
        , record.test "not a declaration"
        ]
`

	ds, err := elmtest.ScanDeclarations("tests/Foo/BarTest.elm", src)
	require.NoError(t, err)

	assert.Equal(t, "Foo.BarTest", ds.Module)

	var ids []string
	for _, d := range ds.Items {
		ids = append(ids, ds.ID(d))
	}

	assert.Equal(t, []string{
		"Foo.BarTest/Foo",
		`Foo.BarTest/Foo/multi "quoted" line`,
		"Foo.BarTest/Foo/later",
		"Foo.BarTest/Foo/qualified",
	}, ids)
}

func TestScanDeclarations_NotAModule(t *testing.T) {
	t.Parallel()

	_, err := elmtest.ScanDeclarations("x.elm", `test "a" <| \_ -> Expect.pass`)
	require.ErrorIs(t, err, elmtest.ErrNotTestModule)
}

func TestScanDeclarations_LexError(t *testing.T) {
	t.Parallel()

	_, err := elmtest.ScanDeclarations("x.elm", "module A exposing (..)\n{- open")
	require.ErrorIs(t, err, elmtest.ErrUnterminatedComment)
}

func TestDeclarations_InfoAndAt(t *testing.T) {
	t.Parallel()

	ds, err := elmtest.ScanDeclarations("tests/ParserTest.elm", parserTest)
	require.NoError(t, err)

	d, ok := ds.At(13)
	require.True(t, ok)
	assert.Equal(t, "round trips", d.Label)

	_, ok = ds.At(12)
	assert.False(t, ok)

	root := ds.Info()

	var ids []string
	for node := range elmtest.Walk(root) {
		ids = append(ids, node.Head().ID)
	}

	assert.Equal(t, []string{
		"ParserTest",
		"ParserTest/Parser",
		"ParserTest/Parser/numbers",
		"ParserTest/Parser/numbers/parses integers",
		"ParserTest/Parser/numbers/round trips",
		"ParserTest/Parser/strings",
		"ParserTest/Parser/strings/parses integers",
	}, ids)

	groups := elmtest.TestInfosByFile(root)
	assert.Equal(t, []string{"tests/ParserTest.elm"}, groups.Files())
}
