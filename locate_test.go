package elmtest_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/elmtest"
)

// lines joins source lines, each indented by indent spaces plus its own
// leading spaces.
func lines(indent int, ls ...string) string {
	pad := strings.Repeat(" ", indent)

	var b strings.Builder

	b.WriteString("\n")

	for _, l := range ls {
		b.WriteString(pad + l + "\n")
	}

	return b.String()
}

func TestFindOffsetForTest_NoMatch(t *testing.T) {
	t.Parallel()

	_, ok := elmtest.FindOffsetForTest([]string{"first"}, lines(12, "some thing else"))
	assert.False(t, ok)
}

func TestFindOffsetForTest_Path(t *testing.T) {
	t.Parallel()

	text := lines(12, `"first"`, `    "nested"`, `"second"`)

	offset, ok := elmtest.FindOffsetForTest([]string{"first", "nested"}, text)
	require.True(t, ok)
	assert.Equal(t, 37, offset)
	assert.True(t, strings.HasPrefix(text[offset:], `"nested"`))
}

func TestFindOffsetForTest_FullPath(t *testing.T) {
	t.Parallel()

	text := lines(12,
		`"first"`,
		`    "nested"`,
		`"second"`,
		`    "first"`,
		`        "nested"`,
	)

	offset, ok := elmtest.FindOffsetForTest([]string{"second", "first", "nested"}, text)
	require.True(t, ok)
	assert.Equal(t, 111, offset)
}

func TestFindOffsetForTest_ShallowestWins(t *testing.T) {
	t.Parallel()

	text := lines(12,
		`"second"`,
		`    "first"`,
		`        "nested"`,
		`"first"`,
		`    "nested"`,
	)

	offset, ok := elmtest.FindOffsetForTest([]string{"first", "nested"}, text)
	require.True(t, ok)
	assert.Equal(t, 111, offset)
}

func TestFindOffsetForTest_KeywordIndent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		path []string
		want int
	}{
		{
			name: "shallow describe beats deeper test",
			text: "\n        test \"dup\" <|\n    describe \"dup\"\n        [ test \"x\" ]\n",
			path: []string{"dup"},
			want: 36,
		},
		{
			name: "path below shallow describe",
			text: "\n        test \"dup\" <|\n    describe \"dup\"\n        [ test \"x\" ]\n",
			path: []string{"dup", "x"},
			want: 57,
		},
		{
			name: "fuzz with fuzzer beats nested test",
			text: "\n    fuzz (list int) \"dup\" <|\n        [ test \"dup\" ]\n",
			path: []string{"dup"},
			want: 21,
		},
		{
			name: "same indent keeps source order",
			text: "\n    describe \"dup\"\n    test \"dup\"\n",
			path: []string{"dup"},
			want: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := elmtest.FindOffsetForTest(tt.path, tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.True(t, strings.HasPrefix(tt.text[got:], elmtest.Quote(tt.path[len(tt.path)-1])))
		})
	}
}

const parserTest = `module ParserTest exposing (suite)

import Expect
import Test exposing (..)


suite : Test
suite =
    describe "Parser"
        [ describe "numbers"
            [ test "parses integers" <|
                \_ -> Expect.equal 1 1
            , fuzz int "round trips" <|
                \n -> Expect.equal n n
            ]
        , describe "strings"
            [ test "parses integers" <|
                \_ -> Expect.pass
            ]
        ]
`

func TestFindOffsetForTest_Declarations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		path  []string
		want  int
		found bool
	}{
		{"second of duplicate names", []string{"Parser", "strings", "parses integers"}, 370, true},
		{"fuzz with fuzzer", []string{"Parser", "numbers", "round trips"}, 252, true},
		{"nested describe alone", []string{"numbers"}, 140, true},
		{"top", []string{"Parser"}, 112, true},
		{"missing child", []string{"Parser", "booleans"}, 0, false},
		{"empty path", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := elmtest.FindOffsetForTest(tt.path, parserTest)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"plain"`, elmtest.Quote("plain"))
	assert.Equal(t, `"say \"hi\" \\ bye\n"`, elmtest.Quote("say \"hi\" \\ bye\n"))
}
