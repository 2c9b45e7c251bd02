package elmtest

import (
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Declaration is one describe, test, fuzz or todo call found in a module.
type Declaration struct {
	Keyword string
	Label   string
	// Labels is the path from the outermost describe down to Label. The
	// module name is not included.
	Labels []string
	// Offset is the byte offset of the quoted description.
	Offset int
	Pos    lexer.Position
	// Depth is the bracket nesting depth of the keyword.
	Depth int
}

// IsSuite reports whether the declaration can contain other declarations.
func (d Declaration) IsSuite() bool {
	return d.Keyword == "describe"
}

// Declarations holds what ScanDeclarations found in one file.
type Declarations struct {
	File   string
	Module string
	Items  []Declaration
}

// ID returns the node id elm-test reports for d: the module name followed
// by d's label path.
func (ds *Declarations) ID(d Declaration) string {
	return JoinID(append([]string{ds.Module}, d.Labels...))
}

// At returns the last declaration whose keyword is on line (1-based).
func (ds *Declarations) At(line int) (Declaration, bool) {
	for i := len(ds.Items) - 1; i >= 0; i-- {
		if ds.Items[i].Pos.Line == line {
			return ds.Items[i], true
		}
	}

	return Declaration{}, false
}

// Info converts the declarations into a suite tree rooted at the module.
func (ds *Declarations) Info() *SuiteInfo {
	root := &SuiteInfo{Header: Header{ID: ds.Module, Label: ds.Module, File: ds.File}}
	suites := map[string]*SuiteInfo{ds.Module: root}

	for _, d := range ds.Items {
		parentID := JoinID(append([]string{ds.Module}, d.Labels[:len(d.Labels)-1]...))

		parent, ok := suites[parentID]
		if !ok {
			parent = root
		}

		header := Header{ID: ds.ID(d), Label: d.Label, File: ds.File, Line: d.Pos.Line}

		if d.IsSuite() {
			suite := &SuiteInfo{Header: header}
			suites[header.ID] = suite
			parent.Children = append(parent.Children, suite)

			continue
		}

		parent.Children = append(parent.Children, &TestInfo{Header: header, Description: d.Keyword})
	}

	return root
}

var fuzzKeywords = []string{"fuzz", "fuzz2", "fuzz3", "fuzzWith"}

func declarationKeyword(ident string) (string, bool) {
	switch {
	case ident == "describe", ident == "test", ident == "todo":
		return ident, true
	case slices.Contains(fuzzKeywords, ident):
		return ident, true
	default:
		return "", false
	}
}

// ScanDeclarations lexes an Elm test module and returns its declarations
// in source order. Calls inside comments and strings are ignored. Nesting
// follows bracket depth: a declaration belongs to the closest preceding
// describe at a smaller depth.
func ScanDeclarations(filename, text string) (*Declarations, error) {
	all, err := Lex(filename, text)
	if err != nil {
		return nil, err
	}

	tokens := make([]lexer.Token, 0, len(all))
	for _, tok := range all {
		if tok.Type != tWhitespace && tok.Type != tComment {
			tokens = append(tokens, tok)
		}
	}

	ds := &Declarations{File: filename}

	type open struct {
		label string
		depth int
	}

	var (
		stack []open
		depth int
	)

	for i, tok := range tokens {
		switch tok.Type {
		case tLParen, tLBracket, tLBrace:
			depth++

			continue
		case tRParen, tRBracket, tRBrace:
			depth--

			continue
		case tIdent:
		default:
			continue
		}

		if tok.Value == "module" && ds.Module == "" {
			ds.Module = qualifiedName(tokens[i+1:])

			continue
		}

		keyword, ok := declarationKeyword(tok.Value)
		if !ok || (i > 0 && tokens[i-1].Type == tDot && !isModuleQualifier(tokens, i-2)) {
			continue
		}

		str, ok := descriptionToken(tokens[i+1:], keyword, tok.Pos.Line)
		if !ok {
			continue
		}

		label, err := Unquote(str.Value)
		if err != nil {
			continue
		}

		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}

		labels := make([]string, 0, len(stack)+1)
		for _, o := range stack {
			labels = append(labels, o.label)
		}

		labels = append(labels, label)

		d := Declaration{
			Keyword: keyword,
			Label:   label,
			Labels:  labels,
			Offset:  str.Pos.Offset,
			Pos:     tok.Pos,
			Depth:   depth,
		}
		ds.Items = append(ds.Items, d)

		if d.IsSuite() {
			stack = append(stack, open{label: label, depth: depth})
		}
	}

	if ds.Module == "" {
		return ds, ErrNotTestModule
	}

	return ds, nil
}

// isModuleQualifier reports whether tokens[i] is an upper-case identifier,
// as in Test.describe.
func isModuleQualifier(tokens []lexer.Token, i int) bool {
	if i < 0 || tokens[i].Type != tIdent || tokens[i].Value == "" {
		return false
	}

	c := tokens[i].Value[0]

	return c >= 'A' && c <= 'Z'
}

// descriptionToken returns the string token describing the declaration.
// For describe, test and todo it must follow directly; fuzz variants take
// the first string on the keyword's line.
func descriptionToken(rest []lexer.Token, keyword string, line int) (lexer.Token, bool) {
	if len(rest) == 0 {
		return lexer.Token{}, false
	}

	if !slices.Contains(fuzzKeywords, keyword) {
		return rest[0], rest[0].Type == tString
	}

	for _, tok := range rest {
		if tok.Pos.Line != line {
			break
		}

		if tok.Type == tString {
			return tok, true
		}
	}

	return lexer.Token{}, false
}

func qualifiedName(tokens []lexer.Token) string {
	var parts []string

	for i, tok := range tokens {
		if i%2 == 0 {
			if tok.Type != tIdent {
				break
			}

			parts = append(parts, tok.Value)

			continue
		}

		if tok.Type != tDot {
			break
		}
	}

	return strings.Join(parts, ".")
}

// Unquote decodes an Elm string literal, single or triple quoted.
func Unquote(lit string) (string, error) {
	body, ok := strings.CutPrefix(lit, `"""`)
	if ok {
		body, ok = strings.CutSuffix(body, `"""`)
	} else {
		body, ok = strings.CutPrefix(lit, `"`)
		if ok {
			body, ok = strings.CutSuffix(body, `"`)
		}
	}

	if !ok {
		return "", strconv.ErrSyntax
	}

	var b strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)

			continue
		}

		i++

		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'u':
			end := strings.IndexByte(body[i:], '}')
			if !strings.HasPrefix(body[i:], "u{") || end < 0 {
				return "", strconv.ErrSyntax
			}

			code, err := strconv.ParseUint(body[i+2:i+end], 16, 32)
			if err != nil {
				return "", err
			}

			b.WriteRune(rune(code))

			i += end
		default:
			b.WriteByte(body[i])
		}
	}

	return b.String(), nil
}
