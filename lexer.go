package elmtest

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
const (
	tEOF        lexer.TokenType = lexer.EOF
	tComment    lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	tString                                   // "..." and """..."""
	tChar                                     // 'c'
	tNumber                                   // ints, hex, floats
	tIdent                                    // identifiers, without qualification
	tOp                                       // operators, including backslash
	tDot                                      // .
	tComma                                    // ,
	tLParen                                   // (
	tRParen                                   // )
	tLBracket                                 // [
	tRBracket                                 // ]
	tLBrace                                   // {
	tRBrace                                   // }
	tWhitespace                               // spaces, tabs, newlines
)

// Lexer errors.
var (
	ErrUnterminatedComment = &LexerError{msg: "unterminated block comment"}
	ErrUnterminatedString  = &LexerError{msg: "unterminated string"}
	ErrUnterminatedChar    = &LexerError{msg: "unterminated char"}
	ErrUnexpectedCharacter = &LexerError{msg: "unexpected character"}
)

// LexerError represents a lexer error with position.
type LexerError struct {
	msg string
	pos lexer.Position
	ch  rune
}

func (e *LexerError) Error() string {
	if e.ch != 0 {
		return e.pos.String() + ": " + e.msg + ": " + string(e.ch)
	}

	return e.pos.String() + ": " + e.msg
}

// Is matches errors carrying the same message regardless of position.
func (e *LexerError) Is(target error) bool {
	t, ok := target.(*LexerError)

	return ok && t.msg == e.msg
}

func (e *LexerError) withPos(pos lexer.Position) *LexerError {
	return &LexerError{msg: e.msg, pos: pos, ch: e.ch}
}

func (e *LexerError) withChar(ch rune) *LexerError {
	return &LexerError{msg: e.msg, pos: e.pos, ch: ch}
}

// elmDefinition implements lexer.Definition for Elm test modules.
type elmDefinition struct {
	symbols map[string]lexer.TokenType
}

// ElmLexer is the lexer definition for Elm source.
var ElmLexer lexer.Definition = newElmLexer()

func newElmLexer() *elmDefinition {
	return &elmDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":        tEOF,
			"Comment":    tComment,
			"String":     tString,
			"Char":       tChar,
			"Number":     tNumber,
			"Ident":      tIdent,
			"Op":         tOp,
			"Dot":        tDot,
			"Comma":      tComma,
			"Whitespace": tWhitespace,
			"(":          tLParen,
			")":          tRParen,
			"[":          tLBracket,
			"]":          tRBracket,
			"{":          tLBrace,
			"}":          tRBrace,
		},
	}
}

// Symbols returns the mapping of symbol names to token types.
func (d *elmDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *elmDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexString(filename, string(data))
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *elmDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return newLexerState(filename, input), nil
}

// Lex tokenises Elm source, dropping nothing: whitespace and comments are
// returned as tokens. The final token is EOF.
func Lex(filename, text string) ([]lexer.Token, error) {
	var tokens []lexer.Token

	l := newLexerState(filename, text)

	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}

		tokens = append(tokens, tok)

		if tok.EOF() {
			return tokens, nil
		}
	}
}

// lexerState holds the state for lexing.
type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
}

func newLexerState(filename, input string) *lexerState {
	return &lexerState{
		filename: filename,
		input:    input,
		line:     1,
		col:      1,
	}
}

const opChars = `+-*/=<>|&^!?:%#$~@\`

// Next returns the next token.
func (l *lexerState) Next() (lexer.Token, error) {
	if l.eof() {
		return lexer.EOFToken(l.pos()), nil
	}

	start := l.pos()
	r := l.peek()

	switch {
	case isSpace(r):
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(tWhitespace, start), nil

	case l.match("--"):
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		return l.token(tComment, start), nil

	case l.match("{-"):
		return l.scanBlockComment(start)

	case l.match(`"""`):
		return l.scanMultilineString(start)

	case r == '"':
		return l.scanString(start)

	case r == '\'':
		return l.scanChar(start)

	case isDigit(r):
		return l.scanNumber(start), nil

	case isIdentStart(r):
		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		return l.token(tIdent, start), nil

	case r == '.' && !strings.ContainsRune(opChars, l.peekAt(1)) && l.peekAt(1) != '.':
		l.advance()

		return l.token(tDot, start), nil

	case r == '.' || strings.ContainsRune(opChars, r):
		for !l.eof() && (l.peek() == '.' || strings.ContainsRune(opChars, l.peek())) {
			l.advance()
		}

		return l.token(tOp, start), nil
	}

	l.advance()

	switch r {
	case ',':
		return l.token(tComma, start), nil
	case '(':
		return l.token(tLParen, start), nil
	case ')':
		return l.token(tRParen, start), nil
	case '[':
		return l.token(tLBracket, start), nil
	case ']':
		return l.token(tRBracket, start), nil
	case '{':
		return l.token(tLBrace, start), nil
	case '}':
		return l.token(tRBrace, start), nil
	}

	return lexer.Token{}, ErrUnexpectedCharacter.withPos(start).withChar(r)
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) peekAt(n int) rune {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[off:])

	return r
}

func (l *lexerState) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexerState) advanceN(n int) {
	for range n {
		l.advance()
	}
}

func (l *lexerState) match(s string) bool {
	return strings.HasPrefix(l.input[l.offset:], s)
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

// scanBlockComment consumes {- ... -}, which nest in Elm.
func (l *lexerState) scanBlockComment(start lexer.Position) (lexer.Token, error) {
	depth := 0

	for !l.eof() {
		switch {
		case l.match("{-"):
			depth++
			l.advanceN(2)
		case l.match("-}"):
			depth--
			l.advanceN(2)

			if depth == 0 {
				return l.token(tComment, start), nil
			}
		default:
			l.advance()
		}
	}

	return lexer.Token{}, ErrUnterminatedComment.withPos(start)
}

func (l *lexerState) scanString(start lexer.Position) (lexer.Token, error) {
	l.advance() // opening quote

	for !l.eof() {
		ch := l.peek()
		if ch == '\\' && l.peekAt(1) != 0 {
			l.advanceN(2)

			continue
		}

		if ch == '"' {
			l.advance()

			return l.token(tString, start), nil
		}

		if ch == '\n' {
			return lexer.Token{}, ErrUnterminatedString.withPos(start)
		}

		l.advance()
	}

	return lexer.Token{}, ErrUnterminatedString.withPos(start)
}

func (l *lexerState) scanMultilineString(start lexer.Position) (lexer.Token, error) {
	l.advanceN(3)

	for !l.eof() {
		if l.peek() == '\\' && l.peekAt(1) != 0 {
			l.advanceN(2)

			continue
		}

		if l.match(`"""`) {
			l.advanceN(3)

			return l.token(tString, start), nil
		}

		l.advance()
	}

	return lexer.Token{}, ErrUnterminatedString.withPos(start)
}

func (l *lexerState) scanChar(start lexer.Position) (lexer.Token, error) {
	l.advance() // opening quote

	for !l.eof() {
		ch := l.peek()

		switch {
		case ch == '\\' && l.peekAt(1) != 0:
			l.advanceN(2)
		case ch == '\'':
			l.advance()

			return l.token(tChar, start), nil
		case ch == '\n':
			return lexer.Token{}, ErrUnterminatedChar.withPos(start)
		default:
			l.advance()
		}
	}

	return lexer.Token{}, ErrUnterminatedChar.withPos(start)
}

func (l *lexerState) scanNumber(start lexer.Position) lexer.Token {
	if l.match("0x") || l.match("0X") {
		l.advanceN(2)

		for !l.eof() && isHexDigit(l.peek()) {
			l.advance()
		}

		return l.token(tNumber, start)
	}

	for !l.eof() && isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()

		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '+' || next == '-') && isDigit(l.peekAt(2))) {
			l.advanceN(2)

			for !l.eof() && isDigit(l.peek()) {
				l.advance()
			}
		}
	}

	return l.token(tNumber, start)
}

// Character helpers.

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
