package elmtest

import (
	"regexp"
	"strings"
)

// declarationPattern matches a describe, test or fuzz declaration whose
// description is the quoted string in the final group. Fuzz variants may
// carry an arbitrary fuzzer expression before the description.
const declarationPattern = `\b(?:describe|test|fuzz\w*\s+.*?)\s+(%s)`

// FindOffsetForTest returns the byte offset in text of the description of
// the test named by names, outermost suite first. It reports false when the
// path cannot be resolved.
//
// This is a textual heuristic, not a parse of the module. Among all
// declarations of names[0] the one whose keyword sits at the smallest
// column wins, earliest first on ties. When names[0] is never the label of
// a describe, test or fuzz declaration, every bare quoted occurrence of it
// competes instead, measured at the quote. The remaining labels are then
// matched one after another, each strictly after the previous match. An
// unrelated declaration reusing a label between two real ones can
// therefore be picked up.
func FindOffsetForTest(names []string, text string) (int, bool) {
	if len(names) == 0 {
		return 0, false
	}

	matches := topLevelMatches(names[0], text)
	if len(matches) == 0 {
		return 0, false
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if column(text, m.start) < column(text, best.start) {
			best = m
		}
	}

	offset := best.label
	cursor := best.label + len(Quote(names[0]))

	for _, name := range names[1:] {
		quoted := Quote(name)

		i := strings.Index(text[cursor:], quoted)
		if i < 0 {
			return 0, false
		}

		offset = cursor + i
		cursor = offset + len(quoted)
	}

	return offset, true
}

// labelMatch is one occurrence of a top label. start is where the
// declaration begins and label where its quoted description begins.
type labelMatch struct {
	start int
	label int
}

// topLevelMatches returns every declaration of label. Without any
// declaration, every bare quoted occurrence counts, starting at the quote.
func topLevelMatches(label, text string) []labelMatch {
	quoted := regexp.QuoteMeta(Quote(label))
	re := regexp.MustCompile(strings.Replace(declarationPattern, "%s", quoted, 1))

	var matches []labelMatch

	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		matches = append(matches, labelMatch{start: m[0], label: m[2]})
	}

	if len(matches) > 0 {
		return matches
	}

	for _, m := range regexp.MustCompile(quoted).FindAllStringIndex(text, -1) {
		matches = append(matches, labelMatch{start: m[0], label: m[0]})
	}

	return matches
}

// column returns the number of bytes between the start of the line holding
// offset and offset itself.
func column(text string, offset int) int {
	return offset - (strings.LastIndexByte(text[:offset], '\n') + 1)
}

// Quote renders s as an Elm string literal.
func Quote(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')

	return b.String()
}
