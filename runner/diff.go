package runner

import (
	"strings"
)

// Box drawing elm-test's console reporter puts between the two values of a
// comparison:
//
//	actual
//	╷
//	│ Expect.equal
//	╵
//	expected
const (
	boxTop    = "╷"
	boxMiddle = "│"
	boxBottom = "╵"
)

// failureDiff extracts expected and actual values from an equality
// failure. Structured reason data wins; otherwise the message is parsed
// as console output.
func failureDiff(f Failure) (Diff, bool) {
	switch f.Reason.Type {
	case ReasonEquality, ReasonListDiff:
		if f.Reason.HasValues() {
			return Diff{Expected: f.Reason.Expected, Actual: f.Reason.Actual}, true
		}
	case ReasonComparison:
		if f.Reason.HasValues() && isEqualityComparison(f.Reason.Comparison) {
			return Diff{Expected: f.Reason.Expected, Actual: f.Reason.Actual}, true
		}
	}

	return parseConsoleDiff(f.Message)
}

func isEqualityComparison(comparison string) bool {
	return strings.HasPrefix(comparison, "Expect.equal")
}

// parseConsoleDiff finds a box whose middle line names an equality
// expectation. Text above the box is the actual value, text below is the
// expected value.
func parseConsoleDiff(message string) (Diff, bool) {
	lines := strings.Split(message, "\n")

	for i := 0; i+2 < len(lines); i++ {
		top := strings.TrimSpace(lines[i])
		middle := strings.TrimSpace(lines[i+1])
		bottom := strings.TrimSpace(lines[i+2])

		if top != boxTop || bottom != boxBottom || !strings.HasPrefix(middle, boxMiddle) {
			continue
		}

		if !isEqualityComparison(strings.TrimSpace(strings.TrimPrefix(middle, boxMiddle))) {
			continue
		}

		return Diff{
			Actual:   trimBlock(lines[:i]),
			Expected: trimBlock(lines[i+3:]),
		}, true
	}

	return Diff{}, false
}

func trimBlock(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
