package results

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ansel1/llmtest/report"
)

// Heuristics over `go test` output. They are best effort: no match means
// the caller falls back to a plain message.
var (
	// "    math_test.go:16: got 5, want 4"
	logLineRe = regexp.MustCompile(`^\s*([^\s:]+\.go):(\d+): ?(.*)$`)

	// testify: "        	Error Trace:	/src/calc/math_test.go:16"
	errorTraceRe = regexp.MustCompile(`^\s*Error Trace:\s*(\S+\.go):(\d+)`)

	// panic stack frame: "	/src/calc/math_test.go:16 +0x1d"
	testFrameRe = regexp.MustCompile(`^\s*(\S+_test\.go):(\d+)(?:\s|$)`)

	testifyExpectedRe = regexp.MustCompile(`^expected\s*:\s?(.*)$`)
	testifyActualRe   = regexp.MustCompile(`^actual\s*:\s?(.*)$`)
	testifyErrorRe    = regexp.MustCompile(`^Error:\s*(.*)$`)

	gotWantRe      = regexp.MustCompile(`(?i)\bgot:?\s+(.+?),?\s+want(?:ed)?:?\s+(.+)$`)
	wantGotRe      = regexp.MustCompile(`(?i)\bwant(?:ed)?:?\s+(.+?),?\s+got:?\s+(.+)$`)
	expectedGotRe  = regexp.MustCompile(`(?i)\bexpected:?\s+(.+?)(?:,\s*|\s+but\s+)got:?\s+(.+)$`)
	callWantRe     = regexp.MustCompile(`(?i)\)\s*=\s*(.+?),\s*want(?:ed)?:?\s+(.+)$`) // "Add(2, 2) = 5, want 4"
	assertPatterns = []struct {
		re       *regexp.Regexp
		gotFirst bool
	}{
		{gotWantRe, true},
		{wantGotRe, false},
		{expectedGotRe, false},
		{callWantRe, true},
	}
)

// SourceRef is a file position mentioned in test output. File is a base
// name for t.Error lines and an absolute path for stack frames.
type SourceRef struct {
	File string
	Line int
}

// FindLocation returns the first position in the output that points at the
// failing code: a t.Error style line, a testify Error Trace, or a frame of
// a _test.go file in a panic stack.
func FindLocation(lines []string) (SourceRef, bool) {
	for _, re := range []*regexp.Regexp{logLineRe, errorTraceRe, testFrameRe} {
		for _, line := range lines {
			if m := re.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[2])
				return SourceRef{File: m[1], Line: n}, true
			}
		}
	}
	return SourceRef{}, false
}

// ExtractAssertion looks for expected and actual values in failure output.
// It understands testify's expected/actual block and the usual
// "got X, want Y", "want X, got Y" and "expected X, got Y" phrasings.
func ExtractAssertion(lines []string) (report.Assertion, bool) {
	if a, ok := testifyAssertion(lines); ok {
		return a, true
	}
	for _, line := range lines {
		msg := message(line)
		for _, p := range assertPatterns {
			m := p.re.FindStringSubmatch(msg)
			if m == nil {
				continue
			}
			first, second := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
			if p.gotFirst {
				return report.Assertion{Expected: second, Got: first}, true
			}
			return report.Assertion{Expected: first, Got: second}, true
		}
	}
	return report.Assertion{}, false
}

func testifyAssertion(lines []string) (report.Assertion, bool) {
	var a report.Assertion
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !found {
			if m := testifyExpectedRe.FindStringSubmatch(trimmed); m != nil {
				a.Expected = m[1]
				found = true
			}
			continue
		}
		if m := testifyActualRe.FindStringSubmatch(trimmed); m != nil {
			a.Got = m[1]
			return a, true
		}
	}
	return report.Assertion{}, false
}

// FailureMessage picks the most useful single line of failure output: a
// panic, testify's Error line, the first logged message, or else the first
// line that is not test framing.
func FailureMessage(lines []string) string {
	for _, line := range lines {
		if t := strings.TrimSpace(line); strings.HasPrefix(t, "panic: ") {
			return strings.TrimSuffix(t, " [recovered]")
		}
	}
	for _, line := range lines {
		if m := testifyErrorRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil && m[1] != "" {
			return strings.TrimSpace(m[1])
		}
	}
	for _, line := range lines {
		if m := logLineRe.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[3]) != "" {
			return strings.TrimSpace(m[3])
		}
	}
	for _, line := range lines {
		if meaningful(line) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

// message strips a leading "file.go:N: " from a logged line.
func message(line string) string {
	if m := logLineRe.FindStringSubmatch(line); m != nil {
		return m[3]
	}
	return strings.TrimSpace(line)
}

// meaningful reports whether a line is more than test framing.
func meaningful(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	for _, prefix := range []string{"=== ", "--- ", "PASS", "FAIL", "ok  ", "coverage: "} {
		if strings.HasPrefix(t, prefix) {
			return false
		}
	}
	return true
}

// hasOwnOutput reports whether a parent test logged anything itself.
func hasOwnOutput(lines []string) bool {
	for _, line := range lines {
		if meaningful(line) {
			return true
		}
	}
	return false
}

// isTodo reports whether a skip reason marks unfinished work.
func isTodo(reason string) bool {
	return len(reason) >= 4 && strings.EqualFold(reason[:4], "TODO")
}

// buildErrorRe matches a compiler diagnostic such as "./calc.go:12:5: undefined: x".
var buildErrorRe = regexp.MustCompile(`^(\S+\.go):(\d+):(\d+): (.*)$`)

func firstBuildError(lines []string) (file string, line, col int, msg string, ok bool) {
	for _, l := range lines {
		if m := buildErrorRe.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			line, _ = strconv.Atoi(m[2])
			col, _ = strconv.Atoi(m[3])
			return m[1], line, col, m[4], true
		}
	}
	return "", 0, 0, "", false
}
