// Package report turns a frozen snapshot of test results into the document
// written for LLM consumers.
package report

import (
	"strconv"
	"time"

	"github.com/ansel1/llmtest/toon"
)

// Location identifies where a record comes from.
type Location struct {
	Path   string
	Line   int
	Column int
}

// String renders "path" when no line is known and "path:line:col" otherwise.
func (l Location) String() string {
	if l.Line <= 0 {
		return l.Path
	}
	return l.Path + ":" + strconv.Itoa(l.Line) + ":" + strconv.Itoa(l.Column)
}

// DetailKind tags the variant of a FailureDetail.
type DetailKind int

const (
	DetailAssertion DetailKind = iota
	DetailError
)

// FailureDetail is either an Assertion or an ErrorDetail. The set of
// variants is closed.
type FailureDetail interface {
	Kind() DetailKind
	fields() toon.Record
}

// Assertion is a failure with recognizable expected and actual values.
type Assertion struct {
	Expected string
	Got      string
}

func (Assertion) Kind() DetailKind { return DetailAssertion }

func (a Assertion) fields() toon.Record {
	return toon.Record{
		toon.F("expected", toon.String(a.Expected)),
		toon.F("got", toon.String(a.Got)),
	}
}

// ErrorDetail is a failure described only by a message.
type ErrorDetail struct {
	Message string
}

func (ErrorDetail) Kind() DetailKind { return DetailError }

func (d ErrorDetail) fields() toon.Record {
	return toon.Record{toon.F("error", toon.String(d.Message))}
}

// Failure is one failed test.
type Failure struct {
	At     Location
	Test   string
	Detail FailureDetail

	// Parameterized marks a failure raised by one invocation of a test
	// that runs with several argument sets.
	Parameterized bool
}

// TestRef names a skipped or todo test.
type TestRef struct {
	At   Location
	Name string
}

// Timing is a passing test and how long it took.
type Timing struct {
	At       Location
	Name     string
	Duration time.Duration
}

// Flaky is a test that failed at least once before passing.
type Flaky struct {
	At      Location
	Name    string
	Retries int
}

// Group collects the failures of a parameterized test raised at one
// location, in invocation order.
type Group struct {
	At      Location
	Details []FailureDetail
}

// CoverageTotals holds percentages in the range 0 to 100.
type CoverageTotals struct {
	Lines  float64
	Stmts  float64
	Branch float64
	Funcs  float64
}

// CoverageFile is the coverage of a single source file. Pct is only written
// when the owning Coverage is verbose.
type CoverageFile struct {
	File      string
	Uncovered []int
	Pct       CoverageTotals
}

// Coverage summarizes a coverage profile.
type Coverage struct {
	Totals  CoverageTotals
	Files   []CoverageFile
	Verbose bool
}

// Snapshot is the frozen output of a result collector. Slices are in
// execution order.
type Snapshot struct {
	// Err is a collection-level failure. When set, nothing else is reported.
	Err string

	Passed   int
	Timing   bool
	Timings  []Timing
	Duration time.Duration

	Failures []Failure
	Skipped  []TestRef
	Todo     []TestRef
	Flaky    []Flaky
	Coverage *Coverage

	// Filtered is set when a name filter was applied; FilteredOut counts
	// the tests it excluded.
	Filtered    bool
	FilteredOut int
}
