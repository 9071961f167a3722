package results

import (
	"strings"
	"time"
)

// Status is the state of one test attempt.
type Status string

const (
	StatusRunning Status = "running"
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkip    Status = "skip"
)

// Attempt is one execution of a test. A test runs more than once with
// -count or when a rerun tool retries it.
type Attempt struct {
	Status  Status
	Elapsed time.Duration
	Output  []string // output lines without their trailing newline
}

// Done reports whether the attempt reached a final status.
func (a *Attempt) Done() bool {
	return a.Status != StatusRunning
}

// TestResult is a single test and all of its attempts.
type TestResult struct {
	Package  string
	Name     string
	Attempts []*Attempt
	Subtests []string // direct children, in start order
}

// Last returns the most recent attempt, or nil if none has started.
func (t *TestResult) Last() *Attempt {
	if len(t.Attempts) == 0 {
		return nil
	}
	return t.Attempts[len(t.Attempts)-1]
}

// Leaf reports whether the test ran no subtests.
func (t *TestResult) Leaf() bool {
	return len(t.Subtests) == 0
}

// FailedAttempts counts the attempts before the last one that failed.
func (t *TestResult) FailedAttempts() int {
	n := 0
	for _, a := range t.Attempts[:max(len(t.Attempts)-1, 0)] {
		if a.Status == StatusFail {
			n++
		}
	}
	return n
}

// parentName returns the name of the enclosing test, or "" for a top-level
// test.
func parentName(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

func testKey(pkg, test string) string {
	return pkg + "/" + test
}

// PackageResult represents the final result of a package's test run.
type PackageResult struct {
	Name        string
	Status      string // "ok", "FAIL", "?" (no tests), "interrupted", "" while running
	Elapsed     time.Duration
	Output      []string // package-level output lines
	TestOrder   []string // chronological order of test starts
	FailedBuild string   // import path of the build that failed, if any
}

// Running reports whether the package has not reported a final status.
func (p *PackageResult) Running() bool {
	return p.Status == ""
}

// Counts are live totals of finished leaf tests.
type Counts struct {
	Passed  int
	Failed  int
	Skipped int
}

// Run is everything read from one input stream.
type Run struct {
	Packages     map[string]*PackageResult // package name -> PackageResult
	PackageOrder []string                  // chronological order of package starts
	TestResults  map[string]*TestResult    // "package/testname" -> TestResult

	// StartTime and EndTime are the first and last event timestamps.
	StartTime time.Time
	EndTime   time.Time

	RunningPkgs int
	Counts      Counts
	LastStarted string // most recently started test, for progress display

	// BuildOutput holds build-output lines keyed by the import path of the
	// build that produced them.
	BuildOutput map[string][]string
	BuildOrder  []string

	TimedOut    bool
	Interrupted bool
}

// NewRun creates an empty run.
func NewRun() *Run {
	return &Run{
		Packages:    make(map[string]*PackageResult),
		TestResults: make(map[string]*TestResult),
		BuildOutput: make(map[string][]string),
	}
}

// Test returns the named test of a package, or nil.
func (r *Run) Test(pkg, name string) *TestResult {
	return r.TestResults[testKey(pkg, name)]
}

// Duration is the wall time covered by the stream. Without timestamps it
// falls back to the slowest package.
func (r *Run) Duration() time.Duration {
	if !r.StartTime.IsZero() && r.EndTime.After(r.StartTime) {
		return r.EndTime.Sub(r.StartTime)
	}
	var longest time.Duration
	for _, p := range r.Packages {
		longest = max(longest, p.Elapsed)
	}
	return longest
}
