package results

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ansel1/llmtest/gomod"
	"github.com/ansel1/llmtest/report"
)

// Collection-level error messages.
const (
	ErrNoTests       = "no tests found"
	ErrInterrupted   = "run interrupted"
	ErrTimedOut      = "run timed out"
	ErrNoneMatched   = "no tests matched filter"
	errBuildFailedAt = "build failed: "
)

// SnapshotOptions controls how the run is turned into a report.Snapshot.
type SnapshotOptions struct {
	// Filter keeps only leaf tests whose full name matches.
	Filter *regexp.Regexp

	// Timing records a Timing for every passing test.
	Timing bool

	// Module resolves file names in output to module-relative paths.
	Module gomod.Module

	// Locator finds test declarations when output has no position.
	Locator *Locator
}

// Snapshot freezes the collected state into a report.Snapshot.
func (c *Collector) Snapshot(opts SnapshotOptions) report.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b := &snapshotBuilder{run: c.run, opts: opts}
	return b.build()
}

type snapshotBuilder struct {
	run  *Run
	opts SnapshotOptions
	out  report.Snapshot

	leaves  int
	matched int
}

func (b *snapshotBuilder) build() report.Snapshot {
	run := b.run
	switch {
	case run.TimedOut:
		return report.Snapshot{Err: ErrTimedOut}
	case run.Interrupted:
		return report.Snapshot{Err: ErrInterrupted}
	}

	b.out.Timing = b.opts.Timing
	b.out.Duration = run.Duration()
	b.out.Filtered = b.opts.Filter != nil

	var broken []string
	for _, name := range run.PackageOrder {
		pkg := run.Packages[name]
		if pkg.FailedBuild != "" {
			broken = append(broken, name)
			b.buildFailure(pkg)
			continue
		}
		failuresBefore := len(b.out.Failures)
		for _, test := range pkg.TestOrder {
			b.addTest(run.Test(name, test))
		}
		if pkg.Status == "FAIL" && len(b.out.Failures) == failuresBefore && !b.anyTestFailed(pkg) {
			b.packageFailure(pkg)
		}
	}

	if len(run.TestResults) == 0 {
		if len(broken) > 0 {
			return report.Snapshot{Err: errBuildFailedAt + strings.Join(broken, ", ")}
		}
		if len(b.out.Failures) == 0 {
			return report.Snapshot{Err: ErrNoTests}
		}
	}
	if b.opts.Filter != nil && b.leaves > 0 && b.matched == 0 {
		return report.Snapshot{Err: ErrNoneMatched}
	}
	return b.out
}

func (b *snapshotBuilder) addTest(t *TestResult) {
	last := t.Last()
	if last == nil {
		return
	}

	if !t.Leaf() {
		// a parent failing only through its subtests adds nothing
		if last.Status == StatusFail && hasOwnOutput(last.Output) && b.keep(t) {
			b.out.Failures = append(b.out.Failures, b.failure(t, last))
		}
		return
	}

	b.leaves++
	if !b.keep(t) {
		b.out.FilteredOut++
		return
	}
	b.matched++

	switch last.Status {
	case StatusPass:
		if retries := t.FailedAttempts(); retries > 0 {
			b.out.Flaky = append(b.out.Flaky, report.Flaky{
				At:      b.declared(t),
				Name:    t.Name,
				Retries: retries,
			})
			return
		}
		b.out.Passed++
		if b.opts.Timing {
			b.out.Timings = append(b.out.Timings, report.Timing{
				At:       b.declared(t),
				Name:     t.Name,
				Duration: last.Elapsed,
			})
		}

	case StatusSkip:
		ref := report.TestRef{At: b.located(t, last.Output), Name: t.Name}
		if isTodo(FailureMessage(last.Output)) {
			b.out.Todo = append(b.out.Todo, ref)
		} else {
			b.out.Skipped = append(b.out.Skipped, ref)
		}

	default:
		b.out.Failures = append(b.out.Failures, b.failure(t, last))
	}
}

func (b *snapshotBuilder) keep(t *TestResult) bool {
	return b.opts.Filter == nil || b.opts.Filter.MatchString(t.Name)
}

func (b *snapshotBuilder) failure(t *TestResult, a *Attempt) report.Failure {
	f := report.Failure{
		At:            b.located(t, a.Output),
		Test:          t.Name,
		Parameterized: b.parameterized(t),
	}
	switch {
	case a.Status == StatusRunning:
		f.Detail = report.ErrorDetail{Message: "test did not finish"}
	default:
		if as, ok := ExtractAssertion(a.Output); ok {
			f.Detail = as
		} else if msg := FailureMessage(a.Output); msg != "" {
			f.Detail = report.ErrorDetail{Message: msg}
		} else {
			f.Detail = report.ErrorDetail{Message: "test failed"}
		}
	}
	return f
}

// parameterized reports whether t is one case of a table-driven test: a
// subtest whose parent ran at least two subtests.
func (b *snapshotBuilder) parameterized(t *TestResult) bool {
	p := parentName(t.Name)
	if p == "" {
		return false
	}
	parent := b.run.Test(t.Package, p)
	return parent != nil && len(parent.Subtests) >= 2
}

// located resolves a record's location from its output, falling back to
// the test's declaration.
func (b *snapshotBuilder) located(t *TestResult, output []string) report.Location {
	if ref, ok := FindLocation(output); ok {
		return report.Location{Path: b.sourcePath(t.Package, ref.File), Line: ref.Line}
	}
	return b.declared(t)
}

// declared returns where the test function is declared, or the package
// path when the source cannot be found.
func (b *snapshotBuilder) declared(t *TestResult) report.Location {
	if loc, ok := b.opts.Locator.Find(t.Package, t.Name); ok {
		return loc
	}
	return report.Location{Path: t.Package}
}

// sourcePath turns a file name from output into a module-relative path.
func (b *snapshotBuilder) sourcePath(pkg, file string) string {
	m := b.opts.Module
	if filepath.IsAbs(file) {
		if m.Root != "" {
			if rel, err := filepath.Rel(m.Root, file); err == nil && !strings.HasPrefix(rel, "..") {
				return filepath.ToSlash(rel)
			}
		}
		return filepath.ToSlash(file)
	}
	if rel, ok := m.Rel(pkg); ok {
		return path.Join(rel, file)
	}
	return path.Join(pkg, file)
}

func (b *snapshotBuilder) anyTestFailed(pkg *PackageResult) bool {
	for _, name := range pkg.TestOrder {
		if last := b.run.Test(pkg.Name, name).Last(); last != nil && last.Status == StatusFail {
			return true
		}
	}
	return false
}

// buildFailure reports a package that did not compile.
func (b *snapshotBuilder) buildFailure(pkg *PackageResult) {
	loc := report.Location{Path: pkg.Name}
	msg := "build failed"
	if file, line, col, diag, ok := firstBuildError(b.run.BuildOutput[pkg.FailedBuild]); ok {
		loc = report.Location{Path: path.Clean(filepath.ToSlash(file)), Line: line, Column: col}
		msg = errBuildFailedAt + diag
	}
	b.out.Failures = append(b.out.Failures, report.Failure{
		At:     loc,
		Test:   pkg.Name,
		Detail: report.ErrorDetail{Message: msg},
	})
}

// packageFailure reports a package that failed outside of any test, for
// example in TestMain or an init function.
func (b *snapshotBuilder) packageFailure(pkg *PackageResult) {
	msg := FailureMessage(pkg.Output)
	if msg == "" {
		msg = "package failed"
	}
	loc := report.Location{Path: pkg.Name}
	if ref, ok := FindLocation(pkg.Output); ok {
		loc = report.Location{Path: b.sourcePath(pkg.Name, ref.File), Line: ref.Line}
	}
	b.out.Failures = append(b.out.Failures, report.Failure{
		At:     loc,
		Test:   pkg.Name,
		Detail: report.ErrorDetail{Message: msg},
	})
}
