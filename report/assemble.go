package report

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrMissingLocation is returned when a record has no location path.
	ErrMissingLocation = errors.New("report: record without location")

	// ErrMissingDetail is returned when a failure carries no detail.
	ErrMissingDetail = errors.New("report: failure without detail")
)

// Document is an assembled report. It is not modified after Assemble
// returns it.
type Document struct {
	// Error short-circuits every other section.
	Error string

	Timing   bool
	Duration time.Duration
	Passed   int
	Timings  []Timing
	Filtered bool

	Flaky   []Flaky
	Failing []FailingEntry
	Todo    []TestRef

	// Skipped lists skipped tests. When Filtered is set the section is a
	// count instead: SkippedCount tests excluded by the filter or skipped.
	Skipped      []TestRef
	SkippedCount int

	Coverage *Coverage
}

// Assemble builds the document for s. It fails on records that would
// produce an incomplete row.
func Assemble(s Snapshot) (*Document, error) {
	if s.Err != "" {
		return &Document{Error: s.Err}, nil
	}
	if err := check(s); err != nil {
		return nil, err
	}

	doc := &Document{
		Timing:   s.Timing,
		Duration: s.Duration,
		Passed:   s.Passed,
		Filtered: s.Filtered,
		Flaky:    slices.Clone(s.Flaky),
		Failing:  failingEntries(s.Failures),
		Todo:     slices.Clone(s.Todo),
	}
	if s.Timing {
		doc.Timings = slices.Clone(s.Timings)
	}
	if s.Filtered {
		doc.SkippedCount = s.FilteredOut + len(s.Skipped)
	} else {
		doc.Skipped = slices.Clone(s.Skipped)
	}
	if s.Coverage != nil {
		doc.Coverage = coverageSection(s.Coverage)
	}
	return doc, nil
}

func check(s Snapshot) error {
	for _, f := range s.Failures {
		if f.At.Path == "" {
			return fmt.Errorf("%w: failing test %s", ErrMissingLocation, f.Test)
		}
		if f.Detail == nil {
			return fmt.Errorf("%w: %s", ErrMissingDetail, f.Test)
		}
	}
	for _, r := range slices.Concat(s.Todo, s.Skipped) {
		if r.At.Path == "" {
			return fmt.Errorf("%w: skipped test %s", ErrMissingLocation, r.Name)
		}
	}
	for _, f := range s.Flaky {
		if f.At.Path == "" {
			return fmt.Errorf("%w: flaky test %s", ErrMissingLocation, f.Name)
		}
	}
	if s.Timing {
		for _, t := range s.Timings {
			if t.At.Path == "" {
				return fmt.Errorf("%w: passing test %s", ErrMissingLocation, t.Name)
			}
		}
	}
	return nil
}

// coverageSection keeps only the files that qualify for the current mode:
// every file when verbose, otherwise files with uncovered lines.
func coverageSection(c *Coverage) *Coverage {
	out := &Coverage{Totals: c.Totals, Verbose: c.Verbose}
	for _, f := range c.Files {
		if !c.Verbose && len(f.Uncovered) == 0 {
			continue
		}
		f.Uncovered = slices.Clone(f.Uncovered)
		out.Files = append(out.Files, f)
	}
	return out
}

// Sections lists the names of the sections d writes, in order.
func (d *Document) Sections() []string {
	if d.Error != "" {
		return []string{"error"}
	}
	var names []string
	if d.Timing {
		names = append(names, "duration")
	}
	names = append(names, "passing")
	if len(d.Flaky) > 0 {
		names = append(names, "flaky")
	}
	if len(d.Failing) > 0 {
		names = append(names, "failing")
	}
	if len(d.Todo) > 0 {
		names = append(names, "todo")
	}
	if len(d.Skipped) > 0 || d.SkippedCount > 0 {
		names = append(names, "skipped")
	}
	if d.Coverage != nil {
		names = append(names, "coverage")
	}
	return names
}
