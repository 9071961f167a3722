package report

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/ansel1/llmtest/toon"
)

// Encode writes d to w.
func (d *Document) Encode(w io.Writer) error {
	e := toon.NewEncoder(w)
	if d.Error != "" {
		return e.Scalar("error", toon.String(d.Error))
	}

	if d.Timing {
		if err := e.Scalar("duration", toon.String(FormatDuration(d.Duration))); err != nil {
			return err
		}
	}
	if err := d.encodePassing(e); err != nil {
		return err
	}

	if len(d.Flaky) > 0 {
		b := toon.Block{Name: "flaky"}
		for _, f := range d.Flaky {
			b.Items = append(b.Items, toon.Item{Record: toon.Record{
				toon.F("at", toon.String(f.At.String())),
				toon.F("name", toon.String(f.Name)),
				toon.F("retries", toon.Int(f.Retries)),
			}})
		}
		if err := e.Block(b); err != nil {
			return err
		}
	}

	if len(d.Failing) > 0 {
		if err := e.Block(failingBlock(d.Failing)); err != nil {
			return err
		}
	}

	if len(d.Todo) > 0 {
		if err := e.Block(refBlock("todo", d.Todo)); err != nil {
			return err
		}
	}

	switch {
	case d.SkippedCount > 0:
		if err := e.Scalar("skipped", toon.Int(d.SkippedCount)); err != nil {
			return err
		}
	case len(d.Skipped) > 0:
		if err := e.Block(refBlock("skipped", d.Skipped)); err != nil {
			return err
		}
	}

	if d.Coverage != nil {
		if err := encodeCoverage(e, d.Coverage); err != nil {
			return err
		}
	}
	return e.Err()
}

// Text returns the encoded document. Nothing is returned when encoding
// fails part way.
func (d *Document) Text() (string, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// String returns the encoded document, or the encoding error as an error
// section. It is meant for tests and debugging; use Text to write reports.
func (d *Document) String() string {
	text, err := d.Text()
	if err != nil {
		return "error: " + toon.FormatString(err.Error()) + "\n"
	}
	return text
}

// encodePassing writes the passing count, or the per-test timings in timing
// mode. A filtered run always writes the count so the marker is kept.
func (d *Document) encodePassing(e *toon.Encoder) error {
	if d.Timing && !d.Filtered && len(d.Timings) > 0 {
		b := toon.Block{Name: "passing"}
		for _, t := range d.Timings {
			b.Items = append(b.Items, toon.Item{Record: toon.Record{
				toon.F("at", toon.String(t.At.String())),
				toon.F("name", toon.String(t.Name)),
				toon.F("ms", toon.Int(int(t.Duration.Round(time.Millisecond)/time.Millisecond))),
			}})
		}
		return e.Block(b)
	}
	if d.Filtered {
		return e.Scalar("passing", toon.String(strconv.Itoa(d.Passed)+" (filtered)"))
	}
	return e.Scalar("passing", toon.Int(d.Passed))
}

func failingBlock(entries []FailingEntry) toon.Block {
	b := toon.Block{Name: "failing"}
	for _, entry := range entries {
		at := toon.F("at", toon.String(entry.At.String()))
		if entry.Group == nil {
			b.Items = append(b.Items, toon.Item{Record: append(toon.Record{at}, entry.Detail.fields()...)})
			continue
		}
		params := toon.Block{Name: "parameters"}
		for _, d := range entry.Group {
			params.Items = append(params.Items, toon.Item{Record: d.fields()})
		}
		b.Items = append(b.Items, toon.Item{Record: toon.Record{at}, Nested: &params})
	}
	return b
}

func refBlock(name string, refs []TestRef) toon.Block {
	b := toon.Block{Name: name}
	for _, r := range refs {
		b.Items = append(b.Items, toon.Item{Record: toon.Record{
			toon.F("at", toon.String(r.At.String())),
			toon.F("name", toon.String(r.Name)),
		}})
	}
	return b
}

func encodeCoverage(e *toon.Encoder, c *Coverage) error {
	cov := e.Object("coverage")
	total := cov.Object("total%")
	for _, f := range c.Totals.fields("") {
		if err := total.Scalar(f.Name, f.Value); err != nil {
			return err
		}
	}
	if len(c.Files) == 0 {
		return cov.Err()
	}

	b := toon.Block{Name: "files"}
	for _, f := range c.Files {
		r := toon.Record{
			toon.F("file", toon.String(f.File)),
			toon.F("uncoveredLines", toon.String(CompressLines(f.Uncovered))),
		}
		if c.Verbose {
			r = append(r, f.Pct.fields("%")...)
		}
		b.Items = append(b.Items, toon.Item{Record: r})
	}
	return cov.Block(b)
}

func (t CoverageTotals) fields(suffix string) toon.Record {
	return toon.Record{
		toon.F("lines"+suffix, toon.Float(t.Lines)),
		toon.F("stmts"+suffix, toon.Float(t.Stmts)),
		toon.F("branch"+suffix, toon.Float(t.Branch)),
		toon.F("funcs"+suffix, toon.Float(t.Funcs)),
	}
}
