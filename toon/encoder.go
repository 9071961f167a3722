package toon

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Indent is the indentation unit for nested lines.
const Indent = "  "

var (
	// ErrMalformedRecord is returned for a record that cannot be written
	// without corrupting the column layout.
	ErrMalformedRecord = errors.New("toon: malformed record")

	// ErrEmptyBlock is returned when asked to encode a block with no items.
	// Empty collections are omitted by the caller, never encoded.
	ErrEmptyBlock = errors.New("toon: empty block")
)

// Encoder writes sections to an io.Writer.
//
// Each call writes complete lines. Once a write fails, the error is sticky
// and every later call returns it.
type Encoder struct {
	w     *errWriter
	depth int
}

// NewEncoder returns an Encoder writing at the top level of w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: &errWriter{w: w}}
}

// Scalar writes "name: value".
func (e *Encoder) Scalar(name string, v Value) error {
	e.line(e.depth, FormatKey(name)+": "+v.Format())
	return e.w.err
}

// Object writes "name:" and returns an Encoder for its nested fields.
func (e *Encoder) Object(name string) *Encoder {
	e.line(e.depth, FormatKey(name)+":")
	return &Encoder{w: e.w, depth: e.depth + 1}
}

// Block writes b in tabular mode when its items are uniform and in list
// mode otherwise.
func (e *Encoder) Block(b Block) error {
	if len(b.Items) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyBlock, b.Name)
	}
	if err := validate(b); err != nil {
		return err
	}
	if fields, ok := Uniform(b.Items); ok {
		e.tabular(e.depth, b, fields)
	} else {
		e.list(e.depth, b)
	}
	return e.w.err
}

// Err returns the first write error, if any.
func (e *Encoder) Err() error {
	return e.w.err
}

// validate rejects records that would produce a corrupt row before anything
// is written, so a bad record never leaves half a section behind.
func validate(b Block) error {
	for i, it := range b.Items {
		if len(it.Record) == 0 {
			return fmt.Errorf("%w: %s item %d has no fields", ErrMalformedRecord, b.Name, i)
		}
		seen := make(map[string]bool, len(it.Record))
		for _, f := range it.Record {
			if f.Name == "" {
				return fmt.Errorf("%w: %s item %d has an unnamed field", ErrMalformedRecord, b.Name, i)
			}
			if seen[f.Name] {
				return fmt.Errorf("%w: %s item %d repeats field %q", ErrMalformedRecord, b.Name, i, f.Name)
			}
			seen[f.Name] = true
		}
		if it.Nested != nil {
			if it.Nested.Nested() {
				return fmt.Errorf("%w: %s item %d nests more than one level", ErrMalformedRecord, b.Name, i)
			}
			if len(it.Nested.Items) == 0 {
				return fmt.Errorf("%w: %s", ErrEmptyBlock, it.Nested.Name)
			}
			if err := validate(*it.Nested); err != nil {
				return err
			}
		}
	}
	return nil
}

// Nested reports whether any item of b is itself a wrapper.
func (b Block) Nested() bool {
	for _, it := range b.Items {
		if it.Wrapper() {
			return true
		}
	}
	return false
}

func (e *Encoder) tabular(depth int, b Block, fields []string) {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = FormatKey(f)
	}
	e.line(depth, header(b)+"{"+strings.Join(keys, ",")+"}:")

	row := make([]string, len(fields))
	for _, it := range b.Items {
		for i, f := range fields {
			v, _ := it.Record.Get(f)
			row[i] = v.Format()
		}
		line := strings.Join(row, ",")
		if line == "" {
			// a lone empty cell would be a blank line
			line = `""`
		}
		e.line(depth+1, line)
	}
}

func (e *Encoder) list(depth int, b Block) {
	e.line(depth, header(b)+":")
	for _, it := range b.Items {
		first := it.Record[0]
		e.line(depth+1, "- "+FormatKey(first.Name)+": "+first.Value.Format())
		for _, f := range it.Record[1:] {
			e.line(depth+2, FormatKey(f.Name)+": "+f.Value.Format())
		}
		if it.Nested == nil {
			continue
		}
		if fields, ok := Uniform(it.Nested.Items); ok {
			e.tabular(depth+2, *it.Nested, fields)
		} else {
			e.list(depth+2, *it.Nested)
		}
	}
}

func header(b Block) string {
	return FormatKey(b.Name) + "[" + strconv.Itoa(len(b.Items)) + "]"
}

func (e *Encoder) line(depth int, s string) {
	e.w.writeString(strings.Repeat(Indent, depth) + s + "\n")
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) writeString(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = io.WriteString(ew.w, s)
}
