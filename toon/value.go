// Package toon encodes report records in a compact, line-oriented notation
// with two structural modes: a tabular mode for collections whose records
// all share one field set, and a list mode for everything else.
//
// The notation is a small subset of TOON (Token-Oriented Object Notation):
//
//	passing: 42
//	failing[2]{at,expected,got}:
//	  math_test.go:16:0,"4","5"
//	  math_test.go:30:0,"1","2"
//	skipped[1]:
//	  - at: slow_test.go:9:0
//	    name: TestSlow
//
// Everything the Encoder writes can be read back with Decode.
package toon

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the type of a scalar Value.
type Kind int

const (
	KindString  Kind = iota // text, quoted only when required
	KindInt                 // integer, rendered in decimal
	KindFloat               // decimal, shortest form
	KindLiteral             // bare true, false or null (produced only by Decode)
)

// Value is a single scalar in a record or a scalar section.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Int returns an integer Value.
func Int(n int) Value {
	return Value{kind: KindInt, i: int64(n)}
}

// Float returns a decimal Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// Kind reports the scalar type of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the raw string content of a string or literal Value.
func (v Value) Text() string {
	return v.s
}

// Int64 returns the integer content of an integer Value.
func (v Value) Int64() int64 {
	return v.i
}

// Float64 returns the numeric content of a numeric Value.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Format renders v as a token.
func (v Value) Format() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return FormatFloat(v.f)
	case KindLiteral:
		return v.s
	default:
		return FormatString(v.s)
	}
}

// Equal reports whether v and o render to the same token.
func (v Value) Equal(o Value) bool {
	return v.Format() == o.Format()
}

var numericPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// reserved literals must be quoted when they appear as strings.
var reserved = map[string]bool{
	"true":  true,
	"false": true,
	"null":  true,
}

// NeedsQuote reports whether s must be quoted to survive a decode. Leading
// and trailing spaces are quoted so a row's first cell is never read as
// indentation.
func NeedsQuote(s string) bool {
	if reserved[s] || numericPattern.MatchString(s) {
		return true
	}
	if s != strings.TrimSpace(s) {
		return true
	}
	return strings.ContainsAny(s, ",\n\r\t\\\"")
}

// FormatString renders s, quoting and escaping it when NeedsQuote says so.
func FormatString(s string) string {
	if !NeedsQuote(s) {
		return s
	}
	return quote(s)
}

// FormatKey renders a field or section name. Names that are not plain
// identifiers (for example "lines%") are always quoted.
func FormatKey(name string) string {
	if identPattern.MatchString(name) && !NeedsQuote(name) {
		return name
	}
	return quote(name)
}

// FormatFloat renders f in its shortest decimal form without an exponent.
func FormatFloat(f float64) string {
	if f == 0 {
		// normalizes -0
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
