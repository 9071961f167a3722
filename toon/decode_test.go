package toon

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var valueComparer = cmp.Comparer(func(a, b Value) bool { return a.Equal(b) })

func roundTrip(t *testing.T, fn func(e *Encoder) error) *Node {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(NewEncoder(&buf)))
	doc, err := Decode(&buf)
	require.NoError(t, err, "decoding:\n%s", buf.String())
	return doc
}

func TestDecodeStringRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"plain",
		"",
		"a,b,c",
		"line1\nline2",
		"cr\rlf\n",
		"tab\there",
		`say "hi"`,
		`C:\path\to`,
		`trailing\`,
		"true",
		"false",
		"null",
		"42",
		"-0.5",
		"assertion failed: 1 != 2",
		"- looks like a list item",
		"x[3]: looks like a header",
		`"`,
		" leading",
		"trailing ",
		"  ",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			doc := roundTrip(t, func(e *Encoder) error {
				return e.Scalar("s", String(in))
			})
			n := doc.Get("s")
			require.NotNil(t, n)
			assert.Equal(t, KindString, n.Value.Kind())
			assert.Equal(t, in, n.Value.Text())
		})
	}
}

func TestDecodeTabularRoundTrip(t *testing.T) {
	records := []Record{
		{F("at", String("a_test.go:3:0")), F("expected", String("7")), F("got", String("6"))},
		{F("at", String("b_test.go:9:4")), F("expected", String("map[a:1, b:2]")), F("got", String("nil"))},
		{F("at", String("c_test.go")), F("expected", String("multi\nline")), F("got", String(`"quoted"`))},
	}

	doc := roundTrip(t, func(e *Encoder) error {
		return e.Block(NewBlock("failing", records...))
	})

	arr := doc.Get("failing")
	require.NotNil(t, arr)
	assert.Equal(t, NodeArray, arr.Kind)
	assert.Equal(t, []string{"at", "expected", "got"}, arr.Columns)

	var got []Record
	for _, it := range arr.Items {
		got = append(got, it.Record())
	}
	if diff := cmp.Diff(records, got, valueComparer); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSingleColumnRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		want    string
	}{
		{
			name:    "leading space in first cell",
			records: []Record{{F("error", String(" x"))}, {F("error", String("y"))}},
			want:    "parameters[2]{error}:\n  \" x\"\n  y\n",
		},
		{
			name:    "empty cell",
			records: []Record{{F("error", String(""))}, {F("error", String("y"))}},
			want:    "parameters[2]{error}:\n  \"\"\n  y\n",
		},
		{
			name:    "trailing space",
			records: []Record{{F("error", String("x "))}},
			want:    "parameters[1]{error}:\n  \"x \"\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewEncoder(&buf).Block(NewBlock("parameters", tc.records...)))
			assert.Equal(t, tc.want, buf.String())

			doc, err := Decode(&buf)
			require.NoError(t, err)
			arr := doc.Get("parameters")
			require.NotNil(t, arr)

			var got []Record
			for _, it := range arr.Items {
				got = append(got, it.Record())
			}
			if diff := cmp.Diff(tc.records, got, valueComparer); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeTabularEmptyCells(t *testing.T) {
	records := []Record{
		{F("file", String("b.go")), F("uncoveredLines", String("")), F("n", Int(1))},
		{F("file", String(" c.go")), F("uncoveredLines", String("4")), F("n", Int(2))},
	}
	doc := roundTrip(t, func(e *Encoder) error {
		return e.Block(NewBlock("files", records...))
	})

	var got []Record
	for _, it := range doc.Get("files").Items {
		got = append(got, it.Record())
	}
	if diff := cmp.Diff(records, got, valueComparer); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeNumbers(t *testing.T) {
	doc, err := Decode(strings.NewReader("a: 42\nb: -3.25\nc: \"42\"\nd: true\n"))
	require.NoError(t, err)

	assert.Equal(t, KindInt, doc.Get("a").Value.Kind())
	assert.Equal(t, int64(42), doc.Get("a").Value.Int64())
	assert.Equal(t, KindFloat, doc.Get("b").Value.Kind())
	assert.InDelta(t, -3.25, doc.Get("b").Value.Float64(), 0)
	assert.Equal(t, KindString, doc.Get("c").Value.Kind())
	assert.Equal(t, KindLiteral, doc.Get("d").Value.Kind())
	assert.Equal(t, []string{"a", "b", "c", "d"}, doc.Keys())
}

func TestDecodeListWithNestedBlocks(t *testing.T) {
	params := NewBlock("parameters",
		Record{F("expected", String("4")), F("got", String("5"))},
		Record{F("expected", String("9")), F("got", String("10"))},
	)
	mixed := NewBlock("parameters",
		Record{F("expected", String("a")), F("got", String("b"))},
		Record{F("error", String("panic: boom"))},
	)
	b := Block{Name: "failing", Items: []Item{
		{Record: Record{F("at", String("math_test.go:16:0"))}, Nested: &params},
		{Record: Record{F("at", String("io_test.go:3:0")), F("error", String("EOF"))}},
		{Record: Record{F("at", String("mix_test.go:7:0"))}, Nested: &mixed},
	}}

	doc := roundTrip(t, func(e *Encoder) error {
		if err := e.Scalar("passing", Int(3)); err != nil {
			return err
		}
		return e.Block(b)
	})

	assert.Equal(t, int64(3), doc.Get("passing").Value.Int64())

	failing := doc.Get("failing")
	require.NotNil(t, failing)
	require.Len(t, failing.Items, 3)
	assert.Nil(t, failing.Columns)

	first := failing.Items[0]
	assert.Equal(t, "math_test.go:16:0", first.Get("at").Value.Text())
	nested := first.Get("parameters")
	require.NotNil(t, nested)
	assert.Equal(t, []string{"expected", "got"}, nested.Columns)
	require.Len(t, nested.Items, 2)
	assert.Equal(t, "10", nested.Items[1].Get("got").Value.Text())

	second := failing.Items[1]
	assert.Equal(t, []string{"at", "error"}, second.Keys())

	third := failing.Items[2].Get("parameters")
	require.NotNil(t, third)
	assert.Nil(t, third.Columns)
	require.Len(t, third.Items, 2)
	assert.Equal(t, "panic: boom", third.Items[1].Get("error").Value.Text())
}

func TestDecodeObject(t *testing.T) {
	in := "coverage:\n" +
		"  \"total%\":\n" +
		"    lines: 85.5\n" +
		"    funcs: 100\n" +
		"  files[1]{file,uncoveredLines,\"lines%\"}:\n" +
		"    a.go,\"1-3,7\",50\n"

	doc, err := Decode(strings.NewReader(in))
	require.NoError(t, err)

	cov := doc.Get("coverage")
	require.NotNil(t, cov)
	assert.Equal(t, NodeObject, cov.Kind)
	assert.InDelta(t, 85.5, cov.Get("total%").Get("lines").Value.Float64(), 0)

	files := cov.Get("files")
	require.NotNil(t, files)
	assert.Equal(t, []string{"file", "uncoveredLines", "lines%"}, files.Columns)
	assert.Equal(t, "1-3,7", files.Items[0].Get("uncoveredLines").Value.Text())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"odd indentation", "a:\n   b: 1\n"},
		{"tab indentation", "a:\n\tb: 1\n"},
		{"orphan indentation", "a: 1\n  b: 2\n"},
		{"too few rows", "x[2]{a}:\n  1\n"},
		{"too many rows", "x[1]{a}:\n  1\n  2\n"},
		{"row width", "x[1]{a,b}:\n  1\n"},
		{"too few items", "x[2]:\n  - a: 1\n"},
		{"unterminated string", "a: \"abc\n"},
		{"unknown escape", "a: \"\\x\"\n"},
		{"text after quoted value", "a: \"x\"y\n"},
		{"list item outside list", "- a: 1\n"},
		{"missing separator", "a\n"},
		{"bad length", "x[n]{a}:\n  1\n"},
		{"empty header field", "x[1]{a,}:\n  1,2\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.in))
			assert.ErrorIs(t, err, ErrSyntax)
		})
	}
}
