package toon

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every error Decode returns for malformed input.
var ErrSyntax = errors.New("toon: syntax error")

// NodeKind identifies the shape of a decoded Node.
type NodeKind int

const (
	NodeScalar NodeKind = iota
	NodeObject
	NodeArray
)

// Node is a decoded value: a scalar, an object with ordered entries, or an
// array whose items are objects.
type Node struct {
	Kind    NodeKind
	Value   Value
	Entries []Entry
	Items   []*Node

	// Columns holds the header of an array decoded from tabular form.
	Columns []string
}

// Entry is one key of a decoded object.
type Entry struct {
	Key  string
	Node *Node
}

// Get returns the entry named key, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil {
		return nil
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Node
		}
	}
	return nil
}

// Keys returns the entry names of an object in order.
func (n *Node) Keys() []string {
	keys := make([]string, len(n.Entries))
	for i, e := range n.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Record flattens the scalar entries of an object node into a Record.
func (n *Node) Record() Record {
	var r Record
	for _, e := range n.Entries {
		if e.Node.Kind == NodeScalar {
			r = append(r, Field{Name: e.Key, Value: e.Node.Value})
		}
	}
	return r
}

type srcLine struct {
	num   int
	depth int
	text  string
}

// Decode parses a document written by Encoder.
func Decode(r io.Reader) (*Node, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	d := &decoder{lines: lines}
	root, err := d.object(0)
	if err != nil {
		return nil, err
	}
	if d.pos < len(d.lines) {
		return nil, d.errorf(d.lines[d.pos], "unexpected indentation")
	}
	return root, nil
}

func readLines(r io.Reader) ([]srcLine, error) {
	var lines []srcLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for scanner.Scan() {
		num++
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		text := strings.TrimLeft(raw, " ")
		spaces := len(raw) - len(text)
		if strings.HasPrefix(text, "\t") {
			return nil, fmt.Errorf("%w: line %d: tab in indentation", ErrSyntax, num)
		}
		if spaces%len(Indent) != 0 {
			return nil, fmt.Errorf("%w: line %d: indentation is not a multiple of %d", ErrSyntax, num, len(Indent))
		}
		lines = append(lines, srcLine{num: num, depth: spaces / len(Indent), text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return lines, nil
}

type decoder struct {
	lines []srcLine
	pos   int
}

func (d *decoder) errorf(l srcLine, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrSyntax, l.num, fmt.Sprintf(format, args...))
}

func (d *decoder) peek() (srcLine, bool) {
	if d.pos >= len(d.lines) {
		return srcLine{}, false
	}
	return d.lines[d.pos], true
}

// object reads consecutive entries at depth.
func (d *decoder) object(depth int) (*Node, error) {
	obj := &Node{Kind: NodeObject}
	for {
		l, ok := d.peek()
		if !ok || l.depth < depth {
			return obj, nil
		}
		if l.depth > depth {
			return nil, d.errorf(l, "unexpected indentation")
		}
		if strings.HasPrefix(l.text, "- ") {
			return nil, d.errorf(l, "list item outside of a list")
		}
		d.pos++
		entry, err := d.entry(l, l.text, depth)
		if err != nil {
			return nil, err
		}
		obj.Entries = append(obj.Entries, entry)
	}
}

// entry parses one "key..." line whose children live at depth+1.
func (d *decoder) entry(l srcLine, text string, depth int) (Entry, error) {
	key, rest, err := splitKey(text)
	if err != nil {
		return Entry{}, d.errorf(l, "%v", err)
	}

	switch {
	case rest == ":":
		child, err := d.object(depth + 1)
		if err != nil {
			return Entry{}, err
		}
		return Entry{Key: key, Node: child}, nil

	case strings.HasPrefix(rest, ": "):
		v, err := parseValue(rest[2:])
		if err != nil {
			return Entry{}, d.errorf(l, "%v", err)
		}
		return Entry{Key: key, Node: &Node{Kind: NodeScalar, Value: v}}, nil

	case strings.HasPrefix(rest, "["):
		n, columns, err := parseHeader(rest)
		if err != nil {
			return Entry{}, d.errorf(l, "%v", err)
		}
		var arr *Node
		if columns != nil {
			arr, err = d.rows(l, depth+1, n, columns)
		} else {
			arr, err = d.items(l, depth+1, n)
		}
		if err != nil {
			return Entry{}, err
		}
		return Entry{Key: key, Node: arr}, nil
	}
	return Entry{}, d.errorf(l, "expected ':' or '[' after key %q", key)
}

func (d *decoder) rows(head srcLine, depth, n int, columns []string) (*Node, error) {
	arr := &Node{Kind: NodeArray, Columns: columns}
	for i := 0; i < n; i++ {
		l, ok := d.peek()
		if !ok || l.depth != depth {
			return nil, d.errorf(head, "declared %d rows, found %d", n, i)
		}
		d.pos++
		tokens, err := splitRow(l.text)
		if err != nil {
			return nil, d.errorf(l, "%v", err)
		}
		if len(tokens) != len(columns) {
			return nil, d.errorf(l, "row has %d values, header declares %d", len(tokens), len(columns))
		}
		row := &Node{Kind: NodeObject}
		for j, tok := range tokens {
			v, err := parseValue(tok)
			if err != nil {
				return nil, d.errorf(l, "%v", err)
			}
			row.Entries = append(row.Entries, Entry{Key: columns[j], Node: &Node{Kind: NodeScalar, Value: v}})
		}
		arr.Items = append(arr.Items, row)
	}
	return arr, nil
}

func (d *decoder) items(head srcLine, depth, n int) (*Node, error) {
	arr := &Node{Kind: NodeArray}
	for i := 0; i < n; i++ {
		l, ok := d.peek()
		if !ok || l.depth != depth || !strings.HasPrefix(l.text, "- ") {
			return nil, d.errorf(head, "declared %d items, found %d", n, i)
		}
		d.pos++
		first, err := d.entry(l, strings.TrimPrefix(l.text, "- "), depth+1)
		if err != nil {
			return nil, err
		}
		if first.Node.Kind != NodeScalar {
			return nil, d.errorf(l, "list item must start with a scalar field")
		}
		rest, err := d.object(depth + 1)
		if err != nil {
			return nil, err
		}
		item := &Node{Kind: NodeObject, Entries: append([]Entry{first}, rest.Entries...)}
		arr.Items = append(arr.Items, item)
	}
	return arr, nil
}

// splitKey separates the key at the start of text from what follows it.
func splitKey(text string) (key, rest string, err error) {
	if strings.HasPrefix(text, `"`) {
		end, err := quotedEnd(text)
		if err != nil {
			return "", "", err
		}
		key, err = unquote(text[:end])
		return key, text[end:], err
	}
	i := strings.IndexAny(text, ":[")
	if i <= 0 {
		return "", "", fmt.Errorf("missing key in %q", text)
	}
	return text[:i], text[i:], nil
}

// parseHeader reads "[N]:" or "[N]{a,b}:".
func parseHeader(rest string) (int, []string, error) {
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, nil, fmt.Errorf("unterminated length in %q", rest)
	}
	n, err := strconv.Atoi(rest[1:end])
	if err != nil || n < 0 {
		return 0, nil, fmt.Errorf("invalid length %q", rest[1:end])
	}
	rest = rest[end+1:]
	if rest == ":" {
		return n, nil, nil
	}
	if !strings.HasPrefix(rest, "{") || !strings.HasSuffix(rest, "}:") {
		return 0, nil, fmt.Errorf("invalid array header %q", rest)
	}
	tokens, err := splitRow(rest[1 : len(rest)-2])
	if err != nil {
		return 0, nil, err
	}
	columns := make([]string, len(tokens))
	for i, tok := range tokens {
		if strings.HasPrefix(tok, `"`) {
			if tok, err = unquote(tok); err != nil {
				return 0, nil, err
			}
		}
		if tok == "" {
			return 0, nil, fmt.Errorf("empty field name in header")
		}
		columns[i] = tok
	}
	return n, columns, nil
}

// splitRow splits on commas that are not inside quotes.
func splitRow(s string) ([]string, error) {
	var tokens []string
	for {
		if strings.HasPrefix(s, `"`) {
			end, err := quotedEnd(s)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, s[:end])
			s = s[end:]
			if s == "" {
				return tokens, nil
			}
			if s[0] != ',' {
				return nil, fmt.Errorf("unexpected %q after quoted value", s[0])
			}
			s = s[1:]
			continue
		}
		i := strings.IndexByte(s, ',')
		if i < 0 {
			return append(tokens, s), nil
		}
		tokens = append(tokens, s[:i])
		s = s[i+1:]
	}
}

// quotedEnd returns the index just past the closing quote of the quoted
// string at the start of s.
func quotedEnd(s string) (int, error) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unterminated string %q", s)
}

func unquote(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed string %q", s)
	}
	body := s[1 : len(s)-1]
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			if c == '"' {
				return "", fmt.Errorf("unescaped quote in %q", s)
			}
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape in %q", s)
		}
		switch body[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("unknown escape \\%c in %q", body[i], s)
		}
	}
	return b.String(), nil
}

func parseValue(tok string) (Value, error) {
	switch {
	case strings.HasPrefix(tok, `"`):
		end, err := quotedEnd(tok)
		if err != nil {
			return Value{}, err
		}
		if end != len(tok) {
			return Value{}, fmt.Errorf("trailing characters after %q", tok[:end])
		}
		s, err := unquote(tok)
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case reserved[tok]:
		return Value{kind: KindLiteral, s: tok}, nil
	case numericPattern.MatchString(tok):
		if !strings.Contains(tok, ".") {
			if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
				return Value{kind: KindInt, i: n}, nil
			}
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", tok)
		}
		return Float(f), nil
	}
	return String(tok), nil
}
