package output

import (
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// ColorOptions decides how a report is decorated for a terminal.
type ColorOptions struct {
	// Color styles section names.
	Color bool

	// Hyperlinks wraps locations of Go files in OSC 8 links. Links need an
	// absolute Root.
	Hyperlinks bool
	Root       string
}

// Colorizer decorates an encoded report line by line. The decorated text
// differs from the input only by escape sequences.
type Colorizer struct {
	color  bool
	root   string
	term   *termenv.Output
	styles map[string]lipgloss.Style
}

// NewColorizer builds a Colorizer. With neither color nor usable
// hyperlinks it returns reports unchanged.
func NewColorizer(opts ColorOptions) *Colorizer {
	c := &Colorizer{
		color: opts.Color,
		term:  termenv.NewOutput(io.Discard, termenv.WithProfile(termenv.ANSI)),
	}
	if opts.Hyperlinks && filepath.IsAbs(opts.Root) {
		c.root = opts.Root
	}

	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)
	green := r.NewStyle().Foreground(lipgloss.Color("2"))
	red := r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	yellow := r.NewStyle().Foreground(lipgloss.Color("3"))
	cyan := r.NewStyle().Foreground(lipgloss.Color("6"))
	c.styles = map[string]lipgloss.Style{
		"passing":  green,
		"failing":  red,
		"error":    red,
		"flaky":    yellow,
		"todo":     yellow,
		"skipped":  yellow,
		"coverage": cyan,
		"duration": cyan,
	}
	return c
}

// Enabled reports whether Colorize changes anything.
func (c *Colorizer) Enabled() bool {
	return c.color || c.root != ""
}

// Colorize returns the decorated report.
func (c *Colorizer) Colorize(report string) string {
	if !c.Enabled() {
		return report
	}

	var b strings.Builder
	rowIndent := -1 // indent of rows whose first cell is a location
	for line := range strings.SplitAfterSeq(report, "\n") {
		body := strings.TrimSuffix(line, "\n")
		trimmed := strings.TrimLeft(body, " ")
		indent := len(body) - len(trimmed)

		if rowIndent >= 0 && indent < rowIndent {
			rowIndent = -1
		}

		switch {
		case indent == 0:
			body = c.section(body)
			if atHeader(trimmed) {
				rowIndent = 2
			}
		case atHeader(trimmed):
			rowIndent = indent + 2
		case indent == rowIndent:
			body = body[:indent] + c.firstCell(trimmed)
		case strings.HasPrefix(trimmed, "- at: "):
			body = body[:indent] + "- at: " + c.link(strings.TrimPrefix(trimmed, "- at: "))
		}

		b.WriteString(body)
		b.WriteString(line[len(strings.TrimSuffix(line, "\n")):])
	}
	return b.String()
}

// section styles the key of a top-level line.
func (c *Colorizer) section(line string) string {
	if !c.color {
		return line
	}
	end := strings.IndexAny(line, "[:")
	if end < 0 {
		return line
	}
	style, ok := c.styles[line[:end]]
	if !ok {
		return line
	}
	return style.Render(line[:end]) + line[end:]
}

// atHeader reports whether line opens a tabular block whose first field is
// a location.
func atHeader(line string) bool {
	_, fields, ok := strings.Cut(line, "{")
	return ok && strings.HasSuffix(line, "}:") &&
		(strings.HasPrefix(fields, "at,") || strings.HasPrefix(fields, "at}"))
}

func (c *Colorizer) firstCell(row string) string {
	if strings.HasPrefix(row, `"`) {
		return row
	}
	cell, rest, found := strings.Cut(row, ",")
	if !found {
		return c.link(cell)
	}
	return c.link(cell) + "," + rest
}

// link wraps a location of a Go file in a hyperlink to the file.
func (c *Colorizer) link(at string) string {
	if c.root == "" {
		return at
	}
	file, _, _ := strings.Cut(at, ":")
	if !strings.HasSuffix(file, ".go") {
		return at
	}
	target := file
	if !filepath.IsAbs(target) {
		target = filepath.Join(c.root, filepath.FromSlash(file))
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(target)}
	return c.term.Hyperlink(u.String(), at)
}
