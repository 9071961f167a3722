package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "passing: 3\n" +
	"failing[2]{at,expected,got}:\n" +
	"  calc/math_test.go:16:0,\"4\",\"5\"\n" +
	"  example.com/calc,\"1\",\"2\"\n" +
	"todo[1]:\n" +
	"  - at: calc/later_test.go:3:0\n" +
	"    name: TestLater\n" +
	"coverage:\n" +
	"  \"total%\":\n" +
	"    lines: 100\n"

func TestColorizerDisabled(t *testing.T) {
	c := NewColorizer(ColorOptions{})
	assert.False(t, c.Enabled())
	assert.Equal(t, sample, c.Colorize(sample))

	// links need an absolute root
	c = NewColorizer(ColorOptions{Hyperlinks: true, Root: "relative/dir"})
	assert.False(t, c.Enabled())
	assert.Equal(t, sample, c.Colorize(sample))
}

func TestColorizerColor(t *testing.T) {
	c := NewColorizer(ColorOptions{Color: true})
	got := c.Colorize(sample)

	assert.NotEqual(t, sample, got)
	assert.Equal(t, sample, ansi.Strip(got))
	assert.Contains(t, got, "\x1b[")
	assert.NotContains(t, got, "file://")
}

func TestColorizerHyperlinks(t *testing.T) {
	c := NewColorizer(ColorOptions{Hyperlinks: true, Root: "/src"})
	require.True(t, c.Enabled())
	got := c.Colorize(sample)

	assert.Equal(t, sample, ansi.Strip(got))
	assert.Contains(t, got, "file:///src/calc/math_test.go")
	assert.Contains(t, got, "file:///src/calc/later_test.go")

	// package paths are not files
	assert.NotContains(t, got, "file:///src/example.com")
	// without color the section names stay plain
	assert.Contains(t, got, "passing: 3\n")
}

func TestColorizerSkipsNestedBlocks(t *testing.T) {
	report := "failing[1]:\n" +
		"  - at: a_test.go:3:0\n" +
		"    parameters[2]{expected,got}:\n" +
		"      x.go,y\n" +
		"      z,w\n"
	c := NewColorizer(ColorOptions{Hyperlinks: true, Root: "/src"})
	got := c.Colorize(report)

	assert.Contains(t, got, "file:///src/a_test.go")
	assert.NotContains(t, got, "file:///src/x.go")
	assert.Equal(t, report, ansi.Strip(got))
}

func TestSinkStdout(t *testing.T) {
	var buf bytes.Buffer
	s := Sink{Stdout: &buf}
	assert.False(t, s.IsFile())
	assert.Equal(t, "stdout", s.String())
	require.NoError(t, s.Write("passing: 1\n"))
	assert.Equal(t, "passing: 1\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestSinkStdoutError(t *testing.T) {
	err := Sink{Stdout: failingWriter{}}.Write("passing: 1\n")
	assert.ErrorContains(t, err, "closed pipe")
}

func TestSinkFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "out.toon")
	s := Sink{Path: path}
	assert.True(t, s.IsFile())
	assert.Equal(t, path, s.String())

	require.NoError(t, s.Write("passing: 2\n"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "passing: 2\n", string(data))

	// rewriting truncates
	require.NoError(t, s.Write("error: run interrupted\n"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error: run interrupted\n", string(data))
}

func TestSinkFileError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// a regular file where a directory is needed
	err := Sink{Path: filepath.Join(blocker, "out.toon")}.Write("passing: 0\n")
	assert.Error(t, err)
}
