// Package output delivers an encoded report to stdout or to a file.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Sink is the destination of the report. An empty Path means Stdout.
type Sink struct {
	Path   string
	Stdout io.Writer
}

// IsFile reports whether the report goes to a file. Files are never
// colorized.
func (s Sink) IsFile() bool {
	return s.Path != ""
}

// String names the destination for diagnostics.
func (s Sink) String() string {
	if s.IsFile() {
		return s.Path
	}
	return "stdout"
}

// Write delivers the whole report. For a file, missing parent directories
// are created.
func (s Sink) Write(report string) error {
	if !s.IsFile() {
		if _, err := io.WriteString(s.Stdout, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if _, err := io.WriteString(f, report); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", s.Path, err)
	}
	return nil
}
