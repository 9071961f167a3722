// Package gomod locates the Go module that tests and coverage profiles
// refer to, so that import paths can be mapped back to files on disk.
package gomod

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ErrNoModule is returned when no go.mod is found.
var ErrNoModule = errors.New("go.mod not found")

// Module is a module root directory and its module path.
type Module struct {
	Root string
	Path string
}

// Find walks up from dir until it finds a go.mod file.
func Find(dir string) (Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Module{}, err
	}
	for d := abs; ; d = filepath.Dir(d) {
		data, err := os.ReadFile(filepath.Join(d, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return Module{}, fmt.Errorf("%s: missing module directive", filepath.Join(d, "go.mod"))
			}
			return Module{Root: d, Path: modPath}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Module{}, err
		}
		if filepath.Dir(d) == d {
			return Module{}, fmt.Errorf("%w in %s or any parent", ErrNoModule, abs)
		}
	}
}

// Rel converts an import path (or a file inside one) into a slash-separated
// path relative to the module root. ok is false when importPath lies outside
// the module.
func (m Module) Rel(importPath string) (string, bool) {
	if m.Path == "" {
		return "", false
	}
	if importPath == m.Path {
		return ".", true
	}
	rest, found := strings.CutPrefix(importPath, m.Path+"/")
	if !found {
		return "", false
	}
	return path.Clean(rest), true
}

// Dir returns the directory on disk for an import path inside the module.
func (m Module) Dir(importPath string) (string, bool) {
	rel, ok := m.Rel(importPath)
	if !ok {
		return "", false
	}
	return filepath.Join(m.Root, filepath.FromSlash(rel)), true
}
