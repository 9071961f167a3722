package results

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ansel1/llmtest/gomod"
	"github.com/ansel1/llmtest/report"
)

// Locator finds where test functions are declared by parsing the _test.go
// files of a package. Results are cached per package.
type Locator struct {
	module gomod.Module

	mu    sync.Mutex
	cache map[string]map[string]report.Location
}

// NewLocator returns a Locator for packages inside m.
func NewLocator(m gomod.Module) *Locator {
	return &Locator{
		module: m,
		cache:  make(map[string]map[string]report.Location),
	}
}

// Find returns the declaration of the top-level function of test in the
// package importPath. Subtests resolve to their top-level test.
func (l *Locator) Find(importPath, test string) (report.Location, bool) {
	if l == nil {
		return report.Location{}, false
	}
	top, _, _ := strings.Cut(test, "/")

	l.mu.Lock()
	defer l.mu.Unlock()

	decls, ok := l.cache[importPath]
	if !ok {
		decls = l.scan(importPath)
		l.cache[importPath] = decls
	}
	loc, ok := decls[top]
	return loc, ok
}

func (l *Locator) scan(importPath string) map[string]report.Location {
	decls := make(map[string]report.Location)
	dir, ok := l.module.Dir(importPath)
	if !ok {
		return decls
	}
	rel, _ := l.module.Rel(importPath)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return decls
	}
	fset := token.NewFileSet()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.SkipObjectResolution)
		if err != nil {
			// unparseable files are skipped
			continue
		}
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil || !isTestFunc(fn.Name.Name) {
				continue
			}
			pos := fset.Position(fn.Pos())
			decls[fn.Name.Name] = report.Location{
				Path:   path.Join(rel, e.Name()),
				Line:   pos.Line,
				Column: pos.Column,
			}
		}
	}
	return decls
}

func isTestFunc(name string) bool {
	for _, prefix := range []string{"Test", "Example", "Fuzz", "Benchmark"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
