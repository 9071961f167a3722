// Package coverage summarizes a Go coverage profile.
package coverage

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"math"
	"path/filepath"
	"slices"

	"golang.org/x/tools/cover"

	"github.com/ansel1/llmtest/gomod"
	"github.com/ansel1/llmtest/report"
)

// Options controls how profile paths are resolved and what is reported.
type Options struct {
	// Module maps import paths in the profile to module-relative paths and
	// to source files. Paths outside the module are reported as written.
	Module gomod.Module

	// Verbose reports every file with its percentages instead of only the
	// files with uncovered lines.
	Verbose bool
}

// Load reads the coverage profile at path.
func Load(path string, opts Options) (*report.Coverage, error) {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, fmt.Errorf("parsing coverage profile: %w", err)
	}
	return summarize(profiles, opts), nil
}

// Parse reads a coverage profile from r.
func Parse(r io.Reader, opts Options) (*report.Coverage, error) {
	profiles, err := cover.ParseProfilesFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing coverage profile: %w", err)
	}
	return summarize(profiles, opts), nil
}

// counts holds covered/total pairs for one file or for the whole profile.
type counts struct {
	lines, coveredLines   int
	stmts, coveredStmts   int
	blocks, coveredBlocks int
	funcs, coveredFuncs   int
}

func (c *counts) add(o counts) {
	c.lines += o.lines
	c.coveredLines += o.coveredLines
	c.stmts += o.stmts
	c.coveredStmts += o.coveredStmts
	c.blocks += o.blocks
	c.coveredBlocks += o.coveredBlocks
	c.funcs += o.funcs
	c.coveredFuncs += o.coveredFuncs
}

func (c counts) totals() report.CoverageTotals {
	return report.CoverageTotals{
		Lines:  percent(c.coveredLines, c.lines),
		Stmts:  percent(c.coveredStmts, c.stmts),
		Branch: percent(c.coveredBlocks, c.blocks),
		Funcs:  percent(c.coveredFuncs, c.funcs),
	}
}

func summarize(profiles []*cover.Profile, opts Options) *report.Coverage {
	out := &report.Coverage{Verbose: opts.Verbose}
	var total counts
	for _, p := range profiles {
		file := p.FileName
		if rel, ok := opts.Module.Rel(p.FileName); ok {
			file = rel
		}

		c, uncovered := fileCounts(p)
		fc, fcovered, ok := funcCounts(p, sourcePath(opts.Module, p.FileName))
		if ok {
			c.funcs, c.coveredFuncs = fc, fcovered
		} else {
			// no source to find function boundaries in; blocks stand in
			c.funcs, c.coveredFuncs = c.blocks, c.coveredBlocks
		}
		total.add(c)

		out.Files = append(out.Files, report.CoverageFile{
			File:      file,
			Uncovered: uncovered,
			Pct:       c.totals(),
		})
	}
	out.Totals = total.totals()
	return out
}

// fileCounts tallies one file's blocks. A line is covered when any block
// spanning it ran; it is uncovered when it only belongs to blocks that
// never ran.
func fileCounts(p *cover.Profile) (counts, []int) {
	var c counts
	covered := make(map[int]bool)
	touched := make(map[int]bool)
	for _, b := range p.Blocks {
		if b.NumStmt == 0 {
			continue
		}
		c.blocks++
		c.stmts += b.NumStmt
		if b.Count > 0 {
			c.coveredBlocks++
			c.coveredStmts += b.NumStmt
		}
		for line := b.StartLine; line <= b.EndLine; line++ {
			touched[line] = true
			if b.Count > 0 {
				covered[line] = true
			}
		}
	}

	var uncovered []int
	for line := range touched {
		if !covered[line] {
			uncovered = append(uncovered, line)
		}
	}
	slices.Sort(uncovered)
	c.lines = len(touched)
	c.coveredLines = len(covered)
	return c, uncovered
}

// funcCounts counts the functions of the source file that contain at least
// one block, and how many of those ran any block.
func funcCounts(p *cover.Profile, src string) (total, covered int, ok bool) {
	if src == "" {
		return 0, 0, false
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, src, nil, 0)
	if err != nil {
		return 0, 0, false
	}

	for _, decl := range f.Decls {
		fn, isFunc := decl.(*ast.FuncDecl)
		if !isFunc || fn.Body == nil {
			continue
		}
		start := fset.Position(fn.Pos())
		end := fset.Position(fn.End())

		var hasBlocks, ran bool
		for _, b := range p.Blocks {
			if !within(b, start, end) {
				continue
			}
			hasBlocks = true
			if b.Count > 0 {
				ran = true
				break
			}
		}
		if hasBlocks {
			total++
			if ran {
				covered++
			}
		}
	}
	return total, covered, true
}

func within(b cover.ProfileBlock, start, end token.Position) bool {
	if b.StartLine < start.Line || (b.StartLine == start.Line && b.StartCol < start.Column) {
		return false
	}
	if b.EndLine > end.Line || (b.EndLine == end.Line && b.EndCol > end.Column) {
		return false
	}
	return true
}

func sourcePath(m gomod.Module, name string) string {
	if dir, ok := m.Dir(name); ok {
		return dir
	}
	if filepath.IsAbs(name) {
		return name
	}
	return ""
}

// percent returns covered/total as a percentage rounded to two decimals.
// Nothing to cover counts as fully covered.
func percent(covered, total int) float64 {
	if total == 0 {
		return 100
	}
	return math.Round(float64(covered)*10000/float64(total)) / 100
}
