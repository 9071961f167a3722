package coverage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansel1/llmtest/gomod"
	"github.com/ansel1/llmtest/report"
)

const calcSource = `package calc

func Add(a, b int) int {
	return a + b
}

func Sub(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
`

const profile = `mode: set
example.com/calc/calc.go:3.24,5.2 1 1
example.com/calc/calc.go:7.24,8.11 1 0
example.com/calc/calc.go:8.11,10.3 1 0
example.com/calc/calc.go:11.2,11.14 1 0
example.com/calc/gone.go:1.1,2.2 1 1
example.com/calc/gone.go:4.1,4.5 2 0
`

func calcModule(t *testing.T) gomod.Module {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/calc\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "calc.go"), []byte(calcSource), 0o644))
	m, err := gomod.Find(root)
	require.NoError(t, err)
	return m
}

func TestParse(t *testing.T) {
	cov, err := Parse(strings.NewReader(profile), Options{Module: calcModule(t)})
	require.NoError(t, err)

	assert.False(t, cov.Verbose)
	assert.Equal(t, report.CoverageTotals{Lines: 45.45, Stmts: 28.57, Branch: 33.33, Funcs: 50}, cov.Totals)

	require.Len(t, cov.Files, 2)

	calc := cov.Files[0]
	assert.Equal(t, "calc.go", calc.File)
	assert.Equal(t, []int{7, 8, 9, 10, 11}, calc.Uncovered)
	assert.Equal(t, report.CoverageTotals{Lines: 37.5, Stmts: 25, Branch: 25, Funcs: 50}, calc.Pct)

	// no source on disk, so block coverage stands in for functions
	gone := cov.Files[1]
	assert.Equal(t, "gone.go", gone.File)
	assert.Equal(t, []int{4}, gone.Uncovered)
	assert.Equal(t, report.CoverageTotals{Lines: 66.67, Stmts: 33.33, Branch: 50, Funcs: 50}, gone.Pct)
}

func TestParseFullyCovered(t *testing.T) {
	in := "mode: count\nexample.com/calc/calc.go:3.24,5.2 1 7\n"
	cov, err := Parse(strings.NewReader(in), Options{Module: calcModule(t), Verbose: true})
	require.NoError(t, err)

	assert.True(t, cov.Verbose)
	require.Len(t, cov.Files, 1)
	assert.Empty(t, cov.Files[0].Uncovered)
	assert.Equal(t, report.CoverageTotals{Lines: 100, Stmts: 100, Branch: 100, Funcs: 100}, cov.Files[0].Pct)
}

func TestParseOutsideModule(t *testing.T) {
	in := "mode: set\ngithub.com/other/lib/x.go:1.1,1.10 1 0\n"
	cov, err := Parse(strings.NewReader(in), Options{Module: calcModule(t)})
	require.NoError(t, err)

	require.Len(t, cov.Files, 1)
	assert.Equal(t, "github.com/other/lib/x.go", cov.Files[0].File)
	assert.Equal(t, []int{1}, cov.Files[0].Uncovered)
	assert.Equal(t, float64(0), cov.Totals.Lines)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(strings.NewReader("not a profile\n"), Options{})
	assert.ErrorContains(t, err, "parsing coverage profile")
}

func TestLoad(t *testing.T) {
	m := calcModule(t)
	path := filepath.Join(t.TempDir(), "cover.out")
	require.NoError(t, os.WriteFile(path, []byte(profile), 0o644))

	cov, err := Load(path, Options{Module: m})
	require.NoError(t, err)
	assert.Len(t, cov.Files, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.out"), Options{Module: m})
	assert.Error(t, err)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, float64(100), percent(0, 0))
	assert.Equal(t, 66.67, percent(2, 3))
	assert.Equal(t, 33.33, percent(1, 3))
	assert.Equal(t, float64(0), percent(0, 5))
}
