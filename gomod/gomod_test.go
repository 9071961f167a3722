package gomod

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModule(t *testing.T, modPath string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module "+modPath+"\n\ngo 1.22\n"), 0o644))
	return root
}

func TestFindWalksUp(t *testing.T) {
	root := writeModule(t, "github.com/acme/widgets")
	sub := filepath.Join(root, "pkg", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	m, err := Find(sub)
	require.NoError(t, err)
	assert.Equal(t, "github.com/acme/widgets", m.Path)

	want, _ := filepath.EvalSymlinks(root)
	got, _ := filepath.EvalSymlinks(m.Root)
	assert.Equal(t, want, got)
}

func TestFindMissingModuleDirective(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("go 1.22\n"), 0o644))

	_, err := Find(root)
	assert.ErrorContains(t, err, "missing module directive")
}

func TestRel(t *testing.T) {
	m := Module{Root: "/src/widgets", Path: "github.com/acme/widgets"}

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"github.com/acme/widgets", ".", true},
		{"github.com/acme/widgets/pkg/a.go", "pkg/a.go", true},
		{"github.com/acme/widgets/internal/x", "internal/x", true},
		{"github.com/acme/widgetsextra/a.go", "", false},
		{"golang.org/x/tools/cover", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := m.Rel(tc.in)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDir(t *testing.T) {
	m := Module{Root: filepath.FromSlash("/src/widgets"), Path: "github.com/acme/widgets"}

	dir, ok := m.Dir("github.com/acme/widgets/pkg")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(m.Root, "pkg"), dir)

	_, ok = (Module{}).Dir("github.com/acme/widgets/pkg")
	assert.False(t, ok)
}
