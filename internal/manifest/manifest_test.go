package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestBuild_Completeness(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.js", "a")
	write(t, root, "b/b.js", "b")
	write(t, root, "b/c/d.txt", "d")
	write(t, root, "z.md", "z")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	m, err := Build(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, ".", m.Path)
	assert.Equal(t, KindDirectory, m.Kind)

	files := m.Files()
	assert.Equal(t, []string{"a.js", "b/b.js", "b/c/d.txt", "z.md"}, files)

	nFiles, nDirs := m.Count()
	assert.Equal(t, 4, nFiles)
	assert.Equal(t, 4, nDirs) // ".", "b", "b/c", "empty"

	seen := map[string]bool{}
	for _, f := range files {
		assert.False(t, seen[f], "duplicate %s", f)
		seen[f] = true
	}
}

func TestBuild_TreeShape(t *testing.T) {
	root := t.TempDir()
	write(t, root, "b/b.js", "b")
	write(t, root, "a.js", "a")

	m, err := Build(root, Options{})
	require.NoError(t, err)
	require.Len(t, m.Children, 2)
	assert.Equal(t, "a.js", m.Children[0].Path)
	assert.Equal(t, KindFile, m.Children[0].Kind)
	assert.Equal(t, "b", m.Children[1].Path)
	assert.Equal(t, KindDirectory, m.Children[1].Kind)
	require.Len(t, m.Children[1].Children, 1)
	assert.Equal(t, "b/b.js", m.Children[1].Children[0].Path)
}

func TestBuild_Deterministic(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"q/2.go", "q/1.go", "a/x.go", "m.go"} {
		write(t, root, f, "x")
	}
	first, err := Build(root, Options{})
	require.NoError(t, err)
	second, err := Build(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Text(), second.Text())
}

func TestBuild_IgnoreDirs(t *testing.T) {
	root := t.TempDir()
	write(t, root, "src/main.go", "x")
	write(t, root, "node_modules/lib/index.js", "x")
	write(t, root, ".git/HEAD", "x")

	m, err := Build(root, Options{IgnoreDirs: []string{"node_modules", ".git"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, m.Files())
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	root := t.TempDir()
	write(t, root, "file.txt", "x")
	_, err = Build(filepath.Join(root, "file.txt"), Options{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestRendering(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.js", "a")
	write(t, root, "b/b.js", "b")

	m, err := Build(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, "a.js\nb/b.js", m.Text())
	md := m.Markdown()
	assert.True(t, strings.HasPrefix(md, "# Project files\n\n```\n"))
	assert.Contains(t, md, "- a.js\n- b/b.js\n```")
	assert.NotContains(t, md, "- b\n")
}

func TestContains(t *testing.T) {
	root := t.TempDir()
	write(t, root, "b/b.js", "b")

	m, err := Build(root, Options{})
	require.NoError(t, err)
	assert.True(t, m.Contains("b/b.js"))
	assert.True(t, m.Contains("./b/b.js"))
	assert.False(t, m.Contains("b"))
	assert.False(t, m.Contains("c.js"))
}

func TestEmptyRoot(t *testing.T) {
	m, err := Build(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Empty(t, m.Files())
	assert.Equal(t, "", m.Text())
}

func TestCleanPath(t *testing.T) {
	assert.Equal(t, "a.js", CleanPath(" ./a.js "))
	assert.Equal(t, "b/b.js", CleanPath("b//./b.js"))
	assert.Equal(t, ".", CleanPath(""))
}
