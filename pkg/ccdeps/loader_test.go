package ccdeps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		target := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	}
	return root
}

func relPaths(files []SourceFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Rel)
	}
	return out
}

func TestLoadSources(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.cc":        "",
		"lib/util.h":     "",
		"lib/util.cpp":   "",
		"docs/notes.md":  "",
		"build/make.txt": "",
	})

	files, err := LoadSources(LoaderOptions{Root: root})
	require.NoError(t, err)

	assert.Equal(t, []string{"lib/util.cpp", "lib/util.h", "main.cc"}, relPaths(files))
	for _, f := range files {
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(f.Rel)), f.Path)
	}
}

func TestLoadSourcesInclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.cc":      "",
		"lib/util.h":   "",
		"lib/util.cpp": "",
	})

	files, err := LoadSources(LoaderOptions{
		Root:    root,
		Include: []string{"lib/**/*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/util.cpp", "lib/util.h"}, relPaths(files))
}

func TestLoadSourcesExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.cc":            "",
		"third_party/blob.h": "",
		"lib/gen/version.h":  "",
		"lib/util.h":         "",
	})

	files, err := LoadSources(LoaderOptions{
		Root:    root,
		Exclude: []string{"third_party/**", "**/gen/*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"lib/util.h", "main.cc"}, relPaths(files))
}

func TestLoadSourcesBadPattern(t *testing.T) {
	root := writeTree(t, map[string]string{"a.h": ""})

	_, err := LoadSources(LoaderOptions{Root: root, Exclude: []string{"[invalid"}})
	assert.Error(t, err)
}
