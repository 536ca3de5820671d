package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountFindings(t *testing.T) {
	root := t.TempDir()
	source := "#if defined _WIN32\n" +
		"#include <windows.h>\n" +
		"#else\n" +
		"#error \"Unsupported platform\"\n" +
		"#endif\n" +
		"#include \"missing.h\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "plat.h"), []byte(source), 0o644))

	report, failOnUnresolved, err := runAnalysis(context.Background(), &Config{Root: root})
	require.NoError(t, err)
	require.False(t, failOnUnresolved)

	// Both problems are visible in the report.
	require.Len(t, report.Files, 1)
	assert.NotEmpty(t, report.Files[0].Errors)
	assert.Equal(t, 1, report.Stats.UnresolvedIncludes)

	// A reachable #error directive alone never fails the run; unresolved
	// includes only do so under --fail-on-unresolved.
	assert.Equal(t, 0, countFindings(report, false))
	assert.Equal(t, 1, countFindings(report, true))
}

func TestCountFindingsCleanTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.h"), []byte("#include <vector>\n"), 0o644))

	report, _, err := runAnalysis(context.Background(), &Config{Root: root})
	require.NoError(t, err)

	assert.Equal(t, 0, countFindings(report, true))
}
