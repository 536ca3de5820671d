package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
	yaml "gopkg.in/yaml.v3"
)

// sourcesArchive is the optional txtar archive holding the fixture sources.
// When present, its files are extracted into a temporary directory and the
// test case runs against that instead of the case directory itself.
const sourcesArchive = "sources.txtar"

// LoadTestCase reads dir/expected.yaml and prepares the fixture sources.
func LoadTestCase(t *testing.T, dir string) *TestCase {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, "expected.yaml"))
	require.NoError(t, err)

	tc := &TestCase{}
	require.NoError(t, yaml.Unmarshal(data, tc))

	tc.Dir = dir
	if archive := filepath.Join(dir, sourcesArchive); exists(archive) {
		tc.Dir = extractArchive(t, archive)
	}
	return tc
}

// Discover returns the directories under root that contain an
// expected.yaml, each a runnable test case.
func Discover(t *testing.T, root string) []string {
	t.Helper()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if exists(filepath.Join(dir, "expected.yaml")) {
			dirs = append(dirs, dir)
		}
	}
	require.NotEmpty(t, dirs, "no test cases under %s", root)
	return dirs
}

// extractArchive unpacks a txtar archive into a fresh temporary directory.
func extractArchive(t *testing.T, path string) string {
	t.Helper()

	archive, err := txtar.ParseFile(path)
	require.NoError(t, err)

	dir := t.TempDir()
	for _, f := range archive.Files {
		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, f.Data, 0o644))
	}
	return dir
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
