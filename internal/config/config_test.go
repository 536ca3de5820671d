package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "unit", cfg.GroupMode)
	assert.Equal(t, "merge", cfg.CycleHandling)
	assert.Empty(t, cfg.Platforms)
	assert.False(t, cfg.FailOnUnresolved)
}

func TestLoadFromFile(t *testing.T) {
	root := writeConfig(t, ".ccdeps.yaml", `
platforms:
  - linux/x86_64
  - windows/x86_64
macros:
  - PTR_SIZE=64
group_mode: directory
exclude:
  - third_party/**
strip_include_prefix: include
fail_on_unresolved: true
`)

	cfg, err := Load(root, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"linux/x86_64", "windows/x86_64"}, cfg.Platforms)
	assert.Equal(t, []string{"PTR_SIZE=64"}, cfg.Macros)
	assert.Equal(t, "directory", cfg.GroupMode)
	assert.Equal(t, "merge", cfg.CycleHandling)
	assert.Equal(t, []string{"third_party/**"}, cfg.Exclude)
	assert.Equal(t, "include", cfg.StripIncludePrefix)
	assert.True(t, cfg.FailOnUnresolved)
}

func TestLoadExplicitPath(t *testing.T) {
	root := writeConfig(t, "custom.yaml", "group_mode: directory\n")

	cfg, err := Load("", filepath.Join(root, "custom.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "directory", cfg.GroupMode)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfig(t *testing.T) {
	root := writeConfig(t, ".ccdeps.yaml", "group_mode: nonsense\n")

	_, err := Load(root, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group_mode")
}

func TestLoadUnknownKeyRejected(t *testing.T) {
	root := writeConfig(t, ".ccdeps.yaml", "group_modes: unit\n")

	_, err := Load(root, "")
	assert.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CCDEPS_GROUP_MODE", "directory")

	cfg, err := Load(t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "directory", cfg.GroupMode)
}
