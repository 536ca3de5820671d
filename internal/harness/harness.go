// Package harness provides testing utilities for validating the analyzer
// against directories of C/C++ fixtures with declared expectations.
package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdeps/ccdeps/pkg/ccdeps"
	"github.com/ccdeps/ccdeps/pkg/groups"
	"github.com/ccdeps/ccdeps/pkg/parser"
	"github.com/ccdeps/ccdeps/pkg/platform"
)

// TestCase represents a single test scenario, loaded from expected.yaml.
type TestCase struct {
	// Dir is the directory containing the fixture sources.
	Dir string `yaml:"-"`

	// Platforms restricts evaluation to the listed os/arch pairs. Empty
	// means every known platform.
	Platforms []string `yaml:"platforms"`

	// Defines are extra macro definitions, NAME or NAME=value.
	Defines []string `yaml:"defines"`

	// GroupMode overrides the grouping mode ("unit" or "directory").
	GroupMode string `yaml:"group_mode,omitempty"`

	// CycleHandling overrides the cycle handling ("merge" or "warn").
	CycleHandling string `yaml:"cycle_handling,omitempty"`

	// Files lists the per-file expectations. Files without an entry are
	// still analyzed but not checked.
	Files []ExpectedFile `yaml:"files"`

	// Groups, when non-nil, is compared exhaustively against the groups
	// the analyzer produced.
	Groups map[string]ExpectedGroup `yaml:"groups,omitempty"`
}

// ExpectedFile declares the expected analysis outcome for one source file.
type ExpectedFile struct {
	// Path is the root-relative path of the file.
	Path string `yaml:"path"`

	// Executable is set for files expected to define main().
	Executable bool `yaml:"executable,omitempty"`

	// Suppressed is set for files expected to carry a ccdeps:ignore-file
	// directive. Suppressed files report no includes.
	Suppressed bool `yaml:"suppressed,omitempty"`

	// Includes is compared exhaustively, in order of appearance.
	Includes []ExpectedInclude `yaml:"includes"`

	// Errors lists #error directives expected to be reported.
	Errors []ExpectedError `yaml:"errors,omitempty"`
}

// ExpectedInclude declares the expected platform assignment of one include.
//
// Platform expectations come in three shapes: an omitted platforms list
// means the include is generic, a non-empty list means exactly those
// platforms, and none: true means no enabled platform matches.
type ExpectedInclude struct {
	Path       string   `yaml:"path"`
	System     bool     `yaml:"system,omitempty"`
	Suppressed bool     `yaml:"suppressed,omitempty"`
	Platforms  []string `yaml:"platforms,omitempty"`
	None       bool     `yaml:"none,omitempty"`
}

// ExpectedError declares an expected #error directive report.
type ExpectedError struct {
	Message   string   `yaml:"message"`
	Platforms []string `yaml:"platforms,omitempty"`
	None      bool     `yaml:"none,omitempty"`
}

// ExpectedGroup declares an expected translation-unit group.
type ExpectedGroup struct {
	Sources   []string `yaml:"sources"`
	SubGroups []string `yaml:"sub_groups,omitempty"`
	Deps      []string `yaml:"deps,omitempty"`
}

// Run analyzes the fixture directory of tc and checks every expectation.
func Run(t *testing.T, tc *TestCase) {
	t.Helper()

	report := analyze(t, tc)

	actual := make(map[string]ccdeps.FileReport, len(report.Files))
	for _, f := range report.Files {
		actual[f.Path] = f
	}

	for _, want := range tc.Files {
		got, ok := actual[want.Path]
		if !assert.True(t, ok, "file %s missing from report", want.Path) {
			continue
		}
		checkFile(t, want, got)
	}

	if tc.Groups != nil {
		checkGroups(t, tc.Groups, report.Groups)
	}
}

func analyze(t *testing.T, tc *TestCase) *ccdeps.Report {
	t.Helper()

	platforms, err := platform.ParseAll(tc.Platforms)
	require.NoError(t, err, "platforms in expected.yaml")
	defines, err := parser.ParseMacros(tc.Defines)
	require.NoError(t, err, "defines in expected.yaml")

	files, err := ccdeps.LoadSources(ccdeps.LoaderOptions{Root: tc.Dir})
	require.NoError(t, err)
	require.NotEmpty(t, files, "no sources in %s", tc.Dir)

	analyzer := ccdeps.NewAnalyzer(ccdeps.AnalyzerOptions{
		Platforms: platforms,
		Defines:   defines,
		GroupMode: groups.Mode(tc.GroupMode),
		Cycles:    groups.CycleHandling(tc.CycleHandling),
	})
	report, err := analyzer.Analyze(context.Background(), files)
	require.NoError(t, err)
	return report
}

func checkFile(t *testing.T, want ExpectedFile, got ccdeps.FileReport) {
	t.Helper()

	assert.Equal(t, want.Executable, got.Executable, "%s: executable", want.Path)
	assert.Equal(t, want.Suppressed, got.Suppressed, "%s: suppressed", want.Path)
	if want.Suppressed {
		return
	}

	if !assert.Len(t, got.Includes, len(want.Includes), "%s: include count", want.Path) {
		return
	}
	for i, wi := range want.Includes {
		gi := got.Includes[i]
		assert.Equal(t, wi.Path, gi.Path, "%s: include %d path", want.Path, i)
		assert.Equal(t, wi.System, gi.System, "%s: include %q system", want.Path, wi.Path)
		assert.Equal(t, wi.Suppressed, gi.Suppressed, "%s: include %q suppressed", want.Path, wi.Path)
		checkPlatforms(t, wi.Platforms, wi.None, gi.Platforms,
			fmt.Sprintf("%s: include %q", want.Path, wi.Path))
	}

	if !assert.Len(t, got.Errors, len(want.Errors), "%s: error directive count", want.Path) {
		return
	}
	for i, we := range want.Errors {
		ge := got.Errors[i]
		assert.Equal(t, we.Message, ge.Message, "%s: error %d message", want.Path, i)
		checkPlatforms(t, we.Platforms, we.None, ge.Platforms,
			fmt.Sprintf("%s: error %q", want.Path, we.Message))
	}
}

// checkPlatforms compares a platform expectation against an actual
// assignment, preserving the generic/none distinction.
func checkPlatforms(t *testing.T, want []string, none bool, got []string, context string) {
	t.Helper()

	switch {
	case none:
		assert.NotNil(t, got, "%s: expected empty platform list, got generic", context)
		assert.Empty(t, got, "%s: expected no matching platform", context)
	case len(want) == 0:
		assert.Nil(t, got, "%s: expected generic include", context)
	default:
		sorted := append([]string(nil), want...)
		sort.Strings(sorted)
		assert.Equal(t, sorted, got, "%s: platforms", context)
	}
}

func checkGroups(t *testing.T, want map[string]ExpectedGroup, got map[string]*ccdeps.GroupReport) {
	t.Helper()

	var wantNames, gotNames []string
	for name := range want {
		wantNames = append(wantNames, name)
	}
	for name := range got {
		gotNames = append(gotNames, name)
	}
	sort.Strings(wantNames)
	sort.Strings(gotNames)
	if !assert.Equal(t, wantNames, gotNames, "group names") {
		return
	}

	for _, name := range wantNames {
		wg, gg := want[name], got[name]
		assert.Equal(t, wg.Sources, gg.Sources, "group %s: sources", name)
		assert.Equal(t, wg.SubGroups, gg.SubGroups, "group %s: sub groups", name)

		deps := gg.Deps.Strings()
		wantDeps := append([]string(nil), wg.Deps...)
		sort.Strings(wantDeps)
		if len(wantDeps) == 0 {
			assert.Empty(t, deps, "group %s: deps", name)
		} else {
			assert.Equal(t, wantDeps, deps, "group %s: deps", name)
		}
	}
}

// Describe renders a short human-readable summary of a test case, used in
// skip and failure messages.
func Describe(tc *TestCase) string {
	var parts []string
	if len(tc.Platforms) > 0 {
		parts = append(parts, "platforms "+strings.Join(tc.Platforms, ","))
	}
	if len(tc.Defines) > 0 {
		parts = append(parts, "defines "+strings.Join(tc.Defines, ","))
	}
	if len(parts) == 0 {
		return "defaults"
	}
	return strings.Join(parts, "; ")
}
