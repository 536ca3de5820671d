package ccdeps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccdeps/ccdeps/pkg/groups"
	"github.com/ccdeps/ccdeps/pkg/platform"
)

var testPlatforms = []platform.Platform{
	{OS: platform.Linux, Arch: platform.X86_64},
	{OS: platform.OSX, Arch: platform.AArch64},
	{OS: platform.Windows, Arch: platform.X86_64},
}

func analyzeTree(t *testing.T, files map[string]string, opts AnalyzerOptions) *Report {
	t.Helper()
	root := writeTree(t, files)

	sources, err := LoadSources(LoaderOptions{Root: root})
	require.NoError(t, err)

	report, err := NewAnalyzer(opts).Analyze(context.Background(), sources)
	require.NoError(t, err)
	return report
}

func fileReport(t *testing.T, report *Report, path string) FileReport {
	t.Helper()
	for _, f := range report.Files {
		if f.Path == path {
			return f
		}
	}
	t.Fatalf("no report for %s", path)
	return FileReport{}
}

func TestAnalyzeResolvesIncludes(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"app/main.cc": "#include \"lib/util.h\"\n#include <vector>\nint main() { return 0; }\n",
		"lib/util.h":  "#include \"lib/missing.h\"\n",
	}, AnalyzerOptions{Platforms: testPlatforms})

	main := fileReport(t, report, "app/main.cc")
	assert.True(t, main.Executable)
	require.Len(t, main.Includes, 2)
	assert.Equal(t, "lib/util.h", main.Includes[0].Resolved)
	assert.True(t, main.Includes[1].System)
	assert.Empty(t, main.Includes[1].Resolved)

	util := fileReport(t, report, "lib/util.h")
	assert.False(t, util.Executable)
	require.Len(t, util.Includes, 1)
	assert.Empty(t, util.Includes[0].Resolved)

	assert.Equal(t, 2, report.Stats.Files)
	assert.Equal(t, 3, report.Stats.Includes)
	assert.Equal(t, 1, report.Stats.UnresolvedIncludes)
}

func TestAnalyzeConditionalInclude(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"net.h": "#ifdef _WIN32\n#include <winsock2.h>\n#else\n#include <sys/socket.h>\n#endif\n",
	}, AnalyzerOptions{Platforms: testPlatforms})

	net := fileReport(t, report, "net.h")
	require.Len(t, net.Includes, 2)

	assert.Equal(t, "winsock2.h", net.Includes[0].Path)
	assert.Equal(t, []string{"windows/x86_64"}, net.Includes[0].Platforms)
	assert.Equal(t, "defined(_WIN32)", net.Includes[0].Condition)

	assert.Equal(t, "sys/socket.h", net.Includes[1].Path)
	assert.Equal(t, []string{"linux/x86_64", "osx/aarch64"}, net.Includes[1].Platforms)

	assert.Equal(t, 2, report.Stats.ConditionalIncludes)
}

func TestAnalyzeDefines(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"feature.h": "#if FEATURE_LEVEL >= 2\n#include <advanced.h>\n#endif\n",
	}, AnalyzerOptions{
		Platforms: testPlatforms,
		Defines:   platform.Macros{"FEATURE_LEVEL": 3},
	})

	feature := fileReport(t, report, "feature.h")
	require.Len(t, feature.Includes, 1)
	// The define applies to every enabled platform.
	assert.Equal(t, []string{"linux/x86_64", "osx/aarch64", "windows/x86_64"},
		feature.Includes[0].Platforms)
}

func TestAnalyzeGroupDeps(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"app.cc":  "#include \"util.h\"\n#ifdef _WIN32\n#include \"winio.h\"\n#endif\nint main() { return 0; }\n",
		"util.h":  "",
		"winio.h": "",
	}, AnalyzerOptions{Platforms: testPlatforms})

	require.Contains(t, report.Groups, "app")
	deps := report.Groups["app"].Deps
	assert.Equal(t, []string{"util"}, deps.Generic)
	assert.Equal(t, map[string][]string{"windows/x86_64": {"winio"}}, deps.Constrained)
}

func TestAnalyzeDirectoryMode(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"app/main.cc": "#include \"lib/util.h\"\nint main() { return 0; }\n",
		"lib/util.h":  "",
		"lib/util.cc": "#include \"lib/util.h\"\n",
	}, AnalyzerOptions{Platforms: testPlatforms, GroupMode: groups.ModeDirectory})

	require.Contains(t, report.Groups, "app")
	require.Contains(t, report.Groups, "lib")
	assert.Equal(t, []string{"lib/util.cc", "lib/util.h"}, report.Groups["lib"].Sources)
	assert.Equal(t, []string{"lib"}, report.Groups["app"].Deps.Generic)
}

func TestAnalyzeSuppressions(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"gen.cc": "// ccdeps:ignore-file generated\n#include \"private.h\"\n",
		"app.cc": "#include \"vendored.h\" // ccdeps:ignore\nint main() { return 0; }\n",
	}, AnalyzerOptions{Platforms: testPlatforms})

	gen := fileReport(t, report, "gen.cc")
	assert.True(t, gen.Suppressed)
	assert.Empty(t, gen.Includes)

	app := fileReport(t, report, "app.cc")
	require.Len(t, app.Includes, 1)
	assert.True(t, app.Includes[0].Suppressed)

	assert.Equal(t, 1, report.Stats.SuppressedFiles)
	// Suppressed includes are not counted as unresolved.
	assert.Equal(t, 0, report.Stats.UnresolvedIncludes)
	// Suppressed files do not join any group.
	assert.NotContains(t, report.Groups, "gen")
}

func TestAnalyzeLinkLibraries(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"sock.cc": "#include <winsock2.h>\n#pragma comment(lib, \"ws2_32.lib\")\n",
	}, AnalyzerOptions{Platforms: testPlatforms})

	sock := fileReport(t, report, "sock.cc")
	assert.Equal(t, []string{"ws2_32.lib"}, sock.LinkLibraries)
}

func TestAnalyzeErrorDirectives(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"plat.h": "#if defined _WIN32\n#include <windows.h>\n#elif defined(__APPLE__)\n#include <unistd.h>\n#else\n#error \"Unsupported platform\"\n#endif\n",
	}, AnalyzerOptions{Platforms: testPlatforms})

	plat := fileReport(t, report, "plat.h")
	require.Len(t, plat.Errors, 1)
	assert.Equal(t, "Unsupported platform", plat.Errors[0].Message)
	assert.Equal(t, []string{"linux/x86_64"}, plat.Errors[0].Platforms)
}

func TestAnalyzeIncludePrefix(t *testing.T) {
	report := analyzeTree(t, map[string]string{
		"mylib/include/api.h": "",
		"mylib/impl.cc":       "#include \"api.h\"\n",
	}, AnalyzerOptions{
		Platforms:          testPlatforms,
		StripIncludePrefix: "/mylib/include",
	})

	impl := fileReport(t, report, "mylib/impl.cc")
	require.Len(t, impl.Includes, 1)
	assert.Equal(t, "mylib/include/api.h", impl.Includes[0].Resolved)
	assert.Equal(t, 0, report.Stats.UnresolvedIncludes)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	_, err := NewAnalyzer(AnalyzerOptions{}).Analyze(context.Background(), nil)
	assert.Error(t, err)
}

func TestAnalyzeCacheReuse(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.h": "#include <vector>\n",
	})
	sources, err := LoadSources(LoaderOptions{Root: root})
	require.NoError(t, err)

	analyzer := NewAnalyzer(AnalyzerOptions{Platforms: testPlatforms})
	first, err := analyzer.Analyze(context.Background(), sources)
	require.NoError(t, err)
	second, err := analyzer.Analyze(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, first.Files, second.Files)
}
