// Package main implements the CLI driver for the ccdeps analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccdeps/ccdeps/internal/config"
	"github.com/ccdeps/ccdeps/pkg/ccdeps"
	"github.com/ccdeps/ccdeps/pkg/groups"
	"github.com/ccdeps/ccdeps/pkg/parser"
	"github.com/ccdeps/ccdeps/pkg/platform"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Root             string   // the directory to analyze
	Verbose          bool     // enables detailed output and statistics
	JSON             bool     // enables JSON output format
	ConfigFile       string   // explicit config file path
	Defines          []string // extra macro definitions
	Platforms        []string // platforms to evaluate against
	Exclude          []string // glob patterns excluding sources
	GroupMode        string   // grouping mode
	FailOnUnresolved bool     // non-zero exit on unresolved quoted includes
	Profile          bool     // enables CPU and memory profiling
}

const (
	exitFindings = 1
	exitError    = 2
)

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "ccdeps [directory]",
		Short: "Analyze C/C++ include dependencies across platforms",
		Long: `ccdeps scans a C/C++ source tree, extracts #include directives together
with the preprocessor conditions guarding them, and reports on which
platforms each dependency is active. Sources are grouped into translation
units and the dependency edges between groups are derived from quoted
includes.`,
		Example: `  ccdeps                              # Analyze the current directory
  ccdeps src/                         # Analyze a subtree
  ccdeps -D MYLIB_THREADS src/        # Analyze with an extra macro defined
  ccdeps --platforms linux/x86_64 .   # Restrict evaluation to one platform
  ccdeps --json . > report.json       # JSON output to file`,
		Args:               cobra.MaximumNArgs(1),
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("ccdeps version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	// Define flags.
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Config file (default .ccdeps.yaml in the analyzed directory)")
	rootCmd.PersistentFlags().StringArrayVarP(&cfg.Defines, "define", "D", nil, "Extra macro definition, NAME or NAME=<integer> (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.Platforms, "platforms", nil, "Platforms to evaluate against, as os/arch pairs (default all known)")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.Exclude, "exclude", nil, "Glob patterns excluding sources")
	rootCmd.PersistentFlags().StringVar(&cfg.GroupMode, "group-mode", "", "Grouping mode: unit or directory")
	rootCmd.PersistentFlags().BoolVar(&cfg.FailOnUnresolved, "fail-on-unresolved", false, "Exit non-zero when a quoted include cannot be resolved")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		cfg.Root = args[0]
	} else {
		cfg.Root = "."
	}

	slog.Info("starting include analysis", "root", cfg.Root)

	report, failOnUnresolved, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeReport(report, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format report: %w", err), exitError)
	}

	if countFindings(report, failOnUnresolved) > 0 {
		return errWithCode(nil, exitFindings)
	}
	return nil
}

func runAnalysis(ctx context.Context, cfg *Config) (*ccdeps.Report, bool, error) {
	fileCfg, err := config.Load(cfg.Root, cfg.ConfigFile)
	if err != nil {
		return nil, false, err
	}
	opts, loaderOpts, err := mergeOptions(cfg, fileCfg)
	if err != nil {
		return nil, false, err
	}

	files, err := ccdeps.LoadSources(loaderOpts)
	if err != nil {
		return nil, false, fmt.Errorf("loading sources: %w", err)
	}
	slog.Info("loaded sources", "num", len(files))

	slog.Info("running analysis", "platforms", len(opts.Platforms))
	report, err := ccdeps.NewAnalyzer(opts).Analyze(ctx, files)
	if err != nil {
		return nil, false, err
	}
	slog.Info("analysis completed", "dur", report.Stats.Duration)

	failOnUnresolved := cfg.FailOnUnresolved || fileCfg.FailOnUnresolved
	return report, failOnUnresolved, nil
}

// mergeOptions folds the config file values under the command-line flags;
// flags win wherever both are given.
func mergeOptions(cfg *Config, fileCfg *config.Config) (ccdeps.AnalyzerOptions, ccdeps.LoaderOptions, error) {
	var opts ccdeps.AnalyzerOptions
	var loaderOpts ccdeps.LoaderOptions

	platformNames := cfg.Platforms
	if len(platformNames) == 0 {
		platformNames = fileCfg.Platforms
	}
	platforms, err := platform.ParseAll(platformNames)
	if err != nil {
		return opts, loaderOpts, err
	}

	defines := cfg.Defines
	if len(defines) == 0 {
		defines = fileCfg.Macros
	}
	macros, err := parser.ParseMacros(defines)
	if err != nil {
		return opts, loaderOpts, err
	}

	groupMode := cfg.GroupMode
	if groupMode == "" {
		groupMode = fileCfg.GroupMode
	}
	mode := groups.Mode(groupMode)
	if mode != "" && !slices.Contains(groups.Modes, mode) {
		return opts, loaderOpts, fmt.Errorf("unknown group mode %q", groupMode)
	}
	cycles := groups.CycleHandling(fileCfg.CycleHandling)
	if cycles != "" && !slices.Contains(groups.CycleHandlings, cycles) {
		return opts, loaderOpts, fmt.Errorf("unknown cycle handling %q", fileCfg.CycleHandling)
	}

	exclude := cfg.Exclude
	if len(exclude) == 0 {
		exclude = fileCfg.Exclude
	}

	opts = ccdeps.AnalyzerOptions{
		Platforms:          platforms,
		Defines:            macros,
		GroupMode:          mode,
		Cycles:             cycles,
		IncludePrefix:      fileCfg.IncludePrefix,
		StripIncludePrefix: fileCfg.StripIncludePrefix,
	}
	loaderOpts = ccdeps.LoaderOptions{
		Root:    cfg.Root,
		Include: fileCfg.Include,
		Exclude: exclude,
	}
	return opts, loaderOpts, nil
}

// countFindings returns the number of problems that should fail the run.
// #error directives and unresolved includes are reported in the output but
// only unresolved quoted includes affect the exit code, and only when
// --fail-on-unresolved is given.
func countFindings(report *ccdeps.Report, failOnUnresolved bool) int {
	if !failOnUnresolved {
		return 0
	}
	return report.Stats.UnresolvedIncludes
}

func writeReport(report *ccdeps.Report, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(report)
	} else {
		output = formatTextOutput(report, cfg)
	}

	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}

func formatJSONOutput(report *ccdeps.Report) (string, error) {
	data, err := json.MarshalIndent(jOutput{
		Files:     report.Files,
		Groups:    report.Groups,
		Stats:     report.Stats,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data), nil
}

func formatTextOutput(report *ccdeps.Report, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"files", report.Stats.Files,
			"includes", report.Stats.Includes,
			"conditional_includes", report.Stats.ConditionalIncludes,
			"unresolved_includes", report.Stats.UnresolvedIncludes,
			"suppressed_files", report.Stats.SuppressedFiles,
			"analysis_duration", report.Stats.Duration.String())
	}

	for _, f := range report.Files {
		if f.Suppressed {
			continue
		}
		kind := "library"
		if f.Executable {
			kind = "executable"
		}
		output.WriteString(fmt.Sprintf("%s (%s)\n", f.Path, kind))
		for _, inc := range f.Includes {
			output.WriteString("  " + formatInclude(inc) + "\n")
		}
		for _, e := range f.Errors {
			line := fmt.Sprintf("  #error %q", e.Message)
			if e.Condition != "" {
				line += fmt.Sprintf(" when %s", e.Condition)
			}
			output.WriteString(line + "\n")
		}
	}

	names := slices.Sorted(maps.Keys(report.Groups))
	for _, name := range names {
		g := report.Groups[name]
		output.WriteString(fmt.Sprintf("group %s: %s\n", name, strings.Join(g.Sources, " ")))
		if deps := g.Deps.Strings(); len(deps) > 0 {
			output.WriteString(fmt.Sprintf("  depends on: %s\n", strings.Join(deps, " ")))
		}
	}

	return output.String()
}

func formatInclude(inc ccdeps.IncludeReport) string {
	name := fmt.Sprintf("%q", inc.Path)
	if inc.System {
		name = "<" + inc.Path + ">"
	}
	switch {
	case inc.Suppressed:
		return name + " (suppressed)"
	case inc.Platforms == nil:
		return name
	case len(inc.Platforms) == 0:
		return name + " [no enabled platform]"
	default:
		return name + " [" + strings.Join(inc.Platforms, " ") + "]"
	}
}

type jOutput struct {
	Files     []ccdeps.FileReport            `json:"files"`
	Groups    map[string]*ccdeps.GroupReport `json:"groups"`
	Stats     ccdeps.Stats                   `json:"stats"`
	Version   string                         `json:"version"`
	Timestamp string                         `json:"timestamp"`
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
