package ccdeps

import (
	"context"
	"fmt"
	"os"
	"path"
	goruntime "runtime"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ccdeps/ccdeps/pkg/condition"
	"github.com/ccdeps/ccdeps/pkg/groups"
	"github.com/ccdeps/ccdeps/pkg/parser"
	"github.com/ccdeps/ccdeps/pkg/platform"
	"github.com/ccdeps/ccdeps/pkg/pragma"
	"github.com/ccdeps/ccdeps/pkg/suppress"
)

// AnalyzerOptions holds configuration options for the analyzer.
type AnalyzerOptions struct {
	// Platforms are the platforms includes are evaluated against. If empty,
	// every known platform is enabled.
	Platforms []platform.Platform

	// Defines are user-provided macro definitions applied on top of each
	// platform's predefined macros.
	Defines platform.Macros

	// GroupMode selects how sources are grouped. Defaults to per
	// translation unit.
	GroupMode groups.Mode

	// Cycles selects what happens when groups depend on each other in a
	// cycle. Defaults to merging.
	Cycles groups.CycleHandling

	// StripIncludePrefix and IncludePrefix adjust the path by which headers
	// are included, mirroring the strip_include_prefix and include_prefix
	// attributes of C++ build rules.
	StripIncludePrefix string
	IncludePrefix      string
}

// Analyzer orchestrates parsing, platform evaluation and grouping.
//
// An Analyzer may be reused across runs; parse results are cached per file
// and invalidated by size/mtime.
type Analyzer struct {
	opts           AnalyzerOptions
	platformMacros map[platform.Platform]platform.Macros
	cache          *xsync.Map[string, *cachedSource]
}

type parsedSource struct {
	info         parser.SourceInfo
	suppressions *suppress.Checker
	pragmas      *pragma.Info
}

type cachedSource struct {
	size    int64
	modTime time.Time
	parsed  parsedSource
}

// NewAnalyzer creates a new analyzer with the given options.
func NewAnalyzer(opts AnalyzerOptions) *Analyzer {
	if len(opts.Platforms) == 0 {
		opts.Platforms = platform.Known()
	}
	if opts.GroupMode == "" {
		opts.GroupMode = groups.ModeUnit
	}
	if opts.Cycles == "" {
		opts.Cycles = groups.CycleMerge
	}
	return &Analyzer{
		opts:           opts,
		platformMacros: platform.MacrosForPlatforms(opts.Platforms, opts.Defines),
		cache:          xsync.NewMap[string, *cachedSource](),
	}
}

// Analyze parses the given sources, evaluates every conditional include
// against the enabled platforms and assembles the dependency report.
func (a *Analyzer) Analyze(ctx context.Context, files []SourceFile) (*Report, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no sources provided")
	}
	start := time.Now()

	// Lock-free concurrency pattern: pre-allocate the results slice with
	// exact size. Each goroutine writes only to its own index, the main
	// goroutine reads after Wait.
	parsed := make([]parsedSource, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.NumCPU())
	for idx, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := a.parseSource(f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Rel, err)
			}
			parsed[idx] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := a.buildIncludeIndex(files)

	report := &Report{}
	report.Stats.Files = len(files)

	// groupInfos carries, per analyzed file, only the includes that resolve
	// within the analyzed set, rewritten to the target's relative path so
	// that grouping sees real file-to-file edges.
	groupInfos := make(map[string]parser.SourceInfo, len(files))
	groupFiles := make([]string, 0, len(files))

	type depEdge struct {
		from, to  string
		platforms []platform.Platform
	}
	var edges []depEdge

	for idx, f := range files {
		p := parsed[idx]
		fr := FileReport{
			Path:          f.Rel,
			Executable:    p.info.HasMain,
			LinkLibraries: p.pragmas.Libraries,
		}

		if suppressed, _ := p.suppressions.FileSuppressed(); suppressed {
			fr.Suppressed = true
			report.Stats.SuppressedFiles++
			report.Files = append(report.Files, fr)
			continue
		}

		groupInfo := parser.SourceInfo{HasMain: p.info.HasMain}
		for _, inc := range p.info.Includes {
			report.Stats.Includes++
			if inc.Condition != nil {
				report.Stats.ConditionalIncludes++
			}

			ir := IncludeReport{
				Path:      inc.Path,
				System:    inc.IsSystemInclude,
				Condition: exprString(inc.Condition),
				Platforms: platformNames(condition.PlatformsForExpr(inc.Condition, a.platformMacros)),
			}
			ir.Suppressed, _ = p.suppressions.IsSuppressed(inc.Path)

			if !inc.IsSystemInclude && !ir.Suppressed {
				if target, ok := index[inc.Path]; ok {
					ir.Resolved = target
					if target != f.Rel {
						groupInfo.Includes = append(groupInfo.Includes, parser.Include{Path: target})
						edges = append(edges, depEdge{
							from:      f.Rel,
							to:        target,
							platforms: condition.PlatformsForExpr(inc.Condition, a.platformMacros),
						})
					}
				} else {
					report.Stats.UnresolvedIncludes++
				}
			}
			fr.Includes = append(fr.Includes, ir)
		}

		for _, e := range p.info.Errors {
			fr.Errors = append(fr.Errors, ErrorReport{
				Message:   e.Message,
				Condition: exprString(e.Condition),
				Platforms: platformNames(condition.PlatformsForExpr(e.Condition, a.platformMacros)),
			})
		}

		report.Files = append(report.Files, fr)
		groupInfos[f.Rel] = groupInfo
		groupFiles = append(groupFiles, f.Rel)
	}

	built := groups.Build(groupFiles, groupInfos, groups.Options{
		Mode:   a.opts.GroupMode,
		Cycles: a.opts.Cycles,
	})

	fileGroup := make(map[string]string, len(groupFiles))
	report.Groups = make(map[string]*GroupReport, len(built))
	for name, grp := range built {
		for _, src := range grp.Sources {
			fileGroup[src] = name
		}
		report.Groups[name] = &GroupReport{
			Sources:   grp.Sources,
			SubGroups: grp.SubGroups,
		}
	}

	for _, e := range edges {
		from, to := fileGroup[e.from], fileGroup[e.to]
		if from == to || to == "" {
			continue
		}
		report.Groups[from].Deps.Add(to, e.platforms)
	}

	report.Stats.Duration = time.Since(start)
	return report, nil
}

// parseSource parses one file, consulting the size/mtime keyed cache first.
func (a *Analyzer) parseSource(f SourceFile) (parsedSource, error) {
	st, err := os.Stat(f.Path)
	if err != nil {
		return parsedSource{}, err
	}
	if entry, ok := a.cache.Load(f.Path); ok &&
		entry.size == st.Size() && entry.modTime.Equal(st.ModTime()) {
		return entry.parsed, nil
	}

	info, err := parser.ParseSourceFile(f.Path)
	if err != nil {
		return parsedSource{}, err
	}
	suppressions, err := suppress.LoadFile(f.Path)
	if err != nil {
		return parsedSource{}, err
	}
	pragmas, err := pragma.ScanFile(f.Path)
	if err != nil {
		return parsedSource{}, err
	}

	p := parsedSource{info: info, suppressions: suppressions, pragmas: pragmas}
	a.cache.Store(f.Path, &cachedSource{
		size:    st.Size(),
		modTime: st.ModTime(),
		parsed:  p,
	})
	return p, nil
}

// buildIncludeIndex maps the string by which a file may be included to its
// root-relative path. On collisions the lexicographically first file wins,
// files arrive sorted from the loader.
func (a *Analyzer) buildIncludeIndex(files []SourceFile) map[string]string {
	index := make(map[string]string, len(files))
	record := func(key, rel string) {
		if _, taken := index[key]; !taken {
			index[key] = rel
		}
	}
	for _, f := range files {
		record(TransformIncludePath(
			path.Dir(f.Rel), a.opts.StripIncludePrefix, a.opts.IncludePrefix, f.Rel), f.Rel)
		record(f.Rel, f.Rel)
	}
	return index
}

func exprString(e parser.Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

// platformNames renders a platform assignment for reporting, preserving the
// nil (generic) versus empty (no match) distinction.
func platformNames(platforms []platform.Platform) []string {
	if platforms == nil {
		return nil
	}
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, p.String())
	}
	return out
}
