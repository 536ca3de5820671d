package ccdeps

import (
	"path"
	"slices"
	"time"

	"github.com/ccdeps/ccdeps/pkg/platform"
)

// DefaultCondition is the bucket for includes whose guard matches none of
// the enabled platforms.
const DefaultCondition = "default"

// Report is the result of analyzing a set of sources.
type Report struct {
	Files  []FileReport            `json:"files" yaml:"files"`
	Groups map[string]*GroupReport `json:"groups" yaml:"groups"`
	Stats  Stats                   `json:"stats" yaml:"stats"`
}

// FileReport summarizes a single translation unit.
type FileReport struct {
	// Path is the slash-separated path relative to the scanned root.
	Path string `json:"path" yaml:"path"`
	// Executable reports whether the file defines main().
	Executable bool `json:"executable,omitempty" yaml:"executable,omitempty"`
	// Suppressed is set when the file carries a ccdeps:ignore-file comment.
	Suppressed bool `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	// Includes lists every #include directive of the file.
	Includes []IncludeReport `json:"includes,omitempty" yaml:"includes,omitempty"`
	// LinkLibraries lists libraries requested via #pragma comment(lib, ...).
	LinkLibraries []string `json:"link_libraries,omitempty" yaml:"link_libraries,omitempty"`
	// Errors lists #error directives and the platforms they fire on.
	Errors []ErrorReport `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// IncludeReport describes one #include directive and its platform assignment.
type IncludeReport struct {
	Path   string `json:"path" yaml:"path"`
	System bool   `json:"system,omitempty" yaml:"system,omitempty"`
	// Condition is the rendered guard expression, empty when unconditional.
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	// Platforms lists the enabled platforms the include is active on.
	// nil means the include is generic (active everywhere); an empty list
	// means no enabled platform matches.
	Platforms []string `json:"platforms" yaml:"platforms"`
	// Resolved is the analyzed file the include resolves to, empty for
	// system includes and includes pointing outside the analyzed set.
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	// Suppressed is set when the include carries a ccdeps:ignore comment.
	Suppressed bool `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
}

// ErrorReport describes a #error directive.
type ErrorReport struct {
	Message   string   `json:"message" yaml:"message"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Platforms []string `json:"platforms" yaml:"platforms"`
}

// GroupReport is a translation-unit group together with its dependencies,
// split into a generic part and per-platform constrained parts.
type GroupReport struct {
	Sources   []string        `json:"sources" yaml:"sources"`
	SubGroups []string        `json:"sub_groups,omitempty" yaml:"sub_groups,omitempty"`
	Deps      PlatformStrings `json:"deps" yaml:"deps"`
}

// Stats carries counters describing an analysis run.
type Stats struct {
	Files               int           `json:"files" yaml:"files"`
	SuppressedFiles     int           `json:"suppressed_files" yaml:"suppressed_files"`
	Includes            int           `json:"includes" yaml:"includes"`
	ConditionalIncludes int           `json:"conditional_includes" yaml:"conditional_includes"`
	UnresolvedIncludes  int           `json:"unresolved_includes" yaml:"unresolved_includes"`
	Duration            time.Duration `json:"duration" yaml:"duration"`
}

// PlatformStrings is a list of strings split into an always-active generic
// part and parts constrained to individual platforms (or the default
// bucket).
type PlatformStrings struct {
	Generic     []string            `json:"generic,omitempty" yaml:"generic,omitempty"`
	Constrained map[string][]string `json:"constrained,omitempty" yaml:"constrained,omitempty"`
}

// Add records value under the given platform assignment: nil platforms mean
// generic, an empty list maps to the default bucket.
func (ps *PlatformStrings) Add(value string, platforms []platform.Platform) {
	if platforms == nil {
		if !slices.Contains(ps.Generic, value) {
			ps.Generic = append(ps.Generic, value)
			slices.Sort(ps.Generic)
		}
		return
	}
	if ps.Constrained == nil {
		ps.Constrained = map[string][]string{}
	}
	keys := []string{DefaultCondition}
	if len(platforms) > 0 {
		keys = keys[:0]
		for _, p := range platforms {
			keys = append(keys, p.String())
		}
	}
	for _, key := range keys {
		if slices.Contains(ps.Constrained[key], value) {
			continue
		}
		ps.Constrained[key] = append(ps.Constrained[key], value)
		slices.Sort(ps.Constrained[key])
	}
}

// Merge combines two PlatformStrings into a new value, deduplicating and
// sorting every list.
func (ps PlatformStrings) Merge(other PlatformStrings) PlatformStrings {
	out := PlatformStrings{}
	out.Generic = mergeSorted(ps.Generic, other.Generic)
	if len(ps.Constrained)+len(other.Constrained) > 0 {
		out.Constrained = map[string][]string{}
		for key, values := range ps.Constrained {
			out.Constrained[key] = mergeSorted(values, nil)
		}
		for key, values := range other.Constrained {
			out.Constrained[key] = mergeSorted(out.Constrained[key], values)
		}
	}
	return out
}

// Strings flattens the generic part and all constrained lists, deduplicated
// and sorted.
func (ps PlatformStrings) Strings() []string {
	out := slices.Clone(ps.Generic)
	for _, values := range ps.Constrained {
		out = append(out, values...)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// IsEmpty reports whether no strings are recorded at all.
func (ps PlatformStrings) IsEmpty() bool {
	return len(ps.Generic) == 0 && len(ps.Constrained) == 0
}

func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// TransformIncludePath converts a repo-relative header path into the string
// by which the header may be included, accounting for strip_include_prefix
// and include_prefix settings.
//
// libRel is the slash-separated, root-relative path of the directory
// containing the header. stripIncludePrefix, when relative, is resolved
// against libRel; when absolute, the leading '/' is removed and the prefix
// applies from the root. includePrefix is prepended afterwards. Both must be
// clean (path.Clean) when non-empty. hdrRel is the slash-separated,
// root-relative path of the header file.
func TransformIncludePath(libRel, stripIncludePrefix, includePrefix, hdrRel string) string {
	var effectiveStrip string
	if path.IsAbs(stripIncludePrefix) {
		effectiveStrip = stripIncludePrefix[len("/"):]
	} else if stripIncludePrefix != "" {
		effectiveStrip = path.Join(libRel, stripIncludePrefix)
	}
	cleanRel := trimPathPrefix(hdrRel, effectiveStrip)

	return path.Join(includePrefix, cleanRel)
}

// trimPathPrefix removes the leading path components in prefix from p.
// Returns p unchanged when prefix does not apply.
func trimPathPrefix(p, prefix string) string {
	if prefix == "" {
		return p
	}
	if p == prefix {
		return ""
	}
	if rest, ok := cutPathPrefix(p, prefix); ok {
		return rest
	}
	return p
}

func cutPathPrefix(p, prefix string) (string, bool) {
	if len(p) > len(prefix) && p[:len(prefix)] == prefix && p[len(prefix)] == '/' {
		return p[len(prefix)+1:], true
	}
	return p, false
}
