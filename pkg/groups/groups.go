// Package groups assigns C/C++ sources to translation-unit groups and
// derives the dependency edges between them, the way a build-file generator
// would assign sources to targets.
package groups

import (
	"log/slog"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/ccdeps/ccdeps/pkg/parser"
)

// Mode selects how sources are grouped.
type Mode string

const (
	// ModeDirectory puts all sources of a directory into a single group.
	ModeDirectory Mode = "directory"
	// ModeUnit forms a group per translation unit: a header and its
	// implementation files share a group keyed by the file stem.
	ModeUnit Mode = "unit"
)

// Modes lists the accepted grouping modes.
var Modes = []Mode{ModeDirectory, ModeUnit}

// CycleHandling selects what happens when groups form a dependency cycle.
type CycleHandling string

const (
	// CycleMerge merges all groups of a cycle into a single group.
	CycleMerge CycleHandling = "merge"
	// CycleWarn leaves cyclic groups untouched and logs a warning.
	CycleWarn CycleHandling = "warn"
)

// CycleHandlings lists the accepted cycle handling modes.
var CycleHandlings = []CycleHandling{CycleMerge, CycleWarn}

// Group is a set of sources forming one unit, together with the groups it
// depends on. When cyclic groups were merged, SubGroups records the ids of
// the original constituents.
type Group struct {
	Sources   []string
	DependsOn []string
	SubGroups []string
}

// Options configures Build.
type Options struct {
	Mode   Mode
	Cycles CycleHandling
}

// Build groups the given files according to opts. infos maps each file to
// its parsed summary; quoted includes that resolve to another analyzed file
// become dependency edges between the files' groups.
func Build(files []string, infos map[string]parser.SourceInfo, opts Options) map[string]*Group {
	assign := func(file string) string {
		if opts.Mode == ModeDirectory {
			return path.Dir(file)
		}
		return stem(file)
	}

	// Initial assignment: file -> group id.
	fileGroup := make(map[string]string, len(files))
	members := map[string][]string{}
	for _, f := range files {
		id := assign(f)
		fileGroup[f] = id
		members[id] = append(members[id], f)
	}

	// Dependency edges between groups, derived from includes that resolve
	// within the analyzed set.
	edges := map[string]map[string]struct{}{}
	for _, f := range files {
		from := fileGroup[f]
		for _, inc := range infos[f].Includes {
			if inc.IsSystemInclude {
				continue
			}
			to, ok := fileGroup[inc.Path]
			if !ok || to == from {
				continue
			}
			set, ok := edges[from]
			if !ok {
				set = map[string]struct{}{}
				edges[from] = set
			}
			set[to] = struct{}{}
		}
	}

	ids := slices.Sorted(maps.Keys(members))
	components := stronglyConnected(ids, edges)

	if opts.Cycles == CycleWarn {
		for _, comp := range components {
			if len(comp) > 1 {
				slog.Warn("dependency cycle between groups left unmerged", "groups", comp)
			}
		}
		return assemble(ids, members, edges, identity(ids))
	}

	// Merge each cyclic component into one group named after its smallest
	// member id.
	rep := map[string]string{}
	for _, comp := range components {
		name := slices.Min(comp)
		for _, id := range comp {
			rep[id] = name
		}
	}
	return assemble(ids, members, edges, rep)
}

// assemble materializes the final groups given the representative mapping
// from original ids to merged ids.
func assemble(ids []string, members map[string][]string, edges map[string]map[string]struct{}, rep map[string]string) map[string]*Group {
	out := map[string]*Group{}
	merged := map[string][]string{} // representative -> original ids

	for _, id := range ids {
		name := rep[id]
		g, ok := out[name]
		if !ok {
			g = &Group{}
			out[name] = g
		}
		g.Sources = append(g.Sources, members[id]...)
		merged[name] = append(merged[name], id)
	}

	for name, g := range out {
		slices.Sort(g.Sources)
		if len(merged[name]) > 1 {
			g.SubGroups = slices.Sorted(slices.Values(merged[name]))
		}
	}

	// Map edges through the representatives, dropping self edges.
	for from, tos := range edges {
		fromRep := rep[from]
		g := out[fromRep]
		for to := range tos {
			toRep := rep[to]
			if toRep == fromRep || slices.Contains(g.DependsOn, toRep) {
				continue
			}
			g.DependsOn = append(g.DependsOn, toRep)
		}
	}
	for _, g := range out {
		slices.Sort(g.DependsOn)
	}
	return out
}

// stem strips the file extension, so a.h and a.c share the key "a".
func stem(file string) string {
	return strings.TrimSuffix(file, path.Ext(file))
}

func identity(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = id
	}
	return out
}

// stronglyConnected returns the strongly connected components of the group
// graph using Tarjan's algorithm. ids are visited in sorted order so the
// result is deterministic.
func stronglyConnected(ids []string, edges map[string]map[string]struct{}) [][]string {
	index := map[string]int{}
	lowlink := map[string]int{}
	onStack := map[string]bool{}
	var stack []string
	var components [][]string
	next := 0

	var strongconnect func(v string)
	strongconnect = func(v string) {
		index[v] = next
		lowlink[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range sortedNeighbors(edges[v]) {
			if _, seen := index[w]; !seen {
				strongconnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], index[w])
			}
		}

		if lowlink[v] == index[v] {
			var comp []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}

	for _, id := range ids {
		if _, seen := index[id]; !seen {
			strongconnect(id)
		}
	}
	return components
}

func sortedNeighbors(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
