// Package ccdeps provides C/C++ include and platform-conditional analysis.
package ccdeps

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ccdeps/ccdeps/internal/collections"
)

// sourceExtensions lists the file extensions treated as C/C++ sources.
var sourceExtensions = collections.SetOf(
	".c", ".cc", ".cpp", ".cxx",
	".h", ".hh", ".hpp", ".hxx", ".inl",
)

// SourceFile is a single source located during loading.
type SourceFile struct {
	// Path is the filesystem path, usable with os.Open.
	Path string
	// Rel is the slash-separated path relative to the scanned root. All
	// analysis and reporting keys off Rel.
	Rel string
}

// LoaderOptions configures source collection.
type LoaderOptions struct {
	// Root is the directory to scan. If empty, the current working
	// directory is used.
	Root string

	// Include are doublestar patterns, relative to Root, selecting files to
	// analyze. If empty, every file with a C/C++ extension is selected.
	Include []string

	// Exclude are doublestar patterns removing files after inclusion.
	Exclude []string
}

// LoadSources collects the C/C++ sources under opts.Root, sorted by their
// root-relative path.
func LoadSources(opts LoaderOptions) ([]SourceFile, error) {
	root := opts.Root
	if root == "" {
		root = "."
	}

	include := opts.Include
	if len(include) == 0 {
		include = []string{"**/*"}
	}

	fsys := os.DirFS(root)

	selected := collections.Set[string]{}
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern,
			doublestar.WithFilesOnly(), doublestar.WithNoFollow())
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if sourceExtensions.Contains(path.Ext(m)) {
				selected.Add(m)
			}
		}
	}

	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		for rel := range selected {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				delete(selected, rel)
			}
		}
	}

	rels := selected.Values()
	slices.Sort(rels)

	files := make([]SourceFile, 0, len(rels))
	for _, rel := range rels {
		files = append(files, SourceFile{
			Path: filepath.Join(root, filepath.FromSlash(rel)),
			Rel:  rel,
		})
	}
	return files, nil
}
