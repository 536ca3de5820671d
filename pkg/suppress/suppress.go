// Package suppress implements comment-based suppression of analyzer findings.
//
// Two directives are recognised in C/C++ sources:
//
//	#include "vendored.h" // ccdeps:ignore <reason>
//	// ccdeps:ignore-file <reason>
//
// The first excludes a single include from dependency resolution, the
// second excludes the whole file from the report.
package suppress

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

// Suppression patterns for the supported comment styles.
var (
	// ignoreFilePattern matches // ccdeps:ignore-file comments.
	ignoreFilePattern = regexp.MustCompile(`//\s*ccdeps:ignore-file(?:\s+(.*))?$`)

	// ignorePattern matches trailing // ccdeps:ignore comments.
	ignorePattern = regexp.MustCompile(`//\s*ccdeps:ignore(?:\s+(.*))?$`)

	// includePattern extracts the include path of a #include line.
	includePattern = regexp.MustCompile(`^\s*#\s*include\s*["<]([^">]+)[">]`)
)

// Checker holds the suppressions found in a single source file.
type Checker struct {
	// file is non-nil when the whole file is suppressed; it carries the reason.
	file *string
	// includes maps suppressed include paths to their reason.
	includes map[string]string
}

// NewChecker creates an empty suppression checker.
func NewChecker() *Checker {
	return &Checker{includes: make(map[string]string)}
}

// LoadFile scans filename for suppression comments.
func LoadFile(filename string) (*Checker, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := NewChecker()
	if err := c.Load(f); err != nil {
		return nil, err
	}
	return c, nil
}

// Load scans the source text for suppression comments. Load may be called
// multiple times; results accumulate.
func (c *Checker) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if m := ignoreFilePattern.FindStringSubmatch(line); m != nil {
			reason := strings.TrimSpace(m[1])
			if reason == "" {
				reason = "suppressed"
			}
			c.file = &reason
			continue
		}

		m := ignorePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// The directive only has an effect on #include lines.
		inc := includePattern.FindStringSubmatch(line)
		if inc == nil {
			continue
		}
		reason := strings.TrimSpace(m[1])
		if reason == "" {
			reason = "suppressed"
		}
		c.includes[inc[1]] = reason
	}
	return scanner.Err()
}

// FileSuppressed reports whether the whole file is excluded from analysis.
func (c *Checker) FileSuppressed() (bool, string) {
	if c.file == nil {
		return false, ""
	}
	return true, *c.file
}

// IsSuppressed reports whether the include with the given path carries an
// ignore directive.
func (c *Checker) IsSuppressed(includePath string) (bool, string) {
	reason, ok := c.includes[includePath]
	return ok, reason
}

// Clear drops all recorded suppressions.
func (c *Checker) Clear() {
	c.file = nil
	c.includes = make(map[string]string)
}
