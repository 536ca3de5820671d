// Package pragma scans C/C++ sources for #pragma directives that declare
// link-time dependencies.
package pragma

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Info contains the link directives found in a source file.
type Info struct {
	// Libraries are the arguments of #pragma comment(lib, "...") directives,
	// in order of appearance, deduplicated.
	Libraries []string
}

// Compile patterns once at package initialization.
var (
	// commentLibPattern matches MSVC-style link directives:
	// #pragma comment(lib, "ws2_32.lib")
	commentLibPattern = regexp.MustCompile(`#\s*pragma\s+comment\s*\(\s*lib\s*,\s*"([^"]+)"\s*\)`)
)

// ScanFile scans a single source file for link directives.
func ScanFile(filename string) (*Info, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("scan pragmas: %s: %w", filename, err)
	}
	defer file.Close()

	return ScanReader(file)
}

// ScanReader scans source text for link directives.
func ScanReader(r io.Reader) (*Info, error) {
	info := &Info{}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		// Skip lines that are entirely comments.
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		if matches := commentLibPattern.FindStringSubmatch(line); matches != nil {
			lib := matches[1]
			if _, ok := seen[lib]; ok {
				continue
			}
			seen[lib] = struct{}{}
			info.Libraries = append(info.Libraries, lib)
		}
	}

	return info, scanner.Err()
}
