package ccdeps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccdeps/ccdeps/pkg/platform"
)

func TestTransformIncludePath(t *testing.T) {
	testCases := []struct {
		name     string
		libRel   string
		strip    string
		prefix   string
		hdrRel   string
		expected string
	}{
		{
			name:     "no prefixes",
			libRel:   "lib",
			hdrRel:   "lib/foo.h",
			expected: "lib/foo.h",
		},
		{
			name:     "relative strip prefix",
			libRel:   "lib",
			strip:    "include",
			hdrRel:   "lib/include/foo.h",
			expected: "foo.h",
		},
		{
			name:     "absolute strip prefix applies from the root",
			libRel:   "lib",
			strip:    "/lib",
			hdrRel:   "lib/foo.h",
			expected: "foo.h",
		},
		{
			name:     "include prefix prepended",
			libRel:   "lib",
			prefix:   "mypkg",
			hdrRel:   "lib/foo.h",
			expected: "mypkg/lib/foo.h",
		},
		{
			name:     "strip then prefix",
			libRel:   "lib",
			strip:    "include",
			prefix:   "mypkg",
			hdrRel:   "lib/include/foo.h",
			expected: "mypkg/foo.h",
		},
		{
			name:     "strip prefix that does not apply is ignored",
			libRel:   "lib",
			strip:    "other",
			hdrRel:   "lib/foo.h",
			expected: "lib/foo.h",
		},
		{
			name:     "header in the root directory",
			libRel:   ".",
			hdrRel:   "foo.h",
			expected: "foo.h",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := TransformIncludePath(tc.libRel, tc.strip, tc.prefix, tc.hdrRel)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestPlatformStringsAdd(t *testing.T) {
	linux := platform.Platform{OS: platform.Linux, Arch: platform.X86_64}
	windows := platform.Platform{OS: platform.Windows, Arch: platform.X86_64}

	var ps PlatformStrings

	ps.Add("b", nil)
	ps.Add("a", nil)
	ps.Add("a", nil)
	assert.Equal(t, []string{"a", "b"}, ps.Generic)

	ps.Add("winlib", []platform.Platform{windows})
	ps.Add("both", []platform.Platform{linux, windows})
	ps.Add("winlib", []platform.Platform{windows})
	assert.Equal(t, map[string][]string{
		"linux/x86_64":   {"both"},
		"windows/x86_64": {"both", "winlib"},
	}, ps.Constrained)

	// An empty platform list lands in the default bucket.
	ps.Add("fallback", []platform.Platform{})
	assert.Equal(t, []string{"fallback"}, ps.Constrained[DefaultCondition])
}

func TestPlatformStringsMerge(t *testing.T) {
	a := PlatformStrings{
		Generic:     []string{"x"},
		Constrained: map[string][]string{"linux/x86_64": {"l1"}},
	}
	b := PlatformStrings{
		Generic: []string{"y", "x"},
		Constrained: map[string][]string{
			"linux/x86_64":   {"l2", "l1"},
			"windows/x86_64": {"w"},
		},
	}

	got := a.Merge(b)
	assert.Equal(t, []string{"x", "y"}, got.Generic)
	assert.Equal(t, map[string][]string{
		"linux/x86_64":   {"l1", "l2"},
		"windows/x86_64": {"w"},
	}, got.Constrained)

	// Inputs stay untouched.
	assert.Equal(t, []string{"x"}, a.Generic)
	assert.Equal(t, []string{"l1"}, a.Constrained["linux/x86_64"])
}

func TestPlatformStringsStrings(t *testing.T) {
	ps := PlatformStrings{
		Generic: []string{"a", "c"},
		Constrained: map[string][]string{
			"linux/x86_64":   {"b", "c"},
			"windows/x86_64": {"a"},
		},
	}
	assert.Equal(t, []string{"a", "b", "c"}, ps.Strings())

	assert.True(t, PlatformStrings{}.IsEmpty())
	assert.False(t, ps.IsEmpty())
}
