package condition

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccdeps/ccdeps/pkg/parser"
	"github.com/ccdeps/ccdeps/pkg/platform"
)

var (
	linuxAMD64   = platform.Platform{OS: "linux", Arch: "x86_64"}
	windowsAMD64 = platform.Platform{OS: "windows", Arch: "x86_64"}
)

func testPlatformMacros() map[platform.Platform]platform.Macros {
	return map[platform.Platform]platform.Macros{
		linuxAMD64: {
			"LINUX":       1,
			"SHARED_FLAG": 1,
		},
		windowsAMD64: {
			"WIN32":       1,
			"SHARED_FLAG": 0,
		},
	}
}

func TestPlatformsForMacro(t *testing.T) {
	platformMacros := testPlatformMacros()

	tests := []struct {
		name     string
		macro    string
		expected []platform.Platform
	}{
		{"known macro", "LINUX", []platform.Platform{linuxAMD64}},
		{"common macro", "SHARED_FLAG", []platform.Platform{linuxAMD64, windowsAMD64}},
		{"unknown macro", "NOT_DEFINED", []platform.Platform{}},
	}

	for _, tc := range tests {
		got := platformsForMacro(tc.macro, platformMacros).Values()
		slices.SortFunc(got, platform.Compare)
		if !slices.Equal(got, tc.expected) {
			t.Errorf("%s: platformsForMacro(%q) = %v, want %v", tc.name, tc.macro, got, tc.expected)
		}
	}
}

func TestPlatformsForExpr(t *testing.T) {
	platformMacros := testPlatformMacros()

	cases := []struct {
		name     string
		expr     parser.Expr
		expected []platform.Platform
	}{
		{
			"simple presence",
			parser.Defined{Name: "LINUX"},
			[]platform.Platform{linuxAMD64},
		},
		{
			"unknown macro",
			parser.Defined{Name: "OTHER"},
			[]platform.Platform{},
		},
		{
			"negated presence",
			parser.Not{X: parser.Defined{Name: "LINUX"}},
			[]platform.Platform{windowsAMD64},
		},
		{
			"negated unknown macro",
			parser.Not{X: parser.Defined{Name: "OTHER"}},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"compare != 0", // #if SHARED_FLAG
			parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: "!=", Right: parser.Constant(0)},
			[]platform.Platform{linuxAMD64},
		},
		{
			"compare == 0", // #if ! SHARED_FLAG
			parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: "==", Right: parser.Constant(0)},
			[]platform.Platform{windowsAMD64},
		},
		{
			"compare >= 0",
			parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: ">=", Right: parser.Constant(0)},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"compare > 0",
			parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: ">", Right: parser.Constant(0)},
			[]platform.Platform{linuxAMD64},
		},
		{
			"compare const == const",
			parser.Compare{Left: parser.Constant(0), Op: "==", Right: parser.Constant(0)},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"compare const != const",
			parser.Compare{Left: parser.Constant(0), Op: "!=", Right: parser.Constant(0)},
			[]platform.Platform{},
		},
		{
			"compare ident against itself",
			parser.Compare{Left: parser.Ident("VER"), Op: "==", Right: parser.Ident("VER")},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"compare unknown ident == 0",
			parser.Compare{Left: parser.Ident("OTHER"), Op: "==", Right: parser.Constant(0)},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"compare 0 != unknown ident",
			parser.Compare{Left: parser.Constant(0), Op: "!=", Right: parser.Ident("OTHER")},
			[]platform.Platform{},
		},
		{
			"and or combo", // #if (defined(LINUX) && SHARED_FLAG) || defined(WIN32)
			parser.Or{
				L: parser.And{
					L: parser.Defined{Name: "LINUX"},
					R: parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: "!=", Right: parser.Constant(0)},
				},
				R: parser.Defined{Name: "WIN32"},
			},
			[]platform.Platform{linuxAMD64, windowsAMD64},
		},
		{
			"negated conjunction", // #if !(defined(LINUX) && SHARED_FLAG)
			parser.Not{X: parser.And{
				L: parser.Defined{Name: "LINUX"},
				R: parser.Compare{Left: parser.Ident("SHARED_FLAG"), Op: "!=", Right: parser.Constant(0)},
			}},
			[]platform.Platform{windowsAMD64},
		},
	}

	for _, tc := range cases {
		got := PlatformsForExpr(tc.expr, platformMacros)
		if !slices.Equal(got, tc.expected) {
			t.Errorf("%s: PlatformsForExpr(%v) = %v, want %v", tc.name, tc.expr, got, tc.expected)
		}
	}
}

func TestPlatformsForExprNil(t *testing.T) {
	// A nil expression marks an unconditional include; it maps to nil, not
	// an empty slice.
	got := PlatformsForExpr(nil, testPlatformMacros())
	assert.Nil(t, got)
}
