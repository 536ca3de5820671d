// Package platform defines the os/arch vocabulary used to classify
// conditional includes, together with the table of predefined compiler
// macros for every supported platform.
package platform

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Platform identifies a single os/arch combination.
type Platform struct {
	OS   OS
	Arch Arch
}

func (p Platform) String() string {
	return fmt.Sprintf("%s/%s", p.OS, p.Arch)
}

// Compare orders platforms first by OS, then by Arch.
func Compare(a, b Platform) int {
	if d := cmp.Compare(a.OS, b.OS); d != 0 {
		return d
	}
	return cmp.Compare(a.Arch, b.Arch)
}

// Parse converts an "<os>/<arch>" string into a Platform. Common aliases
// (macos, amd64, arm, arm64) are accepted and normalized. An unknown os or
// arch yields an error.
func Parse(value string) (Platform, error) {
	fields := strings.Split(value, "/")
	if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
		return Platform{}, fmt.Errorf("malformed platform %q, expected <os>/<arch>", value)
	}
	p := Platform{
		OS:   dealias(fields[0], osAliases),
		Arch: dealias(fields[1], archAliases),
	}
	if !slices.Contains(knownOS, p.OS) {
		return p, fmt.Errorf("unknown OS %q, expected one of %v or an alias %v", p.OS, knownOS, osAliases)
	}
	if !slices.Contains(knownArch, p.Arch) {
		return p, fmt.Errorf("unknown architecture %q, expected one of %v or an alias %v", p.Arch, knownArch, archAliases)
	}
	return p, nil
}

// ParseAll parses a list of "<os>/<arch>" strings, failing on the first
// invalid entry. The result is sorted and deduplicated.
func ParseAll(values []string) ([]Platform, error) {
	out := make([]Platform, 0, len(values))
	for _, v := range values {
		p, err := Parse(v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	slices.SortFunc(out, Compare)
	return slices.Compact(out), nil
}

// OS is an operating system identifier. The vocabulary follows the
// constraint names used by Bazel's @platforms//os package.
type OS string

const (
	Android    OS = "android"
	ChromiumOS OS = "chromiumos"
	Emscripten OS = "emscripten"
	FreeBSD    OS = "freebsd"
	Fuchsia    OS = "fuchsia"
	Haiku      OS = "haiku"
	IOS        OS = "ios"
	Linux      OS = "linux"
	NetBSD     OS = "netbsd"
	NixOS      OS = "nixos"
	None       OS = "none" // bare-metal
	OpenBSD    OS = "openbsd"
	OSX        OS = "osx"
	QNX        OS = "qnx"
	TvOS       OS = "tvos"
	UEFI       OS = "uefi"
	VisionOS   OS = "visionos"
	VxWorks    OS = "vxworks"
	WASI       OS = "wasi"
	WatchOS    OS = "watchos"
	Windows    OS = "windows"
)

var osAliases = map[string]OS{
	"macos": OSX,
}

var knownOS = []OS{
	Android, ChromiumOS, Emscripten, FreeBSD, Fuchsia, Haiku, IOS,
	Linux, NetBSD, NixOS, None, OpenBSD, OSX, QNX, TvOS,
	UEFI, VisionOS, VxWorks, WASI, WatchOS, Windows,
}

// Arch is a CPU architecture identifier, following @platforms//cpu.
type Arch string

const (
	AArch32   Arch = "aarch32"
	AArch64   Arch = "aarch64"
	Arm64_32  Arch = "arm64_32"
	Arm64e    Arch = "arm64e"
	ArmV6M    Arch = "armv6-m"
	ArmV7     Arch = "armv7"
	ArmV7EM   Arch = "armv7e-m"
	ArmV7EMF  Arch = "armv7e-mf"
	ArmV7K    Arch = "armv7k"
	ArmV7M    Arch = "armv7-m"
	ArmV8M    Arch = "armv8-m"
	CortexR52 Arch = "cortex-r52"
	CortexR82 Arch = "cortex-r82"
	I386      Arch = "i386"
	MIPS64    Arch = "mips64"
	PPC       Arch = "ppc"
	PPC32     Arch = "ppc32"
	PPC64LE   Arch = "ppc64le"
	RiscV32   Arch = "riscv32"
	RiscV64   Arch = "riscv64"
	S390X     Arch = "s390x"
	Wasm32    Arch = "wasm32"
	Wasm64    Arch = "wasm64"
	X86_32    Arch = "x86_32"
	X86_64    Arch = "x86_64"
)

var archAliases = map[string]Arch{
	"arm":   AArch32,
	"arm64": AArch64,
	"amd64": X86_64,
}

var knownArch = []Arch{
	AArch32, AArch64, Arm64_32, Arm64e, ArmV6M, ArmV7, ArmV7EM, ArmV7EMF,
	ArmV7K, ArmV7M, ArmV8M, CortexR52, CortexR82, I386, MIPS64, PPC,
	PPC32, PPC64LE, RiscV32, RiscV64, S390X, Wasm32, Wasm64, X86_32, X86_64,
}

func dealias[T ~string](value string, aliases map[string]T) T {
	if normalized, ok := aliases[value]; ok {
		return normalized
	}
	return T(value)
}
