package platform

import (
	"maps"
	"slices"
)

// Macros maps macro names to their integer values, e.g. {"_WIN32": 1}.
// A macro defined without an explicit value is assumed to equal 1.
// String and floating point macro values are not supported.
type Macros map[string]int

// KnownPlatformMacros holds the predefined compiler macros for every
// supported platform, seeded in init. Besides complete os/arch pairs the
// table also carries partial entries (OS or Arch only) so that callers can
// reason about a whole family at once.
var KnownPlatformMacros = map[Platform]Macros{}

// Known returns every complete os/arch pair present in the macro table,
// sorted with Compare.
func Known() []Platform {
	var out []Platform
	for p := range KnownPlatformMacros {
		if p.OS != "" && p.Arch != "" {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, Compare)
	return out
}

// MacrosForPlatforms builds the evaluation universe for the given enabled
// platforms: each platform maps to its predefined macros merged with the
// extra user-provided definitions. Extra definitions win on conflict.
func MacrosForPlatforms(enabled []Platform, extra Macros) map[Platform]Macros {
	out := make(map[Platform]Macros, len(enabled))
	for _, p := range enabled {
		macros := make(Macros, len(KnownPlatformMacros[p])+len(extra))
		maps.Copy(macros, KnownPlatformMacros[p])
		maps.Copy(macros, extra)
		out[p] = macros
	}
	return out
}

func init() {
	// Windows
	windowsArchs := []Arch{I386, X86_32, X86_64, AArch32, AArch64}
	addMacro("_WIN32", osArchPlatforms(Windows, windowsArchs))
	addMacro("_WIN64", osArchPlatforms(Windows, []Arch{X86_64, AArch64}))
	addMacro("__MINGW32__", osArchPlatform(Windows, I386))
	addMacro("__MINGW64__", osArchPlatform(Windows, X86_64))
	addMacro("_M_IX86", osArchPlatform(Windows, I386))
	addMacro("_M_X64", osArchPlatform(Windows, X86_64))
	addMacro("_M_ARM", osArchPlatform(Windows, AArch32))
	addMacro("_M_ARM64", osArchPlatform(Windows, AArch64))

	// Linux / Android family
	addMacros(
		[]string{"linux", "__linux__", "__linux", "__gnu_linux__"},
		osArchPlatforms(Linux, knownArch),
	)
	addMacro("__NIX__", osArchPlatforms(NixOS, knownArch))
	addMacro("__NIXOS__", osArchPlatforms(NixOS, knownArch))

	androidArchs := []Arch{AArch32, AArch64, X86_32, X86_64, RiscV64}
	addMacro("__ANDROID__", osArchPlatforms(Android, androidArchs))

	chromeArchs := []Arch{X86_64, AArch64, RiscV64}
	addMacro("__CHROMEOS__", osArchPlatforms(ChromiumOS, chromeArchs))

	// Apple does not define unix even though it's unix-like.
	unixOS := []OS{Linux, Android, ChromiumOS, NixOS, FreeBSD, NetBSD, OpenBSD, Haiku, QNX}
	addMacros(
		[]string{"unix", "__unix", "__unix__"},
		platformsMatrix(unixOS, knownArch),
	)

	// WebAssembly (Emscripten & WASI)
	wasmArchs := []Arch{Wasm32, Wasm64}
	addMacro("__EMSCRIPTEN__", platformsMatrix([]OS{Emscripten}, wasmArchs))
	addMacro("__wasi__", platformsMatrix([]OS{WASI}, wasmArchs))
	addMacro("__wasm__", platformsMatrix([]OS{Emscripten, WASI}, wasmArchs))
	addMacro("__wasm32__", platformsMatrix([]OS{Emscripten, WASI}, []Arch{Wasm32}))
	addMacro("__wasm64__", platformsMatrix([]OS{Emscripten, WASI}, []Arch{Wasm64}))

	// BSD family
	bsdArchs := []Arch{I386, X86_64, AArch64, RiscV64, PPC64LE}
	addMacro("__FreeBSD__", platformsMatrix([]OS{FreeBSD}, bsdArchs))
	addMacro("__NetBSD__", platformsMatrix([]OS{NetBSD}, bsdArchs))
	addMacro("__OpenBSD__", platformsMatrix([]OS{OpenBSD}, bsdArchs))

	// QNX, Haiku, Fuchsia, VxWorks, UEFI
	qnxArchs := []Arch{AArch32, AArch64, PPC32, PPC64LE, X86_32, X86_64}
	addMacro("__QNX__", osArchPlatforms(QNX, qnxArchs))
	addMacro("__QNXNTO__", osArchPlatforms(QNX, qnxArchs))

	haikuArchs := []Arch{X86_32, X86_64}
	addMacro("__HAIKU__", osArchPlatforms(Haiku, haikuArchs))

	fuchsiaArchs := []Arch{AArch64, X86_64}
	addMacro("__FUCHSIA__", osArchPlatforms(Fuchsia, fuchsiaArchs))
	addMacro("__Fuchsia__", osArchPlatforms(Fuchsia, fuchsiaArchs))

	vxworksArchs := []Arch{AArch32, AArch64, PPC32, PPC64LE, X86_32, X86_64}
	addMacro("__VXWORKS__", osArchPlatforms(VxWorks, vxworksArchs))
	addMacro("__vxworks", osArchPlatforms(VxWorks, vxworksArchs))

	uefiArchs := []Arch{AArch32, AArch64, X86_32, X86_64, RiscV64}
	addMacro("__UEFI__", osArchPlatforms(UEFI, uefiArchs))
	addMacro("__EFI__", osArchPlatforms(UEFI, uefiArchs))

	// Apple family (modern, so no 32-bit x86 or armv6 any more)
	macArchs := []Arch{X86_64, AArch64, Arm64e}
	iosArchs := []Arch{AArch64, Arm64e}
	tvosArchs := []Arch{AArch64}
	watchArchs := []Arch{ArmV7K, Arm64_32}
	visionArchs := []Arch{AArch64}
	applePlatforms := slices.Concat(
		osArchPlatforms(OSX, macArchs),
		osArchPlatforms(IOS, iosArchs),
		osArchPlatforms(TvOS, tvosArchs),
		osArchPlatforms(WatchOS, watchArchs),
		osArchPlatforms(VisionOS, visionArchs),
	)
	addMacro("__APPLE__", applePlatforms)
	addMacro("__MACH__", applePlatforms)
	addMacro("TARGET_OS_OSX", osArchPlatforms(OSX, macArchs))
	addMacro("TARGET_OS_MAC", osArchPlatforms(OSX, macArchs))
	addMacro("TARGET_OS_IPHONE", osArchPlatforms(IOS, iosArchs))
	addMacro("TARGET_OS_IOS", osArchPlatforms(IOS, iosArchs))
	addMacro("TARGET_OS_TV", osArchPlatforms(TvOS, tvosArchs))
	addMacro("TARGET_OS_WATCH", osArchPlatforms(WatchOS, watchArchs))
	addMacro("TARGET_OS_VISION", osArchPlatforms(VisionOS, visionArchs))

	// Generic CPU-only macros
	addMacros(
		[]string{"__x86_64__", "__x86_64", "__amd64", "__amd64__"},
		archOSPlatforms(X86_64, knownOS),
	)
	addMacros(
		[]string{"__i386__", "__i386"},
		archOSPlatforms(I386, knownOS),
	)
	addMacros(
		[]string{"__arm__", "__arm", "__thumb__", "__thumb"},
		archOSPlatforms(AArch32, knownOS),
	)
	addMacros(
		[]string{"__aarch64__", "__arm64", "__arm64__"},
		archOSPlatforms(AArch64, knownOS),
	)
	addMacros(
		[]string{"__ARM64_32__", "__ARM64_32"},
		osArchPlatform(WatchOS, Arm64_32),
	)
	addMacros(
		[]string{"__arm64e__", "__arm64e"},
		archOSPlatforms(Arm64e, []OS{OSX, IOS}),
	)

	// Fine-grained Arm (mostly bare-metal)
	addMacro("__ARM_ARCH_6M__", osArchPlatform(None, ArmV6M))
	addMacro("__ARM_ARCH_7__", osArchPlatform(None, ArmV7))
	addMacro("__ARM_ARCH_7A__", osArchPlatform(None, ArmV7))
	addMacro("__ARM_ARCH_7M__", osArchPlatform(None, ArmV7M))
	addMacro("__ARM_ARCH_7EM__", osArchPlatform(None, ArmV7EM))
	addMacro("__ARM_ARCH_8M_BASE__", osArchPlatform(None, ArmV8M))
	addMacro("__ARM_ARCH_8M_MAIN__", osArchPlatform(None, ArmV8M))

	// PowerPC
	powerPCOS := []OS{Linux, FreeBSD, NetBSD, OpenBSD, QNX, VxWorks}
	addMacro("__powerpc__", archOSPlatforms(PPC32, powerPCOS))
	addMacro("__PPC__", archOSPlatforms(PPC32, powerPCOS))
	addMacro("__powerpc64__", archOSPlatforms(PPC64LE, powerPCOS))
	addMacro("__ppc64__", archOSPlatforms(PPC64LE, powerPCOS))

	// MIPS
	mipsOS := []OS{Linux, NetBSD, OpenBSD, QNX, VxWorks}
	addMacro("__mips64", archOSPlatforms(MIPS64, mipsOS))

	// s390
	addMacro("__s390x__", osArchPlatform(Linux, S390X))
	addMacro("__s390__", osArchPlatform(Linux, S390X))

	// RISC-V
	riscvOS := []OS{Linux, FreeBSD, NetBSD, OpenBSD, QNX, VxWorks, Android, ChromiumOS, Fuchsia, NixOS}
	addMacro("__riscv", archOSPlatforms(RiscV64, riscvOS))
}

func addMacroValue(name string, value int, platforms []Platform) {
	for _, p := range platforms {
		macros, ok := KnownPlatformMacros[p]
		if !ok {
			macros = make(Macros, 8)
			KnownPlatformMacros[p] = macros
		}
		macros[name] = value
	}
}

func addMacro(name string, platforms []Platform) {
	// #define NAME is assumed equal to #define NAME 1
	addMacroValue(name, 1, platforms)
}

func addMacros(names []string, platforms []Platform) {
	for _, name := range names {
		addMacro(name, platforms)
	}
}

func osArchPlatform(os OS, arch Arch) []Platform {
	return []Platform{{os, arch}}
}

// osArchPlatforms expands an OS over a set of architectures, including a
// partial OS-only entry representing the whole family.
func osArchPlatforms(os OS, archs []Arch) []Platform {
	return append(platformsMatrix([]OS{os}, archs), Platform{OS: os})
}

// archOSPlatforms expands an architecture over a set of operating systems,
// including a partial Arch-only entry.
func archOSPlatforms(arch Arch, oses []OS) []Platform {
	return append(platformsMatrix(oses, []Arch{arch}), Platform{Arch: arch})
}

func platformsMatrix(oses []OS, archs []Arch) []Platform {
	result := make([]Platform, 0, len(oses)*len(archs))
	for _, os := range oses {
		for _, arch := range archs {
			result = append(result, Platform{OS: os, Arch: arch})
		}
	}
	return result
}
