package ubimanifest

import "strings"

// ContentSetMapping names, for one of the rpm/srpm/debuginfo families,
// the input and output content sets a [Config] governs.
type ContentSetMapping struct {
	Input  string
	Output string
}

// Flags are the per-config behavior toggles that must agree across every
// Config consumed within a single coordinator run.
type Flags struct {
	// BasePkgsOnly, when true, skips the RPM depsolver's closure pass
	// (steps 6-7 in the algorithm): only the seeded whitelist packages
	// are resolved, with no Requires expansion and no debuginfo
	// backfill guesswork.
	BasePkgsOnly bool
}

// Config is the resolved (input content-set, output content-set,
// version) configuration: whitelists, blacklists, module list, content
// set mapping, allowed arches, and flags.
type Config struct {
	ModuleWhitelist  []ModuleProfileRequest
	PackageWhitelist []string
	PackageBlacklist []PackageToExclude

	ContentSets map[string]ContentSetMapping // keyed by "rpm", "srpm", "debuginfo"
	Arches      []string
	Flags       Flags
}

// SplitPackageWhitelist partitions the package whitelist into the
// non-debug/non-source names and the debuginfo-family names (those
// ending in "-debuginfo", "-debugsource", or "-debuginfo-common").
func (c Config) SplitPackageWhitelist() (pkgWhitelist, debuginfoWhitelist []string) {
	for _, name := range c.PackageWhitelist {
		if isDebugName(name) {
			debuginfoWhitelist = append(debuginfoWhitelist, name)
		} else {
			pkgWhitelist = append(pkgWhitelist, name)
		}
	}
	return pkgWhitelist, debuginfoWhitelist
}

func isDebugName(name string) bool {
	for _, suffix := range []string{"-debuginfo", "-debugsource", "-debuginfo-common"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
