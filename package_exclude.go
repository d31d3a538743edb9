package ubimanifest

import "github.com/quay/ubi-manifest/internal/blacklist"

// PackageToExclude is a single blacklist rule: Name (or, when Globbing is
// true, a name prefix), and an optional Arch restriction. Arch == "" (via
// Anywhere) matches every architecture; Arch == "src" restricts the rule
// to source RPMs.
type PackageToExclude struct {
	Name     string
	Globbing bool
	Arch     string
}

// entry converts a PackageToExclude to the internal matcher's Entry type.
func (p PackageToExclude) entry() blacklist.Entry {
	return blacklist.Entry{Name: p.Name, Globbing: p.Globbing, Arch: p.Arch}
}

// IsBlacklisted reports whether name/arch is excluded by any rule in list.
func IsBlacklisted(name, arch string, list []PackageToExclude) bool {
	entries := make([]blacklist.Entry, len(list))
	for i, p := range list {
		entries[i] = p.entry()
	}
	return blacklist.IsBlacklisted(name, arch, entries)
}

// ParsePackageBlacklist splits a content-config blacklist into the
// general package bucket and the SRPM-specific bucket, per
// [blacklist.ParseConfig]'s syntax (trailing "*" => Globbing, "X.src" =>
// SRPM bucket with Arch "src").
func ParsePackageBlacklist(patterns []string) (packages, srpmPackages []PackageToExclude) {
	pkgs, srpms := blacklist.ParseConfig(patterns)
	return fromEntries(pkgs), fromEntries(srpms)
}

func fromEntries(entries []blacklist.Entry) []PackageToExclude {
	out := make([]PackageToExclude, len(entries))
	for i, e := range entries {
		out[i] = PackageToExclude{Name: e.Name, Globbing: e.Globbing, Arch: e.Arch}
	}
	return out
}
