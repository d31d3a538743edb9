// Package blacklist matches packages against configured exclusion rules
// and parses the content-config blacklist syntax into the RPM and SRPM
// exclusion buckets.
package blacklist

import "strings"

// Entry is a single exclusion rule: a name (or name prefix), whether it
// should be matched as a prefix, and an optional arch restriction.
//
// An Entry with Arch == "" matches every arch. An Entry with Arch ==
// "src" applies only to source RPMs; such entries are carried in a
// separately-tracked SRPM bucket even though they share this type, a
// separation enforced at parse time by [ParseConfig].
type Entry struct {
	Name     string
	Globbing bool
	Arch     string // "" means any arch
}

// Matches reports whether name/arch is excluded by e.
func (e Entry) Matches(name, arch string) bool {
	if e.Arch != "" && e.Arch != arch {
		return false
	}
	if e.Globbing {
		return strings.HasPrefix(name, e.Name)
	}
	return name == e.Name
}

// IsBlacklisted reports whether any rule in list excludes name/arch.
func IsBlacklisted(name, arch string, list []Entry) bool {
	for _, e := range list {
		if e.Matches(name, arch) {
			return true
		}
	}
	return false
}

// ParseConfig splits a content-config blacklist (a flat list of package
// patterns) into the general package-exclusion bucket and the
// SRPM-specific bucket.
//
// A pattern ending in "*" yields an Entry with Globbing=true (the "*" is
// stripped). A pattern of the form "X.src" yields an SRPM-only entry
// (Arch pinned to "src", the ".src" suffix stripped), placed in the
// SRPM bucket rather than the general one.
func ParseConfig(patterns []string) (packages, srpmPackages []Entry) {
	for _, p := range patterns {
		switch {
		case strings.HasSuffix(p, ".src"):
			name := strings.TrimSuffix(p, ".src")
			e := Entry{Arch: "src"}
			if strings.HasSuffix(name, "*") {
				e.Globbing = true
				name = strings.TrimSuffix(name, "*")
			}
			e.Name = name
			srpmPackages = append(srpmPackages, e)
		case strings.HasSuffix(p, "*"):
			packages = append(packages, Entry{Name: strings.TrimSuffix(p, "*"), Globbing: true})
		default:
			packages = append(packages, Entry{Name: p})
		}
	}
	return packages, srpmPackages
}

// CreateOrCriteria builds one conjunctive predicate per value for the
// given field name, suitable for feeding into a content-store OR-criteria
// search.
func CreateOrCriteria(field string, values []string) []map[string]string {
	out := make([]map[string]string, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]string{field: v})
	}
	return out
}
