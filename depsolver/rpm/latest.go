package rpm

import (
	"sort"

	"github.com/quay/ubi-manifest"
)

// KeepNLatest implements the latest-N-per-arch selection rule: sort by
// EVR descending, collect the N highest distinct (version, release)
// pairs seen across every arch, then keep up to N survivors per arch
// whose (version, release) falls in that allow-set.
//
// Because the allow-set is built across every arch at once rather than
// per arch independently, an arch that only carries an older build than
// the globally-selected version is dropped entirely rather than
// contributing its own "latest" — this is the spec's chosen tradeoff
// for keeping consistent versions across arches where possible.
func KeepNLatest(units []ubimanifest.Unit, n int) []ubimanifest.Unit {
	if n <= 0 {
		n = 1
	}
	sorted := append([]ubimanifest.Unit(nil), units...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := ubimanifest.Compare(sorted[i].Rpm.EVR(), sorted[j].Rpm.EVR()); c != 0 {
			return c > 0
		}
		// Same EVR from two different input repos: the smaller
		// SourceRepoID wins the tie deterministically.
		return sorted[i].SourceRepoID < sorted[j].SourceRepoID
	})

	type vr struct{ version, release string }
	allow := make(map[vr]struct{}, n)
	for _, u := range sorted {
		key := vr{u.Rpm.Version, u.Rpm.Release}
		if _, ok := allow[key]; ok {
			continue
		}
		if len(allow) >= n {
			break
		}
		allow[key] = struct{}{}
	}

	perArch := make(map[string]int)
	out := make([]ubimanifest.Unit, 0, len(sorted))
	for _, u := range sorted {
		key := vr{u.Rpm.Version, u.Rpm.Release}
		if _, ok := allow[key]; !ok {
			continue
		}
		if perArch[u.Rpm.Arch] >= n {
			continue
		}
		perArch[u.Rpm.Arch]++
		out = append(out, u)
	}
	return out
}
