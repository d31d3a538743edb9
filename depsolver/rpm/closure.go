package rpm

import (
	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/internal/richdep"
)

// rpmState is the per-DepsolverItem working set threaded through the
// fixpoint loop: provided/required name and file dependencies, and the
// still-unresolved queues the next sweep's queries are built from.
type rpmState struct {
	providedNames map[string][]ubimanifest.RpmDependency
	providedFiles map[string]struct{}

	unsolvedRPMs  map[string]ubimanifest.RpmDependency
	unsolvedFiles map[string]struct{}

	requiredByName map[string][]string
	requiredByFile map[string][]string
}

func newRPMState() *rpmState {
	return &rpmState{
		providedNames:  make(map[string][]ubimanifest.RpmDependency),
		providedFiles:  make(map[string]struct{}),
		unsolvedRPMs:   make(map[string]ubimanifest.RpmDependency),
		unsolvedFiles:  make(map[string]struct{}),
		requiredByName: make(map[string][]string),
		requiredByFile: make(map[string][]string),
	}
}

func depKey(d ubimanifest.RpmDependency) string {
	return d.Name + "\x00" + string(d.Flags) + "\x00" + d.EVR().String()
}

// extractAndResolve folds a batch of newly-added units into the state:
// first every Provides/Files entry is recorded, then every Requires
// entry is checked against the now-current provided sets, and finally
// the existing unsolved queues are re-drained against the updated
// provided sets (a requirement queued by an earlier sweep may be
// satisfied by a provider discovered in this one).
func (st *rpmState) extractAndResolve(units []ubimanifest.Unit) {
	for _, u := range units {
		if u.Rpm == nil {
			continue
		}
		for _, p := range u.Rpm.Provides {
			if p.IsFile() {
				st.providedFiles[p.Name] = struct{}{}
			} else {
				st.providedNames[p.Name] = append(st.providedNames[p.Name], p)
			}
		}
		for _, f := range u.Rpm.Files {
			st.providedFiles[f] = struct{}{}
		}
	}

	for _, u := range units {
		if u.Rpm == nil {
			continue
		}
		for _, req := range u.Rpm.Requires {
			switch {
			case req.IsFile():
				st.addFileRequirement(req.Name, u.Rpm.Filename)
			case req.IsRich():
				for _, atom := range richdep.Atoms(req.Name) {
					st.addNameRequirement(ubimanifest.RpmDependency{Name: atom}, u.Rpm.Filename)
				}
			default:
				st.addNameRequirement(req, u.Rpm.Filename)
			}
		}
	}

	st.drain()
}

func (st *rpmState) addNameRequirement(req ubimanifest.RpmDependency, requiredBy string) {
	if st.resolvedByName(req) {
		return
	}
	st.unsolvedRPMs[depKey(req)] = req
	st.requiredByName[req.Name] = appendUnique(st.requiredByName[req.Name], requiredBy)
}

func (st *rpmState) addFileRequirement(path, requiredBy string) {
	if _, ok := st.providedFiles[path]; ok {
		return
	}
	st.unsolvedFiles[path] = struct{}{}
	st.requiredByFile[path] = appendUnique(st.requiredByFile[path], requiredBy)
}

func (st *rpmState) resolvedByName(req ubimanifest.RpmDependency) bool {
	for _, p := range st.providedNames[req.Name] {
		if p.Resolves(req) {
			return true
		}
	}
	return false
}

func (st *rpmState) drain() {
	for key, req := range st.unsolvedRPMs {
		if st.resolvedByName(req) {
			delete(st.unsolvedRPMs, key)
		}
	}
	for path := range st.unsolvedFiles {
		if _, ok := st.providedFiles[path]; ok {
			delete(st.unsolvedFiles, path)
		}
	}
}

// popNames pops up to limit (0 means unlimited) distinct names out of
// unsolvedRPMs, removing every queued dependency that shares one of
// those names (a single provides.name search resolves all of them at
// once).
func (st *rpmState) popNames(limit int) []string {
	return popKeys(st.unsolvedRPMs, func(d ubimanifest.RpmDependency) string { return d.Name }, limit)
}

func (st *rpmState) popFiles(limit int) []string {
	out := make([]string, 0, len(st.unsolvedFiles))
	for path := range st.unsolvedFiles {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, path)
	}
	for _, p := range out {
		delete(st.unsolvedFiles, p)
	}
	return out
}

func popKeys(m map[string]ubimanifest.RpmDependency, name func(ubimanifest.RpmDependency) string, limit int) []string {
	seen := make(map[string]struct{})
	var out []string
	var drop []string
	for k, d := range m {
		n := name(d)
		if _, ok := seen[n]; !ok {
			if limit > 0 && len(out) >= limit {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
		drop = append(drop, k)
	}
	for _, k := range drop {
		delete(m, k)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// report renders the unresolved requirements remaining at loop exit
// into MissingDependency entries, classifying each against blacklist
// as spec.md step 7 requires.
func (st *rpmState) report(blacklist []ubimanifest.PackageToExclude) []MissingDependency {
	var out []MissingDependency
	for _, req := range st.unsolvedRPMs {
		out = append(out, MissingDependency{
			Name:        req.Name,
			RequiredBy:  st.requiredByName[req.Name],
			Blacklisted: ubimanifest.IsBlacklisted(req.Name, "", blacklist),
		})
	}
	for path := range st.unsolvedFiles {
		out = append(out, MissingDependency{
			Name:        path,
			RequiredBy:  st.requiredByFile[path],
			Blacklisted: ubimanifest.IsBlacklisted(path, "", blacklist),
		})
	}
	return out
}
