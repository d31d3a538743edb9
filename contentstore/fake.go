package contentstore

import (
	"context"

	"github.com/quay/ubi-manifest"
)

// Fake is an in-memory [Client] used by depsolver tests: it evaluates
// Criteria against a small, fixed set of fields (enough to drive the
// depsolvers' actual query shapes) rather than talking to a real store.
type Fake struct {
	// Units maps repo ID -> unit type -> the units to hand back.
	Units map[string]map[UnitType][]ubimanifest.Unit
	// Err, if set, is returned (via the error channel) instead of any
	// units, for every repo/type it is keyed under.
	Err map[string]map[UnitType]error
}

var _ Client = (*Fake)(nil)

// Search implements [Client]. An empty criteria list matches every
// unit; otherwise a unit survives if it matches any one Criteria (OR
// semantics, matching [Client.Search]'s contract), where a Criteria
// itself is a conjunction of its field predicates.
func (f *Fake) Search(ctx context.Context, repo ubimanifest.Repo, criteria []Criteria, unitType UnitType, _ SearchOptions) (<-chan Page, <-chan error) {
	out := make(chan Page, 1)
	errc := make(chan error, 1)

	if err, ok := f.Err[repo.ID][unitType]; ok && err != nil {
		close(out)
		errc <- err
		close(errc)
		return out, errc
	}

	var matched []ubimanifest.Unit
	for _, u := range f.Units[repo.ID][unitType] {
		if matchesAny(u, criteria) {
			matched = append(matched, u)
		}
	}
	if len(matched) > 0 {
		out <- Page{Units: matched}
	}
	close(out)
	close(errc)
	return out, errc
}

func matchesAny(u ubimanifest.Unit, criteria []Criteria) bool {
	if len(criteria) == 0 {
		return true
	}
	for _, c := range criteria {
		if matchesAll(u, c) {
			return true
		}
	}
	return false
}

func matchesAll(u ubimanifest.Unit, c Criteria) bool {
	for field, want := range c {
		v, ok := want.(string)
		if !ok {
			continue
		}
		if !matchesField(u, field, v) {
			return false
		}
	}
	return true
}

func matchesField(u ubimanifest.Unit, field, value string) bool {
	switch field {
	case "name":
		switch {
		case u.Rpm != nil:
			return u.Rpm.Name == value
		case u.Modulemd != nil:
			return u.Modulemd.Name == value
		case u.ModulemdDefaults != nil:
			return u.ModulemdDefaults.Name == value
		default:
			return false
		}
	case "stream":
		return u.Modulemd != nil && u.Modulemd.Stream == value
	case "filename":
		if u.Rpm != nil {
			return u.Rpm.Filename == value
		}
		return false
	case "provides.name":
		if u.Rpm == nil {
			return false
		}
		for _, p := range u.Rpm.Provides {
			if p.Name == value {
				return true
			}
		}
		return false
	case "files":
		if u.Rpm == nil {
			return false
		}
		for _, f := range u.Rpm.Files {
			if f == value {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Add registers units for a (repo, unitType) pair, tagging each with
// repo.ID as its SourceRepoID.
func (f *Fake) Add(repoID string, unitType UnitType, units ...ubimanifest.Unit) {
	if f.Units == nil {
		f.Units = make(map[string]map[UnitType][]ubimanifest.Unit)
	}
	if f.Units[repoID] == nil {
		f.Units[repoID] = make(map[UnitType][]ubimanifest.Unit)
	}
	for i := range units {
		units[i].SourceRepoID = repoID
	}
	f.Units[repoID][unitType] = append(f.Units[repoID][unitType], units...)
}

// Fail registers an error to be returned for every Search of a
// (repo, unitType) pair; it is never cleared.
func (f *Fake) Fail(repoID string, unitType UnitType, err error) {
	if f.Err == nil {
		f.Err = make(map[string]map[UnitType]error)
	}
	if f.Err[repoID] == nil {
		f.Err[repoID] = make(map[UnitType]error)
	}
	f.Err[repoID][unitType] = err
}
