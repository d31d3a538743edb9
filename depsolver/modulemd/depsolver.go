// Package modulemd implements the modulemd depsolver (spec.md section
// 4.3): given a module whitelist, it computes the transitive closure of
// module dependencies, selects the latest version per (name, stream),
// resolves modulemd-defaults, and expands (profile-filtered) artifact
// lists into the RPM filename set the RPM depsolver must pin in.
package modulemd

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
	"github.com/quay/ubi-manifest/internal/nevra"
	"github.com/quay/ubi-manifest/internal/obsmetrics"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/quay/ubi-manifest/depsolver/modulemd")
}

// DefaultWorkers is the default per-run worker pool size
// (UBI_MANIFEST_MODULAR_DEPSOLVER_WORKERS).
const DefaultWorkers = 8

// Depsolver resolves [ubimanifest.ModularDepsolverItem]s against a
// [contentstore.Client].
type Depsolver struct {
	Client contentstore.Client

	// Workers bounds concurrent item processing. Zero selects
	// DefaultWorkers.
	Workers int
}

// Result is the output of one Depsolver.Run call.
type Result struct {
	// Output maps OutputRepoID to the resolved modulemd/modulemd-defaults
	// unit set for that item.
	Output map[string][]ubimanifest.Unit
	// RPMDependencies is the union, across every item, of RPM filenames
	// named as module artifacts — the RPM depsolver's modulemdRPMFilenames
	// input.
	RPMDependencies []string
}

func (dv *Depsolver) workers() int {
	if dv.Workers > 0 {
		return dv.Workers
	}
	return DefaultWorkers
}

// Run resolves every item concurrently (bounded by Workers).
func (dv *Depsolver) Run(ctx context.Context, items []ubimanifest.ModularDepsolverItem) (_ Result, err error) {
	ctx, span := tracer.Start(ctx, "depsolver/modulemd.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	result := Result{Output: make(map[string][]ubimanifest.Unit, len(items))}
	rpmDeps := make(map[string]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dv.workers())
	var mu sync.Mutex

	for i := range items {
		item := items[i]
		g.Go(func() error {
			units, deps, err := dv.runItem(gctx, item)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Output[item.OutputRepoID] = units
			for _, d := range deps {
				rpmDeps[d] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		obsmetrics.DepsolverPasses.WithLabelValues("modulemd", "failure").Inc()
		return Result{}, err
	}

	for fn := range rpmDeps {
		result.RPMDependencies = append(result.RPMDependencies, fn)
	}
	obsmetrics.DepsolverPasses.WithLabelValues("modulemd", "success").Inc()
	return result, nil
}

// moduleKey renders the "searched" identity for a module reference:
// "name:stream" when pinned, or bare "name" when any stream is
// acceptable.
func moduleKey(name, stream string) string {
	if stream == "" {
		return name
	}
	return name + ":" + stream
}

func (dv *Depsolver) runItem(ctx context.Context, item ubimanifest.ModularDepsolverItem) ([]ubimanifest.Unit, []string, error) {
	st := &state{
		searched: make(map[string]struct{}),
		profiles: make(map[string][]string),
		modules:  make(map[string]ubimanifest.Unit),
		defaults: make(map[string]ubimanifest.Unit),
		rpmDeps:  make(map[string]struct{}),
	}

	queue := make([]ubimanifest.ModuleProfileRequest, 0, len(item.ModuleList))
	for _, m := range item.ModuleList {
		if len(m.Profiles) > 0 {
			st.profiles[moduleKey(m.Name, m.Stream)] = m.Profiles
		}
		queue = append(queue, m)
	}

	for len(queue) > 0 {
		criteria := st.markSearched(queue)
		if len(criteria) == 0 {
			break
		}
		found, err := searchModulemds(ctx, dv.Client, item.InPulpRepos, criteria)
		if err != nil {
			return nil, nil, err
		}
		queue, err = st.depsolveModules(ctx, dv.Client, item.InPulpRepos, found)
		if err != nil {
			return nil, nil, err
		}
	}

	units := make([]ubimanifest.Unit, 0, len(st.modules)+len(st.defaults))
	for _, u := range st.modules {
		units = append(units, u)
	}
	for _, u := range st.defaults {
		units = append(units, u)
	}
	deps := make([]string, 0, len(st.rpmDeps))
	for fn := range st.rpmDeps {
		deps = append(deps, fn)
	}
	return units, deps, nil
}

// state is the per-ModularDepsolverItem working set.
type state struct {
	searched map[string]struct{} // moduleKey -> searched
	profiles map[string][]string // moduleKey -> pinned profile names
	modules  map[string]ubimanifest.Unit // dedup key -> modulemd unit
	defaults map[string]ubimanifest.Unit // dedup key -> modulemd-defaults unit
	rpmDeps  map[string]struct{}
}

// markSearched marks every not-yet-searched entry in refs as searched
// and returns the Criteria to fetch them; already-searched entries are
// dropped (cycle safety).
func (st *state) markSearched(refs []ubimanifest.ModuleProfileRequest) []contentstore.Criteria {
	var criteria []contentstore.Criteria
	for _, r := range refs {
		key := moduleKey(r.Name, r.Stream)
		if _, ok := st.searched[key]; ok {
			continue
		}
		st.searched[key] = struct{}{}
		if r.Stream != "" {
			criteria = append(criteria, contentstore.Criteria{"name": r.Name, "stream": r.Stream})
		} else {
			criteria = append(criteria, contentstore.Criteria{"name": r.Name})
		}
	}
	return criteria
}

// depsolveModules implements the per-sweep fold: latest-per-(name,
// stream) selection, modulemd-defaults resolution, profile-filtered
// artifact expansion, and transitive-dependency discovery.
func (st *state) depsolveModules(ctx context.Context, client contentstore.Client, repos []ubimanifest.Repo, found []ubimanifest.Unit) ([]ubimanifest.ModuleProfileRequest, error) {
	winners := latestPerNameStream(found)

	var next []ubimanifest.ModuleProfileRequest
	seenGroup := make(map[string]bool)
	for _, u := range winners {
		m := u.Modulemd
		dedupKey := u.SourceRepoID + "\x00" + u.Key()
		st.modules[dedupKey] = u

		group := m.NameStream()
		if !seenGroup[group] {
			seenGroup[group] = true

			defaults, err := searchDefaults(ctx, client, repos, m.Name)
			if err != nil {
				return nil, err
			}
			for _, d := range defaults {
				dk := d.SourceRepoID + "\x00" + d.Key()
				st.defaults[dk] = d
			}
		}

		for _, fn := range filterArtifacts(m, st.profiles[moduleKey(m.Name, m.Stream)]) {
			st.rpmDeps[fn] = struct{}{}
		}

		for _, dep := range m.Dependencies {
			key := moduleKey(dep.Name, dep.Stream)
			if _, ok := st.searched[key]; ok {
				continue
			}
			next = append(next, ubimanifest.ModuleProfileRequest{Name: dep.Name, Stream: dep.Stream})
		}
	}
	return next, nil
}

// latestPerNameStream groups by (name, stream) and keeps every unit at
// the group's highest Version, matching invariant 6 (distinct contexts
// at the winning version all survive).
func latestPerNameStream(units []ubimanifest.Unit) []ubimanifest.Unit {
	groups := make(map[string][]ubimanifest.Unit)
	var order []string
	for _, u := range units {
		if u.Modulemd == nil {
			continue
		}
		key := u.Modulemd.NameStream()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], u)
	}
	var out []ubimanifest.Unit
	for _, key := range order {
		group := groups[key]
		var max int64
		for _, u := range group {
			if u.Modulemd.Version > max {
				max = u.Modulemd.Version
			}
		}
		for _, u := range group {
			if u.Modulemd.Version == max {
				out = append(out, u)
			}
		}
	}
	return out
}

// filterArtifacts returns m's artifact filenames, excluding SRPMs, and
// restricted to the union of the pinned profiles' package names when
// profiles is non-empty.
func filterArtifacts(m *ubimanifest.Modulemd, profiles []string) []string {
	var allow map[string]struct{}
	if len(profiles) > 0 {
		allow = make(map[string]struct{})
		for _, p := range profiles {
			for _, name := range m.Profiles[p] {
				allow[name] = struct{}{}
			}
		}
	}

	var out []string
	for _, fn := range m.ArtifactFilenames() {
		if strings.HasSuffix(fn, ".src.rpm") {
			continue
		}
		if allow != nil {
			name, _, _, _, _ := nevra.Split(fn)
			if _, ok := allow[name]; !ok {
				continue
			}
		}
		out = append(out, fn)
	}
	return out
}
