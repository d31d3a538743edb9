package rpm

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
)

// searchByField issues one OR-of-field-value content search per repo in
// repos, fanning the per-repo searches out concurrently and folding all
// of them into a single slice.
func searchByField(ctx context.Context, client contentstore.Client, repos []ubimanifest.Repo, field string, values []string, unitType contentstore.UnitType, batchSize int) ([]ubimanifest.Unit, error) {
	if len(values) == 0 || len(repos) == 0 {
		return nil, nil
	}
	criteria := make([]contentstore.Criteria, len(values))
	for i, v := range values {
		criteria[i] = contentstore.Criteria{field: v}
	}
	opts := contentstore.SearchOptions{BatchSize: batchSize}

	results := make([][]ubimanifest.Unit, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	for i := range repos {
		i := i
		g.Go(func() error {
			pages, errc := client.Search(gctx, repos[i], criteria, unitType, opts)
			units, err := contentstore.Fold(gctx, pages, errc)
			if err != nil {
				return err
			}
			results[i] = units
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []ubimanifest.Unit
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// filterModular drops RPM units whose filename is in the pinned modular
// set, per invariant 4: modular artifacts only survive when brought in
// explicitly via the modulemd allow-list.
func filterModular(units []ubimanifest.Unit, modular map[string]struct{}) []ubimanifest.Unit {
	if len(modular) == 0 {
		return units
	}
	out := make([]ubimanifest.Unit, 0, len(units))
	for _, u := range units {
		if u.Rpm == nil {
			continue
		}
		if _, excluded := modular[u.Rpm.Filename]; excluded {
			continue
		}
		out = append(out, u)
	}
	return out
}

// filterBlacklist drops RPM units matching an enabled blacklist entry,
// per invariant 5.
func filterBlacklist(units []ubimanifest.Unit, blacklist []ubimanifest.PackageToExclude) []ubimanifest.Unit {
	if len(blacklist) == 0 {
		return units
	}
	out := make([]ubimanifest.Unit, 0, len(units))
	for _, u := range units {
		if u.Rpm == nil {
			continue
		}
		if ubimanifest.IsBlacklisted(u.Rpm.Name, u.Rpm.Arch, blacklist) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// groupAndKeepLatest groups units by RPM name and applies KeepNLatest
// within each group independently.
func groupAndKeepLatest(units []ubimanifest.Unit, n int) []ubimanifest.Unit {
	byName := make(map[string][]ubimanifest.Unit)
	var order []string
	for _, u := range units {
		if u.Rpm == nil {
			continue
		}
		if _, ok := byName[u.Rpm.Name]; !ok {
			order = append(order, u.Rpm.Name)
		}
		byName[u.Rpm.Name] = append(byName[u.Rpm.Name], u)
	}
	var out []ubimanifest.Unit
	for _, name := range order {
		out = append(out, KeepNLatest(byName[name], n)...)
	}
	return out
}

// computeModularFilenames searches every distinct input repo across
// items for Modulemd units and gathers their artifact filenames, used
// when the coordinator hasn't already supplied a pinned set (step 1 of
// the algorithm).
func computeModularFilenames(ctx context.Context, client contentstore.Client, items []ubimanifest.DepsolverItem) (map[string]struct{}, error) {
	seen := make(map[string]ubimanifest.Repo)
	for _, item := range items {
		for _, r := range item.InPulpRepos {
			seen[r.ID] = r
		}
	}
	out := make(map[string]struct{})
	for _, repo := range seen {
		// An empty Criteria matches every document in the repo; this is
		// an unfiltered "give me every Modulemd" search, not a malformed
		// zero-criteria call.
		pages, errc := client.Search(ctx, repo, []contentstore.Criteria{{}}, contentstore.TypeModulemd, contentstore.SearchOptions{})
		units, err := contentstore.Fold(ctx, pages, errc)
		if err != nil {
			return nil, err
		}
		for _, u := range units {
			if u.Modulemd == nil {
				continue
			}
			for _, fn := range u.Modulemd.ArtifactFilenames() {
				out[fn] = struct{}{}
			}
		}
	}
	return out, nil
}
