package modulemd

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
)

// searchModulemds fans the given criteria out across every repo
// concurrently and folds the results, mirroring the RPM depsolver's
// searchByField shape.
func searchModulemds(ctx context.Context, client contentstore.Client, repos []ubimanifest.Repo, criteria []contentstore.Criteria) ([]ubimanifest.Unit, error) {
	if len(criteria) == 0 || len(repos) == 0 {
		return nil, nil
	}
	opts := contentstore.SearchOptions{BatchSize: contentstore.BatchGeneral}

	results := make([][]ubimanifest.Unit, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	for i := range repos {
		i := i
		g.Go(func() error {
			pages, errc := client.Search(gctx, repos[i], criteria, contentstore.TypeModulemd, opts)
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

// searchDefaults searches every repo for the ModulemdDefaults document
// declaring a module's default stream/profiles.
func searchDefaults(ctx context.Context, client contentstore.Client, repos []ubimanifest.Repo, name string) ([]ubimanifest.Unit, error) {
	if len(repos) == 0 {
		return nil, nil
	}
	criteria := []contentstore.Criteria{{"name": name}}
	opts := contentstore.SearchOptions{BatchSize: contentstore.BatchGeneral}

	results := make([][]ubimanifest.Unit, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	for i := range repos {
		i := i
		g.Go(func() error {
			pages, errc := client.Search(gctx, repos[i], criteria, contentstore.TypeModulemdDefaults, opts)
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
