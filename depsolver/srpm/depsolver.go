// Package srpm implements the SRPM depsolver (spec.md section 4.4):
// for every source repo carrying sourcerpm filenames the RPM depsolver
// referenced, it fetches those SRPMs and applies the SRPM blacklist.
// Source packages are leaves — there is no transitive closure here.
package srpm

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
	"github.com/quay/ubi-manifest/internal/obsmetrics"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/quay/ubi-manifest/depsolver/srpm")
}

// DefaultWorkers is the default per-run worker pool size
// (UBI_MANIFEST_SRPM_DEPSOLVER_WORKERS).
const DefaultWorkers = 8

// Depsolver resolves sourcerpm filenames against a [contentstore.Client].
type Depsolver struct {
	Client contentstore.Client

	// Workers bounds concurrent per-repo processing. Zero selects
	// DefaultWorkers.
	Workers int
}

func (dv *Depsolver) workers() int {
	if dv.Workers > 0 {
		return dv.Workers
	}
	return DefaultWorkers
}

// Result is the output of one Depsolver.Run call.
type Result struct {
	// Output maps source repo ID to the SRPM units resolved from it.
	Output map[string][]ubimanifest.Unit
}

// Run fetches, for every repo in repos, the SRPMs named in
// filenames[repo.ID] (if any), filtering out anything matching
// blacklist.
func (dv *Depsolver) Run(ctx context.Context, repos []ubimanifest.Repo, filenames map[string][]string, blacklist []ubimanifest.PackageToExclude) (_ Result, err error) {
	ctx, span := tracer.Start(ctx, "depsolver/srpm.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	result := Result{Output: make(map[string][]ubimanifest.Unit, len(repos))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dv.workers())
	var mu sync.Mutex

	for i := range repos {
		repo := repos[i]
		names := filenames[repo.ID]
		if len(names) == 0 {
			continue
		}
		g.Go(func() error {
			units, err := dv.searchRepo(gctx, repo, names, blacklist)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Output[repo.ID] = units
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		obsmetrics.DepsolverPasses.WithLabelValues("srpm", "failure").Inc()
		return Result{}, err
	}
	obsmetrics.DepsolverPasses.WithLabelValues("srpm", "success").Inc()
	return result, nil
}

func (dv *Depsolver) searchRepo(ctx context.Context, repo ubimanifest.Repo, filenames []string, blacklist []ubimanifest.PackageToExclude) ([]ubimanifest.Unit, error) {
	criteria := make([]contentstore.Criteria, len(filenames))
	for i, fn := range filenames {
		criteria[i] = contentstore.Criteria{"filename": fn}
	}
	opts := contentstore.SearchOptions{BatchSize: contentstore.BatchSRPM}

	pages, errc := dv.Client.Search(ctx, repo, criteria, contentstore.TypeSRPM, opts)
	units, err := contentstore.Fold(ctx, pages, errc)
	if err != nil {
		return nil, err
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
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
