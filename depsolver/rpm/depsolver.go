// Package rpm implements the RPM depsolver (spec.md section 4.2): given
// per-output-repo whitelists/blacklists and a set of input repositories,
// it computes the closure of Requires over Provides, file dependencies,
// and rich boolean clauses, applying blacklist filtering, modular
// filtering, and latest-N-per-arch selection along the way.
package rpm

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/zlog"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
	"github.com/quay/ubi-manifest/internal/obsmetrics"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/quay/ubi-manifest/depsolver/rpm")
}

// DefaultWorkers is the default per-run worker pool size
// (UBI_MANIFEST_DEPSOLVER_WORKERS).
const DefaultWorkers = 8

// DefaultResolverBatch is the default number of new requirement names
// resolved per fixpoint sweep.
const DefaultResolverBatch = contentstore.BatchResolverSweep

// Depsolver resolves [ubimanifest.DepsolverItem]s against a
// [contentstore.Client].
type Depsolver struct {
	Client contentstore.Client

	// Workers bounds concurrent DepsolverItem processing. Zero selects
	// DefaultWorkers.
	Workers int
	// ResolverBatch bounds how many new requirement names are resolved
	// per fixpoint sweep. Zero selects DefaultResolverBatch.
	ResolverBatch int
}

// MissingDependency is an unresolved Requires (or file requirement)
// left over when the fixpoint loop exits, per spec.md step 7: never
// silently dropped, always reported.
type MissingDependency struct {
	// Name is the dependency name, or absolute file path for a file
	// requirement.
	Name string
	// RequiredBy lists the RPM filenames that declared this
	// requirement.
	RequiredBy []string
	// Blacklisted reports whether Name matches the item's blacklist;
	// these are logged at info level rather than warn.
	Blacklisted bool
}

// Result is the output of one Depsolver.Run call.
type Result struct {
	// Output maps OutputRepoID to the resolved unit set for that item.
	Output map[string][]ubimanifest.Unit
	// ModularRPMFilenames is the pinned modular-artifact filename set;
	// either the one passed in, or the one computed from a scan of
	// every item's input repos when the caller passed an empty set.
	// The coordinator threads this value, unchanged, into the debug
	// pass's call.
	ModularRPMFilenames map[string]struct{}
	// SourceRPMNames maps OutputRepoID to the set of sourcerpm
	// filenames referenced by that item's resolved RPMs, for the SRPM
	// depsolver to backfill.
	SourceRPMNames map[string]map[string]struct{}
	// Missing holds every unresolved requirement across every item.
	Missing []MissingDependency
}

func (dv *Depsolver) workers() int {
	if dv.Workers > 0 {
		return dv.Workers
	}
	return DefaultWorkers
}

func (dv *Depsolver) resolverBatch() int {
	if dv.ResolverBatch > 0 {
		return dv.ResolverBatch
	}
	return DefaultResolverBatch
}

// Run resolves every item concurrently (bounded by Workers) and merges
// their results. modulemdRPMFilenames is the modulemd depsolver's
// rpm_dependencies output (may be empty); modularRPMFilenames is the
// pinned-modular-artifact set (empty on the binary pass, reused from
// Result.ModularRPMFilenames on the debug pass).
func (dv *Depsolver) Run(ctx context.Context, items []ubimanifest.DepsolverItem, modulemdRPMFilenames []string, modularRPMFilenames map[string]struct{}, flags ubimanifest.Flags) (_ Result, err error) {
	ctx, span := tracer.Start(ctx, "depsolver/rpm.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(modularRPMFilenames) == 0 {
		computed, err := computeModularFilenames(ctx, dv.Client, items)
		if err != nil {
			return Result{}, err
		}
		modularRPMFilenames = computed
	}

	result := Result{
		Output:              make(map[string][]ubimanifest.Unit, len(items)),
		ModularRPMFilenames: modularRPMFilenames,
		SourceRPMNames:      make(map[string]map[string]struct{}, len(items)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dv.workers())
	var mu sync.Mutex

	for i := range items {
		item := items[i]
		g.Go(func() error {
			units, sourceRPMs, missing, err := dv.runItem(gctx, item, modulemdRPMFilenames, modularRPMFilenames, flags)
			if err != nil {
				return err
			}
			mu.Lock()
			result.Output[item.OutputRepoID] = units
			result.SourceRPMNames[item.OutputRepoID] = sourceRPMs
			result.Missing = append(result.Missing, missing...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		obsmetrics.DepsolverPasses.WithLabelValues("rpm", "failure").Inc()
		return Result{}, err
	}
	obsmetrics.DepsolverPasses.WithLabelValues("rpm", "success").Inc()
	return result, nil
}

func (dv *Depsolver) runItem(ctx context.Context, item ubimanifest.DepsolverItem, modulemdRPMFilenames []string, modularRPMFilenames map[string]struct{}, flags ubimanifest.Flags) ([]ubimanifest.Unit, map[string]struct{}, []MissingDependency, error) {
	outputSet := make(map[string]ubimanifest.Unit)

	base, err := dv.getBasePackages(ctx, item, modularRPMFilenames)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, u := range base {
		outputSet[unitKey(u)] = u
	}

	if len(modulemdRPMFilenames) > 0 {
		pinned, err := searchByField(ctx, dv.Client, item.InPulpRepos, "filename", modulemdRPMFilenames, contentstore.TypeRpm, contentstore.BatchFilename)
		if err != nil {
			return nil, nil, nil, err
		}
		for _, u := range pinned {
			if u.Rpm == nil {
				continue
			}
			outputSet[unitKey(u)] = u
		}
	}

	warnMissingWhitelist(ctx, item, outputSet)

	var missing []MissingDependency
	if !flags.BasePkgsOnly {
		if err := dv.closeOver(ctx, item, outputSet, modularRPMFilenames); err != nil {
			return nil, nil, nil, err
		}

		// Recompute final provided/required state once more against the
		// completed output set purely for reporting purposes: closeOver's
		// own state isn't retained past its internal loop exit, so rerun
		// extraction here to classify anything still unresolved.
		st := newRPMState()
		all := make([]ubimanifest.Unit, 0, len(outputSet))
		for _, u := range outputSet {
			all = append(all, u)
		}
		st.extractAndResolve(all)
		missing = st.report(item.Blacklist)
		for _, m := range missing {
			if m.Blacklisted {
				zlog.Info(ctx).
					Str("output_repo", item.OutputRepoID).
					Str("name", m.Name).
					Strs("required_by", m.RequiredBy).
					Msg("missing dependency is blacklisted")
				continue
			}
			zlog.Warn(ctx).
				Str("output_repo", item.OutputRepoID).
				Str("name", m.Name).
				Strs("required_by", m.RequiredBy).
				Msg("missing dependency not provided by any input repo")
		}
	}

	units := make([]ubimanifest.Unit, 0, len(outputSet))
	sourceRPMs := make(map[string]struct{})
	for _, u := range outputSet {
		units = append(units, u)
		if u.Rpm != nil && u.Rpm.SourceRPM != "" {
			sourceRPMs[u.Rpm.SourceRPM] = struct{}{}
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Key() < units[j].Key() })

	return units, sourceRPMs, missing, nil
}

func (dv *Depsolver) getBasePackages(ctx context.Context, item ubimanifest.DepsolverItem, modular map[string]struct{}) ([]ubimanifest.Unit, error) {
	units, err := searchByField(ctx, dv.Client, item.InPulpRepos, "name", item.Whitelist, contentstore.TypeRpm, contentstore.BatchGeneral)
	if err != nil {
		return nil, err
	}
	units = filterModular(units, modular)
	units = filterBlacklist(units, item.Blacklist)
	return groupAndKeepLatest(units, 1), nil
}

func warnMissingWhitelist(ctx context.Context, item ubimanifest.DepsolverItem, outputSet map[string]ubimanifest.Unit) {
	seen := make(map[string]bool, len(outputSet))
	for _, u := range outputSet {
		if u.Rpm != nil {
			seen[u.Rpm.Name] = true
		}
	}
	for _, name := range item.Whitelist {
		if !seen[name] {
			zlog.Warn(ctx).
				Str("output_repo", item.OutputRepoID).
				Str("name", name).
				Msg("whitelisted package not found in any input repo")
		}
	}
}

// closeOver runs the fixpoint loop (steps 6 of the algorithm), mutating
// outputSet in place.
func (dv *Depsolver) closeOver(ctx context.Context, item ubimanifest.DepsolverItem, outputSet map[string]ubimanifest.Unit, modular map[string]struct{}) error {
	st := newRPMState()
	toResolve := make([]ubimanifest.Unit, 0, len(outputSet))
	for _, u := range outputSet {
		toResolve = append(toResolve, u)
	}

	for len(toResolve) > 0 || len(st.unsolvedRPMs) > 0 || len(st.unsolvedFiles) > 0 {
		st.extractAndResolve(toResolve)
		if len(st.unsolvedRPMs) == 0 && len(st.unsolvedFiles) == 0 {
			return nil
		}

		names := st.popNames(dv.resolverBatch())
		files := st.popFiles(dv.resolverBatch())

		var newUnits []ubimanifest.Unit
		if len(names) > 0 {
			found, err := searchByField(ctx, dv.Client, item.InPulpRepos, "provides.name", names, contentstore.TypeRpm, dv.resolverBatch())
			if err != nil {
				return err
			}
			found = filterModular(found, modular)
			found = filterBlacklist(found, item.Blacklist)
			newUnits = append(newUnits, groupAndKeepLatest(found, 1)...)
		}
		if len(files) > 0 {
			found, err := searchByField(ctx, dv.Client, item.InPulpRepos, "files", files, contentstore.TypeRpm, dv.resolverBatch())
			if err != nil {
				return err
			}
			found = filterModular(found, modular)
			found = filterBlacklist(found, item.Blacklist)
			newUnits = append(newUnits, groupAndKeepLatest(found, 1)...)
		}

		toResolve = toResolve[:0]
		for _, u := range newUnits {
			k := unitKey(u)
			if _, ok := outputSet[k]; ok {
				continue
			}
			outputSet[k] = u
			toResolve = append(toResolve, u)
		}
	}
	return nil
}

func unitKey(u ubimanifest.Unit) string {
	return u.SourceRepoID + "\x00" + u.Key()
}
