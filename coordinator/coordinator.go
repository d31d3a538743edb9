// Package coordinator implements the depsolve coordinator (spec.md
// section 4.5): it orchestrates a single depsolve job across one or
// more RepoGroups, validates flag consistency, runs the depsolvers in
// dependency order (modulemd, then RPM binary, then RPM debug, then
// SRPM), merges their outputs without overwriting, and persists the
// result.
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/depsolver/modulemd"
	"github.com/quay/ubi-manifest/depsolver/rpm"
	"github.com/quay/ubi-manifest/depsolver/srpm"
	"github.com/quay/ubi-manifest/internal/nevra"
	"github.com/quay/ubi-manifest/internal/obsmetrics"
	"github.com/quay/ubi-manifest/resultstore"
)

// DefaultTTL is the default manifest expiration
// (ubi_manifest_data_expiration), 4 hours.
const DefaultTTL = 4 * time.Hour

// GroupInput is one RepoGroup's resolved topology and configuration,
// as fetched by the caller (spec.md section 4.5 steps 1-3: repo
// discovery and config resolution are content-config/content-store
// concerns that live upstream of the coordinator, in httpapi's job
// construction).
type GroupInput struct {
	Group  ubimanifest.RepoGroup
	Config ubimanifest.Config
}

// Job is a single depsolve run over one or more RepoGroups.
type Job struct {
	Groups []GroupInput
}

// Coordinator wires the three depsolvers and a result store together.
type Coordinator struct {
	Modulemd *modulemd.Depsolver
	RPM      *rpm.Depsolver
	SRPM     *srpm.Depsolver
	Store    resultstore.Store

	// TTL is the manifest expiration passed to Store.Put. Zero selects
	// DefaultTTL.
	TTL time.Duration
}

func (c *Coordinator) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

// Run executes one Job end to end: flag validation, the four depsolve
// passes in dependency order, merging, and persistence.
func (c *Coordinator) Run(ctx context.Context, job Job) (err error) {
	ctx, span := tracer.Start(ctx, "coordinator.Run", trace.WithAttributes(
		attribute.Int("ubi_manifest.group_count", len(job.Groups)),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		obsmetrics.CoordinatorRuns.WithLabelValues(outcome).Inc()
		obsmetrics.CoordinatorDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if err := validateFlags(job.Groups); err != nil {
		return err
	}
	flags := ubimanifest.Flags{}
	if len(job.Groups) > 0 {
		flags = job.Groups[0].Config.Flags
	}

	output := make(map[string][]ubimanifest.Unit)
	ensureRepoIDs(output, job.Groups)

	modCtx, modSpan := tracer.Start(ctx, "coordinator.modulemd")
	modResult, err := c.runModulemd(modCtx, job.Groups, output)
	endSpan(modSpan, err)
	if err != nil {
		return err
	}

	binaryItems := buildBinaryItems(job.Groups)
	binCtx, binSpan := tracer.Start(ctx, "coordinator.rpm.binary")
	binaryResult, err := c.RPM.Run(binCtx, binaryItems, modResult.RPMDependencies, nil, flags)
	endSpan(binSpan, err)
	if err != nil {
		return err
	}
	mergeAll(output, binaryResult.Output)

	debugItems := buildDebugItems(job.Groups, binaryResult, flags)
	debugCtx, debugSpan := tracer.Start(ctx, "coordinator.rpm.debug")
	debugResult, err := c.RPM.Run(debugCtx, debugItems, modResult.RPMDependencies, binaryResult.ModularRPMFilenames, flags)
	endSpan(debugSpan, err)
	if err != nil {
		return err
	}
	mergeAll(output, debugResult.Output)

	srpmCtx, srpmSpan := tracer.Start(ctx, "coordinator.srpm")
	err = c.runSRPM(srpmCtx, job.Groups, binaryResult, debugResult, output)
	endSpan(srpmSpan, err)
	if err != nil {
		return err
	}

	persistCtx, persistSpan := tracer.Start(ctx, "coordinator.persist")
	err = c.persist(persistCtx, output)
	endSpan(persistSpan, err)
	return err
}

// endSpan records err on span (if non-nil) and closes it; a shared tail
// for the per-stage spans in Run.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// validateFlags implements step 4: every Config.Flags in the job must
// be identical.
func validateFlags(groups []GroupInput) error {
	if len(groups) == 0 {
		return nil
	}
	want := groups[0].Config.Flags
	for _, g := range groups[1:] {
		if g.Config.Flags != want {
			return &ubimanifest.Error{
				Op:      "coordinator.Run",
				Kind:    ubimanifest.ErrInconsistentConfig,
				Message: fmt.Sprintf("flags %+v conflict with %+v", g.Config.Flags, want),
			}
		}
	}
	return nil
}

// ensureRepoIDs implements step 12: every output repo id named
// anywhere in the job gets an entry, even if nothing resolves into it.
func ensureRepoIDs(output map[string][]ubimanifest.Unit, groups []GroupInput) {
	for _, g := range groups {
		for _, id := range []string{g.Group.BinaryOutputRepoID, g.Group.DebugOutputRepoID, g.Group.SourceOutputRepoID} {
			if id == "" {
				continue
			}
			if _, ok := output[id]; !ok {
				output[id] = nil
			}
		}
	}
}

func (c *Coordinator) runModulemd(ctx context.Context, groups []GroupInput, output map[string][]ubimanifest.Unit) (modulemd.Result, error) {
	items := make([]ubimanifest.ModularDepsolverItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, ubimanifest.ModularDepsolverItem{
			OutputRepoID: g.Group.BinaryOutputRepoID,
			ModuleList:   g.Config.ModuleWhitelist,
			InPulpRepos:  g.Group.BinaryInputRepos,
		})
	}
	result, err := c.Modulemd.Run(ctx, items)
	if err != nil {
		return modulemd.Result{}, err
	}
	mergeAll(output, result.Output)
	return result, nil
}

func buildBinaryItems(groups []GroupInput) []ubimanifest.DepsolverItem {
	items := make([]ubimanifest.DepsolverItem, 0, len(groups))
	for _, g := range groups {
		pkgWhitelist, _ := g.Config.SplitPackageWhitelist()
		items = append(items, ubimanifest.DepsolverItem{
			OutputRepoID: g.Group.BinaryOutputRepoID,
			Whitelist:    pkgWhitelist,
			Blacklist:    g.Config.PackageBlacklist,
			InPulpRepos:  g.Group.BinaryInputRepos,
		})
	}
	return items
}

// buildDebugItems implements steps 3 and 8: the debug whitelist starts
// from the config's own debuginfo names, then (unless base_pkgs_only)
// is extended with "{name}-debuginfo"/"{sourcerpm name}-debugsource"
// for every resolved binary RPM.
func buildDebugItems(groups []GroupInput, binary rpm.Result, flags ubimanifest.Flags) []ubimanifest.DepsolverItem {
	items := make([]ubimanifest.DepsolverItem, 0, len(groups))
	for _, g := range groups {
		_, debugWhitelist := g.Config.SplitPackageWhitelist()
		whitelist := append([]string(nil), debugWhitelist...)

		if !flags.BasePkgsOnly {
			seen := make(map[string]bool, len(whitelist))
			for _, n := range whitelist {
				seen[n] = true
			}
			add := func(n string) {
				if !seen[n] {
					seen[n] = true
					whitelist = append(whitelist, n)
				}
			}
			for _, u := range binary.Output[g.Group.BinaryOutputRepoID] {
				if u.Rpm == nil {
					continue
				}
				add(u.Rpm.Name + "-debuginfo")
				if u.Rpm.SourceRPM != "" {
					add(srpmPackageName(u.Rpm.SourceRPM) + "-debugsource")
				}
			}
		}

		items = append(items, ubimanifest.DepsolverItem{
			OutputRepoID: g.Group.DebugOutputRepoID,
			Whitelist:    whitelist,
			Blacklist:    g.Config.PackageBlacklist,
			InPulpRepos:  g.Group.DebugInputRepos,
		})
	}
	return items
}

func (c *Coordinator) runSRPM(ctx context.Context, groups []GroupInput, binary, debug rpm.Result, output map[string][]ubimanifest.Unit) error {
	for _, g := range groups {
		names := make(map[string]struct{})
		for n := range binary.SourceRPMNames[g.Group.BinaryOutputRepoID] {
			names[n] = struct{}{}
		}
		for n := range debug.SourceRPMNames[g.Group.DebugOutputRepoID] {
			names[n] = struct{}{}
		}
		if len(names) == 0 || len(g.Group.SourceInputRepos) == 0 {
			continue
		}
		filenames := make([]string, 0, len(names))
		for n := range names {
			filenames = append(filenames, n)
		}

		perRepo := make(map[string][]string, len(g.Group.SourceInputRepos))
		for _, repo := range g.Group.SourceInputRepos {
			perRepo[repo.ID] = filenames
		}

		result, err := c.SRPM.Run(ctx, g.Group.SourceInputRepos, perRepo, g.Config.PackageBlacklist)
		if err != nil {
			return err
		}
		for _, units := range result.Output {
			mergeInto(output, g.Group.SourceOutputRepoID, units)
		}
	}
	return nil
}

// mergeAll merges every (repoID, units) pair from src into dst
// (non-overwriting per-unit merge, spec.md step 7).
func mergeAll(dst map[string][]ubimanifest.Unit, src map[string][]ubimanifest.Unit) {
	for repoID, units := range src {
		mergeInto(dst, repoID, units)
	}
}

// mergeInto appends units into dst[repoID], skipping any whose
// (SourceRepoID, Key()) pair is already present (the non-overwriting
// merge rule from spec.md steps 7 and 10, deduplicated per spec.md
// 4.2's export() by (filename, source_repo_id) so identical RPMs from
// distinct source repos are each kept once).
func mergeInto(dst map[string][]ubimanifest.Unit, repoID string, units []ubimanifest.Unit) {
	if repoID == "" {
		return
	}
	seen := make(map[string]bool, len(dst[repoID]))
	for _, u := range dst[repoID] {
		seen[unitKey(u)] = true
	}
	for _, u := range units {
		k := unitKey(u)
		if seen[k] {
			continue
		}
		seen[k] = true
		dst[repoID] = append(dst[repoID], u)
	}
}

// unitKey is the merge dedup key: source repo plus the unit's own Key().
func unitKey(u ubimanifest.Unit) string {
	return u.SourceRepoID + "\x00" + u.Key()
}

// persist implements step 13: stable-sort each repo's units by Key,
// ties broken by SourceRepoID (invariant 7 requires this for idempotent
// byte-equal manifests), and write them to the result store.
func (c *Coordinator) persist(ctx context.Context, output map[string][]ubimanifest.Unit) error {
	for repoID, units := range output {
		sorted := append([]ubimanifest.Unit(nil), units...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if ki, kj := sorted[i].Key(), sorted[j].Key(); ki != kj {
				return ki < kj
			}
			return sorted[i].SourceRepoID < sorted[j].SourceRepoID
		})

		entries := make([]ubimanifest.ManifestEntry, 0, len(sorted))
		for _, u := range sorted {
			entries = append(entries, u.ToManifestEntry())
		}
		if err := c.Store.Put(ctx, repoID, entries, c.ttl()); err != nil {
			return err
		}
	}
	return nil
}

// srpmPackageName derives the package name component from a sourcerpm
// filename, e.g. "foo.src.rpm" or "foo-1.2-3.src.rpm".
func srpmPackageName(sourceRPM string) string {
	name, _, _, _, _ := nevra.Split(sourceRPM)
	return name
}
