package modulemd

import (
	"context"
	"testing"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
)

func moduleUnit(name, stream string, version int64, context string, artifacts []string, deps ...ubimanifest.ModuleDep) ubimanifest.Unit {
	return ubimanifest.Unit{
		Type: ubimanifest.ModulemdUnit,
		Modulemd: &ubimanifest.Modulemd{
			Name: name, Stream: stream, Version: version, Context: context, Arch: "x86_64",
			Artifacts:    artifacts,
			Dependencies: deps,
			Profiles:     map[string][]string{"common": {"nodejs"}},
		},
	}
}

func TestRunResolvesStreamAndFiltersArtifacts(t *testing.T) {
	// nodejs:16 has two artifacts; the pinned "common" profile only
	// allows the nodejs package itself, and the SRPM artifact is always
	// dropped regardless of profile.
	nodejs := moduleUnit("nodejs", "16", 1, "ctx1",
		[]string{"nodejs-0:16.0-1.x86_64", "nodejs-0:16.0-1.src", "npm-0:8.0-1.x86_64"})

	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeModulemd, nodejs)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.ModularDepsolverItem{{
		OutputRepoID: "ubi_repo",
		ModuleList: []ubimanifest.ModuleProfileRequest{
			{Name: "nodejs", Stream: "16", Profiles: []string{"common"}},
		},
		InPulpRepos: []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	units := result.Output["ubi_repo"]
	if len(units) != 1 || units[0].Modulemd == nil || units[0].Modulemd.Name != "nodejs" {
		t.Fatalf("expected exactly the nodejs module unit, got %+v", units)
	}

	want := map[string]bool{"nodejs-16.0-1.x86_64.rpm": true}
	got := make(map[string]bool)
	for _, fn := range result.RPMDependencies {
		got[fn] = true
	}
	if len(got) != len(want) {
		t.Fatalf("expected only the profile-allowed, non-src artifact, got %+v", got)
	}
	for fn := range want {
		if !got[fn] {
			t.Fatalf("expected artifact %q in dependencies, got %+v", fn, got)
		}
	}
}

func TestRunKeepsAllContextsAtWinningVersion(t *testing.T) {
	// invariant 6: two builds of nodejs:16 at the same (higher) version
	// but distinct contexts must both survive; an older version is
	// dropped.
	v1ctxA := moduleUnit("nodejs", "16", 2, "ctxA", []string{"nodejs-0:16.1-1.x86_64"})
	v1ctxB := moduleUnit("nodejs", "16", 2, "ctxB", []string{"nodejs-0:16.1-2.x86_64"})
	older := moduleUnit("nodejs", "16", 1, "ctxOld", []string{"nodejs-0:16.0-1.x86_64"})

	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeModulemd, v1ctxA, v1ctxB, older)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.ModularDepsolverItem{{
		OutputRepoID: "ubi_repo",
		ModuleList:   []ubimanifest.ModuleProfileRequest{{Name: "nodejs", Stream: "16"}},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	units := result.Output["ubi_repo"]
	var modules []*ubimanifest.Modulemd
	for _, u := range units {
		if u.Modulemd != nil {
			modules = append(modules, u.Modulemd)
		}
	}
	if len(modules) != 2 {
		t.Fatalf("expected both winning contexts to survive, got %d: %+v", len(modules), modules)
	}
	for _, m := range modules {
		if m.Version != 2 {
			t.Fatalf("expected only version 2 to survive, got version %d", m.Version)
		}
	}
}

func TestRunTransitiveDependencyWithCycle(t *testing.T) {
	// platform:el8 depends on nodejs:16, which depends back on
	// platform:el8 (a cycle); the search-mark-before-schedule set must
	// prevent infinite looping and both modules must still resolve.
	platform := moduleUnit("platform", "el8", 1, "ctxP",
		[]string{"platform-0:el8-1.x86_64"},
		ubimanifest.ModuleDep{Name: "nodejs", Stream: "16"})
	nodejs := moduleUnit("nodejs", "16", 1, "ctxN",
		[]string{"nodejs-0:16.0-1.x86_64"},
		ubimanifest.ModuleDep{Name: "platform", Stream: "el8"})

	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeModulemd, platform, nodejs)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.ModularDepsolverItem{{
		OutputRepoID: "ubi_repo",
		ModuleList:   []ubimanifest.ModuleProfileRequest{{Name: "platform", Stream: "el8"}},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	names := make(map[string]bool)
	for _, u := range result.Output["ubi_repo"] {
		if u.Modulemd != nil {
			names[u.Modulemd.Name] = true
		}
	}
	if !names["platform"] || !names["nodejs"] {
		t.Fatalf("expected both platform and nodejs resolved despite the cycle, got %+v", names)
	}
}
