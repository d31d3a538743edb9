package rpm

import (
	"context"
	"testing"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
)

func TestRunMinimalChain(t *testing.T) {
	// S1: one output repo whitelisting gcc; gcc requires lib.b, provided
	// by foo; foo should be pulled in by the closure pass.
	gcc := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "gcc", Epoch: "1", Version: "10", Release: "200", Arch: "x86_64",
		Filename:  "gcc-10-200.x86_64.rpm",
		SourceRPM: "gcc.src.rpm",
		Requires:  []ubimanifest.RpmDependency{{Name: "lib.b"}},
	}}
	foo := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "foo", Version: "100", Release: "1", Arch: "x86_64",
		Filename:  "foo-100-1.x86_64.rpm",
		SourceRPM: "foo.src.rpm",
		Provides:  []ubimanifest.RpmDependency{{Name: "lib.b"}},
	}}

	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, gcc, foo)
	fake.Add("input-1", contentstore.TypeModulemd)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.DepsolverItem{{
		OutputRepoID: "ubi_repo",
		Whitelist:    []string{"gcc"},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items, nil, nil, ubimanifest.Flags{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	units := result.Output["ubi_repo"]
	names := make(map[string]bool)
	for _, u := range units {
		names[u.Rpm.Name] = true
	}
	if !names["gcc"] || !names["foo"] {
		t.Fatalf("expected gcc and foo in output, got %+v", names)
	}
	if len(result.Missing) != 0 {
		t.Fatalf("expected no missing dependencies, got %+v", result.Missing)
	}
	srpms := result.SourceRPMNames["ubi_repo"]
	if _, ok := srpms["foo.src.rpm"]; !ok {
		t.Fatalf("expected foo.src.rpm recorded for SRPM backfill, got %+v", srpms)
	}
}

func TestRunLatestWinsAcrossInputs(t *testing.T) {
	// S2: two input repos contributing gcc-10 and gcc-11; only gcc-11
	// should survive.
	older := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "gcc", Version: "10", Release: "1", Arch: "x86_64", Filename: "gcc-10-1.x86_64.rpm",
	}}
	newer := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "gcc", Version: "11", Release: "1", Arch: "x86_64", Filename: "gcc-11-1.x86_64.rpm",
	}}

	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, older)
	fake.Add("input-2", contentstore.TypeRpm, newer)
	fake.Add("input-1", contentstore.TypeModulemd)
	fake.Add("input-2", contentstore.TypeModulemd)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.DepsolverItem{{
		OutputRepoID: "ubi_repo",
		Whitelist:    []string{"gcc"},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}, {ID: "input-2"}},
	}}

	result, err := dv.Run(context.Background(), items, nil, nil, ubimanifest.Flags{BasePkgsOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	units := result.Output["ubi_repo"]
	if len(units) != 1 || units[0].Rpm.Version != "11" {
		t.Fatalf("expected only gcc-11 to survive, got %+v", units)
	}
}

func TestRunBlacklistExcludesPackage(t *testing.T) {
	gcc := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "gcc", Version: "10", Release: "1", Arch: "x86_64", Filename: "gcc-10-1.x86_64.rpm",
	}}
	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, gcc)
	fake.Add("input-1", contentstore.TypeModulemd)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.DepsolverItem{{
		OutputRepoID: "ubi_repo",
		Whitelist:    []string{"gcc"},
		Blacklist:    []ubimanifest.PackageToExclude{{Name: "gcc"}},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items, nil, nil, ubimanifest.Flags{BasePkgsOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Output["ubi_repo"]) != 0 {
		t.Fatalf("expected blacklisted gcc to be excluded, got %+v", result.Output["ubi_repo"])
	}
}

func TestRunModularFilterExcludesUnpinnedArtifact(t *testing.T) {
	// Invariant 4: an RPM whose filename is a modular artifact is
	// excluded unless explicitly pinned via modulemdRPMFilenames.
	modArtifact := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "nodejs", Version: "16", Release: "1", Arch: "x86_64", Filename: "nodejs-16-1.x86_64.rpm",
	}}
	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, modArtifact)
	fake.Add("input-1", contentstore.TypeModulemd)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.DepsolverItem{{
		OutputRepoID: "ubi_repo",
		Whitelist:    []string{"nodejs"},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}
	modular := map[string]struct{}{"nodejs-16-1.x86_64.rpm": {}}

	result, err := dv.Run(context.Background(), items, nil, modular, ubimanifest.Flags{BasePkgsOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Output["ubi_repo"]) != 0 {
		t.Fatalf("expected modular artifact to be excluded without explicit pin, got %+v", result.Output["ubi_repo"])
	}

	// Now pin it explicitly: it should survive.
	result, err = dv.Run(context.Background(), items, []string{"nodejs-16-1.x86_64.rpm"}, modular, ubimanifest.Flags{BasePkgsOnly: true})
	if err != nil {
		t.Fatalf("Run with pin: %v", err)
	}
	if len(result.Output["ubi_repo"]) != 1 {
		t.Fatalf("expected pinned modular artifact to survive, got %+v", result.Output["ubi_repo"])
	}
}

func TestRunMissingDependencyReported(t *testing.T) {
	gcc := ubimanifest.Unit{Type: ubimanifest.RpmUnit, Rpm: &ubimanifest.Rpm{
		Name: "gcc", Version: "10", Release: "1", Arch: "x86_64", Filename: "gcc-10-1.x86_64.rpm",
		Requires: []ubimanifest.RpmDependency{{Name: "lib.unsatisfiable"}},
	}}
	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, gcc)
	fake.Add("input-1", contentstore.TypeModulemd)

	dv := &Depsolver{Client: fake}
	items := []ubimanifest.DepsolverItem{{
		OutputRepoID: "ubi_repo",
		Whitelist:    []string{"gcc"},
		InPulpRepos:  []ubimanifest.Repo{{ID: "input-1"}},
	}}

	result, err := dv.Run(context.Background(), items, nil, nil, ubimanifest.Flags{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Missing) != 1 || result.Missing[0].Name != "lib.unsatisfiable" {
		t.Fatalf("expected lib.unsatisfiable reported missing, got %+v", result.Missing)
	}
}
