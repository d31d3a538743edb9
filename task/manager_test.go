package task

import (
	"context"
	"testing"
	"time"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/contentstore"
	"github.com/quay/ubi-manifest/coordinator"
	"github.com/quay/ubi-manifest/depsolver/modulemd"
	"github.com/quay/ubi-manifest/depsolver/rpm"
	"github.com/quay/ubi-manifest/depsolver/srpm"
	"github.com/quay/ubi-manifest/resultstore"
)

func waitForState(t *testing.T, m *Manager, id string, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := m.State(id); ok && s == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %s never reached state %s", id, want)
}

func TestSubmitRunsJobToCompletion(t *testing.T) {
	fake := &contentstore.Fake{}
	fake.Add("input-1", contentstore.TypeRpm, ubimanifest.Unit{
		Type: ubimanifest.RpmUnit,
		Rpm: &ubimanifest.Rpm{
			Name: "gcc", Version: "10", Release: "1", Arch: "x86_64",
			Filename: "gcc-10-1.x86_64.rpm",
		},
	})
	fake.Add("input-1", contentstore.TypeModulemd)

	c := &coordinator.Coordinator{
		Modulemd: &modulemd.Depsolver{Client: fake},
		RPM:      &rpm.Depsolver{Client: fake},
		SRPM:     &srpm.Depsolver{Client: fake},
		Store:    &resultstore.Fake{},
	}
	m := &Manager{Coordinator: c}

	job := coordinator.Job{Groups: []coordinator.GroupInput{{
		Group: ubimanifest.RepoGroup{
			BinaryOutputRepoID: "ubi_repo",
			BinaryInputRepos:   []ubimanifest.Repo{{ID: "input-1"}},
		},
		Config: ubimanifest.Config{PackageWhitelist: []string{"gcc"}},
	}}}

	id := m.Submit(context.Background(), job)
	if s, ok := m.State(id); !ok || (s != Pending && s != Running) {
		t.Fatalf("expected Pending or Running immediately after submit, got %v %v", s, ok)
	}
	waitForState(t, m, id, Succeeded)
}

func TestStateUnknownID(t *testing.T) {
	m := &Manager{Coordinator: &coordinator.Coordinator{}}
	if _, ok := m.State("does-not-exist"); ok {
		t.Fatal("expected unknown task id to report ok=false")
	}
}
