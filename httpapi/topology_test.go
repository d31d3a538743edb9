package httpapi

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStaticTopology(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topology.json")
	doc := `[{
		"output_repo_id": "ubi_repo",
		"binary_input_repos": ["input-1", "input-2"],
		"debug_output_repo_id": "ubi_repo_debug",
		"debug_input_repos": ["input-1-debug"],
		"source_output_repo_id": "ubi_repo_source",
		"source_input_repos": ["source-1"],
		"input_content_set": "ubi-8-input-rpms",
		"output_content_set": "ubi-8-output-rpms",
		"version": "8"
	}]`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	topo, err := LoadStaticTopology(path)
	if err != nil {
		t.Fatalf("LoadStaticTopology: %v", err)
	}
	entry, ok := topo.Resolve("ubi_repo")
	if !ok {
		t.Fatal("expected ubi_repo to resolve")
	}
	if len(entry.Group.BinaryInputRepos) != 2 || entry.Group.BinaryInputRepos[0].ID != "input-1" {
		t.Fatalf("unexpected binary input repos: %+v", entry.Group.BinaryInputRepos)
	}
	if entry.InputContentSet != "ubi-8-input-rpms" || entry.Version != "8" {
		t.Fatalf("unexpected content-set coordinates: %+v", entry)
	}
	if _, ok := topo.Resolve("no-such-repo"); ok {
		t.Fatal("expected unknown repo id to miss")
	}
}
