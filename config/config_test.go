package config

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/quay/ubi-manifest"
)

const ubi8Doc = `
version: "8"
content_sets:
  rpm:
    input: rhel-8-for-x86_64-baseos-rpms
    output: ubi-8-for-x86_64-baseos-rpms
  srpm:
    input: rhel-8-for-x86_64-baseos-source-rpms
    output: ubi-8-for-x86_64-baseos-source-rpms
  debuginfo:
    input: rhel-8-for-x86_64-baseos-debug-rpms
    output: ubi-8-for-x86_64-baseos-debug-rpms
arches: ["x86_64", "aarch64"]
packages:
  whitelist: ["gcc", "gcc-debuginfo"]
  blacklist: ["lib_exclude", "bar.src"]
modules:
  whitelist:
    - name: nodejs
      stream: "16"
      profiles: ["common"]
flags:
  base_pkgs_only: false
`

func newFS(t *testing.T) fstest.MapFS {
	t.Helper()
	return fstest.MapFS{
		"ubi8.yaml": {Data: []byte(ubi8Doc)},
	}
}

func TestResolveExact(t *testing.T) {
	r, err := LoadFS(newFS(t), ".")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	cfg, err := r.Resolve("rhel-8-for-x86_64-baseos-rpms", "ubi-8-for-x86_64-baseos-rpms", "8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cfg.PackageWhitelist) != 2 {
		t.Fatalf("expected 2 whitelisted packages, got %d", len(cfg.PackageWhitelist))
	}
	if len(cfg.ModuleWhitelist) != 1 || cfg.ModuleWhitelist[0].Name != "nodejs" {
		t.Fatalf("unexpected module whitelist: %+v", cfg.ModuleWhitelist)
	}
}

func TestResolveMinorFallback(t *testing.T) {
	r, err := LoadFS(newFS(t), ".")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	cfg, err := r.Resolve("rhel-8-for-x86_64-baseos-rpms", "ubi-8-for-x86_64-baseos-rpms", "8.4")
	if err != nil {
		t.Fatalf("Resolve with fallback: %v", err)
	}
	if cfg.Flags.BasePkgsOnly {
		t.Fatalf("expected base_pkgs_only=false")
	}
}

func TestResolveMissing(t *testing.T) {
	r, err := LoadFS(newFS(t), ".")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	_, err = r.Resolve("nonexistent-input", "nonexistent-output", "8")
	if !errors.Is(err, ubimanifest.ErrContentConfigMissing) {
		t.Fatalf("expected ErrContentConfigMissing, got %v", err)
	}
}

func TestPackageBlacklistSplit(t *testing.T) {
	r, err := LoadFS(newFS(t), ".")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	cfg, err := r.Resolve("rhel-8-for-x86_64-baseos-rpms", "ubi-8-for-x86_64-baseos-rpms", "8")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var sawSRPM bool
	for _, p := range cfg.PackageBlacklist {
		if p.Arch == "src" {
			sawSRPM = true
		}
	}
	if !sawSRPM {
		t.Fatalf("expected at least one srpm blacklist entry, got %+v", cfg.PackageBlacklist)
	}
}
