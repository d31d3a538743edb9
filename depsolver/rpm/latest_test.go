package rpm

import (
	"testing"

	"github.com/quay/ubi-manifest"
)

func rpmUnit(name, version, release, arch string) ubimanifest.Unit {
	return ubimanifest.Unit{
		Type: ubimanifest.RpmUnit,
		Rpm: &ubimanifest.Rpm{
			Name: name, Version: version, Release: release, Arch: arch,
			Filename: name + "-" + version + "-" + release + "." + arch + ".rpm",
		},
	}
}

func TestKeepNLatestSingleArch(t *testing.T) {
	units := []ubimanifest.Unit{
		rpmUnit("gcc", "10", "1", "x86_64"),
		rpmUnit("gcc", "11", "1", "x86_64"),
		rpmUnit("gcc", "9", "1", "x86_64"),
	}
	got := KeepNLatest(units, 1)
	if len(got) != 1 || got[0].Rpm.Version != "11" {
		t.Fatalf("expected only gcc-11, got %+v", got)
	}
}

func TestKeepNLatestDropsArchWithoutTopVersion(t *testing.T) {
	units := []ubimanifest.Unit{
		rpmUnit("gcc", "11", "1", "x86_64"),
		rpmUnit("gcc", "10", "1", "aarch64"),
	}
	got := KeepNLatest(units, 1)
	if len(got) != 1 || got[0].Rpm.Arch != "x86_64" {
		t.Fatalf("expected only the x86_64 build at the global top version, got %+v", got)
	}
}

func TestKeepNLatestKeepsMatchingArches(t *testing.T) {
	units := []ubimanifest.Unit{
		rpmUnit("gcc", "11", "1", "x86_64"),
		rpmUnit("gcc", "11", "1", "aarch64"),
		rpmUnit("gcc", "11", "1", "noarch"),
	}
	got := KeepNLatest(units, 1)
	if len(got) != 3 {
		t.Fatalf("expected all 3 arches to survive at n=1 since each is a distinct arch, got %d", len(got))
	}
}

func TestKeepNLatestN2(t *testing.T) {
	units := []ubimanifest.Unit{
		rpmUnit("gcc", "11", "1", "x86_64"),
		rpmUnit("gcc", "10", "1", "x86_64"),
		rpmUnit("gcc", "9", "1", "x86_64"),
	}
	got := KeepNLatest(units, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 survivors at n=2, got %d", len(got))
	}
	for _, u := range got {
		if u.Rpm.Version == "9" {
			t.Fatalf("oldest version should not survive n=2: %+v", got)
		}
	}
}
