package nevra_test

import (
	"testing"

	"github.com/quay/ubi-manifest/internal/nevra"
)

func TestSplit(t *testing.T) {
	tt := []struct {
		filename                                  string
		name, version, release, epoch, arch string
	}{
		{
			filename: "32:bind-9.10.2-2.P1.fc22.x86_64.rpm",
			name:     "bind", version: "9.10.2", release: "2.P1.fc22", epoch: "32", arch: "x86_64",
		},
		{
			filename: "bind-9.10.2-2.P1.fc22.x86_64.rpm",
			name:     "bind", version: "9.10.2", release: "2.P1.fc22", epoch: "", arch: "x86_64",
		},
		{
			filename: "foo-1.0-1.src.rpm",
			name:     "foo", version: "1.0", release: "1", epoch: "", arch: "src",
		},
		{
			filename: "gcc-debuginfo-10-200.el8.x86_64.rpm",
			name:     "gcc-debuginfo", version: "10", release: "200.el8", epoch: "", arch: "x86_64",
		},
	}
	for _, tc := range tt {
		t.Run(tc.filename, func(t *testing.T) {
			name, version, release, epoch, arch := nevra.Split(tc.filename)
			if name != tc.name || version != tc.version || release != tc.release || epoch != tc.epoch || arch != tc.arch {
				t.Fatalf("Split(%q) = (%q, %q, %q, %q, %q), want (%q, %q, %q, %q, %q)",
					tc.filename, name, version, release, epoch, arch,
					tc.name, tc.version, tc.release, tc.epoch, tc.arch)
			}
		})
	}
}
