package evr_test

import (
	"testing"

	"github.com/quay/ubi-manifest/internal/evr"
)

func TestCompare(t *testing.T) {
	tt := []struct {
		name string
		a, b evr.EVR
		want int // -1, 0, 1
	}{
		{
			name: "equal",
			a:    evr.EVR{Version: "1.0", Release: "1"},
			b:    evr.EVR{Version: "1.0", Release: "1"},
			want: 0,
		},
		{
			name: "release newer",
			a:    evr.EVR{Version: "1.0", Release: "2"},
			b:    evr.EVR{Version: "1.0", Release: "1"},
			want: 1,
		},
		{
			name: "epoch dominates version",
			a:    evr.EVR{Epoch: "0", Version: "9.9", Release: "1"},
			b:    evr.EVR{Epoch: "1", Version: "1.0", Release: "1"},
			want: -1,
		},
		{
			name: "missing epoch treated as zero",
			a:    evr.EVR{Version: "1.0", Release: "1"},
			b:    evr.EVR{Epoch: "0", Version: "1.0", Release: "1"},
			want: 0,
		},
		{
			name: "tilde sorts lowest",
			a:    evr.EVR{Version: "1.0~rc1", Release: "1"},
			b:    evr.EVR{Version: "1.0", Release: "1"},
			want: -1,
		},
		{
			name: "caret sorts highest",
			a:    evr.EVR{Version: "1.0^git1", Release: "1"},
			b:    evr.EVR{Version: "1.0", Release: "1"},
			want: 1,
		},
		{
			name: "numeric segments compare as numbers",
			a:    evr.EVR{Version: "10a", Release: "1"},
			b:    evr.EVR{Version: "9", Release: "1"},
			want: 1,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got := evr.Compare(tc.a, tc.b)
			if sign(got) != sign(tc.want) {
				t.Fatalf("Compare(%+v, %+v) = %d, want sign %d", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func sign(i int) int {
	switch {
	case i > 0:
		return 1
	case i < 0:
		return -1
	default:
		return 0
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	a := evr.EVR{Epoch: "1", Version: "2.3.4", Release: "5.el8"}
	b := evr.EVR{Epoch: "1", Version: "2.3.5", Release: "1.el8"}
	if sign(evr.Compare(a, b)) != -sign(evr.Compare(b, a)) {
		t.Fatalf("Compare is not antisymmetric for %+v, %+v", a, b)
	}
}
