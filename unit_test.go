package ubimanifest

import "testing"

func TestModulemdArtifactFilenames(t *testing.T) {
	tt := []struct {
		name      string
		artifacts []string
		want      []string
	}{
		{
			name:      "embedded epoch",
			artifacts: []string{"perl-4:5.30.1-452.module+el8.4.0+8990+01326e37.x86_64"},
			want:      []string{"perl-5.30.1-452.module+el8.4.0+8990+01326e37.x86_64.rpm"},
		},
		{
			name:      "embedded epoch, dashed name",
			artifacts: []string{"perl-YAML-0:1.24-3.module+el8.1.0+2934+dec45db7.noarch"},
			want:      []string{"perl-YAML-1.24-3.module+el8.1.0+2934+dec45db7.noarch.rpm"},
		},
		{
			name:      "no epoch",
			artifacts: []string{"nodejs-16.0-1.x86_64"},
			want:      []string{"nodejs-16.0-1.x86_64.rpm"},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			m := &Modulemd{Artifacts: tc.artifacts}
			got := m.ArtifactFilenames()
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
