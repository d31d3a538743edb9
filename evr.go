package ubimanifest

import (
	"strings"

	"github.com/quay/ubi-manifest/internal/evr"
)

// EVR is an Epoch/Version/Release tuple, RPM's build-ordering identity.
// An absent Epoch is treated as "0".
type EVR struct {
	Epoch   string
	Version string
	Release string
}

// String renders the canonical "[epoch:]version-release" form, omitting
// the epoch when it is "0" or unset.
func (e EVR) String() string {
	var b strings.Builder
	if e.Epoch != "" && e.Epoch != "0" {
		b.WriteString(e.Epoch)
		b.WriteByte(':')
	}
	b.WriteString(e.Version)
	b.WriteByte('-')
	b.WriteString(e.Release)
	return b.String()
}

// MarshalText implements [encoding.TextMarshaler].
func (e EVR) MarshalText() ([]byte, error) { return []byte(e.String()), nil }

// Compare orders two EVRs using RPM's segment-wise labelCompare rules.
// It returns a positive number if a is newer than b, negative if b is
// newer, and zero if they are equivalent builds.
func Compare(a, b EVR) int {
	return evr.Compare(evr.EVR(a), evr.EVR(b))
}
