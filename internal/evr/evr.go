// Package evr implements RPM's Epoch/Version/Release comparison.
//
// The comparator is a thin wrapper around the same rpm-compatible
// version library the teacher package's rhel matcher uses
// (github.com/knqyf263/go-rpm-version), rather than a from-scratch port:
// the library already implements RPM's segment comparator
// (tilde lowest, caret highest, digits outrank letters within a
// segment, epoch precedes everything) and this package only needs to
// format an EVR struct into the "[epoch:]version-release" string that
// library expects.
package evr

import (
	"strings"

	rpmversion "github.com/knqyf263/go-rpm-version"
)

// EVR is an Epoch/Version/Release tuple. Epoch "" is equivalent to "0".
type EVR struct {
	Epoch   string
	Version string
	Release string
}

func (e EVR) string() string {
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

// Compare returns a positive number if a is a newer build than b,
// negative if b is newer, and zero if they compare equal under RPM's
// labelCompare rules.
func Compare(a, b EVR) int {
	va := rpmversion.NewVersion(a.string())
	vb := rpmversion.NewVersion(b.string())
	return va.Compare(vb)
}
