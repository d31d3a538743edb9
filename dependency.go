package ubimanifest

// DepFlag is a version-comparison flag on an [RpmDependency].
type DepFlag string

const (
	FlagNone DepFlag = ""
	FlagGT   DepFlag = "GT"
	FlagGE   DepFlag = "GE"
	FlagEQ   DepFlag = "EQ"
	FlagLE   DepFlag = "LE"
	FlagLT   DepFlag = "LT"
)

// RpmDependency is a single Requires or Provides clause: a name, an
// optional EVR, and a comparison flag.
//
// Equality is structural (see [RpmDependency.Equal]).
type RpmDependency struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Flags   DepFlag
}

// EVR returns the dependency's version tuple.
func (d RpmDependency) EVR() EVR {
	return EVR{Epoch: d.Epoch, Version: d.Version, Release: d.Release}
}

// Equal reports whether d and o are structurally identical.
func (d RpmDependency) Equal(o RpmDependency) bool {
	return d.Name == o.Name && d.Epoch == o.Epoch && d.Version == o.Version &&
		d.Release == o.Release && d.Flags == o.Flags
}

// IsVersioned reports whether d carries a version constraint at all.
func (d RpmDependency) IsVersioned() bool {
	return d.Flags != FlagNone
}

// IsFile reports whether the dependency names an absolute file path
// rather than a package/capability name.
func (d RpmDependency) IsFile() bool {
	return len(d.Name) > 0 && d.Name[0] == '/'
}

// IsRich reports whether the dependency is a parenthesized boolean
// clause rather than a plain name.
func (d RpmDependency) IsRich() bool {
	return len(d.Name) > 0 && d.Name[0] == '('
}

// Resolves reports whether the receiver, read as a Provides clause from
// some package, satisfies req, a Requires clause from some other
// package.
//
// provider resolves req iff the names match and either req carries no
// version constraint, or the comparator named by req.Flags holds between
// provider's EVR and req's EVR.
func (d RpmDependency) Resolves(req RpmDependency) bool {
	if d.Name != req.Name {
		return false
	}
	if !req.IsVersioned() {
		return true
	}
	c := Compare(d.EVR(), req.EVR())
	switch req.Flags {
	case FlagGT:
		return c > 0
	case FlagGE:
		return c >= 0
	case FlagEQ:
		return c == 0
	case FlagLE:
		return c <= 0
	case FlagLT:
		return c < 0
	default:
		// No constraint carried: anything with a matching name resolves.
		return true
	}
}
