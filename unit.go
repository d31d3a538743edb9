// Package ubimanifest provides the wire-level data model shared by the
// UBI manifest depsolvers: tagged content units, RPM dependency clauses,
// and the per-output-repository demand and configuration types that flow
// between the content-store query layer, the depsolvers, and the
// coordinator.
package ubimanifest

import (
	"fmt"
	"strings"
)

// ContentType distinguishes the three polymorphic variants a [Unit] can
// carry.
type ContentType string

const (
	RpmUnit              ContentType = "RpmUnit"
	ModulemdUnit         ContentType = "ModulemdUnit"
	ModulemdDefaultsUnit ContentType = "ModulemdDefaultsUnit"
)

// Unit wraps a content-store-native unit with the id of the repository it
// was observed in. Two Units with identical underlying content but
// different SourceRepoID are distinct for merging purposes: equality is
// (underlying content identity, SourceRepoID).
//
// Exactly one of Rpm, Modulemd, or ModulemdDefaults is set, matching Type.
// Units are immutable after construction.
type Unit struct {
	SourceRepoID string
	Type         ContentType

	Rpm              *Rpm              `json:"rpm,omitempty"`
	Modulemd         *Modulemd         `json:"modulemd,omitempty"`
	ModulemdDefaults *ModulemdDefaults `json:"modulemd_defaults,omitempty"`
}

// Key returns the identity used for dedup during export: filename for
// RPMs, NSVCA for modulemds, "name:stream" for modulemd-defaults.
func (u Unit) Key() string {
	switch u.Type {
	case RpmUnit:
		return u.Rpm.Filename
	case ModulemdUnit:
		return u.Modulemd.NSVCA()
	case ModulemdDefaultsUnit:
		return u.ModulemdDefaults.Name + ":" + u.ModulemdDefaults.Stream
	default:
		return ""
	}
}

// String implements [fmt.Stringer] for log-friendly identity.
func (u Unit) String() string {
	return fmt.Sprintf("%s@%s", u.Key(), u.SourceRepoID)
}

// Equal reports whether u and o refer to the same unit observed in the
// same source repository.
func (u Unit) Equal(o Unit) bool {
	return u.SourceRepoID == o.SourceRepoID && u.Type == o.Type && u.Key() == o.Key()
}

// Rpm is a binary or source RPM unit.
type Rpm struct {
	Name          string         `json:"name"`
	Epoch         string         `json:"epoch"`
	Version       string         `json:"version"`
	Release       string         `json:"release"`
	Arch          string         `json:"arch"`
	Filename      string         `json:"filename"`
	SourceRPM     string         `json:"sourcerpm,omitempty"`
	ContentTypeID string         `json:"content_type_id"` // "rpm" or "srpm"
	Provides      []RpmDependency `json:"provides,omitempty"`
	Requires      []RpmDependency `json:"requires,omitempty"`
	Files         []string       `json:"files,omitempty"`
}

// EVR returns the package's EVR tuple.
func (r *Rpm) EVR() EVR {
	return EVR{Epoch: r.Epoch, Version: r.Version, Release: r.Release}
}

// IsSource reports whether this unit is a source RPM.
func (r *Rpm) IsSource() bool { return r.ContentTypeID == "srpm" }

// Modulemd is a module stream unit.
type Modulemd struct {
	Name    string   `json:"name"`
	Stream  string   `json:"stream"`
	Version int64    `json:"version"`
	Context string   `json:"context"`
	Arch    string   `json:"arch"`

	// Artifacts is the raw NEVRA artifact list as reported by the content
	// store.
	Artifacts []string `json:"artifacts,omitempty"`

	Dependencies []ModuleDep `json:"dependencies,omitempty"`

	// Profiles maps a profile name to the RPM names it pulls in.
	Profiles map[string][]string `json:"profiles,omitempty"`
}

// ModuleDep is a single module-to-module dependency, optionally pinned to
// a stream.
type ModuleDep struct {
	Name   string
	Stream string // empty means "any stream"
}

// NSVCA returns the "name:stream:version:context:arch" identity used to
// dedup modulemd units during export.
func (m *Modulemd) NSVCA() string {
	return fmt.Sprintf("%s:%s:%d:%s:%s", m.Name, m.Stream, m.Version, m.Context, m.Arch)
}

// NameStream returns the "name:stream" grouping key.
func (m *Modulemd) NameStream() string { return m.Name + ":" + m.Stream }

// ArtifactFilenames derives one RPM filename from each entry of the NEVRA
// artifact list; entries are not validated and none is dropped.
func (m *Modulemd) ArtifactFilenames() []string {
	out := make([]string, 0, len(m.Artifacts))
	for _, a := range m.Artifacts {
		out = append(out, nevraToFilename(a))
	}
	return out
}

// nevraToFilename turns a bare NEVRA string (no trailing ".rpm") into the
// filename form used elsewhere in the data model.
//
// Content-store artifact NEVRAs carry the epoch embedded after the name,
// e.g. "perl-4:5.30.1-452.module+el8.4.0+8990+01326e37.x86_64" — unlike a
// Filename, which never includes it. The epoch has to be stripped here or
// the result never matches a real Rpm.Filename.
func nevraToFilename(nevra string) string {
	return stripEpoch(nevra) + ".rpm"
}

// stripEpoch removes an embedded "-EPOCH:" segment from a NEVRA string,
// e.g. "perl-YAML-0:1.24-3.module+el8.1.0+2934+dec45db7.noarch" becomes
// "perl-YAML-1.24-3.module+el8.1.0+2934+dec45db7.noarch". Strings with no
// colon are returned unchanged.
func stripEpoch(nevra string) string {
	i := strings.IndexByte(nevra, ':')
	if i == -1 {
		return nevra
	}
	d := strings.LastIndexByte(nevra[:i], '-')
	if d == -1 {
		return nevra
	}
	return nevra[:d+1] + nevra[i+1:]
}

// ModulemdDefaults declares a module's default stream and the default
// profile assignment per stream.
type ModulemdDefaults struct {
	Name   string `json:"name"`
	Stream string `json:"stream"`
	RepoID string `json:"repo_id"`

	// Profiles maps a stream name to the list of default profile names.
	Profiles map[string][]string `json:"profiles,omitempty"`
}
