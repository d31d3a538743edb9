package ubimanifest

// ManifestEntry is one persisted row of an output repository's resolved
// content: the repository the unit was sourced from, which unit variant
// it is, and its identity attribute/value.
type ManifestEntry struct {
	SourceRepoID string      `json:"src_repo_id"`
	UnitType     ContentType `json:"unit_type"`
	UnitAttr     string      `json:"unit_attr"` // "filename", "nsvca", or "name:stream"
	Value        string      `json:"value"`
}

// ToManifestEntry converts a resolved Unit into its persisted form.
func (u Unit) ToManifestEntry() ManifestEntry {
	attr := "filename"
	switch u.Type {
	case ModulemdUnit:
		attr = "nsvca"
	case ModulemdDefaultsUnit:
		attr = "name:stream"
	}
	return ManifestEntry{
		SourceRepoID: u.SourceRepoID,
		UnitType:     u.Type,
		UnitAttr:     attr,
		Value:        u.Key(),
	}
}
