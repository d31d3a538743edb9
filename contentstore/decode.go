package contentstore

import (
	"encoding/json"
	"fmt"

	"github.com/quay/ubi-manifest"
)

// decodeUnit unmarshals one store-native unit document into the
// [ubimanifest.Unit] variant matching unitType, tagging it with the
// source repo it was fetched from.
func decodeUnit(unitType UnitType, sourceRepoID string, raw json.RawMessage) (ubimanifest.Unit, error) {
	switch unitType {
	case TypeRpm, TypeSRPM:
		var r ubimanifest.Rpm
		if err := json.Unmarshal(raw, &r); err != nil {
			return ubimanifest.Unit{}, fmt.Errorf("contentstore: decoding rpm unit: %w", err)
		}
		return ubimanifest.Unit{SourceRepoID: sourceRepoID, Type: ubimanifest.RpmUnit, Rpm: &r}, nil
	case TypeModulemd:
		var m ubimanifest.Modulemd
		if err := json.Unmarshal(raw, &m); err != nil {
			return ubimanifest.Unit{}, fmt.Errorf("contentstore: decoding modulemd unit: %w", err)
		}
		return ubimanifest.Unit{SourceRepoID: sourceRepoID, Type: ubimanifest.ModulemdUnit, Modulemd: &m}, nil
	case TypeModulemdDefaults:
		var d ubimanifest.ModulemdDefaults
		if err := json.Unmarshal(raw, &d); err != nil {
			return ubimanifest.Unit{}, fmt.Errorf("contentstore: decoding modulemd-defaults unit: %w", err)
		}
		d.RepoID = sourceRepoID
		return ubimanifest.Unit{SourceRepoID: sourceRepoID, Type: ubimanifest.ModulemdDefaultsUnit, ModulemdDefaults: &d}, nil
	default:
		return ubimanifest.Unit{}, fmt.Errorf("contentstore: unknown unit type %q", unitType)
	}
}
