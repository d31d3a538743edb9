// Package contentstore is the query layer between the depsolvers and the
// Pulp-backed RPM content store: it issues paged, batched searches and
// folds the results into sets of source-repo-tagged [ubimanifest.Unit]
// values.
//
// The store itself is an external collaborator (spec.md calls it "a
// query engine producing paged criteria searches"); this package owns
// only the batching, paging, and fan-out shape a caller uses to talk to
// it, plus an HTTP-backed [Pulp] implementation of [Client].
package contentstore

import (
	"context"

	"github.com/quay/ubi-manifest"
)

// UnitType selects which content-unit variant a search targets.
type UnitType string

const (
	TypeRpm              UnitType = "rpm"
	TypeSRPM             UnitType = "srpm"
	TypeModulemd         UnitType = "modulemd"
	TypeModulemdDefaults UnitType = "modulemd_defaults"
)

// Criteria is a conjunction of field predicates, e.g.
// {"name": "gcc", "arch": "x86_64"}. A []Criteria passed to Search is
// disjunctive (OR) across its elements.
type Criteria map[string]any

// SearchOptions configures one Search call.
type SearchOptions struct {
	// BatchSize bounds how many Criteria are OR'd into a single page
	// request; the caller's criteria list is windowed into chunks of
	// this size. Zero selects [BatchGeneral].
	BatchSize int
	// PageSize bounds how many units the store returns per page within
	// one windowed search. Zero selects [PageSize].
	PageSize int
	// Fields overrides the default field projection for UnitType.
	Fields []string
}

// Page is one page of results for a single windowed search against a
// single repo.
type Page struct {
	Units []ubimanifest.Unit
}

// Client is the query-layer primitive: a paged, criteria-driven search
// against one repository.
//
// Search returns immediately with a channel of pages and a channel that
// carries at most one error. Implementations must close the page
// channel when the search is exhausted or has failed; a value sent on
// the error channel means the search is abandoned and no further pages
// will arrive. This is the Go realization of spec.md's
// "future<set<Unit>>": callers fold the page channel themselves instead
// of awaiting a single future-of-a-set.
type Client interface {
	Search(ctx context.Context, repo ubimanifest.Repo, criteria []Criteria, unitType UnitType, opts SearchOptions) (<-chan Page, <-chan error)
}

// Default field projections per unit type, overridable via
// SearchOptions.Fields.
var defaultFields = map[UnitType][]string{
	TypeRpm:              {"name", "epoch", "version", "release", "arch", "filename", "sourcerpm", "requires", "provides", "files", "content_type_id"},
	TypeSRPM:             {"name", "epoch", "version", "release", "arch", "filename", "content_type_id"},
	TypeModulemd:         {"name", "stream", "version", "context", "arch", "artifacts", "dependencies", "profiles"},
	TypeModulemdDefaults: {"name", "stream", "profiles"},
}

func fields(unitType UnitType, override []string) []string {
	if len(override) > 0 {
		return override
	}
	return defaultFields[unitType]
}
