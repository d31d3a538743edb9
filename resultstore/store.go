// Package resultstore defines the persisted-manifest contract: the
// coordinator writes each output repository's resolved content here
// (spec.md section 4.5 step 13, section 6 "Persisted result layout"),
// keyed by repo id with a TTL. The concrete store lives in
// resultstore/postgres; this package only names the interface so the
// coordinator and httpapi don't depend on a particular backend.
package resultstore

import (
	"context"
	"time"

	"github.com/quay/ubi-manifest"
)

// Store persists and retrieves per-output-repository manifests.
type Store interface {
	// Put replaces the manifest for repoID, expiring after ttl.
	Put(ctx context.Context, repoID string, entries []ubimanifest.ManifestEntry, ttl time.Duration) error
	// Get fetches the manifest for repoID. ok is false if absent or
	// expired.
	Get(ctx context.Context, repoID string) (entries []ubimanifest.ManifestEntry, ok bool, err error)
	// Ping reports whether the store is reachable, for the liveness
	// endpoint (spec.md section 6 GET /api/v1/status).
	Ping(ctx context.Context) error
}
