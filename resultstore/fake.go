package resultstore

import (
	"context"
	"sync"
	"time"

	"github.com/quay/ubi-manifest"
)

// Fake is an in-memory Store for coordinator/httpapi tests.
type Fake struct {
	mu      sync.Mutex
	entries map[string][]ubimanifest.ManifestEntry
	expires map[string]time.Time
}

var _ Store = (*Fake)(nil)

func (f *Fake) Put(_ context.Context, repoID string, entries []ubimanifest.ManifestEntry, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = make(map[string][]ubimanifest.ManifestEntry)
		f.expires = make(map[string]time.Time)
	}
	f.entries[repoID] = entries
	f.expires[repoID] = time.Now().Add(ttl)
	return nil
}

func (f *Fake) Get(_ context.Context, repoID string) ([]ubimanifest.ManifestEntry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, ok := f.entries[repoID]
	if !ok {
		return nil, false, nil
	}
	if time.Now().After(f.expires[repoID]) {
		return nil, false, nil
	}
	return entries, true, nil
}

func (f *Fake) Ping(context.Context) error { return nil }
