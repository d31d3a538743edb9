// Package postgres implements resultstore.Store on top of Postgres,
// grounded on the teacher's datastore/postgres package: goqu for query
// construction, pgx/v5's pool for execution.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v8"
	_ "github.com/doug-martin/goqu/v8/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quay/ubi-manifest"
	"github.com/quay/ubi-manifest/resultstore"
)

var dialect = goqu.Dialect("postgres")

const schema = `
CREATE TABLE IF NOT EXISTS manifest (
	repo_id    text PRIMARY KEY,
	entries    jsonb NOT NULL,
	expires_at timestamptz NOT NULL
);`

// Store is a Postgres-backed resultstore.Store, one row per repo id.
// Expiry is lazy: a row past its expires_at is treated as absent on
// Get, and simply overwritten by the next Put for that repo id — there
// is no background GC, matching the TTL semantics spec.md describes
// ("regenerated on demand").
type Store struct {
	Pool *pgxpool.Pool
}

var _ resultstore.Store = (*Store)(nil)

// Init ensures the manifest table exists and returns a ready Store.
func Init(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

// Put implements [resultstore.Store].
func (s *Store) Put(ctx context.Context, repoID string, entries []ubimanifest.ManifestEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	expiresAt := time.Now().Add(ttl)

	row := goqu.Record{
		"repo_id":    repoID,
		"entries":    string(payload),
		"expires_at": expiresAt,
	}
	query, _, err := dialect.Insert("manifest").
		Rows(row).
		OnConflict(goqu.DoUpdate("repo_id", goqu.Record{
			"entries":    string(payload),
			"expires_at": expiresAt,
		})).
		ToSQL()
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, query)
	return err
}

// Get implements [resultstore.Store].
func (s *Store) Get(ctx context.Context, repoID string) ([]ubimanifest.ManifestEntry, bool, error) {
	query, _, err := dialect.From("manifest").
		Select("entries", "expires_at").
		Where(goqu.Ex{"repo_id": repoID}).
		ToSQL()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	var expiresAt time.Time
	row := s.Pool.QueryRow(ctx, query)
	switch err := row.Scan(&payload, &expiresAt); {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if time.Now().After(expiresAt) {
		return nil, false, nil
	}

	var entries []ubimanifest.ManifestEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// Ping implements [resultstore.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}
