package consent

import (
	"context"
)

// Store is the consent record repository. Implementations must serialize
// writes so a Get issued by one validation never observes a torn write from
// a concurrent UpdateSignedHash; no record may be partially written.
//
// Single-instance deployments use InMemoryStore; multi-instance deployments
// back this contract with Redis or Postgres.
type Store interface {
	// Save inserts or overwrites the record keyed by its token.
	Save(ctx context.Context, record Record) error
	// Get returns the record for token, or sentinel.ErrNotFound.
	Get(ctx context.Context, token string) (Record, error)
	// UpdateSignedHash registers the post-signing fingerprint for token.
	// Returns sentinel.ErrNotFound for an unknown token and
	// sentinel.ErrConflict when a different signed hash was already
	// registered (set at most once).
	UpdateSignedHash(ctx context.Context, token, hash string) error
	// Cleanup deletes all records with an expiry in the past and returns the
	// number removed.
	Cleanup(ctx context.Context) (int, error)
	// Stats counts total, active and expired records.
	Stats(ctx context.Context) (Stats, error)
}
