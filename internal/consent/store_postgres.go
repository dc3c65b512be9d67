package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"placet/pkg/platform/sentinel"
)

// schemaStatements is the consent table DDL, applied by deployments that
// back the store with Postgres.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS consent_records (
		token         TEXT PRIMARY KEY,
		original_hash CHAR(64) NOT NULL,
		signed_hash   CHAR(64),
		subject       TEXT NOT NULL,
		purpose       TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL,
		expires_at    TIMESTAMPTZ NOT NULL,
		user_id       TEXT,
		client_id     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS consent_records_expires_at_idx ON consent_records (expires_at)`,
}

// PostgresStore backs the consent contract with Postgres. Row-level
// statements are atomic, which satisfies the no-torn-write requirement.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: time.Now}
}

// EnsureSchema applies the consent DDL. Used by tests and single-binary
// deployments; managed environments run migrations instead.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO consent_records
			(token, original_hash, signed_hash, subject, purpose, created_at, expires_at, user_id, client_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
		ON CONFLICT (token) DO UPDATE SET
			original_hash = EXCLUDED.original_hash,
			signed_hash   = EXCLUDED.signed_hash,
			subject       = EXCLUDED.subject,
			purpose       = EXCLUDED.purpose,
			created_at    = EXCLUDED.created_at,
			expires_at    = EXCLUDED.expires_at,
			user_id       = EXCLUDED.user_id,
			client_id     = EXCLUDED.client_id`,
		record.Token, record.OriginalHash, record.SignedHash, record.Subject,
		record.Purpose, record.CreatedAt, record.ExpiresAt, record.UserID, record.ClientID)
	if err != nil {
		return fmt.Errorf("save consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (Record, error) {
	var record Record
	var signedHash, userID, clientID *string
	err := s.pool.QueryRow(ctx, `
		SELECT token, original_hash, signed_hash, subject, purpose, created_at, expires_at, user_id, client_id
		FROM consent_records WHERE token = $1`, token).
		Scan(&record.Token, &record.OriginalHash, &signedHash, &record.Subject,
			&record.Purpose, &record.CreatedAt, &record.ExpiresAt, &userID, &clientID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get consent record: %w", err)
	}
	if signedHash != nil {
		record.SignedHash = *signedHash
	}
	if userID != nil {
		record.UserID = *userID
	}
	if clientID != nil {
		record.ClientID = *clientID
	}
	return record, nil
}

func (s *PostgresStore) UpdateSignedHash(ctx context.Context, token, hash string) error {
	// Single conditional UPDATE keeps set-at-most-once atomic without a
	// transaction round trip.
	tag, err := s.pool.Exec(ctx, `
		UPDATE consent_records SET signed_hash = $2
		WHERE token = $1 AND (signed_hash IS NULL OR signed_hash = $2)`, token, hash)
	if err != nil {
		return fmt.Errorf("update signed hash: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM consent_records WHERE token = $1)`, token).Scan(&exists); err != nil {
		return fmt.Errorf("update signed hash: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) Cleanup(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM consent_records WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("cleanup consent records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE expires_at > $1),
		       COUNT(*) FILTER (WHERE expires_at <= $1)
		FROM consent_records`, s.now()).
		Scan(&stats.Total, &stats.Active, &stats.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("consent stats: %w", err)
	}
	return stats, nil
}
