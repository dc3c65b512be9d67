// Package postgres implements the audit store with a transactional outbox.
// Events are written to the outbox table and published to Kafka by the
// outbox worker; Kafka is the durable source of truth for audit events.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"placet/pkg/platform/audit"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_outbox (
		id           TEXT PRIMARY KEY,
		category     TEXT NOT NULL,
		payload      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS audit_outbox_unpublished_idx ON audit_outbox (created_at) WHERE published_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS audit_outbox_token_idx ON audit_outbox ((payload->>'token'))`,
}

// Store writes audit events to the outbox table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema applies the outbox DDL.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// payload is the JSON structure published to Kafka. Field names are stable;
// consumers deserialize by these keys.
type payload struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Timestamp      string `json:"timestamp"`
	Action         string `json:"action"`
	Token          string `json:"token,omitempty"`
	Subject        string `json:"subject,omitempty"`
	Purpose        string `json:"purpose,omitempty"`
	Classification string `json:"classification,omitempty"`
	Decision       string `json:"decision,omitempty"`
	Reason         string `json:"reason,omitempty"`
	HashType       string `json:"hash_type,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
}

func toPayload(event audit.Event) payload {
	return payload{
		ID:             event.ID,
		Category:       string(event.Category),
		Timestamp:      event.Timestamp.Format(time.RFC3339Nano),
		Action:         event.Action,
		Token:          event.Token,
		Subject:        event.Subject,
		Purpose:        event.Purpose,
		Classification: event.Classification,
		Decision:       event.Decision,
		Reason:         event.Reason,
		HashType:       event.HashType,
		RequestID:      event.RequestID,
		ActorID:        event.ActorID,
	}
}

func fromPayload(p payload) audit.Event {
	ts, _ := time.Parse(time.RFC3339Nano, p.Timestamp)
	return audit.Event{
		ID:             p.ID,
		Category:       audit.Category(p.Category),
		Timestamp:      ts,
		Action:         p.Action,
		Token:          p.Token,
		Subject:        p.Subject,
		Purpose:        p.Purpose,
		Classification: p.Classification,
		Decision:       p.Decision,
		Reason:         p.Reason,
		HashType:       p.HashType,
		RequestID:      p.RequestID,
		ActorID:        p.ActorID,
	}
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	raw, err := json.Marshal(toPayload(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_outbox (id, category, payload, created_at) VALUES ($1, $2, $3, $4)`,
		event.ID, string(event.Category), raw, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByToken returns events for a consent token, oldest first.
func (s *Store) ListByToken(ctx context.Context, token string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM audit_outbox WHERE payload->>'token' = $1 ORDER BY created_at`, token)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("unmarshal audit payload: %w", err)
		}
		out = append(out, fromPayload(p))
	}
	return out, rows.Err()
}

// OutboxRow is an unpublished outbox entry handed to the worker.
type OutboxRow struct {
	ID       string
	Category string
	Payload  []byte
}

// FetchUnpublished returns up to limit unpublished rows, oldest first.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, category, payload FROM audit_outbox
		 WHERE published_at IS NULL ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Category, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps rows as published after the Kafka produce succeeded.
func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = now() WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	return nil
}
