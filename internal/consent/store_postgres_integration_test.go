//go:build integration

package consent_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"placet/internal/consent"
	"placet/pkg/platform/sentinel"
	"placet/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *consent.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = consent.NewPostgresStore(s.postgres.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "consent_records"))
}

func newRecord(ttl time.Duration) consent.Record {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return consent.Record{
		Token:        uuid.NewString(),
		OriginalHash: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Subject:      "user@example.com",
		Purpose:      "email_notification",
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		UserID:       "user-1",
		ClientID:     "client-1",
	}
}

func (s *PostgresStoreSuite) TestSaveAndGet() {
	ctx := context.Background()
	record := newRecord(time.Hour)

	s.Require().NoError(s.store.Save(ctx, record))

	got, err := s.store.Get(ctx, record.Token)
	s.Require().NoError(err)
	s.Equal(record.Token, got.Token)
	s.Equal(record.OriginalHash, got.OriginalHash)
	s.Empty(got.SignedHash)
	s.Equal(record.Subject, got.Subject)
	s.WithinDuration(record.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestGetUnknownToken() {
	_, err := s.store.Get(context.Background(), uuid.NewString())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateSignedHashSemantics() {
	ctx := context.Background()
	record := newRecord(time.Hour)
	s.Require().NoError(s.store.Save(ctx, record))

	signed := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	other := "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"

	s.Require().NoError(s.store.UpdateSignedHash(ctx, record.Token, signed))

	// Idempotent on the same value.
	s.Require().NoError(s.store.UpdateSignedHash(ctx, record.Token, signed))

	// A different value conflicts.
	err := s.store.UpdateSignedHash(ctx, record.Token, other)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Get(ctx, record.Token)
	s.Require().NoError(err)
	s.Equal(signed, got.SignedHash)

	err = s.store.UpdateSignedHash(ctx, uuid.NewString(), signed)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentSignedHashUpdates verifies that racing updates with distinct
// values leave exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentSignedHashUpdates() {
	ctx := context.Background()
	record := newRecord(time.Hour)
	s.Require().NoError(s.store.Save(ctx, record))

	const goroutines = 20
	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hash := uuid.NewString() + uuid.NewString()
			hash = hash[:64]
			err := s.store.UpdateSignedHash(ctx, record.Token, hash)
			switch {
			case err == nil:
				successCount.Add(1)
			default:
				conflictCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())

	got, err := s.store.Get(ctx, record.Token)
	s.Require().NoError(err)
	s.NotEmpty(got.SignedHash)
}

func (s *PostgresStoreSuite) TestCleanupAndStats() {
	ctx := context.Background()

	live := newRecord(time.Hour)
	expired := newRecord(-time.Hour)
	s.Require().NoError(s.store.Save(ctx, live))
	s.Require().NoError(s.store.Save(ctx, expired))

	stats, err := s.store.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(consent.Stats{Total: 2, Active: 1, Expired: 1}, stats)

	removed, err := s.store.Cleanup(ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.store.Get(ctx, expired.Token)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.Get(ctx, live.Token)
	s.Require().NoError(err)
}
