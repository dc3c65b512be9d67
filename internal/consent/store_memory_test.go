package consent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"placet/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore()
	s.store.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newRecord(ttl time.Duration) Record {
	return Record{
		Token:        uuid.NewString(),
		OriginalHash: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Subject:      "a@x.com",
		Purpose:      "email_notification",
		CreatedAt:    s.now,
		ExpiresAt:    s.now.Add(ttl),
	}
}

func (s *MemoryStoreSuite) TestSaveAndGet() {
	s.Run("round-trips a record by token", func() {
		record := s.newRecord(time.Hour)
		s.Require().NoError(s.store.Save(s.ctx, record))

		found, err := s.store.Get(s.ctx, record.Token)
		s.Require().NoError(err)
		s.Equal(record, found)
	})

	s.Run("returns ErrNotFound for unknown token", func() {
		_, err := s.store.Get(s.ctx, "no-such-token")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("save overwrites by token", func() {
		record := s.newRecord(time.Hour)
		s.Require().NoError(s.store.Save(s.ctx, record))

		record.Subject = "b@x.com"
		s.Require().NoError(s.store.Save(s.ctx, record))

		found, err := s.store.Get(s.ctx, record.Token)
		s.Require().NoError(err)
		s.Equal("b@x.com", found.Subject)
	})
}

func (s *MemoryStoreSuite) TestUpdateSignedHash() {
	signed := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	s.Run("registers the signed hash once", func() {
		record := s.newRecord(time.Hour)
		s.Require().NoError(s.store.Save(s.ctx, record))

		s.Require().NoError(s.store.UpdateSignedHash(s.ctx, record.Token, signed))

		found, err := s.store.Get(s.ctx, record.Token)
		s.Require().NoError(err)
		s.Equal(signed, found.SignedHash)
	})

	s.Run("is idempotent for the same hash", func() {
		record := s.newRecord(time.Hour)
		s.Require().NoError(s.store.Save(s.ctx, record))

		s.Require().NoError(s.store.UpdateSignedHash(s.ctx, record.Token, signed))
		s.Require().NoError(s.store.UpdateSignedHash(s.ctx, record.Token, signed))
	})

	s.Run("rejects a second, different hash", func() {
		record := s.newRecord(time.Hour)
		s.Require().NoError(s.store.Save(s.ctx, record))

		s.Require().NoError(s.store.UpdateSignedHash(s.ctx, record.Token, signed))
		err := s.store.UpdateSignedHash(s.ctx, record.Token, "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("returns ErrNotFound for unknown token", func() {
		err := s.store.UpdateSignedHash(s.ctx, "no-such-token", signed)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestCleanupAndStats() {
	s.Require().NoError(s.store.Save(s.ctx, s.newRecord(time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.newRecord(2*time.Hour)))
	s.Require().NoError(s.store.Save(s.ctx, s.newRecord(-time.Millisecond)))
	s.Require().NoError(s.store.Save(s.ctx, s.newRecord(-time.Minute)))

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(Stats{Total: 4, Active: 2, Expired: 2}, stats)

	removed, err := s.store.Cleanup(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, removed)

	stats, err = s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(Stats{Total: 2, Active: 2}, stats)
}

func (s *MemoryStoreSuite) TestExpiryBoundary() {
	s.Run("record expiring exactly now counts as expired", func() {
		record := s.newRecord(0)
		s.Require().NoError(s.store.Save(s.ctx, record))

		stats, err := s.store.Stats(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, stats.Expired)
	})
}
