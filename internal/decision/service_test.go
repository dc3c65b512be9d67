package decision

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"placet/internal/consent"
)

const (
	hashA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	hashB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	hashC = "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
)

type DecisionSuite struct {
	suite.Suite
	store *consent.InMemoryStore
	svc   *Service
	ctx   context.Context
	now   time.Time
}

func (s *DecisionSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = consent.NewInMemoryStore()
	s.svc = NewService(s.store, nil)
	s.svc.now = func() time.Time { return s.now }
	s.ctx = context.Background()
}

func TestDecisionSuite(t *testing.T) {
	suite.Run(t, new(DecisionSuite))
}

func (s *DecisionSuite) seed(mutate func(*consent.Record)) consent.Record {
	record := consent.Record{
		Token:        "tok-1",
		OriginalHash: hashA,
		Subject:      "a@x.com",
		Purpose:      "email_notification",
		CreatedAt:    s.now.Add(-time.Hour),
		ExpiresAt:    s.now.Add(time.Hour),
	}
	if mutate != nil {
		mutate(&record)
	}
	s.Require().NoError(s.store.Save(s.ctx, record))
	return record
}

func (s *DecisionSuite) TestAllow() {
	s.Run("original hash matches", func() {
		s.seed(nil)

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "email_notification")
		s.Require().NoError(err)
		s.True(d.Allow)
		s.Equal(HashOriginal, d.HashType)
		s.NotEmpty(d.Reason, "reason is populated on allow too")
	})

	s.Run("signed hash matches", func() {
		s.seed(func(r *consent.Record) { r.SignedHash = hashB })

		d, err := s.svc.Decide(s.ctx, "tok-1", hashB, "a@x.com", "email_notification")
		s.Require().NoError(err)
		s.True(d.Allow)
		s.Equal(HashSigned, d.HashType)
	})

	s.Run("empty purpose skips purpose check", func() {
		s.seed(nil)

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "")
		s.Require().NoError(err)
		s.True(d.Allow)
	})
}

func (s *DecisionSuite) TestEvaluationOrder() {
	// Each rule short-circuits before the next is consulted. The seeds below
	// violate multiple rules at once and assert which one wins.

	s.Run("unknown token wins over everything", func() {
		d, err := s.svc.Decide(s.ctx, "no-such-token", hashC, "b@y.com", "other")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodeConsentNotFound, d.Code)
		s.Equal("no consent record found", d.Reason)
	})

	s.Run("hash mismatch wins over expiry and subject", func() {
		s.seed(func(r *consent.Record) {
			r.SignedHash = hashB
			r.ExpiresAt = s.now.Add(-time.Minute)
			r.Subject = "someone-else@x.com"
		})

		d, err := s.svc.Decide(s.ctx, "tok-1", hashC, "a@x.com", "email_notification")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodeHashMismatch, d.Code)
		s.Contains(d.Reason, hashA, "reason reports the expected original digest")
		s.Contains(d.Reason, hashB, "reason reports the expected signed digest")
	})

	s.Run("expiry wins over subject and purpose", func() {
		s.seed(func(r *consent.Record) {
			r.ExpiresAt = s.now.Add(-time.Millisecond)
			r.Subject = "someone-else@x.com"
			r.Purpose = "other"
		})

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "email_notification")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodeConsentExpired, d.Code)
	})

	s.Run("subject wins over purpose", func() {
		s.seed(func(r *consent.Record) { r.Purpose = "other" })

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "b@y.com", "email_notification")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodeSubjectMismatch, d.Code)
	})

	s.Run("purpose checked last", func() {
		s.seed(nil)

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "marketing")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodePurposeMismatch, d.Code)
	})
}

func (s *DecisionSuite) TestExpiryBoundary() {
	s.Run("expired one millisecond ago is denied", func() {
		s.seed(func(r *consent.Record) { r.ExpiresAt = s.now.Add(-time.Millisecond) })

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "")
		s.Require().NoError(err)
		s.False(d.Allow)
		s.Equal(CodeConsentExpired, d.Code)
	})

	s.Run("expiring in an hour is allowed", func() {
		s.seed(func(r *consent.Record) { r.ExpiresAt = s.now.Add(time.Hour) })

		d, err := s.svc.Decide(s.ctx, "tok-1", hashA, "a@x.com", "")
		s.Require().NoError(err)
		s.True(d.Allow)
	})
}

func (s *DecisionSuite) TestDeterministicDenial() {
	s.seed(nil)

	first, err := s.svc.Decide(s.ctx, "tok-1", hashC, "a@x.com", "")
	s.Require().NoError(err)
	second, err := s.svc.Decide(s.ctx, "tok-1", hashC, "a@x.com", "")
	s.Require().NoError(err)
	s.Equal(first, second, "a denial is stable until the store changes")

	// Registering the presented hash as the signed digest flips the outcome.
	s.Require().NoError(s.svc.RegisterSignedHash(s.ctx, "tok-1", hashC))
	third, err := s.svc.Decide(s.ctx, "tok-1", hashC, "a@x.com", "")
	s.Require().NoError(err)
	s.True(third.Allow)
	s.Equal(HashSigned, third.HashType)
}

func (s *DecisionSuite) TestRegisterSignedHash() {
	s.Run("unknown token", func() {
		err := s.svc.RegisterSignedHash(s.ctx, "no-such-token", hashB)
		s.Require().Error(err)
		s.Contains(err.Error(), "no consent record found")
	})

	s.Run("conflicting second registration", func() {
		s.seed(nil)
		s.Require().NoError(s.svc.RegisterSignedHash(s.ctx, "tok-1", hashB))

		err := s.svc.RegisterSignedHash(s.ctx, "tok-1", hashC)
		s.Require().Error(err)
		s.True(strings.Contains(err.Error(), "already registered"))
	})
}
