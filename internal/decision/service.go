package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"placet/internal/consent"
	"placet/internal/decision/metrics"
	dErrors "placet/pkg/domain-errors"
	"placet/pkg/platform/sentinel"
)

// Service evaluates release requests against stored consent. It is pure
// apart from the read on the store; it has no side effects and issues no
// retries. A denial for a given token and hash is a stable fact until the
// store state changes.
type Service struct {
	store   consent.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(store consent.Store, m *metrics.Metrics) *Service {
	return &Service{store: store, metrics: m, now: time.Now}
}

// Decide evaluates (token, payloadHash, subject, purpose) in a fixed
// short-circuit order. The order is a contract, not an implementation
// detail:
//  1. token resolves to a record
//  2. payloadHash equals the original or the signed digest
//  3. record is not expired
//  4. subject matches exactly
//  5. purpose, when supplied, matches
//
// An empty purpose skips rule 5. The returned error is reserved for store
// failures; every policy outcome is expressed in the Decision.
func (s *Service) Decide(ctx context.Context, token, payloadHash, subject, purpose string) (Decision, error) {
	start := s.now()
	d, err := s.decide(ctx, token, payloadHash, subject, purpose)
	if err != nil {
		return Decision{}, err
	}
	s.metrics.ObserveDecision(d.Allow, string(d.Code), s.now().Sub(start))
	return d, nil
}

func (s *Service) decide(ctx context.Context, token, payloadHash, subject, purpose string) (Decision, error) {
	record, err := s.store.Get(ctx, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return deny(CodeConsentNotFound, "no consent record found"), nil
	}
	if err != nil {
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "consent store read failed")
	}

	matched, hashType := matchHash(record, payloadHash)
	if !matched {
		// Both expected digests are reported so operators can diagnose
		// whether content drifted before or after signing.
		reason := fmt.Sprintf("content hash %s matches neither original %s nor signed %s",
			payloadHash, record.OriginalHash, signedOrNone(record.SignedHash))
		return deny(CodeHashMismatch, reason), nil
	}

	if record.Expired(s.now()) {
		return deny(CodeConsentExpired, "consent expired"), nil
	}

	if subject != record.Subject {
		return deny(CodeSubjectMismatch, "subject mismatch"), nil
	}

	if purpose != "" && purpose != record.Purpose {
		return deny(CodePurposeMismatch, "purpose mismatch"), nil
	}

	return allow(hashType, fmt.Sprintf("content matches %s consent hash", hashType)), nil
}

func matchHash(record consent.Record, payloadHash string) (bool, HashType) {
	if payloadHash == record.OriginalHash {
		return true, HashOriginal
	}
	if record.SignedHash != "" && payloadHash == record.SignedHash {
		return true, HashSigned
	}
	return false, ""
}

func signedOrNone(signed string) string {
	if signed == "" {
		return "(none)"
	}
	return signed
}

// RegisterSignedHash is the decision point's single narrow write path: it
// records the post-signing fingerprint on an existing grant. Everything else
// only reads the store.
func (s *Service) RegisterSignedHash(ctx context.Context, token, hash string) error {
	err := s.store.UpdateSignedHash(ctx, token, hash)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "no consent record found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "signed hash already registered with a different value")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "consent store write failed")
	}
	return nil
}
