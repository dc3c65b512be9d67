// Package service implements consent issuance: producing consent records
// from a submitted payload and managing the store lifecycle around them.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/google/uuid"

	"placet/internal/consent"
	"placet/internal/fingerprint"
	dErrors "placet/pkg/domain-errors"
	"placet/pkg/platform/audit"
	"placet/pkg/platform/audit/publisher"
	"placet/pkg/platform/sentinel"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Limits bound issuance TTLs.
type Limits struct {
	MaxTTL     time.Duration
	DefaultTTL time.Duration
}

// IssueRequest carries everything needed to mint a consent record.
type IssueRequest struct {
	// Payload is the content the subject consented to, exactly as it will be
	// submitted for release.
	Payload any
	Subject string
	Purpose string
	// TTL of zero selects the configured default.
	TTL      time.Duration
	UserID   string
	ClientID string
}

// Service validates issuance requests and persists consent records.
type Service struct {
	store  consent.Store
	audit  *publisher.Publisher
	logger *slog.Logger
	limits Limits
	now    func() time.Time
}

func NewService(store consent.Store, auditPub *publisher.Publisher, logger *slog.Logger, limits Limits) *Service {
	return &Service{
		store:  store,
		audit:  auditPub,
		logger: logger,
		limits: limits,
		now:    time.Now,
	}
}

// Issue fingerprints the submitted payload and stores a new grant under a
// fresh opaque token.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*consent.Record, error) {
	if req.Subject == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject is required")
	}
	if _, err := mail.ParseAddress(req.Subject); err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject is not a valid address")
	}
	if req.Purpose == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "purpose is required")
	}
	if req.Payload == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payload is required")
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = s.limits.DefaultTTL
	}
	if ttl < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "ttl must be positive")
	}
	if ttl > s.limits.MaxTTL {
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "ttl exceeds the %s maximum", s.limits.MaxTTL)
	}

	hash, err := fingerprint.Fingerprint(req.Payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "payload is not serializable")
	}

	now := s.now()
	record := consent.Record{
		Token:        uuid.NewString(),
		OriginalHash: hash,
		Subject:      req.Subject,
		Purpose:      req.Purpose,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		UserID:       req.UserID,
		ClientID:     req.ClientID,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store consent record")
	}

	s.emitAudit(ctx, audit.Event{
		Action:  string(audit.EventConsentIssued),
		Token:   record.Token,
		Subject: record.Subject,
		Purpose: record.Purpose,
		ActorID: req.UserID,
	})
	return &record, nil
}

// PreRegisterSignedHash records the expected post-signing fingerprint on an
// existing grant, for callers that know the signed payload shape up front.
func (s *Service) PreRegisterSignedHash(ctx context.Context, token, hash string) error {
	if !hexDigest.MatchString(hash) {
		return dErrors.New(dErrors.CodeBadRequest, "hash must be a 64-character lowercase hex digest")
	}
	err := s.store.UpdateSignedHash(ctx, token, hash)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "no consent record found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "signed hash already registered with a different value")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent record")
	}

	s.emitAudit(ctx, audit.Event{
		Action: string(audit.EventSignedHashRegistered),
		Token:  token,
	})
	return nil
}

// Stats reports store contents for the admin surface.
func (s *Service) Stats(ctx context.Context) (consent.Stats, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return consent.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent stats")
	}
	return stats, nil
}

// Cleanup removes expired records and reports how many were purged.
func (s *Service) Cleanup(ctx context.Context) (int, error) {
	removed, err := s.store.Cleanup(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "consent cleanup failed")
	}
	if removed > 0 {
		s.emitAudit(ctx, audit.Event{
			Action: string(audit.EventConsentCleanup),
			Reason: "expired records purged",
		})
		s.logger.InfoContext(ctx, "consent cleanup", "removed", removed)
	}
	return removed, nil
}

// RunJanitor purges expired records on the given interval until ctx is
// cancelled.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil {
				s.logger.ErrorContext(ctx, "consent janitor failed", "error", err.Error())
			}
		}
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err.Error())
	}
}
