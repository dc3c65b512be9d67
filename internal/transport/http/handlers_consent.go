package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"placet/internal/consent"
	"placet/internal/consent/service"
	"placet/internal/platform/middleware"
	dErrors "placet/pkg/domain-errors"
	"placet/pkg/platform/httputil"
)

// ConsentService defines the consent administration operations the transport
// exposes.
type ConsentService interface {
	Issue(ctx context.Context, req service.IssueRequest) (*consent.Record, error)
	PreRegisterSignedHash(ctx context.Context, token, hash string) error
	Stats(ctx context.Context) (consent.Stats, error)
	Cleanup(ctx context.Context) (int, error)
}

type consentHandler struct {
	consent ConsentService
	logger  *slog.Logger
}

func newConsentHandler(svc ConsentService, logger *slog.Logger) *consentHandler {
	return &consentHandler{consent: svc, logger: logger}
}

type issueRequest struct {
	Payload    any    `json:"payload"`
	Subject    string `json:"subject"`
	Purpose    string `json:"purpose"`
	TTLSeconds int64  `json:"ttl_seconds,omitempty"`
}

type issueResponse struct {
	Token        string    `json:"token"`
	OriginalHash string    `json:"original_hash"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type signedHashRequest struct {
	SignedHash string `json:"signed_hash"`
}

func (h *consentHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.consent.Issue(ctx, service.IssueRequest{
		Payload:  req.Payload,
		Subject:  req.Subject,
		Purpose:  req.Purpose,
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
		UserID:   middleware.GetUserID(ctx),
		ClientID: middleware.GetClientID(ctx),
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "invalid issuance request",
				"request_id", requestID,
				"error", err.Error(),
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "consent issuance failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue consent"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueResponse{
		Token:        record.Token,
		OriginalHash: record.OriginalHash,
		ExpiresAt:    record.ExpiresAt,
	})
}

// handleSignedHash pre-registers the expected post-signing digest for an
// existing grant. The digest is set at most once.
func (h *consentHandler) handleSignedHash(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")

	var req signedHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.consent.PreRegisterSignedHash(ctx, token, req.SignedHash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *consentHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.consent.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to read stats"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *consentHandler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.consent.Cleanup(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "cleanup failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
