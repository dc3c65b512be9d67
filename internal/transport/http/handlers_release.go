package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"placet/internal/classification"
	"placet/internal/platform/middleware"
	"placet/internal/release"
	dErrors "placet/pkg/domain-errors"
	"placet/pkg/platform/httputil"
)

// ReleaseService is the slice of the enforcement pipeline the transport
// consumes.
type ReleaseService interface {
	Enforce(ctx context.Context, req release.Request) (*release.Outcome, error)
}

type releaseHandler struct {
	release ReleaseService
	logger  *slog.Logger
}

func newReleaseHandler(svc ReleaseService, logger *slog.Logger) *releaseHandler {
	return &releaseHandler{release: svc, logger: logger}
}

// releaseRequest is the wire form of one enforcement call.
type releaseRequest struct {
	Payload        release.EmailPayload `json:"payload"`
	ConsentToken   string               `json:"consent_token"`
	Classification string               `json:"classification"`
}

// handleRelease submits one payload to the enforcement pipeline.
//
// Status mapping: approved releases return 200; policy rejections return 403
// (422 for schema failures); signing failures and delivery failures after
// approval return 502, since those are infrastructure trouble the caller
// should retry or alert on, not consent denials.
func (h *releaseHandler) handleRelease(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.ConsentToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "consent_token is required"))
		return
	}

	// A missing label fails safe to the strictest tier. An explicit unknown
	// label is a client error, not something to silently upgrade.
	var label classification.Classification
	if req.Classification == "" {
		label = classification.Restricted
		h.logger.WarnContext(ctx, "classification missing, defaulting to restricted",
			"request_id", requestID,
		)
	} else {
		parsed, err := classification.Parse(req.Classification)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		label = parsed
	}

	outcome, err := h.release.Enforce(ctx, release.Request{
		Payload:        req.Payload,
		Token:          req.ConsentToken,
		Classification: label,
		RequestID:      requestID,
	})
	if err != nil {
		if outcome != nil && outcome.Approved {
			httputil.WriteJSON(w, http.StatusBadGateway, outcome)
			return
		}
		h.logger.ErrorContext(ctx, "enforcement failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	switch {
	case outcome.Approved:
		httputil.WriteJSON(w, http.StatusOK, outcome)
	case outcome.Code == release.CodeSchemaInvalid:
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, outcome)
	case outcome.Code == release.CodeSigningFailed:
		httputil.WriteJSON(w, http.StatusBadGateway, outcome)
	default:
		httputil.WriteJSON(w, http.StatusForbidden, outcome)
	}
}
