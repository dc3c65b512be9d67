package release

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"placet/internal/classification"
	"placet/internal/fingerprint"
	"placet/internal/release/metrics"
	dErrors "placet/pkg/domain-errors"
	"placet/pkg/platform/audit"
	"placet/pkg/platform/audit/publisher"
)

// signParallelism bounds concurrent signing calls within the signing stage.
// Results are written by index, so the final payload is deterministic
// regardless of completion order.
const signParallelism = 4

// Pipeline enforces the release protocol:
//
//	RECEIVED → SCHEMA_VALID → FIRST_VALIDATED → [SIGNED] → SECOND_VALIDATED → APPROVED
//
// with a REJECTED exit from every state. Steps execute strictly in this
// order. The pipeline owns no state; it orchestrates the decision point and
// the collaborators.
type Pipeline struct {
	validator   SchemaValidator
	pdp         PolicyDecider
	signer      Signer
	deliverer   Deliverer
	audit       *publisher.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
	signTimeout time.Duration
}

func NewPipeline(
	validator SchemaValidator,
	pdp PolicyDecider,
	signer Signer,
	deliverer Deliverer,
	auditPub *publisher.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	signTimeout time.Duration,
) *Pipeline {
	return &Pipeline{
		validator:   validator,
		pdp:         pdp,
		signer:      signer,
		deliverer:   deliverer,
		audit:       auditPub,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("placet/release"),
		signTimeout: signTimeout,
	}
}

// Enforce runs one payload through the full pipeline. A returned Outcome
// with Approved=false guarantees no delivery side effect occurred. The error
// is reserved for infrastructure failures (store reads, delivery); every
// policy result is expressed in the Outcome.
//
// Tokens are not consumed: a valid, unexpired token may be replayed for the
// same content within its validity window. Replays are observable through
// the audit trail.
func (p *Pipeline) Enforce(ctx context.Context, req Request) (*Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "release.enforce", trace.WithAttributes(
		attribute.String("classification", req.Classification.String()),
	))
	defer span.End()

	outcome := &Outcome{State: StateReceived, FinalPayload: req.Payload}

	// Schema validation. A failure here never reaches the decision point so
	// malformed requests cannot probe which hashes are valid.
	start := time.Now()
	vr := p.validator.Validate(req.Payload)
	p.metrics.ObserveStage("schema", time.Since(start))
	if !vr.Valid {
		return p.reject(ctx, req, outcome, CodeSchemaInvalid, strings.Join(vr.Errors, "; ")), nil
	}
	outcome.State = StateSchemaValid

	// First validation: fingerprint the payload as received.
	firstHash, err := fingerprint.Fingerprint(req.Payload)
	if err != nil {
		return p.reject(ctx, req, outcome, CodeSchemaInvalid, "payload is not serializable"), nil
	}
	outcome.FirstHash = firstHash

	start = time.Now()
	first, err := p.pdp.Decide(ctx, req.Token, firstHash, req.Payload.To, PurposeEmailNotification)
	p.metrics.ObserveStage("first_validation", time.Since(start))
	if err != nil {
		return nil, err
	}
	if !first.Allow {
		reason := fmt.Sprintf("%s: %s", first.Code, first.Reason)
		return p.reject(ctx, req, outcome, CodeFirstValidationFailed, reason), nil
	}
	outcome.State = StateFirstValidated

	// Control resolution. The resolver is total over the closed label set;
	// anything else was let through by a broken ingress and is rejected here.
	controls, err := classification.Resolve(req.Classification)
	if err != nil {
		return p.reject(ctx, req, outcome, CodeUnknownClassification, dErrors.MessageOf(err)), nil
	}

	// Conditional signing, fail-closed: restricted content never leaves with
	// an unsigned attachment.
	if controls.ElectronicMessaging {
		start = time.Now()
		signed, err := p.signAttachments(ctx, req.Payload.Attachments)
		p.metrics.ObserveStage("signing", time.Since(start))
		if err != nil {
			p.emitAudit(ctx, req, audit.EventSigningFailed, "", err.Error(), "")
			return p.reject(ctx, req, outcome, CodeSigningFailed, err.Error()), nil
		}
		outcome.FinalPayload.Attachments = signed
		outcome.State = StateSigned
	}

	// Conditional second validation over the final content plus the
	// classification label. When not required, the first decision stands.
	if controls.InformationTransfer {
		secondHash, err := fingerprint.Fingerprint(secondView{
			EmailPayload:   outcome.FinalPayload,
			Classification: req.Classification.String(),
		})
		if err != nil {
			return p.reject(ctx, req, outcome, CodeSecondValidationFailed, "final payload is not serializable"), nil
		}
		outcome.SecondHash = secondHash

		start = time.Now()
		second, err := p.pdp.Decide(ctx, req.Token, secondHash, req.Payload.To, PurposeEmailNotification)
		p.metrics.ObserveStage("second_validation", time.Since(start))
		if err != nil {
			return nil, err
		}
		if !second.Allow {
			reason := fmt.Sprintf("%s: %s", second.Code, second.Reason)
			return p.reject(ctx, req, outcome, CodeSecondValidationFailed, reason), nil
		}
		outcome.State = StateSecondValidated
	}

	outcome.State = StateApproved
	outcome.Approved = true
	outcome.Reason = "release approved"
	p.metrics.IncrementOutcome("approved", "", req.Classification.String())
	if controls.AuditLogging {
		p.emitAudit(ctx, req, audit.EventReleaseApproved, "allow", outcome.Reason, string(first.HashType))
	}

	start = time.Now()
	status, err := p.deliverer.Deliver(ctx, outcome.FinalPayload)
	p.metrics.ObserveStage("delivery", time.Since(start))
	if err != nil {
		// Approval stands; the caller owns any delivery retry.
		p.logger.ErrorContext(ctx, "delivery failed",
			"request_id", req.RequestID,
			"error", err.Error(),
		)
		return outcome, dErrors.Wrap(err, dErrors.CodeInternal, "delivery failed")
	}
	outcome.DeliveryStatus = status

	p.logger.InfoContext(ctx, "release approved",
		"request_id", req.RequestID,
		"classification", req.Classification.String(),
		"first_hash", outcome.FirstHash,
		"second_hash", outcome.SecondHash,
		"delivery_status", status,
	)
	return outcome, nil
}

// signAttachments signs every unsigned PDF attachment. Non-PDF and
// already-signed attachments pass through unchanged. Any failure, including
// a timeout, is fatal for the run.
func (p *Pipeline) signAttachments(ctx context.Context, attachments []Attachment) ([]Attachment, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	signed := make([]Attachment, len(attachments))
	copy(signed, attachments)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(signParallelism)
	for i, att := range attachments {
		if !att.IsPDF() || att.IsSigned() {
			p.metrics.IncrementSigning("passthrough")
			continue
		}
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, p.signTimeout)
			defer cancel()
			out, err := p.signer.Sign(sctx, att)
			if err != nil {
				p.metrics.IncrementSigning("failed")
				return fmt.Errorf("sign %s: %w", att.Path, err)
			}
			p.metrics.IncrementSigning("signed")
			signed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return signed, nil
}

func (p *Pipeline) reject(ctx context.Context, req Request, outcome *Outcome, code Code, reason string) *Outcome {
	outcome.State = StateRejected
	outcome.Code = code
	outcome.Reason = reason
	outcome.Approved = false

	p.metrics.IncrementOutcome("rejected", string(code), req.Classification.String())
	p.emitAudit(ctx, req, audit.EventReleaseRejected, "deny", fmt.Sprintf("%s: %s", code, reason), "")
	p.logger.WarnContext(ctx, "release rejected",
		"request_id", req.RequestID,
		"classification", req.Classification.String(),
		"code", string(code),
		"reason", reason,
	)
	return outcome
}

func (p *Pipeline) emitAudit(ctx context.Context, req Request, action audit.AuditEvent, decided, reason, hashType string) {
	if p.audit == nil {
		return
	}
	err := p.audit.Emit(ctx, audit.Event{
		Action:         string(action),
		Token:          req.Token,
		Subject:        req.Payload.To,
		Purpose:        PurposeEmailNotification,
		Classification: req.Classification.String(),
		Decision:       decided,
		Reason:         reason,
		HashType:       hashType,
		RequestID:      req.RequestID,
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "audit emit failed", "action", string(action), "error", err.Error())
	}
}
