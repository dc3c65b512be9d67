package release

import (
	"context"

	"placet/internal/decision"
)

//go:generate mockgen -source=ports.go -destination=mocks/release_mocks.go -package=mocks

// ValidationResult is the schema validator's verdict on a payload.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// SchemaValidator performs structural and field-level checks before any
// policy evaluation. A schema failure must never reach the decision point,
// so malformed requests cannot probe for valid hashes.
type SchemaValidator interface {
	Validate(payload EmailPayload) ValidationResult
}

// Signer is the external signing collaborator. Implementations must honor
// the context deadline and apply the SignedPath naming rule to the returned
// attachment.
type Signer interface {
	Sign(ctx context.Context, attachment Attachment) (Attachment, error)
}

// Deliverer hands the approved payload to the transport. The status is
// opaque beyond success or failure.
type Deliverer interface {
	Deliver(ctx context.Context, payload EmailPayload) (string, error)
}

// PolicyDecider is the slice of the decision service the pipeline consumes.
type PolicyDecider interface {
	Decide(ctx context.Context, token, payloadHash, subject, purpose string) (decision.Decision, error)
}
