// Package audit captures compliance-relevant actions from domain logic. The
// Event model is transport-agnostic so stores and sinks can fan out; the
// postgres store implements a transactional outbox drained to Kafka by the
// outbox worker.
package audit

import (
	"time"
)

// Category classifies audit events by their primary purpose, enabling
// different retention policies and routing.
type Category string

const (
	// CategoryCompliance covers events with legal/regulatory significance:
	// consent lifecycle and release decisions. Long retention required.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// signing failures, rejected releases.
	CategorySecurity Category = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: cleanup runs, store statistics.
	CategoryOperations Category = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	ID             string
	Category       Category
	Timestamp      time.Time
	Action         string
	Token          string
	Subject        string
	Purpose        string
	Classification string
	Decision       string
	Reason         string
	HashType       string
	RequestID      string
	ActorID        string
}

// AuditEvent enumerates the actions this service emits.
type AuditEvent string

const (
	EventConsentIssued        AuditEvent = "consent_issued"
	EventSignedHashRegistered AuditEvent = "signed_hash_registered"
	EventReleaseApproved      AuditEvent = "release_approved"
	EventReleaseRejected      AuditEvent = "release_rejected"
	EventSigningFailed        AuditEvent = "signing_failed"
	EventConsentCleanup       AuditEvent = "consent_cleanup"
)

// eventCategories maps each action to its category and is the single source
// of truth for routing.
var eventCategories = map[AuditEvent]Category{
	EventConsentIssued:        CategoryCompliance,
	EventSignedHashRegistered: CategoryCompliance,
	EventReleaseApproved:      CategoryCompliance,
	EventReleaseRejected:      CategorySecurity,
	EventSigningFailed:        CategorySecurity,
	EventConsentCleanup:       CategoryOperations,
}

// Category returns the category for the action, defaulting to operations for
// unknown actions so nothing is dropped.
func (e AuditEvent) Category() Category {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
