// Package release is the policy enforcement point: it gates outbound
// regulated email behind consent validation, conditional attachment signing,
// and re-validation, as an explicit state machine.
package release

import (
	"path"
	"strings"

	"placet/internal/classification"
)

// PurposeEmailNotification is the processing purpose this pipeline validates
// consent against.
const PurposeEmailNotification = "email_notification"

// SignedSuffix is inserted before the file extension when an attachment is
// signed. The rule is deterministic and idempotent so "already signed"
// detection stays reliable across repeated pipeline runs.
const SignedSuffix = "_signed"

// Attachment is one file referenced by an outbound message.
type Attachment struct {
	Path        string `json:"path"`
	ContentType string `json:"content_type,omitempty"`
}

// IsPDF reports whether the attachment is subject to signing.
func (a Attachment) IsPDF() bool {
	if a.ContentType == "application/pdf" {
		return true
	}
	return strings.EqualFold(path.Ext(a.Path), ".pdf")
}

// IsSigned reports whether the attachment already carries the signed suffix.
func (a Attachment) IsSigned() bool {
	ext := path.Ext(a.Path)
	return strings.HasSuffix(strings.TrimSuffix(a.Path, ext), SignedSuffix)
}

// SignedPath returns the path with the signed suffix inserted before the
// extension: report.pdf becomes report_signed.pdf.
func SignedPath(p string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + SignedSuffix + ext
}

// EmailPayload is the content whose release is being gated. Field names
// form the canonical serialization the fingerprints are computed over, so
// they must stay in sync with whatever issued the original consent.
type EmailPayload struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// secondView is the content shape checked by the second validation: the
// possibly-rewritten payload plus the classification label.
type secondView struct {
	EmailPayload
	Classification string `json:"classification"`
}

// Request is one enforcement call.
type Request struct {
	Payload        EmailPayload
	Token          string
	Classification classification.Classification
	// RequestID correlates audit events with the transport request.
	RequestID string
}

// Outcome is the result of one enforcement run. A rejected outcome
// guarantees that no delivery side effect occurred.
type Outcome struct {
	Approved bool   `json:"approved"`
	State    State  `json:"state"`
	Code     Code   `json:"code,omitempty"`
	Reason   string `json:"reason"`
	// FirstHash is the fingerprint of the payload as received.
	FirstHash string `json:"first_hash,omitempty"`
	// SecondHash is the fingerprint checked after signing; empty when the
	// second validation was not required.
	SecondHash string `json:"second_hash,omitempty"`
	// FinalPayload carries any rewritten attachment paths and is what gets
	// delivered on approval.
	FinalPayload EmailPayload `json:"final_payload"`
	// DeliveryStatus is the collaborator's opaque status on approval.
	DeliveryStatus string `json:"delivery_status,omitempty"`
}
