// Package decision is the policy decision point: it evaluates whether a
// presented content fingerprint still matches a stored consent grant.
package decision

// HashType reports which of the two stored digests matched on an allow.
type HashType string

const (
	HashOriginal HashType = "original"
	HashSigned   HashType = "signed"
)

// Code is the machine-readable denial reason. Empty on allow.
type Code string

const (
	CodeConsentNotFound Code = "consent_not_found"
	CodeHashMismatch    Code = "hash_mismatch"
	CodeConsentExpired  Code = "consent_expired"
	CodeSubjectMismatch Code = "subject_mismatch"
	CodePurposeMismatch Code = "purpose_mismatch"
)

// Decision is the outcome of one policy evaluation. Reason is always
// populated, including on allow. Decisions are produced per call and never
// persisted; for a given store state the same inputs always yield the same
// decision.
type Decision struct {
	Allow    bool     `json:"allow"`
	Code     Code     `json:"code,omitempty"`
	Reason   string   `json:"reason"`
	HashType HashType `json:"hash_type,omitempty"`
}

func deny(code Code, reason string) Decision {
	return Decision{Allow: false, Code: code, Reason: reason}
}

func allow(hashType HashType, reason string) Decision {
	return Decision{Allow: true, Reason: reason, HashType: hashType}
}
