// Package consent owns consent records: grants binding an opaque token to a
// content fingerprint, a recipient, and a purpose, with an expiry.
package consent

import (
	"time"
)

// Record is a stored consent grant.
//
// Invariants: ExpiresAt > CreatedAt; SignedHash, once set, corresponds to the
// same logical content as OriginalHash modulo attachment-path rewriting and
// is set at most once.
type Record struct {
	// Token is the opaque unique key callers present to release content.
	Token string `json:"token"`
	// OriginalHash is the hex-64 fingerprint of the content as submitted at
	// issuance.
	OriginalHash string `json:"original_hash"`
	// SignedHash is the hex-64 fingerprint of the content after attachment
	// signing rewrote paths. Empty until registered.
	SignedHash string `json:"signed_hash,omitempty"`
	// Subject is the recipient the consent was granted for.
	Subject string `json:"subject"`
	// Purpose binds the grant to one processing purpose.
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
}

// Expired reports whether the record is past its expiry at the given instant.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Stats summarizes store contents for the admin surface.
type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}
