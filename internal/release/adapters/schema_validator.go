// Package adapters provides default implementations of the release ports.
// Deployments swap these for their own collaborators without touching the
// pipeline.
package adapters

import (
	"fmt"
	"net/mail"
	"strings"

	"placet/internal/release"
)

const (
	maxSubjectLen    = 255
	maxBodyLen       = 512 * 1024
	maxAttachments   = 16
	maxAttachPathLen = 1024
)

// SchemaValidator performs the structural and field-level checks that gate
// entry to the pipeline.
type SchemaValidator struct{}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

func (v *SchemaValidator) Validate(payload release.EmailPayload) release.ValidationResult {
	var errs []string

	if payload.To == "" {
		errs = append(errs, "recipient is required")
	} else if _, err := mail.ParseAddress(payload.To); err != nil {
		errs = append(errs, fmt.Sprintf("recipient %q is not a valid address", payload.To))
	}

	if payload.Subject == "" {
		errs = append(errs, "subject is required")
	} else if len(payload.Subject) > maxSubjectLen {
		errs = append(errs, fmt.Sprintf("subject exceeds %d bytes", maxSubjectLen))
	}

	if payload.Body == "" {
		errs = append(errs, "body is required")
	} else if len(payload.Body) > maxBodyLen {
		errs = append(errs, fmt.Sprintf("body exceeds %d bytes", maxBodyLen))
	}

	if len(payload.Attachments) > maxAttachments {
		errs = append(errs, fmt.Sprintf("at most %d attachments allowed", maxAttachments))
	}
	for i, att := range payload.Attachments {
		switch {
		case att.Path == "":
			errs = append(errs, fmt.Sprintf("attachment %d: path is required", i))
		case len(att.Path) > maxAttachPathLen:
			errs = append(errs, fmt.Sprintf("attachment %d: path exceeds %d bytes", i, maxAttachPathLen))
		case strings.Contains(att.Path, ".."):
			errs = append(errs, fmt.Sprintf("attachment %d: path must not traverse directories", i))
		}
	}

	return release.ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
