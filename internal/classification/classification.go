// Package classification defines the closed sensitivity label set and the
// security controls each label requires.
package classification

import (
	dErrors "placet/pkg/domain-errors"
)

// Classification is the sensitivity label attached to an outbound message.
// Invariant: the value is one of the three supported labels.
//
// Construct via Parse at trust boundaries; direct casting bypasses
// validation.
type Classification string

const (
	Internal     Classification = "internal"
	Confidential Classification = "confidential"
	Restricted   Classification = "restricted"
)

// Parse constructs a Classification from external input. There is no
// defaulting here; the ingress validator owns the explicit fail-safe for a
// missing label.
func Parse(s string) (Classification, error) {
	c := Classification(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown classification %q", s)
	}
	return c, nil
}

// IsValid reports whether the classification is one of the supported labels.
func (c Classification) IsValid() bool {
	switch c {
	case Internal, Confidential, Restricted:
		return true
	}
	return false
}

func (c Classification) String() string {
	return string(c)
}

// Controls is the set of security checks a classification requires. Derived
// per request, never stored.
type Controls struct {
	AccessRestriction   bool
	InformationTransfer bool
	ElectronicMessaging bool
	AuditLogging        bool
}

// Resolve maps a classification to its required controls. Total over the
// closed three-value set; any other input is an error, never a silent
// default.
func Resolve(c Classification) (Controls, error) {
	switch c {
	case Internal:
		return Controls{AccessRestriction: true, AuditLogging: true}, nil
	case Confidential:
		return Controls{AccessRestriction: true, InformationTransfer: true, AuditLogging: true}, nil
	case Restricted:
		return Controls{AccessRestriction: true, InformationTransfer: true, ElectronicMessaging: true, AuditLogging: true}, nil
	}
	return Controls{}, dErrors.Newf(dErrors.CodeValidation, "unknown classification %q", string(c))
}
