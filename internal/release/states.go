package release

// State names one position in the enforcement pipeline. Transitions are
// strictly ordered; signing never reorders relative to the two validations.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateSchemaValid     State = "SCHEMA_VALID"
	StateFirstValidated  State = "FIRST_VALIDATED"
	StateSigned          State = "SIGNED"
	StateSecondValidated State = "SECOND_VALIDATED"
	StateApproved        State = "APPROVED"
	StateRejected        State = "REJECTED"
)

// Code is the machine-readable outcome of a rejected (or failed) run.
// SigningFailed indicates infrastructure trouble, not a consent decision;
// callers should alert on it rather than treat it as a policy denial.
type Code string

const (
	CodeSchemaInvalid          Code = "schema_invalid"
	CodeFirstValidationFailed  Code = "first_validation_failed"
	CodeUnknownClassification  Code = "unknown_classification"
	CodeSigningFailed          Code = "signing_failed"
	CodeSecondValidationFailed Code = "second_validation_failed"
	CodeDeliveryFailed         Code = "delivery_failed"
)
