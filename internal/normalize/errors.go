package normalize

import (
	"fmt"
)

// Reason classifies why a raw response failed to become an ExpenseRecord.
type Reason string

const (
	UpstreamFailure   Reason = "UPSTREAM_FAILURE"   // extraction already failed
	MalformedResponse Reason = "MALFORMED_RESPONSE" // non-JSON or truncated output
	MissingField      Reason = "MISSING_FIELD"      // required field absent/empty
	InvalidField      Reason = "INVALID_FIELD"      // field present but unusable
)

// ValidationError is the per-message, non-fatal outcome for messages that
// yield no record. Field is set for MissingField/InvalidField.
type ValidationError struct {
	Reason Reason
	Field  string
	Cause  error
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Cause != nil:
		return fmt.Sprintf("%s(%s): %v", e.Reason, e.Field, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s(%s)", e.Reason, e.Field)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	default:
		return string(e.Reason)
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func missingField(field string) *ValidationError {
	return &ValidationError{Reason: MissingField, Field: field}
}

func invalidField(field string, cause error) *ValidationError {
	return &ValidationError{Reason: InvalidField, Field: field, Cause: cause}
}
