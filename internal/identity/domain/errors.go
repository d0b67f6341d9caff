package domain

import "errors"

// Sentinel errors for aggregate state transitions; the service maps them to
// its own error taxonomy and the handler maps those to HTTP statuses.
var (
	ErrDeactivated        = errors.New("identity is deactivated")
	ErrAlreadyDeactivated = errors.New("identity is already deactivated")
	ErrAlreadyActive      = errors.New("identity is already active")
	ErrExternalIDLinked   = errors.New("external identity already linked")
	ErrCredentialMismatch = errors.New("credential does not match")
)

// ValidationError describes a value-object construction failure. It is always
// recoverable by the caller re-submitting corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
