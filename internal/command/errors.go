package command

import "strings"

// ErrorKind classifies a pipeline rejection.
type ErrorKind string

const (
	ErrMissingParams         ErrorKind = "missing_params"
	ErrInvalidParams         ErrorKind = "invalid_params"
	ErrUnauthenticated       ErrorKind = "unauthenticated"
	ErrUnauthorized          ErrorKind = "unauthorized"
	ErrUnknownCommand        ErrorKind = "unknown_command"
	ErrHandlerNotImplemented ErrorKind = "handler_not_implemented"
)

// ValidationError is a pipeline rejection. Parameter-level failures are
// accumulated: Params names every offending parameter for the stage, so a
// client can fix all problems in one round trip.
type ValidationError struct {
	Kind   ErrorKind
	Params []string

	// Message overrides the generated message when set (used by field
	// rules, which carry their own wording).
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case ErrMissingParams:
		return "The following parameters were missing: " + strings.Join(e.Params, ", ")
	case ErrInvalidParams:
		return "The following parameters were of the wrong type: " + strings.Join(e.Params, ", ")
	case ErrUnauthenticated:
		return "Authentication is required for this command."
	case ErrUnauthorized:
		return "You do not have permission to execute this command."
	case ErrUnknownCommand:
		return "Unknown command."
	case ErrHandlerNotImplemented:
		return "The command has no registered handler."
	default:
		return string(e.Kind)
	}
}

// NewMissingParams builds the accumulated existence failure.
func NewMissingParams(names []string) *ValidationError {
	return &ValidationError{Kind: ErrMissingParams, Params: names}
}

// NewInvalidParams builds the accumulated type failure.
func NewInvalidParams(names []string) *ValidationError {
	return &ValidationError{Kind: ErrInvalidParams, Params: names}
}
