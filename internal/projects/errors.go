package projects

import "fmt"

// Error represents a domain-specific error with a stable code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeInvalidName      = "INVALID_NAME"
	ErrCodeInvalidCommand   = "INVALID_COMMAND"
	ErrCodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	ErrCodeProjectExists    = "PROJECT_EXISTS"
	ErrCodeProjectNotFound  = "PROJECT_NOT_FOUND"
	ErrCodeManifestNotFound = "MANIFEST_NOT_FOUND"
	ErrCodeAlreadyRunning   = "ALREADY_RUNNING"
	ErrCodeNotRunning       = "NOT_RUNNING"
	ErrCodeCreateFailed     = "CREATE_FAILED"
	ErrCodeSpawnFailed      = "SPAWN_FAILED"
	ErrCodeSignalFailed     = "SIGNAL_FAILED"
)

// NewError creates a new domain error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the domain error code, or empty string for foreign errors.
func CodeOf(err error) string {
	if domainErr, ok := err.(*Error); ok {
		return domainErr.Code
	}
	return ""
}
