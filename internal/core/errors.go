package core

import "fmt"

// Error codes returned by the store and the ops API.
const (
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeValidationError = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInternalError   = "internal_error"
)

// Error is a structured domain error with a machine-readable code. Conflict
// errors mark invariant violations (claiming a non-claimable status,
// committing an outcome for a record the caller does not hold); they must
// never be retried blindly.
type Error struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewInvalidRequestError reports a malformed request or argument.
func NewInvalidRequestError(message string, details map[string]any) *Error {
	return &Error{Code: ErrCodeInvalidRequest, Message: message, Details: details}
}

// NewValidationError reports a value outside its closed domain.
func NewValidationError(message string, details map[string]any) *Error {
	return &Error{Code: ErrCodeValidationError, Message: message, Details: details}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resourceType, resourceID string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s '%s' not found.", resourceType, resourceID),
		Details: map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
		},
	}
}

// NewConflictError reports an operation that conflicts with the current
// state of a record, such as a commit for a lease the caller does not hold.
func NewConflictError(message string, details map[string]any) *Error {
	return &Error{Code: ErrCodeConflict, Message: message, Details: details}
}

// NewInternalError reports a transient internal failure. Internal errors are
// retryable by the caller.
func NewInternalError(message string) *Error {
	return &Error{Code: ErrCodeInternalError, Message: message, Retryable: true}
}
