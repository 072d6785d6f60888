package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeConflict    ErrorType = "conflict"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeProofOfWork ErrorType = "proof_of_work"
	ErrorTypeGameplay    ErrorType = "gameplay"
	ErrorTypeContent     ErrorType = "content_rejected"
	ErrorTypeInternal    ErrorType = "internal"
)

// Machine-readable reasons carried in Details["reason"]. Clients and tests
// match on these rather than on message text.
const (
	ReasonChallengeNotFound = "challenge_not_found"
	ReasonChallengeUsed     = "challenge_already_used"
	ReasonChallengeExpired  = "challenge_expired"
	ReasonIPMismatch        = "ip_mismatch"
	ReasonInvalidSolution   = "invalid_solution"
	ReasonRoundExpired      = "round_expired"
	ReasonRoundNotActive    = "round_not_active"
	ReasonDuplicatePhoto    = "duplicate_photo"
	ReasonModerationFailed  = "moderation_failed"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Reason returns the machine-readable reason, if any.
func (e *AppError) Reason() string {
	if e.Details == nil {
		return ""
	}
	if r, ok := e.Details["reason"].(string); ok {
		return r
	}
	return ""
}

// RetryAfterSeconds returns the retry hint of a rate-limit error, 0 otherwise.
func (e *AppError) RetryAfterSeconds() int {
	if e.Details == nil {
		return 0
	}
	if v, ok := e.Details["retry_after_seconds"].(int); ok {
		return v
	}
	return 0
}

// From extracts an *AppError from err, or nil.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr := From(err)
	return appErr != nil && appErr.Type == t
}

// HasReason reports whether err carries the given machine-readable reason.
func HasReason(err error, reason string) bool {
	appErr := From(err)
	return appErr != nil && appErr.Reason() == reason
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resourceType string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    resourceType + " not found",
		StatusCode: http.StatusNotFound,
		Details:    map[string]interface{}{"resource_type": resourceType},
	}
}

// NewConflictError creates a new conflict error (e.g. duplicate username)
func NewConflictError(message string, field string) *AppError {
	details := map[string]interface{}{}
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
		Details:    details,
	}
}

// NewRateLimitError creates a new rate limit error with a retry hint
func NewRateLimitError(retryAfterSeconds, limit, windowSeconds int) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    "Rate limit exceeded. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
		Details: map[string]interface{}{
			"retry_after_seconds": retryAfterSeconds,
			"limit":               limit,
			"window_seconds":      windowSeconds,
		},
	}
}

// NewProofOfWorkError creates a proof-of-work failure with a closed reason
func NewProofOfWorkError(reason, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeProofOfWork,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"reason": reason},
	}
}

// NewGameplayError creates a gameplay state-machine violation error
func NewGameplayError(reason, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeGameplay,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    map[string]interface{}{"reason": reason},
	}
}

// NewContentRejectedError creates a content moderation rejection
func NewContentRejectedError(reason, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeContent,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Details:    map[string]interface{}{"reason": reason},
	}
}

// NewInternalError creates a new internal server error. The internal cause is
// kept for logging but never serialized to clients.
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
