package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeConflict   ErrorType = "conflict"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeExternal   ErrorType = "external"
)

// Error codes narrow an ErrorType for clients that branch on them
const (
	CodeNoContent        = "no_content"
	CodeProfileMissing   = "profile_missing"
	CodeQuotaExhausted   = "quota_exhausted"
	CodeGenerationFailed = "generation_failed"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is. A target with a Code only matches errors with the
// same Code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCode sets the error code
func (e *DomainError) WithCode(code string) *DomainError {
	e.Code = code
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is. Never call WithDetail on these; build a fresh
// error with the matching constructor instead.
var (
	// Not Found Errors
	ErrBlockNotFound       = NewDomainError(ErrorTypeNotFound, "experience block not found", nil)
	ErrProfileNotFound     = NewDomainError(ErrorTypeNotFound, "personal info not found", nil)
	ErrApplicationNotFound = NewDomainError(ErrorTypeNotFound, "application not found", nil)

	// Validation Errors
	ErrInvalidInput    = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidCategory = NewDomainError(ErrorTypeValidation, "invalid category", nil)
	ErrInvalidStatus   = NewDomainError(ErrorTypeValidation, "invalid application status", nil)
	ErrEmptyJobSpec    = NewDomainError(ErrorTypeValidation, "job description cannot be empty", nil)
	ErrNoContent       = NewDomainError(ErrorTypeValidation, "add at least one experience block first", nil).WithCode(CodeNoContent)
	ErrProfileMissing  = NewDomainError(ErrorTypeValidation, "add your personal info first", nil).WithCode(CodeProfileMissing)

	// Rate Limit Errors
	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "generation limit reached", nil).WithCode(CodeQuotaExhausted)

	// Internal Errors
	ErrInternal      = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError = NewDomainError(ErrorTypeInternal, "database error", nil)

	// External Provider Errors
	ErrProviderUnavailable = NewDomainError(ErrorTypeExternal, "LLM provider unavailable", nil)
	ErrGenerationFailed    = NewDomainError(ErrorTypeExternal, "generation failed, please try again; your quota was not consumed", nil).WithCode(CodeGenerationFailed)
)

// NewRateLimitError reports an exhausted quota with the numbers a client
// needs to show when it resets
func NewRateLimitError(used, limit int, resetAt interface{}) *DomainError {
	return NewDomainError(ErrorTypeRateLimit, ErrRateLimitExceeded.Message, nil).
		WithCode(CodeQuotaExhausted).
		WithDetail("used", used).
		WithDetail("limit", limit).
		WithDetail("reset_at", resetAt)
}

// NewGenerationError wraps an upstream failure during document generation
func NewGenerationError(step string, err error) *DomainError {
	return NewDomainError(ErrorTypeExternal, ErrGenerationFailed.Message, err).
		WithCode(CodeGenerationFailed).
		WithDetail("step", step)
}

// NewValidationError builds a validation error with a field detail
func NewValidationError(field, message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil).WithDetail("field", field)
}

// Error type checking helper functions

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return GetErrorType(err) == ErrorTypeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == ErrorTypeRateLimit
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return GetErrorType(err) == ErrorTypeConflict
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeInternal
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return GetErrorType(err) == ErrorTypeExternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorCode returns the code of a domain error, or empty string
func GetErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
