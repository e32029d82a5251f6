package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Domain Error Types
// ============================================================================

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so wrapped errors compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ============================================================================
// Common Domain Errors
// ============================================================================

var (
	// Validation Errors
	ErrValidationFailed = &DomainError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
	}
	ErrRequiredFieldMissing = &DomainError{
		Code:    "REQUIRED_FIELD_MISSING",
		Message: "required field is missing",
	}

	// Session Errors
	ErrSessionMissing = &DomainError{
		Code:    "SESSION_MISSING",
		Message: "no session cookie present",
	}
	ErrAuthProvider = &DomainError{
		Code:    "AUTH_PROVIDER_ERROR",
		Message: "identity provider returned an error",
	}

	// Profile Errors
	ErrProfileUnauthorized = &DomainError{
		Code:    "PROFILE_UNAUTHORIZED",
		Message: "profile endpoint rejected the token",
	}
	ErrProfileFetchFailed = &DomainError{
		Code:    "PROFILE_FETCH_FAILED",
		Message: "profile fetch failed",
	}
	ErrProfileInvalid = &DomainError{
		Code:    "PROFILE_INVALID",
		Message: "profile response has an invalid shape",
	}

	// Infrastructure Errors
	ErrNetworkOperation = &DomainError{
		Code:    "NETWORK_OPERATION_FAILED",
		Message: "network operation failed",
	}
)

// ============================================================================
// Error Wrapping Helpers
// ============================================================================

// WrapValidationError wraps a schema failure for the named payload
func WrapValidationError(payload string, cause error) error {
	msg := fmt.Sprintf("validation failed for %s", payload)
	return &DomainError{
		Code:    ErrValidationFailed.Code,
		Message: msg,
		Cause:   cause,
	}
}

// WrapProfileStatus wraps a non-2xx answer from the profile endpoint
func WrapProfileStatus(status int, body string) error {
	code := ErrProfileFetchFailed.Code
	if status == 401 || status == 403 {
		code = ErrProfileUnauthorized.Code
	}
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf("profile endpoint returned status %d: %s", status, body),
	}
}

// WrapNetworkOperation wraps a transport failure
func WrapNetworkOperation(operation string, cause error) error {
	return &DomainError{
		Code:    ErrNetworkOperation.Code,
		Message: fmt.Sprintf("network operation failed: %s", operation),
		Cause:   cause,
	}
}

// WrapAuthProvider wraps an `error` parameter handed back by the OAuth redirect
func WrapAuthProvider(reason string) error {
	return &DomainError{
		Code:    ErrAuthProvider.Code,
		Message: fmt.Sprintf("identity provider returned %q", reason),
	}
}

// ============================================================================
// Error Checking Helpers
// ============================================================================

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrValidationFailed.Code ||
			domainErr.Code == ErrRequiredFieldMissing.Code ||
			domainErr.Code == ErrProfileInvalid.Code
	}
	return false
}

// IsProfileError checks if an error came from resolving the user profile
func IsProfileError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrProfileUnauthorized.Code ||
			domainErr.Code == ErrProfileFetchFailed.Code ||
			domainErr.Code == ErrProfileInvalid.Code ||
			domainErr.Code == ErrNetworkOperation.Code
	}
	return false
}

// IsInfrastructureError checks if an error is an infrastructure error
func IsInfrastructureError(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == ErrNetworkOperation.Code
	}
	return false
}
