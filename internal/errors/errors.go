// Package errors defines the rejection taxonomy of the mutation pipeline and its
// mapping onto HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/time-economy/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed or missing request fields (400)
	CategoryValidation ErrorCategory = "validation"
	// CategoryAuthentication represents failed identity proofs (401)
	CategoryAuthentication ErrorCategory = "authentication"
	// CategoryAuthorization represents policy refusals on a verified identity (403)
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryNotFound represents a missing mutation target (404)
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryRateLimit represents admission-window refusals (429)
	CategoryRateLimit ErrorCategory = "rate_limit"
	// CategoryStore represents persistence failures and anything unmapped (500)
	CategoryStore ErrorCategory = "store"
)

// Error codes surfaced to clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeIdentityMismatch  = "IDENTITY_MISMATCH"
	CodeSignatureInvalid  = "SIGNATURE_INVALID"
	CodeSignatureRequired = "SIGNATURE_REQUIRED"
	CodeNonceInvalid      = "NONCE_INVALID"
	CodeRebindDenied      = "REBIND_DENIED"
	CodeRateLimited       = "RATE_LIMITED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeStoreError        = "STORE_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to the client-facing ServiceError. The cause is never exposed.
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Client errors (4xx)

// NewValidationError creates a validation error for a single field
func NewValidationError(field string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    fmt.Sprintf("invalid field '%s': %s", field, reason),
		Details: map[string]interface{}{
			"field":  field,
			"reason": reason,
		},
	}
}

// NewValidationFieldsError creates a validation error covering several fields
func NewValidationFieldsError(fields map[string]string) *CategorizedError {
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    "request failed validation",
		Details:    map[string]interface{}{"fields": details},
	}
}

// NewIdentityMismatchError creates an error for disagreeing identity signals
func NewIdentityMismatchError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeIdentityMismatch,
		Message:    message,
	}
}

// NewSignatureInvalidError creates an error for a signature that does not prove
// control of the claimed wallet. Malformed and mismatching signatures are not told apart.
func NewSignatureInvalidError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeSignatureInvalid,
		Message:    "signature does not match the claimed wallet address",
	}
}

// NewSignatureRequiredError creates an error for a mutation attempted on header trust alone
func NewSignatureRequiredError() *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeSignatureRequired,
		Message:    "a signed message is required for this operation",
	}
}

// NewNonceInvalidError creates an error for a missing, expired or replayed sign-in nonce
func NewNonceInvalidError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthentication,
		StatusCode: http.StatusUnauthorized,
		Code:       CodeNonceInvalid,
		Message:    message,
	}
}

// NewRebindDeniedError creates an error for a wallet change without proof of the new address
func NewRebindDeniedError(bound string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeRebindDenied,
		Message:    "identity is bound to a different wallet; sign with the new wallet to rebind",
		Details: map[string]interface{}{
			"boundWallet": bound,
		},
	}
}

// NewForbiddenError creates an ownership refusal
func NewForbiddenError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeForbidden,
		Message:    message,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string, id string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found: %s", resource, id),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewRateLimitError creates a rate limit error; retryAfter is in whole seconds
func NewRateLimitError(retryAfter int, limit int) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryRateLimit,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		Message:    "creation limit reached for this identity",
		Details: map[string]interface{}{
			"retryAfter": retryAfter,
			"limit":      limit,
		},
	}
}

// Server errors (5xx)

// NewStoreError creates a persistence error
func NewStoreError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryStore,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeStoreError,
		Message:    fmt.Sprintf("store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error. Anything not already categorized
// becomes a StoreError so internals never reach the client.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return NewStoreError("request", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err categorizes to the given code
func HasCode(err error, code string) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Code == code
}

// IsRetryable reports whether a client may retry the request unchanged.
// Only store failures qualify; creates should still be deduplicated client-side.
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	return catErr.Category == CategoryStore
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
