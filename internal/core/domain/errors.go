// Package domain defines the core domain models for ACI.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is a business error carrying a stable code.
//
// Codes are part of the wire protocol: the server reports them in the
// error body of a response and the client maps them back to the sentinel
// values below, so errors.Is works on both sides of the connection.
type DomainError struct {
	Code    string // Error code (e.g., "ACI-AUTH-4030")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Access and identity errors (AUTH)
// ============================================================================

var (
	// ErrAccessDenied indicates the identity matched no rule for the item.
	ErrAccessDenied = NewDomainError("ACI-AUTH-4030", "Access Denied: Your User ID is not listed in the item permissions table.")

	// ErrIdentityFailure indicates a federated token failed verification.
	ErrIdentityFailure = NewDomainError("ACI-AUTH-4010", "identity verification failed")

	// ErrStaticUserNotFound indicates the static-auth id is not configured.
	ErrStaticUserNotFound = NewDomainError("ACI-AUTH-4011", "Failed, a_user not found")

	// ErrStaticTokenIncorrect indicates the static-auth token did not match.
	ErrStaticTokenIncorrect = NewDomainError("ACI-AUTH-4012", "Failed, token incorrect")

	// ErrOrganizationNotAllowed indicates the federated organization claim
	// is outside the configured allow-list.
	ErrOrganizationNotAllowed = NewDomainError("ACI-AUTH-4013", "organization not allowed")
)

// ============================================================================
// Request errors (REQ)
// ============================================================================

var (
	// ErrMalformedRequest indicates an unparsable index or value payload.
	ErrMalformedRequest = NewDomainError("ACI-REQ-4000", "ERROR - Failed to read command ind(ex/ices) and value(s)")

	// ErrIndexOutOfRange indicates an index beyond the end of the list.
	ErrIndexOutOfRange = NewDomainError("ACI-REQ-4001", "ERROR - index does not exist")

	// ErrNotList indicates a list operation on an item whose value is not a list.
	ErrNotList = NewDomainError("ACI-REQ-4002", "ERROR - item value is not a list")

	// ErrUnknownCommand indicates a command kind the server does not handle.
	ErrUnknownCommand = NewDomainError("ACI-REQ-4003", "unknown command")
)

// ============================================================================
// Storage errors (DB)
// ============================================================================

var (
	// ErrDatabaseNotFound indicates the database key is not loaded.
	ErrDatabaseNotFound = NewDomainError("ACI-DB-4040", "database not found")

	// ErrItemNotFound indicates the item key does not exist in the database.
	ErrItemNotFound = NewDomainError("ACI-DB-4041", "item not found")

	// ErrDatabaseExists indicates create on an already loaded database.
	ErrDatabaseExists = NewDomainError("ACI-DB-4090", "database already exists")

	// ErrPersistence indicates a disk write or read fault.
	ErrPersistence = NewDomainError("ACI-DB-5001", "persistence failure")
)

// ============================================================================
// System errors (SYS)
// ============================================================================

var (
	// ErrInternal indicates an unexpected server fault.
	ErrInternal = NewDomainError("ACI-SYS-5000", "internal server error")

	// ErrRateLimited indicates the connection exceeded its command rate.
	ErrRateLimited = NewDomainError("ACI-SYS-4290", "too many requests")
)

var knownErrors = []*DomainError{
	ErrAccessDenied,
	ErrIdentityFailure,
	ErrStaticUserNotFound,
	ErrStaticTokenIncorrect,
	ErrOrganizationNotAllowed,
	ErrMalformedRequest,
	ErrIndexOutOfRange,
	ErrNotList,
	ErrUnknownCommand,
	ErrDatabaseNotFound,
	ErrItemNotFound,
	ErrDatabaseExists,
	ErrPersistence,
	ErrInternal,
	ErrRateLimited,
}

// ErrorFromCode rebuilds a DomainError received over the wire. Unknown
// codes produce a DomainError carrying the code and details as given.
func ErrorFromCode(code, details string) *DomainError {
	for _, known := range knownErrors {
		if known.Code == code {
			if details != "" {
				return known.WithDetails(details)
			}
			return known
		}
	}
	return NewDomainError(code, details)
}
