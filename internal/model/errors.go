package model

import (
	"errors"
	"fmt"
)

// Error is the error type surfaced by the collection, order and approval
// operations. Mutation errors reach callers verbatim for user notification.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Collection, OwnerID and Key locate the affected entry when known.
	Collection CollectionType
	OwnerID    string
	Key        string

	// Err is the underlying cause (gateway or transport error).
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeAuthenticationRequired indicates no identity was available.
	ErrCodeAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"

	// ErrCodeConflict indicates a duplicate key on a set-membership
	// collection, or a unique violation the core could not merge.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeNotFound indicates the entry is missing or not owned by the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeRemoteFailure indicates a transport or store-level failure.
	ErrCodeRemoteFailure ErrorCode = "REMOTE_FAILURE"

	// ErrCodeValidation indicates malformed caller input.
	ErrCodeValidation ErrorCode = "VALIDATION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Collection != "" && e.Key != "" {
		msg = fmt.Sprintf("%s (collection=%s, key=%s)", msg, e.Collection, e.Key)
	} else if e.Key != "" {
		msg = fmt.Sprintf("%s (key=%s)", msg, e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsAuthenticationRequired reports whether err carries ErrCodeAuthenticationRequired.
func IsAuthenticationRequired(err error) bool {
	return CodeOf(err) == ErrCodeAuthenticationRequired
}

// IsConflict reports whether err carries ErrCodeConflict.
func IsConflict(err error) bool {
	return CodeOf(err) == ErrCodeConflict
}

// IsNotFound reports whether err carries ErrCodeNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRemoteFailure reports whether err carries ErrCodeRemoteFailure.
func IsRemoteFailure(err error) bool {
	return CodeOf(err) == ErrCodeRemoteFailure
}

// IsValidation reports whether err carries ErrCodeValidation.
func IsValidation(err error) bool {
	return CodeOf(err) == ErrCodeValidation
}

// NewAuthenticationRequiredError reports a missing identity.
func NewAuthenticationRequiredError() *Error {
	return &Error{
		Code:    ErrCodeAuthenticationRequired,
		Message: "no authenticated owner",
	}
}

// NewConflictError reports a duplicate (owner, item) entry.
func NewConflictError(c CollectionType, ownerID, itemKey string, cause error) *Error {
	return &Error{
		Code:       ErrCodeConflict,
		Message:    "item already present in collection",
		Collection: c,
		OwnerID:    ownerID,
		Key:        itemKey,
		Err:        cause,
	}
}

// NewNotFoundError reports an entry missing or not owned by ownerID.
func NewNotFoundError(c CollectionType, ownerID, key string) *Error {
	return &Error{
		Code:       ErrCodeNotFound,
		Message:    "no matching entry for owner",
		Collection: c,
		OwnerID:    ownerID,
		Key:        key,
	}
}

// NewRemoteFailure wraps a store or transport error.
func NewRemoteFailure(op string, cause error) *Error {
	return &Error{
		Code:    ErrCodeRemoteFailure,
		Message: op,
		Err:     cause,
	}
}

// NewValidationError reports malformed input.
func NewValidationError(message string) *Error {
	return &Error{
		Code:    ErrCodeValidation,
		Message: message,
	}
}
