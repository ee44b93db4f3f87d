package domain

import (
	"errors"
	"strings"
)

// Error categories, the middle segment of a code.
const (
	CategoryKey      = "KEY"
	CategoryRecord   = "REC"
	CategoryWrite    = "WRT"
	CategorySystem   = "SYS"
	CategoryArgument = "ARG"
)

// DomainError is a categorized error with a stable code of the form
// TV-<CATEGORY>-<NNNN>. Two DomainErrors match under errors.Is when their
// codes are equal.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

// NewDomainError creates a DomainError.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// Category returns the category segment of the code, or "" when the code
// is not well formed.
func (e *DomainError) Category() string {
	parts := strings.Split(e.Code, "-")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

// WithDetails returns a copy carrying details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// CodeOf returns the code of the first DomainError in err's chain.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// CategoryOf returns the category of the first DomainError in err's chain.
func CategoryOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Category()
	}
	return ""
}

// ============================================================================
// Key Errors (KEY)
// ============================================================================

var (
	// ErrKeyUnavailable indicates the master key or a named key is not set.
	// Records that need it are unreadable, not corrupt.
	ErrKeyUnavailable = NewDomainError("TV-KEY-4040", "key unavailable")

	// ErrInvalidKey indicates key material of the wrong size or shape.
	ErrInvalidKey = NewDomainError("TV-KEY-4001", "invalid key material")

	// ErrKeyDerivation indicates passphrase-based key derivation failed.
	ErrKeyDerivation = NewDomainError("TV-KEY-5001", "key derivation failed")
)

// ============================================================================
// Record Errors (REC)
// ============================================================================

var (
	// ErrTampered indicates a checksum or authentication tag mismatch.
	ErrTampered = NewDomainError("TV-REC-4220", "record tampered")

	// ErrExpired indicates the record's TTL has elapsed.
	ErrExpired = NewDomainError("TV-REC-4100", "record expired")

	// ErrCorrupt indicates malformed bytes after decryption or decompression.
	ErrCorrupt = NewDomainError("TV-REC-4221", "record corrupt")
)

// ============================================================================
// Write Errors (WRT)
// ============================================================================

var (
	// ErrSerialization indicates the value could not be serialized.
	ErrSerialization = NewDomainError("TV-WRT-5001", "serialization failed")

	// ErrCompression indicates the payload could not be compressed.
	ErrCompression = NewDomainError("TV-WRT-5002", "compression failed")

	// ErrEncryption indicates the payload could not be encrypted.
	ErrEncryption = NewDomainError("TV-WRT-5003", "encryption failed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("TV-SYS-5001", "storage error")

	// ErrNotInitialized indicates the store was used before Initialize.
	ErrNotInitialized = NewDomainError("TV-SYS-5030", "store not initialized")

	// ErrSweepInProgress indicates another sweep is already running.
	ErrSweepInProgress = NewDomainError("TV-SYS-4090", "sweep already in progress")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("TV-ARG-1001", "invalid argument")
)

// IsDiscardable reports whether err means the record must be treated as
// absent and removed: tampered, expired or corrupt.
func IsDiscardable(err error) bool {
	return errors.Is(err, ErrTampered) || errors.Is(err, ErrExpired) || errors.Is(err, ErrCorrupt)
}
