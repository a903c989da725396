package auth

import (
	"errors"
	"fmt"
)

// Code is the stable error/warning code exposed at the HTTP boundary.
// Raw diagnostic detail stays in server-side logs.
type Code string

const (
	CodeNoUpstreamSession Code = "no_upstream_session"
	CodeTransportError    Code = "transport_error"
	CodeUpstreamRejected  Code = "upstream_rejected"
	CodeResolutionError   Code = "resolution_error"
	CodePersistenceError  Code = "persistence_error"

	// CodeFallbackUsed is a warning annotation, not an error: the
	// sync succeeded but the session is non-durable.
	CodeFallbackUsed Code = "fallback_used"
)

// SyncError is a classified synchronization failure. Reason carries
// server-side diagnostics and must never reach the browser.
type SyncError struct {
	Code   Code
	Reason string
	Err    error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func NewSyncError(code Code, reason string, err error) *SyncError {
	return &SyncError{Code: code, Reason: reason, Err: err}
}

// CodeOf extracts the classification of err. Unclassified errors read
// as resolution failures so nothing silently passes as "not logged in".
func CodeOf(err error) Code {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeResolutionError
}

// ReasonOf extracts the server-side diagnostic reason, if any.
func ReasonOf(err error) string {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Reason
	}
	return ""
}

// Retryable reports whether err may succeed on retry within one
// orchestration. Only transport faults qualify; a negative answer
// from the upstream is semantically final for the attempt.
func Retryable(err error) bool {
	return CodeOf(err) == CodeTransportError
}
