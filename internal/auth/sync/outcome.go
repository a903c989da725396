package sync

import (
	"net/http"

	"session-sync/internal/auth"
	"session-sync/internal/auth/store"
	"session-sync/internal/session"
)

// Status is the terminal state of one synchronization attempt.
type Status string

const (
	// StatusSuccess: durable session persisted and cookie directive set.
	StatusSuccess Status = "success"
	// StatusFallback: degraded session issued after the durability
	// layer failed; Warning carries the reduced-guarantee code.
	StatusFallback Status = "fallback"
	// StatusFailed: no session, no cookie mutation; ErrorCode set.
	StatusFailed Status = "failed"
)

// Outcome is the orchestrator's terminal result and the only thing the
// HTTP boundary ever sees.
type Outcome struct {
	Status  Status
	User    *store.LocalUser
	Session *session.Session
	Cookie  *http.Cookie

	ErrorCode auth.Code
	Warning   auth.Code
}

func failed(code auth.Code) Outcome {
	return Outcome{Status: StatusFailed, ErrorCode: code}
}
