package session

import "time"

// Session represents an authenticated local session.
// It intentionally stores only identity pointers, not auth state.
type Session struct {
	ID     string // local row identifier
	UserID string // references users.id
	// Token is the bearer value carried by the cookie. It is
	// high-entropy and must never be logged in full.
	Token        string
	RefreshToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time // absolute expiry time

	// Fallback marks a degraded session that was never durably
	// persisted. It dies with the process and cannot be revoked
	// through normal session deletion.
	Fallback bool
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
