package issuer

import (
	"context"
	"net/http"
	"time"

	"session-sync/internal/auth"
	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/store"
	"session-sync/internal/session"
)

// Issued bundles a session with the cookie directive that transmits
// its token.
type Issued struct {
	Session session.Session
	Cookie  *http.Cookie
}

// Issuer creates local sessions. A session is only ever returned after
// its row is durably persisted; "persisted" and "issued" are
// inseparable. The degraded path is explicit and separate.
type Issuer struct {
	store      store.Store
	fallback   *fallback.Store
	ttl        time.Duration
	cookieOpts session.CookieOptions
}

func New(
	s store.Store,
	fb *fallback.Store,
	ttl time.Duration,
	cookieOpts session.CookieOptions,
) *Issuer {
	return &Issuer{
		store:      s,
		fallback:   fb,
		ttl:        ttl,
		cookieOpts: cookieOpts,
	}
}

// Issue persists a new session for the user and returns it with its
// cookie directive.
func (i *Issuer) Issue(ctx context.Context, userID string) (*Issued, error) {
	sess, err := i.newSession(userID)
	if err != nil {
		return nil, err
	}

	if err := i.store.CreateSession(ctx, &sess); err != nil {
		return nil, auth.NewSyncError(auth.CodePersistenceError, "session insert failed", err)
	}

	return i.issued(sess), nil
}

// IssueFallback creates a non-durable session held only in process
// memory. Used exclusively when the durability layer is degraded and
// identity is already confirmed; the caller must surface the reduced
// guarantees to the client.
func (i *Issuer) IssueFallback(_ context.Context, userID string) (*Issued, error) {
	sess, err := i.newSession(userID)
	if err != nil {
		return nil, err
	}

	sess.Fallback = true
	i.fallback.Put(sess)

	return i.issued(sess), nil
}

func (i *Issuer) newSession(userID string) (session.Session, error) {
	token, err := session.GenerateToken()
	if err != nil {
		return session.Session{}, auth.NewSyncError(
			auth.CodePersistenceError,
			"token generation failed",
			err,
		)
	}

	now := time.Now()
	return session.Session{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
	}, nil
}

func (i *Issuer) issued(sess session.Session) *Issued {
	return &Issued{
		Session: sess,
		Cookie:  session.NewCookie(sess.Token, sess.ExpiresAt, i.cookieOpts),
	}
}
