package issuer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-sync/internal/auth"
	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/store"
	"session-sync/internal/session"
)

type failingSessionStore struct {
	store.Store
}

func (failingSessionStore) CreateSession(context.Context, *session.Session) error {
	return assert.AnError
}

func newIssuer(s store.Store, fb *fallback.Store) *Issuer {
	return New(s, fb, time.Hour, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func TestIssuePersistsBeforeReturning(t *testing.T) {
	memory := store.NewMemory()
	i := newIssuer(memory, fallback.NewStore())

	issued, err := i.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	persisted, err := memory.GetSessionByToken(context.Background(), issued.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", persisted.UserID)
	assert.False(t, issued.Session.Fallback)

	// 32 random bytes, base64url without padding
	assert.Len(t, issued.Session.Token, 43)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.Session.ExpiresAt, 5*time.Second)
}

func TestIssueCookieDirective(t *testing.T) {
	i := newIssuer(store.NewMemory(), fallback.NewStore())

	issued, err := i.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	cookie := issued.Cookie
	assert.Equal(t, session.CookieName, cookie.Name)
	assert.Equal(t, issued.Session.Token, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Greater(t, cookie.MaxAge, 0)
}

func TestIssueFailsWhenPersistenceFails(t *testing.T) {
	fb := fallback.NewStore()
	i := newIssuer(failingSessionStore{Store: store.NewMemory()}, fb)

	issued, err := i.Issue(context.Background(), "user-1")
	require.Error(t, err)
	assert.Nil(t, issued)
	assert.Equal(t, auth.CodePersistenceError, auth.CodeOf(err))

	// Issue never degrades on its own; the orchestrator decides that.
	assert.Equal(t, 0, fb.Len())
}

func TestIssueFallbackSkipsDurableStore(t *testing.T) {
	memory := store.NewMemory()
	fb := fallback.NewStore()
	i := newIssuer(memory, fb)

	issued, err := i.IssueFallback(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, issued.Session.Fallback)
	assert.Equal(t, 1, fb.Len())
	require.NotNil(t, fb.Get(issued.Session.Token))

	_, err = memory.GetSessionByToken(context.Background(), issued.Session.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIssuedTokensAreUnique(t *testing.T) {
	i := newIssuer(store.NewMemory(), fallback.NewStore())

	a, err := i.Issue(context.Background(), "user-1")
	require.NoError(t, err)
	b, err := i.Issue(context.Background(), "user-1")
	require.NoError(t, err)

	assert.NotEqual(t, a.Session.Token, b.Session.Token)
}
