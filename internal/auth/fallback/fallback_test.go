package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-sync/internal/session"
)

func liveSession(token string) session.Session {
	return session.Session{
		Token:     token,
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
		Fallback:  true,
	}
}

func TestPutAndGet(t *testing.T) {
	s := NewStore()
	s.Put(liveSession("tok"))

	got := s.Get("tok")
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.True(t, got.Fallback)
}

func TestGetUnknownToken(t *testing.T) {
	s := NewStore()
	assert.Nil(t, s.Get("missing"))
}

func TestExpiredSessionIsGone(t *testing.T) {
	s := NewStore()

	expired := liveSession("tok")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	s.Put(expired)

	assert.Nil(t, s.Get("tok"))
	assert.Equal(t, 0, s.Len())
}

func TestDelete(t *testing.T) {
	s := NewStore()
	s.Put(liveSession("tok"))

	s.Delete("tok")
	assert.Nil(t, s.Get("tok"))
}

func TestPutPurgesExpiredEntries(t *testing.T) {
	s := NewStore()

	stale := liveSession("stale")
	stale.ExpiresAt = time.Now().Add(-time.Minute)
	s.Put(stale)
	s.Put(liveSession("live"))

	assert.Equal(t, 1, s.Len())
}
