package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/store"
	"session-sync/internal/session"
)

func newRouter(fb *fallback.Store) (*gin.Engine, store.Store) {
	gin.SetMode(gin.TestMode)

	s := store.NewMemory()

	router := gin.New()
	protected := router.Group("/api")
	protected.Use(GinRequireAuth(NewAuthMiddleware(s, fb)))
	protected.GET("/whoami", func(c *gin.Context) {
		userID, _ := UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})
	return router, s
}

func get(router *gin.Engine, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthWithDurableSession(t *testing.T) {
	fb := fallback.NewStore()
	router, s := newRouter(fb)

	sess := &session.Session{
		UserID:    "user-1",
		Token:     "tok-durable",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))

	w := get(router, &http.Cookie{Name: session.CookieName, Value: "tok-durable"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
}

func TestRequireAuthWithFallbackSession(t *testing.T) {
	fb := fallback.NewStore()
	router, _ := newRouter(fb)

	fb.Put(session.Session{
		UserID:    "user-2",
		Token:     "tok-fallback",
		ExpiresAt: time.Now().Add(time.Hour),
		Fallback:  true,
	})

	w := get(router, &http.Cookie{Name: session.CookieName, Value: "tok-fallback"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-2")
}

func TestRequireAuthRejectsMissingCookie(t *testing.T) {
	router, _ := newRouter(fallback.NewStore())

	w := get(router, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsUnknownToken(t *testing.T) {
	router, _ := newRouter(fallback.NewStore())

	w := get(router, &http.Cookie{Name: session.CookieName, Value: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthDeletesExpiredDurableSession(t *testing.T) {
	fb := fallback.NewStore()
	router, s := newRouter(fb)

	sess := &session.Session{
		UserID:    "user-1",
		Token:     "tok-expired",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.CreateSession(context.Background(), sess))

	w := get(router, &http.Cookie{Name: session.CookieName, Value: "tok-expired"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := s.GetSessionByToken(context.Background(), "tok-expired")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
