package middleware

import (
	"context"
	"net/http"
	"time"

	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/store"
	"session-sync/internal/session"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

type AuthMiddleware struct {
	Store    store.Store
	Fallback *fallback.Store
}

func NewAuthMiddleware(s store.Store, fb *fallback.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: s, Fallback: fb}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Read session cookie
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		token := cookie.Value

		// 2. Load session: durable store first, degraded cache second
		sess := a.lookup(r.Context(), token)
		if sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// 3. Enforce session expiry
		if sess.Expired(time.Now()) {
			if !sess.Fallback {
				_ = a.Store.DeleteSessionByToken(r.Context(), token)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// 4. Attach user_id to context
		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)

		// 5. Continue request
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) lookup(ctx context.Context, token string) *session.Session {
	sess, err := a.Store.GetSessionByToken(ctx, token)
	if err == nil {
		return sess
	}
	if a.Fallback != nil {
		return a.Fallback.Get(token)
	}
	return nil
}
