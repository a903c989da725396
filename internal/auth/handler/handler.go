package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"session-sync/internal/auth/credentials"
	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/issuer"
	"session-sync/internal/auth/store"
	"session-sync/internal/auth/sync"
	"session-sync/internal/broadcast"
	"session-sync/internal/logger"
	"session-sync/internal/session"
)

type Handler struct {
	orchestrator      *sync.Orchestrator
	store             store.Store
	fallbackSessions  *fallback.Store
	issuer            *issuer.Issuer
	credentialService *credentials.Service
	broadcaster       broadcast.Publisher
	sharedSecret      string
	cookieOpts        session.CookieOptions
}

type Config struct {
	Orchestrator      *sync.Orchestrator
	Store             store.Store
	Fallback          *fallback.Store
	Issuer            *issuer.Issuer
	CredentialService *credentials.Service
	Broadcaster       broadcast.Publisher
	SharedSecret      string
	CookieOpts        session.CookieOptions
}

func New(cfg Config) *Handler {
	return &Handler{
		orchestrator:      cfg.Orchestrator,
		store:             cfg.Store,
		fallbackSessions:  cfg.Fallback,
		issuer:            cfg.Issuer,
		credentialService: cfg.CredentialService,
		broadcaster:       cfg.Broadcaster,
		sharedSecret:      cfg.SharedSecret,
		cookieOpts:        cfg.CookieOpts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/auth/sync", h.SyncSession)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) Logout(c *gin.Context) {

	// 1. Read session cookie (same pattern as auth middleware)
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// 2. Resolve the owner before deleting so subscribers learn
		// whose session ended.
		var userID string
		if sess, err := h.store.GetSessionByToken(c.Request.Context(), cookie.Value); err == nil {
			userID = sess.UserID
		} else if sess := h.fallbackSessions.Get(cookie.Value); sess != nil {
			userID = sess.UserID
		}

		// 3. Delete from the durable store and the fallback cache,
		// both best-effort; logout stays effective in degraded mode.
		if err := h.store.DeleteSessionByToken(c.Request.Context(), cookie.Value); err != nil {
			logger.Warn("session delete failed", map[string]any{
				"token": session.TokenPrefix(cookie.Value),
				"error": err.Error(),
			})
		}
		h.fallbackSessions.Delete(cookie.Value)

		broadcast.FireAndForget(h.broadcaster, broadcast.Event{
			Type:   broadcast.EventSessionDeleted,
			UserID: userID,
		})
	}

	// 4. Clear cookie
	session.ClearCookie(c.Writer, h.cookieOpts)

	// 5. Idempotent response
	c.Status(http.StatusNoContent)
}
