package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"session-sync/internal/auth/credentials"
	"session-sync/internal/auth/fallback"
	"session-sync/internal/auth/handler"
	"session-sync/internal/auth/issuer"
	"session-sync/internal/auth/resolver"
	"session-sync/internal/auth/store"
	syncengine "session-sync/internal/auth/sync"
	"session-sync/internal/auth/transport"
	"session-sync/internal/auth/validator"
	"session-sync/internal/broadcast"
	"session-sync/internal/config"
	"session-sync/internal/middleware"
	"session-sync/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	if cfg.UpstreamBaseURL == "" {
		return nil, nil, errors.New("upstream base URL is not configured")
	}
	if cfg.SyncSharedSecret == "" {
		return nil, nil, errors.New("sync shared secret is not configured")
	}

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	cookieOpts := session.CookieOptions{
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}

	authStore := store.NewPGStore(infra.DB)
	fallbackSessions := fallback.NewStore()

	upstreamClient := transport.New(
		cfg.UpstreamBaseURL,
		cfg.SyncSharedSecret,
		cfg.SyncTimeout,
	)

	sessionIssuer := issuer.New(authStore, fallbackSessions, cfg.SessionTTL, cookieOpts)
	broadcaster := broadcast.NewRedisPublisher(infra.Redis)

	orchestrator := syncengine.NewOrchestrator(
		validator.NewUpstreamValidator(upstreamClient),
		resolver.NewStoreResolver(authStore),
		sessionIssuer,
		broadcaster,
	)

	authHandler := handler.New(handler.Config{
		Orchestrator:      orchestrator,
		Store:             authStore,
		Fallback:          fallbackSessions,
		Issuer:            sessionIssuer,
		CredentialService: credentials.NewService(authStore),
		Broadcaster:       broadcaster,
		SharedSecret:      cfg.SyncSharedSecret,
		CookieOpts:        cookieOpts,
	})

	authMiddleware := middleware.NewAuthMiddleware(authStore, fallbackSessions)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := authStore.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":          user.ID,
			"email":       user.Email,
			"displayName": user.DisplayName,
			"avatar":      user.Avatar,
			"roles":       user.Roles,
		})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if err := infra.Redis.Close(); err != nil {
			return err
		}
		return infra.DB.Close()
	}, nil
}
