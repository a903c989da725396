package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"session-sync/internal/auth"
	"session-sync/internal/auth/store"
	"session-sync/internal/auth/sync"
	"session-sync/internal/auth/transport"
	"session-sync/internal/auth/validator"
)

type syncRequest struct {
	RequestSource string `json:"requestSource"`
}

type userPayload struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Avatar      string   `json:"avatar,omitempty"`
	Roles       []string `json:"roles,omitempty"`
}

// SyncSession synchronizes the caller's upstream IdP session into a
// local one. Browser calls carry the upstream cookie jar and are
// proxied server-to-server; trusted backends authenticate themselves
// with the shared secret header instead.
func (h *Handler) SyncSession(c *gin.Context) {

	var req syncRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	// The mode is defined by the verified secret header alone. The
	// body may restate it but can never escalate an unauthenticated
	// browser call into a server-to-server one.
	source := validator.SourceBrowser
	if presented := c.GetHeader(transport.SecretHeader); presented != "" {
		if !transport.VerifySecret(h.sharedSecret, presented) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid sync secret",
			})
			return
		}
		source = validator.SourceServer
	}
	if req.RequestSource != "" && req.RequestSource != source {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request source",
		})
		return
	}

	outcome := h.orchestrator.Sync(c.Request.Context(), validator.Request{
		Source:  source,
		Cookies: c.Request.Cookies(),
	})

	switch outcome.Status {
	case sync.StatusSuccess, sync.StatusFallback:
		http.SetCookie(c.Writer, outcome.Cookie)

		body := gin.H{
			"success": true,
			"user":    toUserPayload(outcome.User),
		}
		if outcome.Warning != "" {
			body["warning"] = string(outcome.Warning)
		}
		c.JSON(http.StatusOK, body)

	default:
		// Only the stable code crosses the boundary; diagnostic detail
		// stays in server-side logs.
		c.JSON(statusForCode(outcome.ErrorCode), gin.H{
			"success": false,
			"error":   string(outcome.ErrorCode),
		})
	}
}

// statusForCode maps failure codes onto HTTP statuses. Only resolution
// and unrecoverable persistence failures are server faults; everything
// else resolves to 401 so the client can prompt a manual login.
func statusForCode(code auth.Code) int {
	switch code {
	case auth.CodeResolutionError, auth.CodePersistenceError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

func toUserPayload(u *store.LocalUser) userPayload {
	return userPayload{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		Roles:       u.Roles,
	}
}
