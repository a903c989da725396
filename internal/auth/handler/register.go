package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"session-sync/internal/auth/credentials"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a first-party credential for an email address and
// logs the new account in immediately.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	userID, err := h.credentialService.Register(
		c.Request.Context(),
		req.Email,
		req.Password,
	)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	issued, err := h.issuer.Issue(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}

	http.SetCookie(c.Writer, issued.Cookie)

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
