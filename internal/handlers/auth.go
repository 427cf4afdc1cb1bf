package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TCH93/Indico-Dev/internal/auth"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/token"
)

// AuthHandler serves password-based sign-in across the configured backends.
type AuthHandler struct {
	manager *auth.Manager
	tokens  *token.LocalProvider
	metrics core.Recorder
}

// NewAuthHandler creates the credential login handler.
func NewAuthHandler(m *auth.Manager, tokens *token.LocalProvider, metrics core.Recorder) *AuthHandler {
	return &AuthHandler{manager: m, tokens: tokens, metrics: metrics}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Backend     string    `json:"backend"`
}

// Login verifies a credential against the configured backends and issues a
// session token. Unknown logins and bad passwords get the same answer.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "login and password are required",
		})
		return
	}

	start := time.Now()
	user, backend, err := h.manager.SignIn(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		log.Printf("[Auth] sign-in error for login=%s: %v", req.Login, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}
	if user == nil {
		h.metrics.RecordAuthAttempt("all", false, time.Since(start))
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid login or password",
		})
		return
	}
	h.metrics.RecordAuthAttempt(backend, true, time.Since(start))

	result, err := h.tokens.GenerateToken(c.Request.Context(), user.ID, backend)
	if err != nil {
		log.Printf("[Auth] token generation failed for user=%s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: result.TokenString,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		UserID:      user.ID,
		Backend:     backend,
	})
}
