package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TCH93/Indico-Dev/internal/sso"
	"github.com/TCH93/Indico-Dev/internal/token"
)

// SSOHandler bridges proxy-injected assertion headers to the reconciler.
// The headers are trusted: a reverse proxy in front of this service has
// already verified the federated login.
type SSOHandler struct {
	reconciler *sso.Reconciler
	backendID  string
	tokens     *token.LocalProvider
}

// NewSSOHandler creates the SSO login/logout handler.
func NewSSOHandler(r *sso.Reconciler, backendID string, tokens *token.LocalProvider) *SSOHandler {
	return &SSOHandler{reconciler: r, backendID: backendID, tokens: tokens}
}

// assertionFromHeaders flattens request headers into the attribute map the
// reconciler consumes. Header names are normalized the way CGI environments
// do it: upper-cased with dashes as underscores, so "Adfs-Email" becomes
// "ADFS_EMAIL".
func assertionFromHeaders(header http.Header) map[string]string {
	attributes := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		attributes[key] = values[0]
	}
	return attributes
}

// Login reconciles the asserted attributes into a local user and issues a
// session token.
func (h *SSOHandler) Login(c *gin.Context) {
	user, err := h.reconciler.RetrieveAvatar(c.Request.Context(), assertionFromHeaders(c.Request.Header))
	if err != nil {
		switch {
		case errors.Is(err, sso.ErrMissingAssertionField):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":             "invalid_assertion",
				"error_description": err.Error(),
			})
		case errors.Is(err, sso.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{
				"error":             "account_disabled",
				"error_description": "this account has been disabled",
			})
		default:
			log.Printf("[SSO] reconciliation failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		}
		return
	}

	result, err := h.tokens.GenerateToken(c.Request.Context(), user.ID, h.backendID)
	if err != nil {
		log.Printf("[SSO] token generation failed for user=%s: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		AccessToken: result.TokenString,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		UserID:      user.ID,
		Backend:     h.backendID,
	})
}

// Logout redirects to the configured SSO logout callback.
func (h *SSOHandler) Logout(c *gin.Context) {
	c.Redirect(http.StatusFound, h.reconciler.LogoutCallbackURL())
}
