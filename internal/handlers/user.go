package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TCH93/Indico-Dev/internal/auth"
	"github.com/TCH93/Indico-Dev/internal/core"
	"github.com/TCH93/Indico-Dev/internal/models"
)

// UserHandler serves trusted admin lookups. GetAvatarByLogin performs no
// credential check, so these routes must never be exposed unauthenticated.
type UserHandler struct {
	manager *auth.Manager
	cache   core.Cache[models.User]
	ttl     time.Duration
}

// NewUserHandler creates the admin user lookup handler.
func NewUserHandler(m *auth.Manager, c core.Cache[models.User], ttl time.Duration) *UserHandler {
	return &UserHandler{manager: m, cache: c, ttl: ttl}
}

// GetByLogin resolves the owning user of a login id within one backend.
func (h *UserHandler) GetByLogin(c *gin.Context) {
	backendID := c.Param("backend")
	login := c.Param("login")

	registry, err := h.manager.Get(backendID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_backend"})
		return
	}

	key := "user:" + backendID + ":" + login
	user, err := h.lookup(c.Request.Context(), registry, key, login)
	if err != nil {
		if errors.Is(err, auth.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "identity_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          user.ID,
		"email":       user.Email,
		"name":        user.FullName(),
		"affiliation": user.Affiliation,
		"activated":   user.Activated,
		"disabled":    user.Disabled,
	})
}

// lookup is a cache-aside read of the identity's owning user.
func (h *UserHandler) lookup(
	ctx context.Context,
	registry *auth.Registry,
	key, login string,
) (*models.User, error) {
	if cached, err := h.cache.Get(ctx, key); err == nil {
		return &cached, nil
	}

	user, err := registry.GetAvatarByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	_ = h.cache.Set(ctx, key, *user, h.ttl)
	return user, nil
}
