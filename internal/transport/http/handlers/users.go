package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/repository"
	"github.com/mtsatou/mte-core/internal/transport/http/middleware"
)

// UserHandler exposes the authenticated user's profile.
type UserHandler struct {
	users port.UserRepository
}

// NewUserHandler constructs UserHandler.
func NewUserHandler(users port.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterRoutes binds profile routes. The group is expected to already carry
// the authentication middleware; getMiddlewares and putMiddlewares run ahead
// of the respective handlers (response caching, cache invalidation).
func (h *UserHandler) RegisterRoutes(r *gin.RouterGroup, getMiddlewares, putMiddlewares []gin.HandlerFunc) {
	getChain := append([]gin.HandlerFunc{}, getMiddlewares...)
	getChain = append(getChain, h.me)
	r.GET("/me", getChain...)

	putChain := append([]gin.HandlerFunc{}, putMiddlewares...)
	putChain = append(putChain, h.updateMe)
	r.PUT("/me", putChain...)
}

func (h *UserHandler) me(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "user not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, newUserSummary(user.Sanitized()))
}

func (h *UserHandler) updateMe(c *gin.Context) {
	userID, ok := middleware.AuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	// The auth gate may have read the body already looking for a token
	// field, so bind through the context-cached copy.
	var req UpdateProfileRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "user not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load profile"))
		return
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username cannot be empty"))
			return
		}
		user.Username = username
	}
	if req.Avatar != nil {
		user.Avatar = req.Avatar
	}

	if err := h.users.Update(c.Request.Context(), *user); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to update profile"))
		return
	}

	c.JSON(http.StatusOK, newUserSummary(user.Sanitized()))
}
