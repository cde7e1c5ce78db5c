package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mtsatou/mte-core/internal/transport/http/middleware"
	"github.com/mtsatou/mte-core/internal/usecase"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the login handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, loginMiddlewares ...gin.HandlerFunc) {
	if len(loginMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, loginMiddlewares...)
		chain = append(chain, h.login)
		r.POST("/login", chain...)
	} else {
		r.POST("/login", h.login)
	}

	r.POST("/token/validate", h.validate)
	r.POST("/token/refresh", h.refresh)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt.UnixMilli(),
		User:      newUserSummary(result.User),
	})
}

// validate checks the presented token and reports the identity it carries.
// The token is taken from the Authorization header, a "token" query parameter
// or a "token" form field, in that order.
func (h *AuthHandler) validate(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing bearer token"))
		return
	}

	claims, user, err := h.auth.VerifyToken(c.Request.Context(), token)
	if err != nil {
		respondTokenError(c, err)
		return
	}

	var expiresAt int64
	if user.TokenExpiresAt != nil {
		expiresAt = *user.TokenExpiresAt
	}

	c.JSON(http.StatusOK, TokenValidateResponse{
		Valid:     true,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
		User:      newUserSummary(user.Sanitized()),
	})
}

// refresh exchanges a currently valid token for a fresh one. The presented
// token is revoked by the exchange.
func (h *AuthHandler) refresh(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing bearer token"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondTokenError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt.UnixMilli(),
		User:      newUserSummary(result.User),
	})
}

func respondTokenError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "token expired"))
	case errors.Is(err, usecase.ErrTokenRevoked):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "token revoked"))
	case errors.Is(err, usecase.ErrTokenMalformed), errors.Is(err, usecase.ErrUnknownPrincipal):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid token"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "token verification failed"))
	}
}
