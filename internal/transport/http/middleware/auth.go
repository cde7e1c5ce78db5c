package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mtsatou/mte-core/internal/usecase"
)

// UserIDKey is the gin context key holding the authenticated user's id.
const UserIDKey = "user_id"

// ClaimsKey is the gin context key holding the verified token claims.
const ClaimsKey = "claims"

// ErrorResponse is the JSON error body shared with the handlers package.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func newErrorResponse(c *gin.Context, msg string) ErrorResponse {
	return ErrorResponse{
		Error:     msg,
		RequestID: requestIDFromContext(c.Request.Context()),
	}
}

// BearerToken extracts the presented token: Authorization: Bearer <token>
// first, then a "token" query, form or JSON body field.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	if token := c.PostForm("token"); token != "" {
		return token
	}

	if c.ContentType() != binding.MIMEJSON || c.Request.Body == nil {
		return ""
	}

	// ShouldBindBodyWith keeps the body bytes on the context, so handlers
	// behind this extraction must re-bind the same way.
	var body struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return ""
	}

	return strings.TrimSpace(body.Token)
}

// RequireAuth validates the presented bearer token and stores the verified
// identity in the request context. Every verification failure is surfaced as
// a rejection; none are retried.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing bearer token"))
			return
		}

		claims, _, err := auth.VerifyToken(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "token expired"))
			case errors.Is(err, usecase.ErrTokenRevoked):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "token revoked"))
			case errors.Is(err, usecase.ErrTokenMalformed), errors.Is(err, usecase.ErrUnknownPrincipal):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

// AuthenticatedUserID retrieves the user id stored by RequireAuth.
func AuthenticatedUserID(c *gin.Context) (int64, bool) {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}

	id, ok := val.(int64)
	return id, ok
}
