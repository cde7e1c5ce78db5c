package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mtsatou/mte-core/internal/core/domain"
	"github.com/mtsatou/mte-core/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with a request ID for correlation.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request's correlation id.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes the API view of a user record.
type UserSummary struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Avatar    *string    `json:"avatar,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// LoginRequest defines the payload for the login endpoint. Identifier may be
// a numeric id, an email address or a username.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt int64       `json:"expires_at"` // epoch milliseconds
	User      UserSummary `json:"user"`
}

// TokenValidateResponse reports the outcome of a token validation.
type TokenValidateResponse struct {
	Valid     bool        `json:"valid"`
	UserID    int64       `json:"user_id"`
	ExpiresAt int64       `json:"expires_at"` // epoch milliseconds
	User      UserSummary `json:"user"`
}

// UpdateProfileRequest carries mutable profile fields.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

// VerificationSendRequest asks for a verification code to be mailed.
type VerificationSendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerificationVerifyRequest redeems a previously mailed code.
type VerificationVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// VerificationVerifyResponse reports whether the code matched.
type VerificationVerifyResponse struct {
	Verified bool `json:"verified"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Cache     string    `json:"cache"`
}
