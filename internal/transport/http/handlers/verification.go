package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mtsatou/mte-core/internal/usecase"
)

// VerificationHandler exposes the email verification-code flow.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// RegisterRoutes binds verification routes, applying optional middleware
// ahead of the send handler.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup, sendMiddlewares ...gin.HandlerFunc) {
	if len(sendMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, sendMiddlewares...)
		chain = append(chain, h.send)
		r.POST("/send", chain...)
	} else {
		r.POST("/send", h.send)
	}

	r.POST("/verify", h.verify)
}

func (h *VerificationHandler) send(c *gin.Context) {
	var req VerificationSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "valid email is required"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.verification.Request(c.Request.Context(), email); err != nil {
		if errors.Is(err, usecase.ErrMailDelivery) {
			c.JSON(http.StatusBadGateway, NewErrorResponse(c, "failed to deliver verification code"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to issue verification code"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

func (h *VerificationHandler) verify(c *gin.Context) {
	var req VerificationVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email and code are required"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	ok, err := h.verification.Verify(c.Request.Context(), email, strings.TrimSpace(req.Code))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to verify code"))
		return
	}

	if !ok {
		c.JSON(http.StatusUnauthorized, VerificationVerifyResponse{Verified: false})
		return
	}

	c.JSON(http.StatusOK, VerificationVerifyResponse{Verified: true})
}
