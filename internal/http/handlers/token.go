package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizlab/trivia-backend/internal/http/response"
	"github.com/quizlab/trivia-backend/internal/services"
)

type TokenHandler struct {
	tokens services.DeviceTokenService
}

func NewTokenHandler(tokens services.DeviceTokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// POST /api/device-token
func (h *TokenHandler) Issue(c *gin.Context) {
	var req struct {
		DeviceID string `json:"device_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(req.DeviceID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "issue_token_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}
