package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"huddle/middleware"
	"huddle/models"
	"huddle/utils"
)

// ChatService handles chat messages.
type ChatService interface {
	ProcessMessage(ctx context.Context, req models.AIRequest) (*models.AIResponse, error)
}

type AIHandler struct {
	AISvc  ChatService
	Logger *zap.Logger
}

// Chat handles POST /api/chat.
func (h *AIHandler) Chat(c *gin.Context) {
	var req models.AIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.ClientID == nil {
		if id, ok := middleware.ClientID(c); ok {
			req.ClientID = &id
		}
	}

	resp, err := h.AISvc.ProcessMessage(c.Request.Context(), req)
	if err != nil {
		h.Logger.Error("Chat message failed", zap.String("sessionId", req.SessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", "please try again")
		return
	}
	c.JSON(http.StatusOK, resp)
}
