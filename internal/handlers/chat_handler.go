package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/triplink/triplink-backend/internal/models"
	"github.com/triplink/triplink-backend/internal/services"
)

// ChatHandler handles assistant messages
type ChatHandler struct {
	service *services.ChatService
	logger  *logrus.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(service *services.ChatService, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{
		service: service,
		logger:  logger,
	}
}

// SendMessage handles POST /api/v1/chat/message
func (h *ChatHandler) SendMessage(c *gin.Context) {
	if _, ok := requireActor(c); !ok {
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request format")
		return
	}

	reply, err := h.service.Reply(c.Request.Context(), req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"reply":  reply,
	})
}
