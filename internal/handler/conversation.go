package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akbargherbal/gemini-fusion/internal/service"
)

// ConversationHandler exposes the conversation listing and history
// endpoints.
type ConversationHandler struct {
	svc *service.ChatService
}

// NewConversationHandler creates the conversation handler.
func NewConversationHandler(svc *service.ChatService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// List returns all conversations.
// @Summary      List conversations
// @Description  Returns all conversation topics and ids, newest first
// @Tags         conversations
// @Produce      json
// @Success      200  {array}   model.ConversationSummary
// @Failure      500  {object}  model.ErrorResponse
// @Router       /api/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.svc.ListConversations(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// GetMessages returns a conversation's message history.
// @Summary      Get conversation history
// @Description  Returns the conversation's messages in insertion order
// @Tags         conversations
// @Produce      json
// @Param        id   path      string  true  "conversation id"
// @Success      200  {array}   model.Message
// @Failure      404  {object}  model.ErrorResponse
// @Router       /api/conversations/{id} [get]
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	msgs, err := h.svc.GetMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}
