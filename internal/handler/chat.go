package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akbargherbal/gemini-fusion/internal/model"
	"github.com/akbargherbal/gemini-fusion/internal/service"
)

// ChatHandler exposes the chat turn endpoints.
type ChatHandler struct {
	svc *service.ChatService
}

// NewChatHandler creates the chat handler.
func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Sync saves the user message without calling the upstream.
// @Summary      Save a chat message
// @Description  Persists the user message (creating the conversation if needed) without generating a response
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "chat request"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  model.ErrorResponse
// @Failure      404     {object}  model.ErrorResponse
// @Router       /api/chat/sync [post]
func (h *ChatHandler) Sync(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	turn, err := h.svc.Prepare(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "success",
		"message":         "Message received and saved.",
		"conversation_id": turn.ConversationID,
	})
}

// Initiate prepares a turn and parks it as a stream session.
// @Summary      Initiate a chat turn
// @Description  Validates the request, persists the user message, and returns a session id for the stream endpoint
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      model.ChatRequest  true  "chat request"
// @Success      200     {object}  model.InitiateResponse
// @Failure      400     {object}  model.ErrorResponse
// @Failure      404     {object}  model.ErrorResponse
// @Router       /api/chat/initiate [post]
func (h *ChatHandler) Initiate(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.svc.Initiate(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Stream runs a whole turn in one request, streaming fragments as SSE.
// @Summary      Chat with streaming response
// @Description  Persists the user message, streams the assistant response as SSE, then persists the outcome
// @Tags         chat
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  model.ChatRequest  true  "chat request"
// @Success      200  {string}  string  "SSE stream"
// @Failure      400  {object}  model.ErrorResponse
// @Failure      404  {object}  model.ErrorResponse
// @Router       /api/chat/stream [post]
func (h *ChatHandler) Stream(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	turn, err := h.svc.Prepare(c.Request.Context(), &req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.streamTurn(c, turn)
}

// StreamSession consumes a parked session and streams its turn.
// @Summary      Stream an initiated chat turn
// @Description  Streams the assistant response for a session created by the initiate endpoint
// @Tags         chat
// @Produce      text/event-stream
// @Param        session_id  path  string  true  "session id"
// @Success      200  {string}  string  "SSE stream"
// @Failure      404  {object}  model.ErrorResponse
// @Router       /api/chat/stream/{session_id} [get]
func (h *ChatHandler) StreamSession(c *gin.Context) {
	turn, err := h.svc.TakeSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.streamTurn(c, turn)
}

func (h *ChatHandler) streamTurn(c *gin.Context, turn *service.Turn) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.svc.Stream(c.Request.Context(), turn, &sseSink{c: c})
}

// sseSink writes turn events to the client as server-sent events. A
// closed connection surfaces through the request context, which is how
// Fragment signals the relay to stop.
type sseSink struct {
	c *gin.Context
}

func (s *sseSink) StreamStart() {
	s.c.SSEvent("stream_start", "")
	s.c.Writer.Flush()
}

func (s *sseSink) Fragment(text string) error {
	if err := s.c.Request.Context().Err(); err != nil {
		return err
	}
	s.c.SSEvent("message", model.FragmentEvent{Text: text})
	s.c.Writer.Flush()
	return s.c.Request.Context().Err()
}

func (s *sseSink) Terminal(ev *model.TerminalEvent) {
	s.c.SSEvent("done", ev)
	s.c.Writer.Flush()
}
