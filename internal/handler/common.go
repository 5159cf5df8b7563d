package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akbargherbal/gemini-fusion/internal/model"
	"github.com/akbargherbal/gemini-fusion/internal/repository"
	"github.com/akbargherbal/gemini-fusion/internal/service"
)

// writeServiceError maps pre-stream service errors to synchronous HTTP
// error responses. Once an event stream is open, failures travel as
// terminal events instead and never reach this path.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrMissingAPIKey):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40002,
			Message: err.Error(),
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40401,
			Message: "Conversation not found",
		})
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Code:    40402,
			Message: "Chat session not found or expired",
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    50001,
			Message: "Internal server error",
			Detail:  err.Error(),
		})
	}
}

// writeBindError reports a malformed request body.
func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Code:    40001,
		Message: "Invalid request body",
		Detail:  err.Error(),
	})
}
