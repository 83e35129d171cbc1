// Package httputil provides helpers shared by the HTTP handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/keymanager/internal/errors"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HandleErrorGin maps an error category to a status code and writes it as JSON.
// Errors outside the known categories are logged in full and reported without detail.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var status int
	var body ErrorResponse

	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
		body = ErrorResponse{Error: "not_found", Message: "The requested resource was not found"}
	case apperrors.Is(err, apperrors.ErrConflict):
		status = http.StatusConflict
		body = ErrorResponse{Error: "conflict", Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
		body = ErrorResponse{Error: "invalid_input", Message: err.Error()}
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusForbidden
		body = ErrorResponse{Error: "unavailable", Message: "The resource cannot be used in its current state"}
	default:
		status = http.StatusInternalServerError
		body = ErrorResponse{Error: "internal_error", Message: "An internal error occurred"}
	}

	if logger != nil {
		level := slog.LevelWarn
		if status == http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", status),
			slog.String("error_code", body.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(status, body)
}
