package httpkit

import (
	"errors"
	"net/http"

	"realtorbuddy_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the standard error envelope returned by all handlers.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes a JSON payload with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 JSON payload.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Error writes a JSON error envelope.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// DomainError maps an apperr.Error to its HTTP status; anything else is a 500.
func DomainError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		Error(c, appErr.HTTPStatus(), appErr.Message, nil)
		return
	}
	Error(c, http.StatusInternalServerError, "internal server error", nil)
}
