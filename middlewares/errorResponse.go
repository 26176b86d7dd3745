package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
}

func NewErrorResponse(status int, message string, details any) ErrorResponse {
	return ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Details:   details,
	}
}

func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, NewErrorResponse(status, message, nil))
}
