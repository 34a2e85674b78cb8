// Package respond renders the portal's response envelope. Every JSON response
// has the same shape, {success, message, data}, so the SPA and certctl can
// handle all endpoints uniformly.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/workflow"
)

// Envelope is the wire shape of every portal response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a success envelope.
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with an explicit status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Envelope{Success: false, Message: message})
}

// Error maps an error from the platform client or the workflow layer to a
// status code and writes the failure envelope. The platform's own message is
// surfaced when present; fallback covers the rest.
func Error(c *gin.Context, err error, fallback string) {
	var pre *workflow.PreconditionError
	if errors.As(err, &pre) {
		Fail(c, http.StatusBadRequest, pre.Error())
		return
	}
	Fail(c, statusFor(err), platform.Message(err, fallback))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, platform.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, platform.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, platform.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, platform.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, platform.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
