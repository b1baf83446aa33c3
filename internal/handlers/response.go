package handlers

import (
	"errors"
	"net/http"

	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
)

// httpStatusFor maps service errors to HTTP status codes. Unknown errors
// are treated as internal.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrOutletOff),
		errors.Is(err, service.ErrTimerRunning):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflictingTimerSource),
		errors.Is(err, service.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, service.ErrActuatorFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Centralized error logging and response. Known domain errors keep their own
// message; everything else gets the generic userMsg.
func (h *Handler) logAndJSONError(c *gin.Context, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	code := httpStatusFor(err)
	msg := userMsg
	if code != http.StatusInternalServerError {
		msg = err.Error()
	}
	c.JSON(code, gin.H{"error": msg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
