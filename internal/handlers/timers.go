package handlers

import (
	"net/http"

	"outlet_control/internal/models"
	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errStartTimer   = "failed to start timer"
	errStopTimer    = "failed to stop timer"
	errTimerStatus  = "failed to load timer status"
	errUpdatePreset = "failed to update timer preset"
)

// Request DTO for starting a timer. A zero duration falls back to the
// outlet's preset in the service layer.
type startTimerRequest struct {
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	AllowReplace    bool   `json:"allow_replace,omitempty"`
	Force           bool   `json:"force,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Request DTO for changing the default countdown preset.
type presetRequest struct {
	DurationSeconds int `json:"duration_seconds" binding:"required"`
}

// @Summary      Start a countdown timer
// @Description  Starts a manual countdown on the outlet. An active manual timer is replaced; a timer from another source requires allow_replace or force.
// @Tags         timers
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Outlet ID"
// @Param        body  body      startTimerRequest  true  "Timer payload"
// @Success      200   {object}  service.TimerStatus
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/outlets/{id}/timer [post]
// @Security     BearerAuth
func (h *Handler) startTimer(c *gin.Context) {
	var req startTimerRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	st, err := h.services.Timers.Start(ctx, c.Param("id"), req.DurationSeconds, models.SourceManual, service.StartOpts{
		AllowReplace: req.AllowReplace,
		Force:        req.Force,
		Note:         req.Note,
	})
	if err != nil {
		h.logAndJSONError(c, errStartTimer, "timer_start_failed", err, "outlet_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Stop the running timer
// @Description  Cancels the countdown without changing the outlet's power. Stopping an outlet with no active timer is a no-op.
// @Tags         timers
// @Produce      json
// @Param        id   path      string  true  "Outlet ID"
// @Success      200  {object}  service.TimerStatus
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/outlets/{id}/timer/stop [post]
// @Security     BearerAuth
func (h *Handler) stopTimer(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Timers.Stop(ctx, c.Param("id"), service.StopOpts{
		WarnWhenInactive: true,
	})
	if err != nil {
		h.logAndJSONError(c, errStopTimer, "timer_stop_failed", err, "outlet_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Get timer status
// @Tags         timers
// @Produce      json
// @Param        id   path      string  true  "Outlet ID"
// @Success      200  {object}  service.TimerStatus
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/outlets/{id}/timer [get]
// @Security     BearerAuth
func (h *Handler) timerStatus(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.services.Timers.Status(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errTimerStatus, "timer_status_failed", err, "outlet_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Update default timer preset
// @Description  Changes the default countdown used by future starts. Rejected while a timer is running.
// @Tags         timers
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Outlet ID"
// @Param        body  body      presetRequest  true  "Preset payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/outlets/{id}/timer/preset [put]
// @Security     BearerAuth
func (h *Handler) updateTimerPreset(c *gin.Context) {
	var req presetRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Timers.UpdatePreset(ctx, c.Param("id"), req.DurationSeconds); err != nil {
		h.logAndJSONError(c, errUpdatePreset, "timer_preset_failed", err, "outlet_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           statusOK,
		"duration_seconds": req.DurationSeconds,
	})
}
