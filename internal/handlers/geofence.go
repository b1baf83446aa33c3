package handlers

import (
	"net/http"

	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errReportLocation = "failed to evaluate location"
	errGetGeofence    = "failed to load geofence settings"
	errUpdateGeofence = "failed to update geofence settings"
)

// Request DTO for a phone location report.
type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

// Request DTO for geofence configuration.
type geofenceRequest struct {
	Enabled             bool     `json:"enabled"`
	HomeLatitude        *float64 `json:"home_latitude,omitempty"`
	HomeLongitude       *float64 `json:"home_longitude,omitempty"`
	RadiusMeters        float64  `json:"radius_meters"`
	AutoShutdownSeconds int      `json:"auto_shutdown_seconds"`
}

// @Summary      Report a location
// @Description  Evaluates the phone position against the home radius; leaving the radius arms an auto-shutdown countdown on powered outlets, returning cancels it.
// @Tags         geofence
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Powerstrip ID"
// @Param        body  body      locationRequest  true  "Location payload"
// @Success      200   {object}  service.Evaluation
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/location [post]
// @Security     BearerAuth
func (h *Handler) reportLocation(c *gin.Context) {
	var req locationRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	ev, err := h.services.Geofence.Evaluate(ctx, c.Param("id"), *req.Latitude, *req.Longitude)
	if err != nil {
		h.logAndJSONError(c, errReportLocation, "geofence_evaluate_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, ev)
}

// @Summary      Get geofence settings
// @Tags         geofence
// @Produce      json
// @Param        id   path      string  true  "Powerstrip ID"
// @Success      200  {object}  models.GeofenceSettings
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/geofence [get]
// @Security     BearerAuth
func (h *Handler) getGeofence(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := h.services.Geofence.Settings(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errGetGeofence, "geofence_get_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, settings)
}

// @Summary      Update geofence settings
// @Description  Home coordinates must be provided together. Countdown bookkeeping fields are not caller-settable.
// @Tags         geofence
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Powerstrip ID"
// @Param        body  body      geofenceRequest  true  "Geofence payload"
// @Success      200   {object}  models.GeofenceSettings
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/geofence [put]
// @Security     BearerAuth
func (h *Handler) updateGeofence(c *gin.Context) {
	var req geofenceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	settings, err := h.services.Geofence.UpdateSettings(ctx, c.Param("id"), service.GeofenceParams{
		Enabled:             req.Enabled,
		HomeLatitude:        req.HomeLatitude,
		HomeLongitude:       req.HomeLongitude,
		RadiusMeters:        req.RadiusMeters,
		AutoShutdownSeconds: req.AutoShutdownSeconds,
	})
	if err != nil {
		h.logAndJSONError(c, errUpdateGeofence, "geofence_update_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, settings)
}
