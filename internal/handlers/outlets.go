package handlers

import (
	"net/http"

	"outlet_control/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errSaveOutlet  = "failed to save outlet"
	errGetOutlet   = "failed to load outlet"
	errListOutlets = "failed to list outlets"
	errSetPower    = "failed to switch outlet power"
)

// Request DTO for registering or renaming an outlet.
type outletRequest struct {
	ID                     string `json:"id" binding:"required"`
	Name                   string `json:"name" binding:"required"`
	PowerstripID           string `json:"powerstrip_id" binding:"required"`
	DefaultDurationSeconds int    `json:"default_duration_seconds,omitempty"`
}

// Request DTO for the power toggle.
type powerRequest struct {
	On *bool `json:"on" binding:"required"`
}

// @Summary      Register or update an outlet
// @Tags         outlets
// @Accept       json
// @Produce      json
// @Param        body  body      outletRequest  true  "Outlet payload"
// @Success      200   {object}  models.OutletState
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/outlets [post]
// @Security     BearerAuth
func (h *Handler) saveOutlet(c *gin.Context) {
	var req outletRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	saved, err := h.services.Outlets.Save(ctx, models.OutletState{
		ID:                     req.ID,
		Name:                   req.Name,
		PowerstripID:           req.PowerstripID,
		DefaultDurationSeconds: req.DefaultDurationSeconds,
	})
	if err != nil {
		h.logAndJSONError(c, errSaveOutlet, "outlet_save_failed", err, "outlet_id", req.ID)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// @Summary      Get outlet state
// @Tags         outlets
// @Produce      json
// @Param        id   path      string  true  "Outlet ID"
// @Success      200  {object}  models.OutletState
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/outlets/{id} [get]
// @Security     BearerAuth
func (h *Handler) getOutlet(c *gin.Context) {
	ctx := c.Request.Context()
	o, err := h.services.Outlets.Get(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errGetOutlet, "outlet_get_failed", err, "outlet_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary      Switch outlet power
// @Description  Drives the relay and persists the new state. Switching off also cancels any running timer.
// @Tags         outlets
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Outlet ID"
// @Param        body  body      powerRequest  true  "Power payload"
// @Success      200   {object}  models.OutletState
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/outlets/{id}/power [put]
// @Security     BearerAuth
func (h *Handler) setOutletPower(c *gin.Context) {
	var req powerRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	ctx := c.Request.Context()
	o, err := h.services.Outlets.SetPower(ctx, c.Param("id"), *req.On)
	if err != nil {
		h.logAndJSONError(c, errSetPower, "outlet_set_power_failed", err, "outlet_id", c.Param("id"), "on", *req.On)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary      List outlets of a powerstrip
// @Tags         powerstrips
// @Produce      json
// @Param        id   path      string  true  "Powerstrip ID"
// @Success      200  {object}  map[string]interface{}  "count, outlets"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/outlets [get]
// @Security     BearerAuth
func (h *Handler) listOutlets(c *gin.Context) {
	ctx := c.Request.Context()
	outlets, err := h.services.Outlets.ListByPowerstrip(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errListOutlets, "outlet_list_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(outlets),
		"outlets": outlets,
	})
}
