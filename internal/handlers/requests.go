package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	errOpenRequest    = "failed to open auto-shutdown request"
	errConfirmRequest = "failed to confirm auto-shutdown request"
	errCancelRequest  = "failed to cancel auto-shutdown request"
	errListRequests   = "failed to list pending requests"
)

// Request DTO for opening an auto-shutdown request.
type openRequestBody struct {
	OutletID  string     `json:"outlet_id,omitempty"`
	Note      string     `json:"note,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// @Summary      Open an auto-shutdown request
// @Description  Creates a PENDING request that defers the shutdown decision to the user.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Param        id    path      string           true   "Powerstrip ID"
// @Param        body  body      openRequestBody  false  "Request payload"
// @Success      200   {object}  models.AutoShutdownRequest
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/requests [post]
// @Security     BearerAuth
func (h *Handler) openRequest(c *gin.Context) {
	var req openRequestBody
	if c.Request.ContentLength > 0 {
		if ok := h.bindJSONOrBadRequest(c, &req); !ok {
			return
		}
	}
	ctx := c.Request.Context()
	r, err := h.services.ShutdownRequests.Open(ctx, c.Param("id"), req.OutletID, req.Note, req.ExpiresAt)
	if err != nil {
		h.logAndJSONError(c, errOpenRequest, "request_open_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary      List pending requests
// @Tags         requests
// @Produce      json
// @Param        id   path      string  true  "Powerstrip ID"
// @Success      200  {object}  map[string]interface{}  "count, requests"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/powerstrips/{id}/requests [get]
// @Security     BearerAuth
func (h *Handler) listPendingRequests(c *gin.Context) {
	ctx := c.Request.Context()
	requests, err := h.services.ShutdownRequests.ListPending(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errListRequests, "request_list_failed", err, "powerstrip_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(requests),
		"requests": requests,
	})
}

// @Summary      Confirm an auto-shutdown request
// @Description  Switches off every powered outlet on the powerstrip and resolves all sibling PENDING requests in the same step.
// @Tags         requests
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  service.Resolution
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/requests/{id}/confirm [post]
// @Security     BearerAuth
func (h *Handler) confirmRequest(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.services.ShutdownRequests.Confirm(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errConfirmRequest, "request_confirm_failed", err, "request_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary      Cancel an auto-shutdown request
// @Description  Declines the shutdown; outlets keep their current power state. Sibling PENDING requests are cancelled too.
// @Tags         requests
// @Produce      json
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  service.Resolution
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/requests/{id}/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelRequest(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.services.ShutdownRequests.Cancel(ctx, c.Param("id"))
	if err != nil {
		h.logAndJSONError(c, errCancelRequest, "request_cancel_failed", err, "request_id", c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, res)
}
