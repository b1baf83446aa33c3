package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"outlet_control/internal/service"

	"github.com/gin-gonic/gin"
)

const errListLogs = "failed to load logs"

// @Summary      List timer log entries
// @Description  Newest first. Optional filters by outlet and status.
// @Tags         logs
// @Produce      json
// @Param        outlet_id  query   string  false  "Outlet ID"
// @Param        status     query   string  false  "Entry status"  Enums(STARTED,STOPPED,COMPLETED,AUTO_CANCELLED,POWER_OFF,REPLACED)
// @Param        limit      query   int     false  "Max entries (default 100, cap 500)"
// @Success      200  {object}  map[string]interface{}  "count, entries"
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	ctx := c.Request.Context()
	filter := service.LogFilter{
		OutletID: strings.TrimSpace(c.Query("outlet_id")),
		// Normalize status: trim spaces and uppercase to match stored values.
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit'; expected a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	entries, err := h.services.EventLog.List(ctx, filter)
	if err != nil {
		h.logAndJSONError(c, errListLogs, "logs_list_failed", err, "outlet_id", filter.OutletID, "status", filter.Status)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}
