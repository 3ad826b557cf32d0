package handlers

import (
	"net/http"

	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/gin-gonic/gin"
)

// QueueStats handles GET /api/queue/stats: pending/printing/completed/
// failed counts plus a snapshot of every tracked breaker's state.
func (h *Handler) QueueStats(c *gin.Context) {
	stats, err := h.Queue.GetStats()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50020, "failed to read queue stats")
		return
	}

	common.OK(c, gin.H{
		"total":     stats.Total,
		"pending":   stats.Pending,
		"printing":  stats.Printing,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"breakers":  h.Breakers.Statuses(),
	})
}

// ClearQueue handles DELETE /api/queue — the local-only factory-reset
// admin route backing Queue.ClearAll (see DESIGN.md Open Question #2).
// Guarded by the same JWT middleware as every other route here.
func (h *Handler) ClearQueue(c *gin.Context) {
	if err := h.Queue.ClearAll(); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50021, "failed to clear queue")
		return
	}
	common.OK(c, gin.H{"status": "cleared"})
}
