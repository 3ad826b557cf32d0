package handlers

import (
	"net/http"

	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/gin-gonic/gin"
)

// Metrics handles GET /api/metrics: Prometheus text exposition.
func (h *Handler) Metrics(c *gin.Context) {
	c.String(http.StatusOK, h.Telemetry.PrometheusText())
}

// MetricsJSON handles GET /api/metrics/json: the same counters as a
// JSON document, for clients that would rather not parse text
// exposition format.
func (h *Handler) MetricsJSON(c *gin.Context) {
	common.OK(c, h.Telemetry.Snapshot())
}
