package handlers

import (
	"time"

	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/gin-gonic/gin"
)

// daemonVersion is stamped at build time in a full release pipeline;
// fixed here since this daemon has no separate release tooling.
const daemonVersion = "1.0.0"

// Health handles GET /api/health, unauthenticated so clients can decide
// whether to route orders through the remote path or this local
// fallback before they have any credentials.
func (h *Handler) Health(c *gin.Context) {
	mode := "offline"
	connected := false
	if h.SupabaseConnected != nil && h.SupabaseConnected() {
		mode = "online"
		connected = true
	}

	common.OK(c, gin.H{
		"status":             "ok",
		"version":            daemonVersion,
		"uptime_secs":        int64(time.Since(h.StartedAt).Seconds()),
		"restaurant_id":      h.Cfg.RestaurantID,
		"supabase_connected": connected,
		"mode":               mode,
	})
}
