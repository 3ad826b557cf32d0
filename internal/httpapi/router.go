// Package httpapi assembles the Local Submit API's gin.Engine, grounded
// on the teacher's NewRouter (gin.New + Recovery + RequestID + scoped
// CORS) generalized from the chat/user surface to the print daemon's
// print/health/queue/metrics surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/eatsome/printer-daemon/internal/auth"
	"github.com/eatsome/printer-daemon/internal/breaker"
	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/eatsome/printer-daemon/internal/config"
	"github.com/eatsome/printer-daemon/internal/httpapi/handlers"
	"github.com/eatsome/printer-daemon/internal/httpapi/middleware"
	"github.com/eatsome/printer-daemon/internal/queue"
	"github.com/eatsome/printer-daemon/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine the daemon binds to 127.0.0.1:8043. Only
// GET /api/health is unauthenticated; every other route requires a
// valid printer JWT with the "print" permission (middleware.AuthRequired).
func NewRouter(
	q *queue.Queue,
	cfg config.Config,
	printers *config.PrinterStore,
	jwt *auth.Manager,
	breakers *breaker.Registry,
	tel *telemetry.Metrics,
	supabaseConnected func() bool,
	webappOrigin string,
) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	origins := []string{"http://localhost:8043", "http://127.0.0.1:8043", "http://tauri.localhost"}
	if webappOrigin != "" {
		origins = append(origins, webappOrigin)
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := handlers.NewHandler(q, cfg, printers, jwt, breakers, tel, supabaseConnected)

	r.GET("/api/health", h.Health)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(jwt))
	authGroup.POST("/print", h.Print)
	authGroup.GET("/queue/stats", h.QueueStats)
	authGroup.DELETE("/queue", h.ClearQueue)
	authGroup.GET("/metrics", h.Metrics)
	authGroup.GET("/metrics/json", h.MetricsJSON)

	return r
}
