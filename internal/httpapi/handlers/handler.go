// Package handlers implements the Local Submit API's HTTP endpoints,
// grounded on the teacher's Handler{DB, Cfg, ...} composition
// (internal/httpapi/handlers/handler.go) generalized from a gorm
// connection + chat service to the print daemon's queue/breaker/
// telemetry collaborators.
package handlers

import (
	"time"

	"github.com/eatsome/printer-daemon/internal/auth"
	"github.com/eatsome/printer-daemon/internal/breaker"
	"github.com/eatsome/printer-daemon/internal/config"
	"github.com/eatsome/printer-daemon/internal/queue"
	"github.com/eatsome/printer-daemon/internal/telemetry"
)

// Handler bundles every collaborator the route handlers need.
type Handler struct {
	Queue     *queue.Queue
	Cfg       config.Config
	Printers  *config.PrinterStore
	JWT       *auth.Manager
	Breakers  *breaker.Registry
	Telemetry *telemetry.Metrics

	StartedAt time.Time

	// SupabaseConnected reports whether the daemon treats the remote
	// link as up, for GET /api/health's online/offline mode field.
	// cmd/daemon answers from whether remote credentials are
	// configured; failed polls do not change the answer.
	SupabaseConnected func() bool
}

func NewHandler(
	q *queue.Queue,
	cfg config.Config,
	printers *config.PrinterStore,
	jwt *auth.Manager,
	breakers *breaker.Registry,
	tel *telemetry.Metrics,
	supabaseConnected func() bool,
) *Handler {
	return &Handler{
		Queue:             q,
		Cfg:               cfg,
		Printers:          printers,
		JWT:               jwt,
		Breakers:          breakers,
		Telemetry:         tel,
		StartedAt:         time.Now(),
		SupabaseConnected: supabaseConnected,
	}
}
