// Command daemon is the restaurant-side print daemon process: it
// loads the pairing document, opens the encrypted durable queue,
// starts the local HTTP API, the background job processor, and (when
// paired) the remote ingest poller, and shuts all of them down
// gracefully on SIGINT/SIGTERM — mirroring the teacher's cmd/worker
// signal.NotifyContext + worker-pool shutdown idiom.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eatsome/printer-daemon/internal/auth"
	"github.com/eatsome/printer-daemon/internal/breaker"
	"github.com/eatsome/printer-daemon/internal/config"
	"github.com/eatsome/printer-daemon/internal/email"
	"github.com/eatsome/printer-daemon/internal/httpapi"
	"github.com/eatsome/printer-daemon/internal/ingest"
	"github.com/eatsome/printer-daemon/internal/printer/driver"
	"github.com/eatsome/printer-daemon/internal/printer/pool"
	"github.com/eatsome/printer-daemon/internal/processor"
	"github.com/eatsome/printer-daemon/internal/queue"
	"github.com/eatsome/printer-daemon/internal/telemetry"
)

const (
	connCleanupInterval  = 60 * time.Second
	connMaxIdle          = 120 * time.Second
	queueCleanupInterval = 1 * time.Hour
	shutdownTimeout      = 15 * time.Second
)

func main() {
	cfg := config.Load()

	docPath := cfg.QueueDBPath[:len(cfg.QueueDBPath)-len(filepath.Ext(cfg.QueueDBPath))] + ".json"
	doc, err := config.LoadDoc(docPath)
	restaurantID := cfg.RestaurantID
	var printerCfgs []config.PrinterConfig
	if err != nil {
		log.Printf("component=daemon no pairing document at %s yet (%v); starting unpaired", docPath, err)
	} else {
		restaurantID = doc.RestaurantID
		printerCfgs = doc.Printers
	}

	key := queue.DeriveKey(restaurantID, cfg.QueueDBPath)
	defer key.Close()

	q, err := queue.Open(cfg.QueueDBPath, key.Value(), queue.Config{
		MaxRetries:         3,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("component=daemon open queue: %v", err)
	}
	defer q.Close()

	printers := config.NewPrinterStore(printerCfgs)

	jwtManager := auth.NewManager(cfg.JWTSecret)

	connPool := pool.New()
	drivers := driver.NewRegistry()
	drivers.Register(string(config.ConnUSB), func() driver.Driver { return driver.NewUSBDriver() })
	drivers.Register(string(config.ConnNetwork), func() driver.Driver { return driver.NewNetworkDriver(connPool) })
	drivers.Register(string(config.ConnBluetooth), func() driver.Driver { return driver.NewBLEDriver() })

	smtpCfg := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}
	notifyTo := cfg.SMTPUser

	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: 5,
		Timeout:          5 * time.Minute,
		TrackingWindow:   10 * time.Minute,
		OnOpen: func(printerID string, failureCount int) {
			subject, body := email.BreakerOpenNotice(printerID, failureCount)
			go func() {
				if err := email.SendText(smtpCfg, notifyTo, subject, body); err != nil {
					log.Printf("component=daemon breaker-open notice failed printer=%s: %v", printerID, err)
				}
			}()
		},
	})

	tel := telemetry.New()

	var client *ingest.Client
	var reporter *ingest.Reporter
	connected := false
	if cfg.SupabaseURL != "" && cfg.AuthToken != "" {
		client = ingest.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.AuthToken)
		reporter = ingest.NewReporter(client)
		connected = true
	}

	var rep processor.Reporter
	if reporter != nil {
		rep = reporter
	}
	proc := processor.New(q, breakers, drivers, printers, rep, tel, cfg.ProcessorWorkers)

	router := httpapi.NewRouter(q, cfg, printers, jwtManager, breakers, tel, func() bool { return connected }, "")
	server := &http.Server{Addr: cfg.LocalAPIAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("component=daemon local api listening on %s", cfg.LocalAPIAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("component=daemon http server: %v", err)
		}
	}()

	procDone := make(chan struct{})
	go func() {
		proc.Run(ctx)
		close(procDone)
	}()

	if client != nil {
		poller := ingest.NewPoller(client, q, restaurantID, printers.IDs)
		go poller.Run(ctx)
		log.Printf("component=daemon ingest poller started for restaurant=%s", restaurantID)
	} else {
		log.Printf("component=daemon unpaired or offline: remote ingest poller not started")
	}

	go runTicker(ctx, connCleanupInterval, func() { connPool.Cleanup(connMaxIdle) })
	go runTicker(ctx, queueCleanupInterval, func() {
		if err := q.CleanupOldJobs(); err != nil {
			log.Printf("component=daemon queue cleanup failed: %v", err)
		}
	})

	<-ctx.Done()
	log.Println("component=daemon shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("component=daemon http server shutdown: %v", err)
	}

	// proc.Run's own ctx cancellation already triggered its internal
	// drain-and-flush; wait for Run to return (bounded by the shutdown
	// timeout) before the deferred queue Close runs.
	select {
	case <-procDone:
	case <-shutdownCtx.Done():
		log.Println("component=daemon processor drain did not finish before shutdown timeout")
	}
	log.Println("component=daemon shutdown complete")
}

// runTicker runs fn every interval until ctx is cancelled.
func runTicker(ctx context.Context, interval time.Duration, fn func()) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
