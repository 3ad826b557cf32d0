package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/eatsome/printer-daemon/internal/apperr"
	"github.com/eatsome/printer-daemon/internal/common"
	"github.com/eatsome/printer-daemon/internal/httpapi/middleware"
	"github.com/eatsome/printer-daemon/internal/queue"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type printItemReq struct {
	Quantity  int      `json:"quantity"`
	Name      string   `json:"name"`
	Modifiers []string `json:"modifiers"`
	Notes     string   `json:"notes"`
}

type printJobReq struct {
	RestaurantID string         `json:"restaurant_id"`
	OrderID      *string        `json:"order_id"`
	OrderNumber  string         `json:"order_number"`
	Station      string         `json:"station"`
	StationID    *string        `json:"station_id"`
	PrinterID    *string        `json:"printer_id"`
	Items        []printItemReq `json:"items"`
	TableNumber  *string        `json:"table_number"`
	CustomerName *string        `json:"customer_name"`
	OrderType    *string        `json:"order_type"`
	Priority     int            `json:"priority"`
	Timestamp    int64          `json:"timestamp"`
}

// Print handles POST /api/print: validates the bearer JWT's permission
// and restaurant match, converts the request into a queue.Job, and
// enqueues it. Per spec.md §4.8: 401 without verified claims, 400 for
// an invalid body or a restaurant mismatch, 404 for an unknown printer,
// 500 otherwise (a rate-limit rejection is a 500 with a rate-limit
// message).
func (h *Handler) Print(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "missing authorization")
		return
	}

	var req printJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json body")
		return
	}

	// Triple match per spec.md §4.8: claims.restaurant_id ==
	// body.restaurant_id == daemon.restaurant_id.
	if claims.RestaurantID != req.RestaurantID || req.RestaurantID != h.Cfg.RestaurantID {
		common.Fail(c, http.StatusBadRequest, 10010, "restaurant id mismatch")
		return
	}

	if req.PrinterID != nil {
		if _, found := h.Printers.Printer(*req.PrinterID); !found {
			common.Fail(c, http.StatusNotFound, 40402, "unknown printer")
			return
		}
	}

	priority := req.Priority
	if priority == 0 {
		priority = queue.PriorityNormal
	}
	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}

	job := &queue.Job{
		ID:           uuid.NewString(),
		RestaurantID: req.RestaurantID,
		OrderID:      req.OrderID,
		OrderNumber:  req.OrderNumber,
		Station:      req.Station,
		StationID:    req.StationID,
		PrinterID:    req.PrinterID,
		TableNumber:  req.TableNumber,
		CustomerName: req.CustomerName,
		OrderType:    req.OrderType,
		Priority:     priority,
		Timestamp:    timestamp,
	}

	items := make([]queue.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = queue.Item{Quantity: it.Quantity, Name: it.Name, Modifiers: it.Modifiers, Notes: it.Notes}
	}

	if err := h.Queue.Enqueue(job, items); err != nil {
		if errors.Is(err, apperr.ErrRateLimited) {
			common.Fail(c, http.StatusInternalServerError, 42900, "rate limit exceeded: too many print jobs, try again shortly")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to enqueue print job")
		return
	}

	common.OK(c, gin.H{
		"job_id":  job.ID,
		"status":  "queued",
		"message": "print job enqueued",
	})
}
