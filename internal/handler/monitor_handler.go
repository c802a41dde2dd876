package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/response"
	"github.com/mariosrafail/english4sp-sub000/internal/service"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams the live proctoring monitor to examiners over SSE.
type MonitorHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Stream godoc
// GET /api/v1/examiner/periods/:id/monitor
// Sends an initial progress snapshot, then forwards live violation and
// submission events from Redis Pub/Sub, with periodic full refreshes.
func (h *MonitorHandler) Stream(c *gin.Context) {
	periodID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, periodID)

	pubsub := h.monitorService.Subscribe(reqCtx, periodID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("period_id", periodID.String()).Msg("Examiner attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("period_id", periodID.String()).Msg("Examiner disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, periodID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes one full progress snapshot as an SSE event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, ctx context.Context, periodID uuid.UUID) {
	fetchCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	progress, err := h.monitorService.Progress(fetchCtx, periodID)
	if err != nil {
		h.log.Warn().Err(err).Str("period_id", periodID.String()).Msg("Monitor snapshot failed")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":       "snapshot",
		"candidates": progress,
	})
	c.Writer.Flush()
}
