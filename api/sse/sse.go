package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/enemyai/cache"
	"github.com/kasuganosora/enemyai/game/world"
	"go.uber.org/zap"
)

// Handler streams a room's agent lifecycle events as server-sent events.
type Handler struct {
	pubsub      cache.PubSub
	defaultRoom string
	keepalive   time.Duration
	logger      *zap.Logger
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, defaultRoom string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, defaultRoom: defaultRoom, keepalive: 30 * time.Second, logger: logger}
}

// ServeSSE handles GET /debug/stream?room=<id>.
// Each event published on the room's events channel is sent as an "agent"
// event until the client disconnects.
func (h *Handler) ServeSSE(c *gin.Context) {
	room := c.DefaultQuery("room", h.defaultRoom)

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, world.EventsChannel(room))
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.String("room_id", room), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"room\":%q}\n\n", room)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			fmt.Fprintf(c.Writer, "event: agent\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}
