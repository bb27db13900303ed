package api

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tractionhq/traction/backend/api/conv"
	"github.com/tractionhq/traction/backend/event"
)

// heartbeatInterval paces keepalive comments so idle streams survive
// proxies with read timeouts.
const heartbeatInterval = 30 * time.Second

// EventHandler serves the live event feed over server-sent events.
type EventHandler struct {
	router *event.EventRouter
}

func NewEventHandler(router *event.EventRouter) *EventHandler {
	return &EventHandler{router: router}
}

// Stream subscribes the client to the router and relays matching events
// until the client disconnects. Filters come from query parameters:
// ?pattern=task.*,intervention.raised&task=<id>&session=<id>.
func (h *EventHandler) Stream(c *gin.Context) {
	var patterns []string
	if raw := c.Query("pattern"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			patterns = append(patterns, strings.TrimSpace(part))
		}
	}

	ctx := c.Request.Context()
	events, cancel := h.router.Subscribe(ctx, event.SubscribeOptions{
		EventTypes: patterns,
		TaskID:     c.Query("task"),
		SessionID:  c.Query("session"),
	})
	defer cancel()

	// Flush the headers up front so clients know the stream is live before
	// the first event lands.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			io.WriteString(w, ": keepalive\n\n")
			return true
		case e, ok := <-events:
			if !ok {
				return false
			}
			wire, err := conv.ConvertStreamEvent(e)
			if err != nil {
				slog.WarnContext(ctx, "dropping event without wire shape",
					"type", e.Type, "error", err)
				return true
			}
			c.SSEvent(wire.Type, wire)
			return true
		}
	})
}
