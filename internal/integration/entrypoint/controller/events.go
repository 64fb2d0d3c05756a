package controller

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/finance-tracker/ledger/internal/application/notify"
)

// EventsController streams bus events to clients over server-sent events.
type EventsController struct {
	bus *notify.Bus
}

// NewEventsController creates a new events controller instance.
func NewEventsController(bus *notify.Bus) *EventsController {
	return &EventsController{
		bus: bus,
	}
}

// Stream handles GET /api/v1/events requests.
func (c *EventsController) Stream(ctx *gin.Context) {
	events, stop := c.bus.Stream(notify.DefaultBuffer)
	defer stop()

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	ctx.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			ctx.SSEvent(event.Topic, event)
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}
