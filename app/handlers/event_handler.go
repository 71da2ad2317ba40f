package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/imobflow/crm-api/app/dto"
	"github.com/imobflow/crm-api/app/services"
	"go.uber.org/zap"
)

// EventHandler streams hub events to the browser as Server-Sent Events
type EventHandler struct {
	baseHandler
	hub       services.NotificationHub
	buffer    int
	heartbeat time.Duration
}

func NewEventHandler(hub services.NotificationHub, buffer int, heartbeat time.Duration, logger *zap.Logger) *EventHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &EventHandler{
		baseHandler: newBaseHandler(0, logger),
		hub:         hub,
		buffer:      buffer,
		heartbeat:   heartbeat,
	}
}

// Stream
// @Description Server-Sent Events with NEW_LEAD, NEW_BUSINESS and LEAD_STALE notifications. Every event is sent to every client; brokerId lets the client keep its own.
// @Tags Events
// @Produce text/event-stream
// @Security BearerAuth
// @Param access_token query string false "Bearer token for clients that cannot set headers"
// @Success 200 {string} string "event stream"
// @Failure 401 {object} dto.APIResponse
// @Router /api/v1/events [get]
func (h *EventHandler) Stream(c fiber.Ctx) error {
	actor, ok := h.actor(c)
	if !ok {
		return h.authenticationRequired(c)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(h.buffer)
	logger := h.logger.With(zap.String("user_id", actor.ID.String()))
	logger.Debug("event stream opened")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()
		defer logger.Debug("event stream closed")

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		if _, err := w.WriteString(": connected\n\n"); err != nil {
			return
		}
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": heartbeat\n\n"); err != nil {
					return
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}

func writeEvent(w *bufio.Writer, event dto.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
