package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/turnosmed/api-turnos/internal/stream"
)

const streamHeartbeat = 25 * time.Second

// StreamHandler serves the live turnos feed over Server-Sent Events.
type StreamHandler struct {
	Hub *stream.Hub
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(h *stream.Hub) *StreamHandler {
	if h == nil {
		panic("nil hub passed to NewStreamHandler")
	}
	return &StreamHandler{Hub: h}
}

// Events handles GET /turnos/stream.  Each broadcast envelope is written
// as one SSE message whose event name is the envelope topic, so browser
// clients can addEventListener("turno:created", ...) directly.
func (s *StreamHandler) Events(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ch := s.Hub.Subscribe()
	defer s.Hub.Unsubscribe(ch)

	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventName(payload), payload); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// eventName extracts the topic from a broadcast envelope, falling back
// to a generic name for payloads that do not parse.
func eventName(payload []byte) string {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &env); err != nil || env.Event == "" {
		return "message"
	}
	return env.Event
}
