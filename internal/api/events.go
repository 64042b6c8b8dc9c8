package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dlots/foreman/internal/journal"
	"github.com/dlots/foreman/internal/model"
)

// listEventsResponse is the JSON response for GET /v1/events.
type listEventsResponse struct {
	Events []model.Event `json:"events"`
	Count  int           `json:"count"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", journal.DefaultListLimit)

	events, err := s.jnl.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list events", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	s.writeJSON(w, http.StatusOK, listEventsResponse{
		Events: events,
		Count:  len(events),
	})
}

// handleStreamEvents streams lifecycle events over SSE as they happen. The
// stream ends when the broker is closed at shutdown or when the client
// disconnects.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Disable write timeout for long-lived SSE connections.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		s.logger.Error("set write deadline for SSE", "error", err)
	}

	ch, unsub := s.broker.Subscribe()
	defer unsub()

	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)
	if canFlush {
		flusher.Flush()
	}

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				// Shutdown: send an explicit done event before closing.
				_ = writeSSEEvent(w, "done", "stream complete")
				if canFlush {
					flusher.Flush()
				}
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("marshal event for SSE", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return // Write failed (e.g. client gone).
			}
			if canFlush {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return // Client disconnected.
		}
	}
}

// writeSSEEvent writes a named SSE event (event: <type>\ndata: <data>\n\n).
func writeSSEEvent(w http.ResponseWriter, eventType, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventType); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
