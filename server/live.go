package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/streamraffle/go-raffle/models"
)

// handleLive serves one viewer's event stream. The connection registers
// with the hub on open and deregisters synchronously on close, which also
// stops its heartbeats.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if len(channelID) == 0 {
		http.Error(w, "missing channel id", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	conn := s.hub.Register(channelID)
	defer s.hub.Unregister(conn)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	status, err := json.Marshal(models.BroadcastEvent{
		Type:      models.EventType_ConnectionStatus,
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"status": "connected", "channelId": channelID},
	})
	if err != nil {
		s.logger.Errorf("live: failed to serialize connection status: %v", err)
		return
	}
	if err := writeServerSentEvent(w, status); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case data, open := <-conn.Events:
			if !open {
				// Pruned by the hub or the process is shutting down
				return
			}
			if err := writeServerSentEvent(w, data); err != nil {
				s.logger.Debugf("live: dropping connection %s on channel %s: %v", conn.Token, channelID, err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeServerSentEvent(w http.ResponseWriter, data []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
