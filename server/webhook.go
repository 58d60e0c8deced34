package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	raffle "github.com/streamraffle/go-raffle"
	"github.com/streamraffle/go-raffle/models"
	"github.com/streamraffle/go-raffle/services"
)

const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
)

const maxWebhookBodyBytes = 1 << 20

// handleWebhook receives signed deliveries from the event platform. The raw
// body is captured before any parsing: the signature covers the exact bytes
// on the wire, and re-serializing first would break verification.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	messageID := r.Header.Get(HeaderMessageID)
	timestamp := r.Header.Get(HeaderMessageTimestamp)
	signature := r.Header.Get(HeaderMessageSignature)
	messageType := r.Header.Get(HeaderMessageType)
	if len(messageID) == 0 || len(timestamp) == 0 || len(signature) == 0 || len(messageType) == 0 {
		s.metricService.Count(r.Context(), models.MetricName_WebhookRejected, 1)
		http.Error(w, "missing signature headers", http.StatusBadRequest)
		return
	}

	if !s.verifier.Verify(messageID, timestamp, body, signature) {
		s.logger.Infof("webhook: rejecting delivery %s with bad signature", messageID)
		s.metricService.Count(r.Context(), models.MetricName_WebhookRejected, 1)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	// Replay defense: the platform timestamps every delivery, and anything
	// older than the documented window is treated as a replay.
	sentAt, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		s.metricService.Count(r.Context(), models.MetricName_WebhookMalformed, 1)
		http.Error(w, "invalid timestamp", http.StatusBadRequest)
		return
	}
	if time.Since(sentAt) > raffle.MaxMessageAge {
		s.logger.Infof("webhook: rejecting replayed delivery %s from %s", messageID, timestamp)
		s.metricService.Count(r.Context(), models.MetricName_WebhookRejected, 1)
		http.Error(w, "message too old", http.StatusForbidden)
		return
	}

	s.metricService.Count(r.Context(), models.MetricName_WebhookAdmitted, 1)

	response, err := s.dispatcher.Dispatch(r.Context(), models.MessageType(messageType), body)
	if err != nil {
		if errors.Is(err, services.ErrMalformedPayload) {
			s.metricService.Count(r.Context(), models.MetricName_WebhookMalformed, 1)
			http.Error(w, "malformed payload", http.StatusBadRequest)
			return
		}
		s.logger.Errorf("webhook: dispatch failed for delivery %s: %v", messageID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(response))
}
