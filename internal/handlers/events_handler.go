package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"screenpoints/internal/analytics"
	"screenpoints/internal/models"
)

// EventsHandler ingests raw telemetry from the host app
type EventsHandler struct {
	eventService *analytics.EventService
	logger       *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(eventService *analytics.EventService, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{eventService: eventService, logger: logger}
}

type rawEventRequest struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	SessionID   string            `json:"session_id"`
	Kind        string            `json:"kind"`
	Payload     json.RawMessage   `json:"payload"`
	OccurredAt  time.Time         `json:"occurred_at"`
	AppVersion  string            `json:"app_version"`
	OSVersion   string            `json:"os_version"`
	DeviceModel string            `json:"device_model"`
	Metadata    map[string]string `json:"metadata"`
}

type ingestRequest struct {
	Events []rawEventRequest `json:"events"`
}

type ingestResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// Ingest handles POST /api/events. Events are accepted individually; one
// malformed event does not fail the batch.
func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if len(req.Events) == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "no events"})
		return
	}

	var resp ingestResponse
	for _, re := range req.Events {
		payload, err := models.DecodePayload(models.EventKind(re.Kind), re.Payload)
		if err != nil {
			h.logger.Debug("event rejected", zap.String("kind", re.Kind), zap.Error(err))
			resp.Rejected++
			continue
		}

		err = h.eventService.Ingest(&models.RawEvent{
			ID:          re.ID,
			UserID:      re.UserID,
			SessionID:   re.SessionID,
			Payload:     payload,
			OccurredAt:  re.OccurredAt,
			AppVersion:  re.AppVersion,
			OSVersion:   re.OSVersion,
			DeviceModel: re.DeviceModel,
			Metadata:    re.Metadata,
		})
		if err != nil {
			h.logger.Warn("event ingest failed", zap.String("kind", re.Kind), zap.Error(err))
			resp.Rejected++
			continue
		}
		resp.Accepted++
	}

	respondJSON(w, http.StatusOK, resp)
}
