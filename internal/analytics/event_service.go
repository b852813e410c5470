package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
)

var ErrMissingUser = errors.New("event has no user ID")

// EventSink is where anonymized events are persisted
type EventSink interface {
	InsertEvent(e *models.AnonymizedEvent) error
}

// EventService ingests raw telemetry: anonymize first, then store. The raw
// event never touches the sink.
type EventService struct {
	anonymizer *Anonymizer
	sink       EventSink
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewEventService creates a new event ingestion service
func NewEventService(anonymizer *Anonymizer, sink EventSink, logger *zap.Logger, m *metrics.Metrics) *EventService {
	return &EventService{anonymizer: anonymizer, sink: sink, logger: logger, metrics: m}
}

// Ingest anonymizes and stores one raw event. Event IDs default to a fresh
// UUID; client-supplied IDs make redelivery a no-op.
func (s *EventService) Ingest(raw *models.RawEvent) error {
	if raw.UserID == "" {
		return ErrMissingUser
	}
	if raw.Payload == nil {
		return fmt.Errorf("event has no payload")
	}
	if raw.ID == "" {
		raw.ID = uuid.New().String()
	}
	if raw.OccurredAt.IsZero() {
		raw.OccurredAt = time.Now().UTC()
	}

	event := s.anonymizer.Anonymize(raw)
	if err := s.sink.InsertEvent(event); err != nil {
		return fmt.Errorf("failed to store event: %w", err)
	}

	s.metrics.EventsIngested.Inc()
	s.logger.Debug("event ingested",
		zap.String("kind", string(event.Payload.EventKind())),
		zap.String("device_class", string(event.DeviceClass)))
	return nil
}
