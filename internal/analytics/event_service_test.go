package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
)

type fakeSink struct {
	events []*models.AnonymizedEvent
	err    error
}

func (f *fakeSink) InsertEvent(e *models.AnonymizedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

func newTestEventService(t *testing.T, sink *fakeSink) *EventService {
	t.Helper()
	anonymizer, err := NewAnonymizer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewEventService(anonymizer, sink, zap.NewNop(), metrics.New())
}

func TestIngestStoresAnonymizedEvent(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestEventService(t, sink)

	err := svc.Ingest(&models.RawEvent{
		ID:          "ev-1",
		UserID:      "user-42",
		SessionID:   "session-1",
		Payload:     models.FeatureUsed{Feature: "reward_browser"},
		OccurredAt:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		DeviceModel: "iPad13,4",
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	stored := sink.events[0]
	assert.Equal(t, "ev-1", stored.ID)
	assert.NotEqual(t, "user-42", stored.Pseudonym)
	assert.NotEmpty(t, stored.Pseudonym)
	assert.Equal(t, models.DeviceIPad, stored.DeviceClass)
}

func TestIngestRequiresUser(t *testing.T) {
	svc := newTestEventService(t, &fakeSink{})

	err := svc.Ingest(&models.RawEvent{Payload: models.CrashReported{}})
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestIngestRequiresPayload(t *testing.T) {
	svc := newTestEventService(t, &fakeSink{})

	err := svc.Ingest(&models.RawEvent{UserID: "user-42"})
	assert.Error(t, err)
}

func TestIngestDefaultsIDAndTimestamp(t *testing.T) {
	sink := &fakeSink{}
	svc := newTestEventService(t, sink)

	err := svc.Ingest(&models.RawEvent{
		UserID:  "user-42",
		Payload: models.SessionStarted{},
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	assert.NotEmpty(t, sink.events[0].ID)
	assert.False(t, sink.events[0].OccurredAt.IsZero())
}
