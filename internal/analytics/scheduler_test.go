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

type fakeEventStore struct {
	events      []models.AnonymizedEvent
	marked      []models.Window
	purgeBefore time.Time
	purged      int64
}

func (f *fakeEventStore) ListWindow(start, end time.Time) ([]models.AnonymizedEvent, error) {
	var result []models.AnonymizedEvent
	for _, e := range f.events {
		if !e.OccurredAt.Before(start) && e.OccurredAt.Before(end) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (f *fakeEventStore) PseudonymsBefore(t time.Time) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, e := range f.events {
		if e.OccurredAt.Before(t) {
			set[e.Pseudonym] = struct{}{}
		}
	}
	return set, nil
}

func (f *fakeEventStore) ActivePseudonymsBetween(start, end time.Time) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, e := range f.events {
		if !e.OccurredAt.Before(start) && e.OccurredAt.Before(end) {
			set[e.Pseudonym] = struct{}{}
		}
	}
	return set, nil
}

func (f *fakeEventStore) MarkAggregated(kind models.WindowKind, start, end time.Time) error {
	f.marked = append(f.marked, models.Window{Kind: kind, Start: start})
	return nil
}

func (f *fakeEventStore) PurgeAggregated(before time.Time) (int64, error) {
	f.purgeBefore = before
	return f.purged, nil
}

type fakeMetricsStore struct {
	records []*models.AggregatedMetrics
}

func (f *fakeMetricsStore) ReplaceMetrics(m *models.AggregatedMetrics) error {
	f.records = append(f.records, m)
	return nil
}

func newTestScheduler(events *fakeEventStore, store *fakeMetricsStore) *Scheduler {
	return NewScheduler(NewEngine(), events, store, 90*24*time.Hour, zap.NewNop(), metrics.New())
}

func TestAggregateWindowRefusesOpenWindow(t *testing.T) {
	events := &fakeEventStore{}
	store := &fakeMetricsStore{}
	s := newTestScheduler(events, store)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	window := models.WindowFor(models.WindowDay, now)

	err := s.AggregateWindow(window, now)
	require.ErrorIs(t, err, ErrWindowOpen)
	assert.Empty(t, store.records)
	assert.Empty(t, events.marked)
}

func TestAggregateWindowStoresThenMarks(t *testing.T) {
	now := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	window := models.WindowFor(models.WindowDay, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	events := &fakeEventStore{events: []models.AnonymizedEvent{
		{ID: "e1", Pseudonym: "p1", SessionToken: "s1", Payload: models.FeatureUsed{Feature: "x"}, OccurredAt: window.Start.Add(time.Hour)},
		{ID: "e2", Pseudonym: "p2", SessionToken: "s2", Payload: models.CrashReported{}, OccurredAt: window.Start.Add(2 * time.Hour)},
	}}
	store := &fakeMetricsStore{}
	s := newTestScheduler(events, store)

	err := s.AggregateWindow(window, now)
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	record := store.records[0]
	assert.Equal(t, window, record.Window)
	assert.Equal(t, 2, record.EventCount)
	assert.Equal(t, now, record.ComputedAt)

	require.Len(t, events.marked, 1)
	assert.Equal(t, models.WindowDay, events.marked[0].Kind)
	assert.True(t, events.marked[0].Start.Equal(window.Start))
}

func TestAggregateWindowRecomputeReplaces(t *testing.T) {
	now := time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	window := models.WindowFor(models.WindowDay, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	events := &fakeEventStore{events: []models.AnonymizedEvent{
		{ID: "e1", Pseudonym: "p1", Payload: models.FeatureUsed{Feature: "x"}, OccurredAt: window.Start.Add(time.Hour)},
	}}
	store := &fakeMetricsStore{}
	s := newTestScheduler(events, store)

	require.NoError(t, s.AggregateWindow(window, now))

	// a late event arrives, then the window is recomputed
	events.events = append(events.events, models.AnonymizedEvent{
		ID: "e2", Pseudonym: "p2", Payload: models.FeatureUsed{Feature: "x"}, OccurredAt: window.Start.Add(3 * time.Hour),
	})
	require.NoError(t, s.AggregateWindow(window, now.Add(time.Hour)))

	require.Len(t, store.records, 2)
	assert.Equal(t, 1, store.records[0].EventCount)
	assert.Equal(t, 2, store.records[1].EventCount)
}

func TestRecentClosedWindowsOldestFirst(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	windows := recentClosedWindows(models.WindowDay, now)
	require.Len(t, windows, 3)
	assert.True(t, windows[0].Start.Equal(time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)))
	assert.True(t, windows[1].Start.Equal(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC)))
	assert.True(t, windows[2].Start.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)))
	for _, w := range windows {
		assert.True(t, w.ClosedAt(now), "window starting %v should be closed", w.Start)
	}
}

func TestRecentClosedWindowsWeekAndMonth(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	weeks := recentClosedWindows(models.WindowWeek, now)
	require.Len(t, weeks, 2)
	// 2026-03-09 is a Monday, so the latest closed week starts 2026-03-02
	assert.True(t, weeks[1].Start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))

	months := recentClosedWindows(models.WindowMonth, now)
	require.Len(t, months, 2)
	assert.True(t, months[1].Start.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, months[0].Start.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRunPurgeUsesRetentionCutoff(t *testing.T) {
	events := &fakeEventStore{purged: 12}
	store := &fakeMetricsStore{}
	s := newTestScheduler(events, store)

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunPurge(now))

	expected := now.Add(-90 * 24 * time.Hour)
	assert.True(t, events.purgeBefore.Equal(expected), "cutoff = %v, want %v", events.purgeBefore, expected)
}

func TestAggregationWindowsIncludeRetentionFollowUps(t *testing.T) {
	now := time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

	windows := aggregationWindows(models.WindowDay, now)

	// the Apr 12 window's day-7 follow-up closed at Apr 20 00:00
	assert.True(t, containsStart(windows, time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)))
	// the Mar 20 window's day-30 follow-up closed at Apr 20 00:00
	assert.True(t, containsStart(windows, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)))
	for i := 1; i < len(windows); i++ {
		assert.True(t, windows[i-1].Start.Before(windows[i].Start), "windows must be oldest first")
	}
}

func containsStart(windows []models.Window, start time.Time) bool {
	for _, w := range windows {
		if w.Start.Equal(start) {
			return true
		}
	}
	return false
}

func TestRunAggregationRefreshesRetentionAfterFollowUps(t *testing.T) {
	window := models.WindowFor(models.WindowDay, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	end := window.End()

	// one new user, active in the window and returning on days 7 and 30
	arrivals := []models.AnonymizedEvent{
		{ID: "e1", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: window.Start.Add(time.Hour)},
		{ID: "e2", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: end.AddDate(0, 0, 6).Add(time.Hour)},
		{ID: "e3", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: end.AddDate(0, 0, 29).Add(time.Hour)},
	}

	events := &fakeEventStore{}
	store := &fakeMetricsStore{}
	s := newTestScheduler(events, store)

	// run the daily job for a month, feeding each event in as it occurs
	for day := 0; day <= 31; day++ {
		now := end.AddDate(0, 0, day).Add(15 * time.Minute)
		for _, e := range arrivals {
			if e.OccurredAt.Before(now) && !hasEvent(events, e.ID) {
				events.events = append(events.events, e)
			}
		}
		require.NoError(t, s.RunAggregation(now))
	}

	record := lastRecordFor(store, window)
	require.NotNil(t, record, "window was never aggregated")
	assert.Equal(t, 1, record.Retention.CohortSize)
	assert.Equal(t, 0.0, record.Retention.Day1)
	assert.Equal(t, 1.0, record.Retention.Day7, "day-7 return must survive the last recompute")
	assert.Equal(t, 1.0, record.Retention.Day30, "day-30 return must survive the last recompute")
}

func hasEvent(f *fakeEventStore, id string) bool {
	for _, e := range f.events {
		if e.ID == id {
			return true
		}
	}
	return false
}

func lastRecordFor(store *fakeMetricsStore, window models.Window) *models.AggregatedMetrics {
	var last *models.AggregatedMetrics
	for _, r := range store.records {
		if r.Window.Kind == window.Kind && r.Window.Start.Equal(window.Start) {
			last = r
		}
	}
	return last
}

func TestRetentionInputsFollowUpDays(t *testing.T) {
	window := models.WindowFor(models.WindowDay, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	end := window.End()

	events := &fakeEventStore{events: []models.AnonymizedEvent{
		{ID: "e0", Pseudonym: "veteran", Payload: models.SessionStarted{}, OccurredAt: window.Start.Add(-48 * time.Hour)},
		{ID: "e1", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: window.Start.Add(time.Hour)},
		{ID: "e2", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: end.Add(2 * time.Hour)},
		{ID: "e3", Pseudonym: "fresh", Payload: models.SessionStarted{}, OccurredAt: end.AddDate(0, 0, 6).Add(time.Hour)},
	}}
	s := newTestScheduler(events, &fakeMetricsStore{})

	inputs, err := s.retentionInputs(window)
	require.NoError(t, err)

	assert.Contains(t, inputs.Prior, "veteran")
	assert.NotContains(t, inputs.Prior, "fresh")
	assert.Contains(t, inputs.Day1, "fresh", "activity on the day after the window counts as day 1")
	assert.Contains(t, inputs.Day7, "fresh")
	assert.Empty(t, inputs.Day30)
}
