package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenpoints/internal/models"
)

func dayWindow() models.Window {
	return models.WindowFor(models.WindowDay, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
}

func event(pseudonym, session string, at time.Time, payload models.EventPayload) models.AnonymizedEvent {
	return models.AnonymizedEvent{
		ID:           pseudonym + at.Format("150405"),
		Pseudonym:    pseudonym,
		SessionToken: session,
		Payload:      payload,
		OccurredAt:   at,
	}
}

func TestAggregateFeatureUsage(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(2 * time.Hour)
	events := []models.AnonymizedEvent{
		event("p1", "s1", at, models.FeatureUsed{Feature: "reward_browser"}),
		event("p1", "s1", at.Add(time.Minute), models.FeatureUsed{Feature: "reward_browser"}),
		event("p2", "s2", at, models.FeatureUsed{Feature: "balance_check"}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.Equal(t, 3, m.EventCount)
	assert.Equal(t, map[string]int{"reward_browser": 2, "balance_check": 1}, m.FeatureUsage)
}

func TestAggregateSkipsEventsOutsideWindow(t *testing.T) {
	window := dayWindow()
	events := []models.AnonymizedEvent{
		event("p1", "s1", window.Start.Add(-time.Second), models.FeatureUsed{Feature: "early"}),
		event("p1", "s1", window.End(), models.FeatureUsed{Feature: "late"}),
		event("p1", "s1", window.Start, models.FeatureUsed{Feature: "on_time"}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.Equal(t, 1, m.EventCount)
	assert.Equal(t, map[string]int{"on_time": 1}, m.FeatureUsage)
}

func TestAggregatePerformanceAverages(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(time.Hour)
	events := []models.AnonymizedEvent{
		event("p1", "s1", at, models.AppLaunched{LaunchTimeMs: 400}),
		event("p2", "s2", at, models.AppLaunched{LaunchTimeMs: 600}),
		event("p1", "s1", at, models.BatterySampled{Impact: 2}),
		// feature events carry no performance fields and must not dilute averages
		event("p1", "s1", at, models.FeatureUsed{Feature: "x"}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.Equal(t, 500.0, m.Performance.AvgLaunchTimeMs)
	assert.Equal(t, 2, m.Performance.LaunchSamples)
	assert.Equal(t, 2.0, m.Performance.AvgBatteryImpact)
	assert.Equal(t, 1, m.Performance.BatterySamples)
}

func TestAggregateCrashRate(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(time.Hour)
	events := []models.AnonymizedEvent{
		event("p1", "s1", at, models.SessionStarted{}),
		event("p2", "s2", at, models.SessionStarted{}),
		event("p3", "s3", at, models.SessionStarted{}),
		event("p4", "s4", at, models.SessionStarted{}),
		event("p1", "s1", at.Add(time.Minute), models.CrashReported{}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.Equal(t, 4, m.Performance.SessionCount)
	assert.Equal(t, 1, m.Performance.CrashCount)
	assert.InDelta(t, 0.25, m.Performance.CrashRate, 1e-9)
}

func TestAggregateMemoryGrowth(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(time.Hour)
	events := []models.AnonymizedEvent{
		event("p1", "s1", at, models.MemorySampled{AverageMB: 100, PeakMB: 120}),
		event("p1", "s1", at.Add(2*time.Hour), models.MemorySampled{AverageMB: 120, PeakMB: 150}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.InDelta(t, 10.0, m.Performance.MemoryGrowthMBHr, 1e-9)
	assert.Equal(t, 150.0, m.Performance.PeakMemoryMB)
	assert.InDelta(t, 110.0, m.Performance.AvgMemoryMB, 1e-9)
}

func TestAggregateMemoryGrowthNeedsTwoSamples(t *testing.T) {
	window := dayWindow()
	events := []models.AnonymizedEvent{
		event("p1", "s1", window.Start.Add(time.Hour), models.MemorySampled{AverageMB: 100, PeakMB: 120}),
	}

	m := NewEngine().Aggregate(window, events, RetentionInputs{}, time.Now())

	assert.Zero(t, m.Performance.MemoryGrowthMBHr)
}

func TestAggregateRetention(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(time.Hour)
	events := []models.AnonymizedEvent{
		event("new1", "s1", at, models.SessionStarted{}),
		event("new2", "s2", at, models.SessionStarted{}),
		event("old1", "s3", at, models.SessionStarted{}),
	}
	retention := RetentionInputs{
		Prior: map[string]struct{}{"old1": {}},
		Day1:  map[string]struct{}{"new1": {}, "old1": {}},
		Day7:  map[string]struct{}{"new1": {}, "new2": {}},
	}

	m := NewEngine().Aggregate(window, events, retention, time.Now())

	require.Equal(t, 2, m.Retention.CohortSize, "cohort is window users not seen before")
	assert.InDelta(t, 0.5, m.Retention.Day1, 1e-9)
	assert.InDelta(t, 1.0, m.Retention.Day7, 1e-9)
	assert.Zero(t, m.Retention.Day30)
}

func TestAggregateEmptyCohort(t *testing.T) {
	window := dayWindow()
	m := NewEngine().Aggregate(window, nil, RetentionInputs{}, time.Now())

	assert.Zero(t, m.Retention.CohortSize)
	assert.Zero(t, m.Retention.Day1)
	assert.Zero(t, m.EventCount)
}

func TestAggregateDeterministic(t *testing.T) {
	window := dayWindow()
	at := window.Start.Add(time.Hour)
	events := []models.AnonymizedEvent{
		event("p1", "s1", at, models.FeatureUsed{Feature: "a"}),
		event("p2", "s2", at, models.AppLaunched{LaunchTimeMs: 300}),
		event("p1", "s1", at.Add(time.Hour), models.MemorySampled{AverageMB: 90, PeakMB: 95}),
		event("p1", "s1", at.Add(2*time.Hour), models.MemorySampled{AverageMB: 100, PeakMB: 110}),
	}
	retention := RetentionInputs{Day1: map[string]struct{}{"p1": {}}}
	computedAt := time.Date(2026, 3, 12, 6, 0, 0, 0, time.UTC)

	engine := NewEngine()
	first := engine.Aggregate(window, events, retention, computedAt)
	second := engine.Aggregate(window, events, retention, computedAt)

	assert.Equal(t, first, second)
}
