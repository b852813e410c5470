package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
)

var ErrWindowOpen = errors.New("window has not closed yet")

// EventStore is the event persistence the scheduler reads from and flags
type EventStore interface {
	ListWindow(start, end time.Time) ([]models.AnonymizedEvent, error)
	PseudonymsBefore(t time.Time) (map[string]struct{}, error)
	ActivePseudonymsBetween(start, end time.Time) (map[string]struct{}, error)
	MarkAggregated(kind models.WindowKind, start, end time.Time) error
	PurgeAggregated(before time.Time) (int64, error)
}

// MetricsStore is where computed window records land
type MetricsStore interface {
	ReplaceMetrics(m *models.AggregatedMetrics) error
}

// how many recent closed windows each run recomputes, so late-arriving
// events are absorbed by the replace semantics of the metrics store
var recomputeDepth = map[models.WindowKind]int{
	models.WindowDay:   3,
	models.WindowWeek:  2,
	models.WindowMonth: 2,
}

// follow-up days the retention fractions are measured over. A window is
// recomputed once more as each of these days closes; its day-N fraction is
// zero until then because the activity it measures has not happened yet.
var retentionFollowUps = []int{1, 7, 30}

// Scheduler drives the aggregation and purge jobs on cron schedules. Only
// closed windows are aggregated; an open window is deferred to a later run.
type Scheduler struct {
	engine    *Engine
	events    EventStore
	store     MetricsStore
	retention time.Duration
	cron      *cron.Cron
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewScheduler creates a new aggregation scheduler
func NewScheduler(engine *Engine, events EventStore, store MetricsStore, retention time.Duration, logger *zap.Logger, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		engine:    engine,
		events:    events,
		store:     store,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
		metrics:   m,
	}
}

// Start registers the cron jobs and begins running them
func (s *Scheduler) Start(aggregationSchedule, purgeSchedule string) error {
	if _, err := s.cron.AddFunc(aggregationSchedule, func() {
		if err := s.RunAggregation(time.Now()); err != nil {
			s.logger.Error("aggregation run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid aggregation schedule %q: %w", aggregationSchedule, err)
	}

	if _, err := s.cron.AddFunc(purgeSchedule, func() {
		if err := s.RunPurge(time.Now()); err != nil {
			s.logger.Error("purge run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", purgeSchedule, err)
	}

	s.cron.Start()
	s.logger.Info("aggregation scheduler started",
		zap.String("aggregation", aggregationSchedule),
		zap.String("purge", purgeSchedule))
	return nil
}

// Stop halts the cron runner, waiting for any running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunAggregation recomputes the recent closed windows of every granularity,
// plus the older windows whose retention follow-up days have just closed
func (s *Scheduler) RunAggregation(now time.Time) error {
	started := time.Now()
	defer func() {
		s.metrics.AggregationDuration.Observe(time.Since(started).Seconds())
	}()

	var firstErr error
	for _, kind := range []models.WindowKind{models.WindowDay, models.WindowWeek, models.WindowMonth} {
		for _, window := range aggregationWindows(kind, now) {
			if err := s.AggregateWindow(window, now); err != nil {
				s.logger.Error("window aggregation failed",
					zap.String("kind", string(kind)),
					zap.Time("start", window.Start),
					zap.Error(err))
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// AggregateWindow computes and stores the record for one window, then flags
// its events as aggregated at that granularity. Open windows are refused.
func (s *Scheduler) AggregateWindow(window models.Window, now time.Time) error {
	if !window.ClosedAt(now) {
		return ErrWindowOpen
	}

	end := window.End()
	events, err := s.events.ListWindow(window.Start, end)
	if err != nil {
		return err
	}

	retention, err := s.retentionInputs(window)
	if err != nil {
		return err
	}

	record := s.engine.Aggregate(window, events, retention, now)
	if err := s.store.ReplaceMetrics(record); err != nil {
		return err
	}
	if err := s.events.MarkAggregated(window.Kind, window.Start, end); err != nil {
		return err
	}

	s.metrics.AggregationRuns.WithLabelValues(string(window.Kind)).Inc()
	s.logger.Info("window aggregated",
		zap.String("kind", string(window.Kind)),
		zap.Time("start", window.Start),
		zap.Int("events", record.EventCount),
		zap.Int("cohort", record.Retention.CohortSize))
	return nil
}

// RunPurge deletes events past the retention floor that every granularity has
// already aggregated
func (s *Scheduler) RunPurge(now time.Time) error {
	cutoff := now.UTC().Add(-s.retention)
	purged, err := s.events.PurgeAggregated(cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.metrics.EventsPurged.Add(float64(purged))
		s.logger.Info("aggregated events purged",
			zap.Int64("count", purged),
			zap.Time("cutoff", cutoff))
	}
	return nil
}

// retentionInputs assembles the pseudonym sets for a window's cohort. Day-N
// activity is measured on the Nth day after the window closes; sets for days
// still in the future come back empty and the fractions stay at zero until a
// later recompute.
func (s *Scheduler) retentionInputs(window models.Window) (RetentionInputs, error) {
	end := window.End()

	prior, err := s.events.PseudonymsBefore(window.Start)
	if err != nil {
		return RetentionInputs{}, err
	}

	inputs := RetentionInputs{Prior: prior}
	for _, followUp := range []struct {
		day int
		set *map[string]struct{}
	}{
		{1, &inputs.Day1},
		{7, &inputs.Day7},
		{30, &inputs.Day30},
	} {
		start := end.AddDate(0, 0, followUp.day-1)
		active, err := s.events.ActivePseudonymsBetween(start, start.AddDate(0, 0, 1))
		if err != nil {
			return RetentionInputs{}, err
		}
		*followUp.set = active
	}
	return inputs, nil
}

// aggregationWindows returns the windows of a kind due for computation at
// now, oldest first: the newest closed windows plus, per retention follow-up
// day, the window whose day-N follow-up has just closed. The follow-up
// recomputes happen long after a window leaves the recent set; without them
// the day-7 and day-30 fractions of a day window would stay frozen at zero.
func aggregationWindows(kind models.WindowKind, now time.Time) []models.Window {
	seen := make(map[int64]struct{})
	var windows []models.Window
	add := func(w models.Window) {
		key := w.Start.Unix()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		windows = append(windows, w)
	}

	for _, w := range recentClosedWindows(kind, now) {
		add(w)
	}
	for _, days := range retentionFollowUps {
		if w, ok := followUpClosedWindow(kind, days, now); ok {
			add(w)
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})
	return windows
}

// followUpClosedWindow finds the newest window of a kind whose day-N
// follow-up day has fully closed, walking back from the current window.
// Day windows step back one day per window, so the walk is capped just past
// the follow-up horizon.
func followUpClosedWindow(kind models.WindowKind, followUpDays int, now time.Time) (models.Window, bool) {
	window := models.WindowFor(kind, now)
	for i := 0; i <= followUpDays+2; i++ {
		if !now.Before(window.End().AddDate(0, 0, followUpDays)) {
			return window, true
		}
		window = previousWindow(window)
	}
	return models.Window{}, false
}

// recentClosedWindows returns the newest closed windows of a kind, oldest
// first, as deep as the recompute depth for that kind.
func recentClosedWindows(kind models.WindowKind, now time.Time) []models.Window {
	window := models.WindowFor(kind, now)
	if !window.ClosedAt(now) {
		window = previousWindow(window)
	}

	depth := recomputeDepth[kind]
	windows := make([]models.Window, 0, depth)
	for i := 0; i < depth; i++ {
		windows = append(windows, window)
		window = previousWindow(window)
	}

	// oldest first so later windows see fully-updated prior state
	for i, j := 0, len(windows)-1; i < j; i, j = i+1, j-1 {
		windows[i], windows[j] = windows[j], windows[i]
	}
	return windows
}

func previousWindow(w models.Window) models.Window {
	switch w.Kind {
	case models.WindowWeek:
		return models.Window{Kind: w.Kind, Start: w.Start.AddDate(0, 0, -7)}
	case models.WindowMonth:
		return models.Window{Kind: w.Kind, Start: w.Start.AddDate(0, -1, 0)}
	default:
		return models.Window{Kind: w.Kind, Start: w.Start.AddDate(0, 0, -1)}
	}
}
