package models

import "time"

// WindowKind is the granularity of an aggregation window
type WindowKind string

const (
	WindowDay   WindowKind = "day"
	WindowWeek  WindowKind = "week"
	WindowMonth WindowKind = "month"
)

// Window is a fixed, non-overlapping aggregation interval. Start is always
// normalized to UTC: midnight for days, Monday midnight for weeks, the first
// of the month for months.
type Window struct {
	Kind  WindowKind
	Start time.Time
}

// WindowFor returns the window of the given kind containing t
func WindowFor(kind WindowKind, t time.Time) Window {
	t = t.UTC()
	var start time.Time
	switch kind {
	case WindowWeek:
		day := t.Truncate(24 * time.Hour)
		// time.Weekday starts on Sunday; shift so Monday is day zero
		offset := (int(day.Weekday()) + 6) % 7
		start = day.AddDate(0, 0, -offset)
	case WindowMonth:
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		start = t.Truncate(24 * time.Hour)
	}
	return Window{Kind: kind, Start: start}
}

// End returns the exclusive end of the window
func (w Window) End() time.Time {
	switch w.Kind {
	case WindowWeek:
		return w.Start.AddDate(0, 0, 7)
	case WindowMonth:
		return w.Start.AddDate(0, 1, 0)
	default:
		return w.Start.AddDate(0, 0, 1)
	}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(w.Start) && t.Before(w.End())
}

// ClosedAt reports whether the window has fully elapsed at the given time
func (w Window) ClosedAt(now time.Time) bool {
	return !now.UTC().Before(w.End())
}

// RetentionMetrics describes how much of a window's new-user cohort came back
type RetentionMetrics struct {
	CohortSize int
	Day1       float64
	Day7       float64
	Day30      float64
}

// PerformanceMetrics summarizes app health over a window. Sample counts
// record how many events contributed to each average; events without the
// relevant field are excluded, not treated as zero.
type PerformanceMetrics struct {
	AvgLaunchTimeMs   float64
	LaunchSamples     int
	SessionCount      int
	CrashCount        int
	CrashRate         float64
	AvgBatteryImpact  float64
	BatterySamples    int
	AvgMemoryMB       float64
	PeakMemoryMB      float64
	MemoryGrowthMBHr  float64
	MemorySamples     int
}

// AggregatedMetrics is one privacy-safe summary record per window. Recomputing
// a window replaces the record wholesale; totals are never merged into.
type AggregatedMetrics struct {
	Window       Window
	EventCount   int
	FeatureUsage map[string]int
	Retention    RetentionMetrics
	Performance  PerformanceMetrics
	ComputedAt   time.Time
}
