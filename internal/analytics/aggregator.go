package analytics

import (
	"time"

	"screenpoints/internal/models"
)

// RetentionInputs are the pseudonym sets the engine needs to compute cohort
// retention. Prior holds everyone seen before the window; DayN holds everyone
// active on the Nth day after the window closed.
type RetentionInputs struct {
	Prior map[string]struct{}
	Day1  map[string]struct{}
	Day7  map[string]struct{}
	Day30 map[string]struct{}
}

// Engine computes one aggregated metrics record per window. Aggregate is a
// pure function of its inputs: the same events and retention sets always
// produce the same record, so recomputing a window is safe.
type Engine struct{}

// NewEngine creates a new aggregation engine
func NewEngine() *Engine {
	return &Engine{}
}

// Aggregate summarizes a window's events. Only events inside the window
// contribute; averages exclude events without the relevant field rather than
// counting them as zero.
func (e *Engine) Aggregate(window models.Window, events []models.AnonymizedEvent, retention RetentionInputs, computedAt time.Time) *models.AggregatedMetrics {
	m := &models.AggregatedMetrics{
		Window:       window,
		FeatureUsage: make(map[string]int),
		ComputedAt:   computedAt.UTC(),
	}

	var (
		launchSum  float64
		batterySum float64
		memorySum  float64
		crashes    int
		sessions   = make(map[string]struct{})
		cohort     = make(map[string]struct{})
		memSamples []memorySample
	)

	for _, ev := range events {
		if !window.Contains(ev.OccurredAt) {
			continue
		}
		m.EventCount++

		if _, seen := retention.Prior[ev.Pseudonym]; !seen {
			cohort[ev.Pseudonym] = struct{}{}
		}
		if ev.SessionToken != "" {
			sessions[ev.SessionToken] = struct{}{}
		}

		switch p := ev.Payload.(type) {
		case models.FeatureUsed:
			m.FeatureUsage[p.Feature]++
		case models.AppLaunched:
			launchSum += p.LaunchTimeMs
			m.Performance.LaunchSamples++
		case models.BatterySampled:
			batterySum += p.Impact
			m.Performance.BatterySamples++
		case models.MemorySampled:
			memorySum += p.AverageMB
			m.Performance.MemorySamples++
			if p.PeakMB > m.Performance.PeakMemoryMB {
				m.Performance.PeakMemoryMB = p.PeakMB
			}
			memSamples = append(memSamples, memorySample{at: ev.OccurredAt, mb: p.AverageMB})
		case models.CrashReported:
			crashes++
		}
	}

	m.Performance.SessionCount = len(sessions)
	m.Performance.CrashCount = crashes
	if len(sessions) > 0 {
		m.Performance.CrashRate = float64(crashes) / float64(len(sessions))
	}
	if m.Performance.LaunchSamples > 0 {
		m.Performance.AvgLaunchTimeMs = launchSum / float64(m.Performance.LaunchSamples)
	}
	if m.Performance.BatterySamples > 0 {
		m.Performance.AvgBatteryImpact = batterySum / float64(m.Performance.BatterySamples)
	}
	if m.Performance.MemorySamples > 0 {
		m.Performance.AvgMemoryMB = memorySum / float64(m.Performance.MemorySamples)
	}
	m.Performance.MemoryGrowthMBHr = memoryGrowthRate(memSamples)

	m.Retention = retentionMetrics(cohort, retention)
	return m
}

type memorySample struct {
	at time.Time
	mb float64
}

// memoryGrowthRate fits a least-squares line through the memory samples and
// returns its slope in MB per hour. Fewer than two samples means no trend.
func memoryGrowthRate(samples []memorySample) float64 {
	if len(samples) < 2 {
		return 0
	}

	origin := samples[0].at
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range samples {
		x := s.at.Sub(origin).Hours()
		sumX += x
		sumY += s.mb
		sumXY += x * s.mb
		sumXX += x * x
	}

	n := float64(len(samples))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func retentionMetrics(cohort map[string]struct{}, inputs RetentionInputs) models.RetentionMetrics {
	r := models.RetentionMetrics{CohortSize: len(cohort)}
	if len(cohort) == 0 {
		return r
	}
	r.Day1 = returningFraction(cohort, inputs.Day1)
	r.Day7 = returningFraction(cohort, inputs.Day7)
	r.Day30 = returningFraction(cohort, inputs.Day30)
	return r
}

func returningFraction(cohort, active map[string]struct{}) float64 {
	returned := 0
	for p := range cohort {
		if _, ok := active[p]; ok {
			returned++
		}
	}
	return float64(returned) / float64(len(cohort))
}
