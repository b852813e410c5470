package models

import (
	"testing"
	"time"
)

func TestWindowFor(t *testing.T) {
	// 2026-03-15 is a Sunday
	ref := time.Date(2026, 3, 15, 13, 45, 12, 0, time.UTC)

	tests := []struct {
		name      string
		kind      WindowKind
		at        time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "day truncates to midnight",
			kind:      WindowDay,
			at:        ref,
			wantStart: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "week starts on monday",
			kind:      WindowWeek,
			at:        ref,
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "monday maps to its own week",
			kind:      WindowWeek,
			at:        time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "month starts on the first",
			kind:      WindowMonth,
			at:        ref,
			wantStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "non-utc input is normalized",
			kind:      WindowDay,
			at:        time.Date(2026, 3, 15, 22, 0, 0, 0, time.FixedZone("behind", -5*3600)),
			wantStart: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowFor(tt.kind, tt.at)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Start = %v, want %v", w.Start, tt.wantStart)
			}
			if !w.End().Equal(tt.wantEnd) {
				t.Errorf("End() = %v, want %v", w.End(), tt.wantEnd)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := WindowFor(WindowDay, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	tests := []struct {
		name     string
		at       time.Time
		expected bool
	}{
		{
			name:     "start is inclusive",
			at:       w.Start,
			expected: true,
		},
		{
			name:     "middle of window",
			at:       w.Start.Add(12 * time.Hour),
			expected: true,
		},
		{
			name:     "end is exclusive",
			at:       w.End(),
			expected: false,
		},
		{
			name:     "before window",
			at:       w.Start.Add(-time.Second),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.at); got != tt.expected {
				t.Errorf("Contains(%v) = %v, want %v", tt.at, got, tt.expected)
			}
		})
	}
}

func TestWindowClosedAt(t *testing.T) {
	w := WindowFor(WindowDay, time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	if w.ClosedAt(w.End().Add(-time.Second)) {
		t.Error("window should still be open just before its end")
	}
	if !w.ClosedAt(w.End()) {
		t.Error("window should be closed exactly at its end")
	}
	if !w.ClosedAt(w.End().Add(time.Hour)) {
		t.Error("window should be closed after its end")
	}
}
