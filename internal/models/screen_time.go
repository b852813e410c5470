package models

import "time"

// ScreenTimeSession represents one completed usage interval reported by a
// child's device. The ID is generated on the device and is the deduplication
// key for at-least-once delivery.
type ScreenTimeSession struct {
	ID              string
	ChildID         int64
	AppName         string
	Category        AppCategory
	DurationSeconds int
	PointsEarned    int
	OccurredAt      time.Time
	CreatedAt       time.Time
}
