package service

import "screenpoints/internal/models"

// PointsCalculator converts measured screen time into points earned using
// the static category catalog. It is pure: no state, no error conditions.
type PointsCalculator struct{}

// NewPointsCalculator creates a new points calculator
func NewPointsCalculator() *PointsCalculator {
	return &PointsCalculator{}
}

// ComputePoints returns the points earned for a session duration in the
// given category: floor(duration in minutes * points per minute).
// Zero duration or a zero-rate category yields zero.
func (c *PointsCalculator) ComputePoints(durationSeconds int, category models.AppCategory) int {
	if durationSeconds <= 0 {
		return 0
	}
	return durationSeconds * category.PointsPerMinute() / 60
}
