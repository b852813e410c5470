package models

import "time"

// Child represents a child profile in the system
type Child struct {
	ID           int64
	ParentID     int64
	Name         string
	AvatarColor  string
	PointBalance int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ChildWithStats combines a child with their ledger statistics
type ChildWithStats struct {
	Child           Child
	TotalEarned     int
	TotalSpent      int
	SessionCount    int
	RedemptionCount int
}
