package models

import "time"

// Reward represents something a parent offers in exchange for points
type Reward struct {
	ID          int64
	ParentID    int64
	Title       string
	Description string
	PointCost   int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Redemption records a reward being claimed against a child's balance.
// PointCost is snapshotted at redemption time so later reward edits do not
// rewrite history. Records are append-only.
type Redemption struct {
	ID           int64
	ReferenceKey string
	ChildID      int64
	RewardID     int64
	PointCost    int
	BalanceAfter int
	RedeemedAt   time.Time
}
