package models

import "time"

// EntryKind identifies what produced a ledger entry
type EntryKind string

const (
	EntryEarn   EntryKind = "earn"
	EntrySpend  EntryKind = "spend"
	EntryAdjust EntryKind = "adjust" // compensating credit after a failed redemption
)

// LedgerEntry is one append-only movement of a child's points. Points is a
// signed delta: positive for earn/adjust, negative for spend. The child's
// balance column is a cache over the sum of their entries.
type LedgerEntry struct {
	ID        int64
	ChildID   int64
	Kind      EntryKind
	Points    int
	Reference string // session ID for earns, redemption key for spends/adjusts
	CreatedAt time.Time
}
