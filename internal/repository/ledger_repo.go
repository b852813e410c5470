package repository

import (
	"database/sql"
	"fmt"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// LedgerRepository owns every mutation of a child's point balance. Each
// operation moves the balance cache and appends the matching ledger entry
// inside one transaction, so the balance column never diverges from the
// entry history it caches.
type LedgerRepository struct {
	db *database.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// RecordEarning stores a screen-time session and credits its points.
// The session ID is the deduplication key: replaying an already-recorded
// session leaves the ledger untouched and reports duplicate=true with the
// current balance.
func (r *LedgerRepository) RecordEarning(session *models.ScreenTimeSession) (newBalance int, duplicate bool, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertSession := `
		INSERT INTO screen_time_sessions (id, child_id, app_name, category, duration_seconds, points_earned, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(insertSession,
		session.ID,
		session.ChildID,
		session.AppName,
		string(session.Category),
		session.DurationSeconds,
		session.PointsEarned,
		session.OccurredAt,
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			// At-least-once delivery replay; report current balance unchanged
			tx.Rollback()
			balance, _, berr := r.Balance(session.ChildID)
			if berr != nil {
				return 0, true, berr
			}
			return balance, true, nil
		}
		return 0, false, fmt.Errorf("failed to store session: %w", err)
	}

	if session.PointsEarned > 0 {
		insertEntry := "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES (?, ?, ?, ?)"
		if _, err := tx.Exec(insertEntry, session.ChildID, string(models.EntryEarn), session.PointsEarned, session.ID); err != nil {
			return 0, false, fmt.Errorf("failed to append earning entry: %w", err)
		}

		updateBalance := "UPDATE children SET point_balance = point_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
		if _, err := tx.Exec(updateBalance, session.PointsEarned, session.ChildID); err != nil {
			return 0, false, fmt.Errorf("failed to credit balance: %w", err)
		}
	}

	if err := tx.QueryRow("SELECT point_balance FROM children WHERE id = ?", session.ChildID).Scan(&newBalance); err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit earning: %w", err)
	}
	return newBalance, false, nil
}

// GetSession loads a recorded session by its ID, or nil when none exists
func (r *LedgerRepository) GetSession(sessionID string) (*models.ScreenTimeSession, error) {
	query := `
		SELECT id, child_id, app_name, category, duration_seconds, points_earned, occurred_at, created_at
		FROM screen_time_sessions
		WHERE id = ?
	`
	var s models.ScreenTimeSession
	var category string
	err := r.db.QueryRow(query, sessionID).Scan(
		&s.ID, &s.ChildID, &s.AppName, &category, &s.DurationSeconds, &s.PointsEarned, &s.OccurredAt, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.Category = models.AppCategory(category)
	return &s, nil
}

// Debit atomically checks and decrements a child's balance. The conditional
// UPDATE is the check-and-decrement: concurrent debits can never both pass
// the balance check and overdraw. ok=false means the balance was
// insufficient; no partial effect remains.
func (r *LedgerRepository) Debit(childID int64, amount int, reference string) (newBalance int, ok bool, err error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	update := `
		UPDATE children
		SET point_balance = point_balance - ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND point_balance >= ?
	`
	result, err := tx.Exec(update, amount, childID, amount)
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to check debit result: %w", err)
	}
	if affected == 0 {
		tx.Rollback()
		balance, exists, berr := r.Balance(childID)
		if berr != nil {
			return 0, false, berr
		}
		if !exists {
			return 0, false, fmt.Errorf("child %d not found", childID)
		}
		return balance, false, nil
	}

	insertEntry := "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES (?, ?, ?, ?)"
	if _, err := tx.Exec(insertEntry, childID, string(models.EntrySpend), -amount, reference); err != nil {
		return 0, false, fmt.Errorf("failed to append spend entry: %w", err)
	}

	if err := tx.QueryRow("SELECT point_balance FROM children WHERE id = ?", childID).Scan(&newBalance); err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit debit: %w", err)
	}
	return newBalance, true, nil
}

// Credit applies a compensating credit, undoing a debit whose dependent step
// failed. It is idempotent per reference: a retry after a partial failure
// cannot credit twice.
func (r *LedgerRepository) Credit(childID int64, amount int, reference string) (newBalance int, err error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertEntry := "INSERT INTO ledger_entries (child_id, kind, points, reference) VALUES (?, ?, ?, ?)"
	if _, err := tx.Exec(insertEntry, childID, string(models.EntryAdjust), amount, reference); err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			// Credit already applied on a previous attempt
			tx.Rollback()
			balance, _, berr := r.Balance(childID)
			if berr != nil {
				return 0, berr
			}
			return balance, nil
		}
		return 0, fmt.Errorf("failed to append adjust entry: %w", err)
	}

	update := "UPDATE children SET point_balance = point_balance + ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := tx.Exec(update, amount, childID); err != nil {
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}

	if err := tx.QueryRow("SELECT point_balance FROM children WHERE id = ?", childID).Scan(&newBalance); err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit credit: %w", err)
	}
	return newBalance, nil
}

// Balance reads the cached balance for a child
func (r *LedgerRepository) Balance(childID int64) (balance int, exists bool, err error) {
	err = r.db.QueryRow("SELECT point_balance FROM children WHERE id = ?", childID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, true, nil
}

// Entries returns a child's full ledger history, oldest first
func (r *LedgerRepository) Entries(childID int64) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, child_id, kind, points, reference, created_at
		FROM ledger_entries
		WHERE child_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.Query(query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.ChildID, &kind, &entry.Points, &entry.Reference, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Kind = models.EntryKind(kind)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// GetSessions returns a child's recorded screen-time sessions, newest first
func (r *LedgerRepository) GetSessions(childID int64, limit int) ([]models.ScreenTimeSession, error) {
	query := `
		SELECT id, child_id, app_name, category, duration_seconds, points_earned, occurred_at, created_at
		FROM screen_time_sessions
		WHERE child_id = ?
		ORDER BY occurred_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.ScreenTimeSession
	for rows.Next() {
		var s models.ScreenTimeSession
		var category string
		if err := rows.Scan(&s.ID, &s.ChildID, &s.AppName, &category, &s.DurationSeconds, &s.PointsEarned, &s.OccurredAt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Category = models.AppCategory(category)
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
