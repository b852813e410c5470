package repository

import (
	"database/sql"
	"fmt"
	"time"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// ChildRepository handles database operations for child profiles.
// The point_balance column is never written here; only the ledger
// repository mutates it.
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

// CreateChild creates a new child profile with a zero balance
func (r *ChildRepository) CreateChild(parentID int64, name, avatarColor string) (*models.Child, error) {
	query := "INSERT INTO children (parent_id, name, avatar_color, point_balance) VALUES (?, ?, ?, 0)"
	id, err := r.db.ExecReturningID(query, parentID, name, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	return &models.Child{
		ID:          id,
		ParentID:    parentID,
		Name:        name,
		AvatarColor: avatarColor,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetChildByID retrieves a child by ID
func (r *ChildRepository) GetChildByID(childID int64) (*models.Child, error) {
	query := `
		SELECT id, parent_id, name, avatar_color, point_balance, created_at, updated_at
		FROM children WHERE id = ?
	`
	child := &models.Child{}
	err := r.db.QueryRow(query, childID).Scan(
		&child.ID,
		&child.ParentID,
		&child.Name,
		&child.AvatarColor,
		&child.PointBalance,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// GetParentChildren retrieves all children belonging to a parent
func (r *ChildRepository) GetParentChildren(parentID int64) ([]models.Child, error) {
	query := `
		SELECT id, parent_id, name, avatar_color, point_balance, created_at, updated_at
		FROM children
		WHERE parent_id = ?
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		var child models.Child
		if err := rows.Scan(
			&child.ID,
			&child.ParentID,
			&child.Name,
			&child.AvatarColor,
			&child.PointBalance,
			&child.CreatedAt,
			&child.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}

	return children, rows.Err()
}

// UpdateChild updates a child's profile fields (never the balance)
func (r *ChildRepository) UpdateChild(childID int64, name, avatarColor string) error {
	query := "UPDATE children SET name = ?, avatar_color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, name, avatarColor, childID); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// GetChildStats returns ledger totals for a child
func (r *ChildRepository) GetChildStats(childID int64) (*models.ChildWithStats, error) {
	child, err := r.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, nil
	}

	stats := &models.ChildWithStats{Child: *child}

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN points > 0 THEN points ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN points < 0 THEN -points ELSE 0 END), 0)
		FROM ledger_entries WHERE child_id = ?
	`
	if err := r.db.QueryRow(query, childID).Scan(&stats.TotalEarned, &stats.TotalSpent); err != nil {
		return nil, fmt.Errorf("failed to get ledger totals: %w", err)
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM screen_time_sessions WHERE child_id = ?", childID).Scan(&stats.SessionCount); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	if err := r.db.QueryRow("SELECT COUNT(*) FROM redemptions WHERE child_id = ?", childID).Scan(&stats.RedemptionCount); err != nil {
		return nil, fmt.Errorf("failed to count redemptions: %w", err)
	}

	return stats, nil
}
