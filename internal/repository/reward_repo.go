package repository

import (
	"database/sql"
	"fmt"
	"time"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// RewardRepository handles database operations for rewards
type RewardRepository struct {
	db database.DBTX
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db database.DBTX) *RewardRepository {
	return &RewardRepository{db: db}
}

// CreateReward creates a new active reward for a parent
func (r *RewardRepository) CreateReward(parentID int64, title, description string, pointCost int) (*models.Reward, error) {
	query := "INSERT INTO rewards (parent_id, title, description, point_cost, active) VALUES (?, ?, ?, ?, " + r.db.GetDialect().BoolValue(true) + ")"
	id, err := r.db.ExecReturningID(query, parentID, title, description, pointCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	return &models.Reward{
		ID:          id,
		ParentID:    parentID,
		Title:       title,
		Description: description,
		PointCost:   pointCost,
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}, nil
}

// GetRewardByID retrieves a reward by ID
func (r *RewardRepository) GetRewardByID(rewardID int64) (*models.Reward, error) {
	query := `
		SELECT id, parent_id, title, description, point_cost, active, created_at, updated_at
		FROM rewards WHERE id = ?
	`
	reward := &models.Reward{}
	err := r.db.QueryRow(query, rewardID).Scan(
		&reward.ID,
		&reward.ParentID,
		&reward.Title,
		&reward.Description,
		&reward.PointCost,
		&reward.Active,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// ListRewards retrieves a parent's rewards in creation order
func (r *RewardRepository) ListRewards(parentID int64, activeOnly bool) ([]models.Reward, error) {
	query := `
		SELECT id, parent_id, title, description, point_cost, active, created_at, updated_at
		FROM rewards
		WHERE parent_id = ?
	`
	if activeOnly {
		query += " AND active = " + r.db.GetDialect().BoolValue(true)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		var reward models.Reward
		if err := rows.Scan(
			&reward.ID,
			&reward.ParentID,
			&reward.Title,
			&reward.Description,
			&reward.PointCost,
			&reward.Active,
			&reward.CreatedAt,
			&reward.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, reward)
	}

	return rewards, rows.Err()
}

// UpdateReward updates a reward's editable fields
func (r *RewardRepository) UpdateReward(rewardID int64, title, description string, pointCost int) error {
	query := "UPDATE rewards SET title = ?, description = ?, point_cost = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, title, description, pointCost, rewardID); err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	return nil
}

// DeactivateReward soft-deletes a reward. Rewards are never hard-deleted;
// redemption records keep pointing at them.
func (r *RewardRepository) DeactivateReward(rewardID int64) error {
	query := "UPDATE rewards SET active = " + r.db.GetDialect().BoolValue(false) + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, rewardID); err != nil {
		return fmt.Errorf("failed to deactivate reward: %w", err)
	}
	return nil
}
