package repository

import (
	"database/sql"
	"fmt"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// RedemptionRepository handles database operations for redemption records
type RedemptionRepository struct {
	db database.DBTX
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db database.DBTX) *RedemptionRepository {
	return &RedemptionRepository{db: db}
}

// CreateRedemption appends a redemption record. The reference key is unique;
// a retried write for the same redemption attempt reports duplicate=true.
func (r *RedemptionRepository) CreateRedemption(redemption *models.Redemption) (id int64, duplicate bool, err error) {
	query := `
		INSERT INTO redemptions (reference_key, child_id, reward_id, point_cost, balance_after, redeemed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err = r.db.ExecReturningID(query,
		redemption.ReferenceKey,
		redemption.ChildID,
		redemption.RewardID,
		redemption.PointCost,
		redemption.BalanceAfter,
		redemption.RedeemedAt,
	)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			existing, gerr := r.GetByReferenceKey(redemption.ReferenceKey)
			if gerr != nil {
				return 0, true, gerr
			}
			if existing != nil {
				return existing.ID, true, nil
			}
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("failed to create redemption: %w", err)
	}
	return id, false, nil
}

// GetByReferenceKey retrieves a redemption by its idempotency key
func (r *RedemptionRepository) GetByReferenceKey(key string) (*models.Redemption, error) {
	query := `
		SELECT id, reference_key, child_id, reward_id, point_cost, balance_after, redeemed_at
		FROM redemptions WHERE reference_key = ?
	`
	return r.scanRedemption(r.db.QueryRow(query, key))
}

// ListByChild retrieves a child's redemptions, newest first
func (r *RedemptionRepository) ListByChild(childID int64, limit int) ([]models.Redemption, error) {
	query := `
		SELECT id, reference_key, child_id, reward_id, point_cost, balance_after, redeemed_at
		FROM redemptions
		WHERE child_id = ?
		ORDER BY redeemed_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, childID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.Redemption
	for rows.Next() {
		var red models.Redemption
		if err := rows.Scan(&red.ID, &red.ReferenceKey, &red.ChildID, &red.RewardID, &red.PointCost, &red.BalanceAfter, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}

	return redemptions, rows.Err()
}

func (r *RedemptionRepository) scanRedemption(row *sql.Row) (*models.Redemption, error) {
	red := &models.Redemption{}
	err := row.Scan(&red.ID, &red.ReferenceKey, &red.ChildID, &red.RewardID, &red.PointCost, &red.BalanceAfter, &red.RedeemedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption: %w", err)
	}
	return red, nil
}
