package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"screenpoints/internal/models"
	"screenpoints/internal/validation"
)

var (
	ErrRewardNotFound     = errors.New("reward not found")
	ErrRewardUnauthorized = errors.New("reward belongs to another parent")
)

// RewardStore is the persistence contract for the reward catalog
type RewardStore interface {
	CreateReward(parentID int64, title, description string, pointCost int) (*models.Reward, error)
	GetRewardByID(rewardID int64) (*models.Reward, error)
	ListRewards(parentID int64, activeOnly bool) ([]models.Reward, error)
	UpdateReward(rewardID int64, title, description string, pointCost int) error
	DeactivateReward(rewardID int64) error
}

// RewardService manages the catalog of redeemable rewards per parent
type RewardService struct {
	store  RewardStore
	logger *zap.Logger
}

// NewRewardService creates a new reward service
func NewRewardService(store RewardStore, logger *zap.Logger) *RewardService {
	return &RewardService{store: store, logger: logger}
}

// Create adds a new active reward to a parent's catalog
func (s *RewardService) Create(parentID int64, title, description string, pointCost int) (*models.Reward, error) {
	if err := validation.ValidateRewardTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidatePointCost(pointCost); err != nil {
		return nil, err
	}

	reward, err := s.store.CreateReward(parentID, title, description, pointCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	s.logger.Info("reward created",
		zap.Int64("reward_id", reward.ID),
		zap.Int64("parent_id", parentID),
		zap.Int("point_cost", pointCost))
	return reward, nil
}

// Update edits a reward's title, description and cost. Past redemptions are
// unaffected; they snapshotted the cost they charged.
func (s *RewardService) Update(parentID, rewardID int64, title, description string, pointCost int) (*models.Reward, error) {
	if err := validation.ValidateRewardTitle(title); err != nil {
		return nil, err
	}
	if err := validation.ValidatePointCost(pointCost); err != nil {
		return nil, err
	}

	reward, err := s.ownedReward(parentID, rewardID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateReward(rewardID, title, description, pointCost); err != nil {
		return nil, fmt.Errorf("failed to update reward: %w", err)
	}

	reward.Title = title
	reward.Description = description
	reward.PointCost = pointCost
	return reward, nil
}

// Deactivate soft-deletes a reward so it can no longer be redeemed
func (s *RewardService) Deactivate(parentID, rewardID int64) error {
	if _, err := s.ownedReward(parentID, rewardID); err != nil {
		return err
	}
	if err := s.store.DeactivateReward(rewardID); err != nil {
		return fmt.Errorf("failed to deactivate reward: %w", err)
	}
	s.logger.Info("reward deactivated", zap.Int64("reward_id", rewardID))
	return nil
}

// Get retrieves a single reward by ID
func (s *RewardService) Get(rewardID int64) (*models.Reward, error) {
	reward, err := s.store.GetRewardByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	return reward, nil
}

// List returns a parent's rewards in creation order
func (s *RewardService) List(parentID int64, activeOnly bool) ([]models.Reward, error) {
	return s.store.ListRewards(parentID, activeOnly)
}

func (s *RewardService) ownedReward(parentID, rewardID int64) (*models.Reward, error) {
	reward, err := s.store.GetRewardByID(rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	if reward.ParentID != parentID {
		return nil, ErrRewardUnauthorized
	}
	return reward, nil
}
