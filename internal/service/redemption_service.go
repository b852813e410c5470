package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
)

var (
	ErrRewardUnavailable  = errors.New("reward is not available")
	ErrRedemptionNotSaved = errors.New("redemption could not be recorded")
)

// RedemptionStore is the persistence contract for redemption records
type RedemptionStore interface {
	CreateRedemption(redemption *models.Redemption) (id int64, duplicate bool, err error)
	ListByChild(childID int64, limit int) ([]models.Redemption, error)
}

// ParentStore is the subset of parent persistence redemption needs
type ParentStore interface {
	GetParentByID(parentID int64) (*models.Parent, error)
}

// RedemptionService orchestrates spending points on a reward. The debit and
// the redemption record form one logical transaction: if the record cannot
// be written, a compensating credit restores the balance.
type RedemptionService struct {
	ledger      *LedgerService
	rewards     *RewardService
	children    ChildStore
	parents     ParentStore
	redemptions RedemptionStore
	email       *EmailService
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewRedemptionService creates a new redemption service
func NewRedemptionService(ledger *LedgerService, rewards *RewardService, children ChildStore, parents ParentStore, redemptions RedemptionStore, email *EmailService, logger *zap.Logger, m *metrics.Metrics) *RedemptionService {
	return &RedemptionService{
		ledger:      ledger,
		rewards:     rewards,
		children:    children,
		parents:     parents,
		redemptions: redemptions,
		email:       email,
		logger:      logger,
		metrics:     m,
	}
}

// Redeem exchanges a child's points for a reward. Preconditions short-circuit
// without side effects: the reward must exist and be active, it must belong
// to the child's parent, and the balance must cover the snapshotted cost.
func (s *RedemptionService) Redeem(childID, rewardID int64) (*models.Redemption, error) {
	child, err := s.children.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	reward, err := s.rewards.Get(rewardID)
	if err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			s.metrics.RedemptionsRejected.WithLabelValues("unavailable").Inc()
			return nil, ErrRewardUnavailable
		}
		return nil, err
	}
	if !reward.Active {
		s.metrics.RedemptionsRejected.WithLabelValues("unavailable").Inc()
		return nil, ErrRewardUnavailable
	}
	if reward.ParentID != child.ParentID {
		s.metrics.RedemptionsRejected.WithLabelValues("unauthorized").Inc()
		return nil, ErrRewardUnauthorized
	}

	// The reference key ties the debit, the record and any compensating
	// credit to this one redemption attempt.
	referenceKey := uuid.New().String()

	newBalance, err := s.ledger.Debit(childID, reward.PointCost, referenceKey)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			s.metrics.RedemptionsRejected.WithLabelValues("insufficient_balance").Inc()
		}
		return nil, err
	}

	redemption := &models.Redemption{
		ReferenceKey: referenceKey,
		ChildID:      childID,
		RewardID:     rewardID,
		PointCost:    reward.PointCost,
		BalanceAfter: newBalance,
		RedeemedAt:   time.Now().UTC(),
	}

	id, _, err := s.redemptions.CreateRedemption(redemption)
	if err != nil {
		// The debit landed but the record did not: roll the points back.
		// Credit is idempotent per reference, so a retry cannot refund twice.
		s.metrics.RedemptionRollbacks.Inc()
		if _, creditErr := s.ledger.Credit(childID, reward.PointCost, referenceKey); creditErr != nil {
			s.logger.Error("compensating credit failed, ledger needs manual reconciliation",
				zap.Int64("child_id", childID),
				zap.String("reference_key", referenceKey),
				zap.Int("points", reward.PointCost),
				zap.Error(creditErr))
			return nil, fmt.Errorf("%w: rollback failed: %v", ErrRedemptionNotSaved, creditErr)
		}
		s.logger.Warn("redemption rolled back",
			zap.Int64("child_id", childID),
			zap.String("reference_key", referenceKey),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRedemptionNotSaved, err)
	}
	redemption.ID = id

	s.metrics.RedemptionsCompleted.Inc()
	s.logger.Info("reward redeemed",
		zap.Int64("child_id", childID),
		zap.Int64("reward_id", rewardID),
		zap.Int("point_cost", redemption.PointCost),
		zap.Int("balance_after", newBalance))

	s.sendReceipt(child, reward, redemption)
	return redemption, nil
}

// History returns a child's past redemptions, newest first
func (s *RedemptionService) History(childID int64, limit int) ([]models.Redemption, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.redemptions.ListByChild(childID, limit)
}

// sendReceipt emails the parent about the redemption. Delivery is best
// effort; a failure never unwinds the redemption.
func (s *RedemptionService) sendReceipt(child *models.Child, reward *models.Reward, redemption *models.Redemption) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}
	parent, err := s.parents.GetParentByID(child.ParentID)
	if err != nil || parent == nil {
		s.logger.Warn("could not load parent for receipt", zap.Int64("parent_id", child.ParentID), zap.Error(err))
		return
	}
	if err := s.email.SendRedemptionReceipt(parent.Email, parent.Name, child.Name, reward.Title, redemption.PointCost, redemption.BalanceAfter); err != nil {
		s.logger.Warn("failed to send redemption receipt", zap.String("email", parent.Email), zap.Error(err))
	}
}
