package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
)

type fakeRewardStore struct {
	rewards map[int64]*models.Reward
}

func (f *fakeRewardStore) CreateReward(parentID int64, title, description string, pointCost int) (*models.Reward, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRewardStore) GetRewardByID(rewardID int64) (*models.Reward, error) {
	reward, ok := f.rewards[rewardID]
	if !ok {
		return nil, nil
	}
	copied := *reward
	return &copied, nil
}

func (f *fakeRewardStore) ListRewards(parentID int64, activeOnly bool) ([]models.Reward, error) {
	return nil, nil
}

func (f *fakeRewardStore) UpdateReward(rewardID int64, title, description string, pointCost int) error {
	return nil
}

func (f *fakeRewardStore) DeactivateReward(rewardID int64) error {
	return nil
}

type fakeParentStore struct {
	parents map[int64]*models.Parent
}

func (f *fakeParentStore) GetParentByID(parentID int64) (*models.Parent, error) {
	return f.parents[parentID], nil
}

type fakeRedemptionStore struct {
	records    []models.Redemption
	failCreate bool
}

func (f *fakeRedemptionStore) CreateRedemption(redemption *models.Redemption) (int64, bool, error) {
	if f.failCreate {
		return 0, false, errors.New("disk full")
	}
	id := int64(len(f.records) + 1)
	record := *redemption
	record.ID = id
	f.records = append(f.records, record)
	return id, false, nil
}

func (f *fakeRedemptionStore) ListByChild(childID int64, limit int) ([]models.Redemption, error) {
	var result []models.Redemption
	for _, r := range f.records {
		if r.ChildID == childID {
			result = append(result, r)
		}
	}
	return result, nil
}

type redemptionFixture struct {
	service     *RedemptionService
	ledger      *LedgerService
	ledgerStore *fakeLedgerStore
	redemptions *fakeRedemptionStore
}

func newRedemptionFixture(t *testing.T) *redemptionFixture {
	t.Helper()
	logger := zap.NewNop()
	m := metrics.New()

	ledgerStore := newFakeLedgerStore()
	ledgerStore.balances[1] = 100
	children := &fakeChildStore{children: map[int64]*models.Child{
		1: {ID: 1, ParentID: 10, Name: "Alex"},
	}}
	ledger := NewLedgerService(ledgerStore, children, NewPointsCalculator(), logger, m)

	rewards := NewRewardService(&fakeRewardStore{rewards: map[int64]*models.Reward{
		5: {ID: 5, ParentID: 10, Title: "Movie night", PointCost: 60, Active: true},
		6: {ID: 6, ParentID: 10, Title: "Retired treat", PointCost: 10, Active: false},
		7: {ID: 7, ParentID: 99, Title: "Someone else's", PointCost: 10, Active: true},
	}}, logger)

	parents := &fakeParentStore{parents: map[int64]*models.Parent{
		10: {ID: 10, Email: "parent@example.com", Name: "Sam"},
	}}
	redemptionStore := &fakeRedemptionStore{}

	svc := NewRedemptionService(ledger, rewards, children, parents, redemptionStore, nil, logger, m)
	return &redemptionFixture{
		service:     svc,
		ledger:      ledger,
		ledgerStore: ledgerStore,
		redemptions: redemptionStore,
	}
}

func TestRedeemSuccess(t *testing.T) {
	fix := newRedemptionFixture(t)

	redemption, err := fix.service.Redeem(1, 5)
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}
	if redemption.PointCost != 60 {
		t.Errorf("PointCost = %d, want 60", redemption.PointCost)
	}
	if redemption.BalanceAfter != 40 {
		t.Errorf("BalanceAfter = %d, want 40", redemption.BalanceAfter)
	}
	if redemption.ReferenceKey == "" {
		t.Error("expected a reference key")
	}

	balance, _ := fix.ledger.GetBalance(1)
	if balance != 40 {
		t.Errorf("balance = %d, want 40", balance)
	}
	if len(fix.redemptions.records) != 1 {
		t.Errorf("expected 1 redemption record, got %d", len(fix.redemptions.records))
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	fix := newRedemptionFixture(t)
	fix.ledgerStore.balances[1] = 50

	_, err := fix.service.Redeem(1, 5)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	balance, _ := fix.ledger.GetBalance(1)
	if balance != 50 {
		t.Errorf("balance = %d, want 50 unchanged", balance)
	}
	if len(fix.redemptions.records) != 0 {
		t.Errorf("expected no redemption records, got %d", len(fix.redemptions.records))
	}
}

func TestRedeemInactiveReward(t *testing.T) {
	fix := newRedemptionFixture(t)

	_, err := fix.service.Redeem(1, 6)
	if !errors.Is(err, ErrRewardUnavailable) {
		t.Errorf("error = %v, want ErrRewardUnavailable", err)
	}
}

func TestRedeemMissingReward(t *testing.T) {
	fix := newRedemptionFixture(t)

	_, err := fix.service.Redeem(1, 404)
	if !errors.Is(err, ErrRewardUnavailable) {
		t.Errorf("error = %v, want ErrRewardUnavailable", err)
	}
}

func TestRedeemRewardOfAnotherParent(t *testing.T) {
	fix := newRedemptionFixture(t)

	_, err := fix.service.Redeem(1, 7)
	if !errors.Is(err, ErrRewardUnauthorized) {
		t.Errorf("error = %v, want ErrRewardUnauthorized", err)
	}

	balance, _ := fix.ledger.GetBalance(1)
	if balance != 100 {
		t.Errorf("balance = %d, want 100 unchanged", balance)
	}
}

func TestRedeemUnknownChild(t *testing.T) {
	fix := newRedemptionFixture(t)

	_, err := fix.service.Redeem(999, 5)
	if !errors.Is(err, ErrChildNotFound) {
		t.Errorf("error = %v, want ErrChildNotFound", err)
	}
}

func TestRedeemRollsBackWhenRecordFails(t *testing.T) {
	fix := newRedemptionFixture(t)
	fix.redemptions.failCreate = true

	_, err := fix.service.Redeem(1, 5)
	if !errors.Is(err, ErrRedemptionNotSaved) {
		t.Fatalf("error = %v, want ErrRedemptionNotSaved", err)
	}

	balance, _ := fix.ledger.GetBalance(1)
	if balance != 100 {
		t.Errorf("balance after rollback = %d, want 100", balance)
	}

	entries, _ := fix.ledgerStore.Entries(1)
	var kinds []models.EntryKind
	for _, e := range entries {
		kinds = append(kinds, e.Kind)
	}
	if len(kinds) != 2 || kinds[0] != models.EntrySpend || kinds[1] != models.EntryAdjust {
		t.Errorf("entry kinds = %v, want [spend adjust]", kinds)
	}
}
