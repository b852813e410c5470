package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"screenpoints/internal/metrics"
	"screenpoints/internal/models"
	"screenpoints/internal/validation"
)

var (
	ErrChildNotFound       = errors.New("child not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// LedgerStore is the persistence contract the ledger needs. Implemented by
// repository.LedgerRepository; tests substitute an in-memory store.
type LedgerStore interface {
	RecordEarning(session *models.ScreenTimeSession) (newBalance int, duplicate bool, err error)
	GetSession(sessionID string) (*models.ScreenTimeSession, error)
	Debit(childID int64, amount int, reference string) (newBalance int, ok bool, err error)
	Credit(childID int64, amount int, reference string) (newBalance int, err error)
	Balance(childID int64) (balance int, exists bool, err error)
	Entries(childID int64) ([]models.LedgerEntry, error)
	GetSessions(childID int64, limit int) ([]models.ScreenTimeSession, error)
}

// ChildStore is the subset of child persistence the ledger needs
type ChildStore interface {
	GetChildByID(childID int64) (*models.Child, error)
}

// EarningRequest describes a completed screen-time session reported by the
// usage tracker. The ID comes from the device and is the deduplication key.
type EarningRequest struct {
	SessionID       string
	ChildID         int64
	AppName         string
	Category        models.AppCategory
	DurationSeconds int
	OccurredAt      time.Time
}

// LedgerService owns point balances. All balance mutation for one child is
// serialized behind a per-child lock; different children proceed in parallel.
type LedgerService struct {
	store      LedgerStore
	children   ChildStore
	calculator *PointsCalculator
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store LedgerStore, children ChildStore, calculator *PointsCalculator, logger *zap.Logger, m *metrics.Metrics) *LedgerService {
	return &LedgerService{
		store:      store,
		children:   children,
		calculator: calculator,
		logger:     logger,
		metrics:    m,
		locks:      make(map[int64]*sync.Mutex),
	}
}

// childLock returns the mutex serializing mutations for one child.
// The map only grows with the number of children, so entries are not evicted.
func (s *LedgerService) childLock(childID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[childID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[childID] = lock
	}
	return lock
}

// RecordEarning computes the points for a session and credits them.
// Recording the same session ID twice is a no-op success: the balance moves
// exactly once no matter how often the usage tracker redelivers.
func (s *LedgerService) RecordEarning(req EarningRequest) (*models.ScreenTimeSession, int, error) {
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}
	if err := validation.ValidateDuration(req.DurationSeconds); err != nil {
		return nil, 0, err
	}
	if !req.Category.IsValid() {
		req.Category = models.CategoryOther
	}
	if req.OccurredAt.IsZero() {
		req.OccurredAt = time.Now().UTC()
	}

	child, err := s.children.GetChildByID(req.ChildID)
	if err != nil {
		return nil, 0, err
	}
	if child == nil {
		return nil, 0, ErrChildNotFound
	}

	session := &models.ScreenTimeSession{
		ID:              req.SessionID,
		ChildID:         req.ChildID,
		AppName:         req.AppName,
		Category:        req.Category,
		DurationSeconds: req.DurationSeconds,
		PointsEarned:    s.calculator.ComputePoints(req.DurationSeconds, req.Category),
		OccurredAt:      req.OccurredAt.UTC(),
	}

	lock := s.childLock(req.ChildID)
	lock.Lock()
	defer lock.Unlock()

	newBalance, duplicate, err := s.store.RecordEarning(session)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to record earning: %w", err)
	}
	if duplicate {
		s.metrics.DuplicateSessions.Inc()
		s.logger.Debug("duplicate session ignored",
			zap.String("session_id", session.ID),
			zap.Int64("child_id", session.ChildID))
		// a redelivery may carry different fields; the stored session is
		// authoritative for what the ledger credited
		stored, err := s.store.GetSession(session.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load recorded session: %w", err)
		}
		if stored != nil {
			session = stored
		}
		return session, newBalance, nil
	}

	s.metrics.SessionsRecorded.Inc()
	s.metrics.PointsEarned.Add(float64(session.PointsEarned))
	s.logger.Info("earning recorded",
		zap.String("session_id", session.ID),
		zap.Int64("child_id", session.ChildID),
		zap.String("category", string(session.Category)),
		zap.Int("points", session.PointsEarned),
		zap.Int("balance", newBalance))
	return session, newBalance, nil
}

// Debit atomically spends points from a child's balance. The reference ties
// the spend entry to the redemption that caused it.
func (s *LedgerService) Debit(childID int64, amount int, reference string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	lock := s.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	newBalance, ok, err := s.store.Debit(childID, amount, reference)
	if err != nil {
		return 0, fmt.Errorf("failed to debit: %w", err)
	}
	if !ok {
		return newBalance, ErrInsufficientBalance
	}

	s.metrics.PointsSpent.Add(float64(amount))
	return newBalance, nil
}

// Credit issues a compensating credit for a failed redemption. Idempotent
// per reference; safe to retry.
func (s *LedgerService) Credit(childID int64, amount int, reference string) (int, error) {
	lock := s.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	newBalance, err := s.store.Credit(childID, amount, reference)
	if err != nil {
		return 0, fmt.Errorf("failed to credit: %w", err)
	}
	return newBalance, nil
}

// GetBalance returns a child's current balance
func (s *LedgerService) GetBalance(childID int64) (int, error) {
	balance, exists, err := s.store.Balance(childID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrChildNotFound
	}
	return balance, nil
}

// GetHistory returns a child's ledger entries, oldest first
func (s *LedgerService) GetHistory(childID int64) ([]models.LedgerEntry, error) {
	return s.store.Entries(childID)
}

// GetRecentSessions returns a child's latest recorded sessions
func (s *LedgerService) GetRecentSessions(childID int64, limit int) ([]models.ScreenTimeSession, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.GetSessions(childID, limit)
}

// Reconcile recomputes a child's balance by replaying the full ledger
// history. Under no-fault conditions it equals the cached balance; a
// divergence is logged for manual investigation, never auto-corrected.
func (s *LedgerService) Reconcile(childID int64) (int, error) {
	lock := s.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	cached, exists, err := s.store.Balance(childID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrChildNotFound
	}

	entries, err := s.store.Entries(childID)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, entry := range entries {
		replayed += entry.Points
	}

	if replayed != cached {
		s.logger.Error("ledger divergence detected",
			zap.Int64("child_id", childID),
			zap.Int("cached_balance", cached),
			zap.Int("replayed_balance", replayed))
	}
	return replayed, nil
}
