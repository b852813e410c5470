package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"screenpoints/internal/models"
	"screenpoints/internal/validation"
)

var ErrChildUnauthorized = errors.New("child belongs to another parent")

// ChildProfileStore is the persistence contract for child profiles
type ChildProfileStore interface {
	CreateChild(parentID int64, name, avatarColor string) (*models.Child, error)
	GetChildByID(childID int64) (*models.Child, error)
	GetParentChildren(parentID int64) ([]models.Child, error)
	UpdateChild(childID int64, name, avatarColor string) error
	GetChildStats(childID int64) (*models.ChildWithStats, error)
}

// ChildService manages child profiles on behalf of their parent
type ChildService struct {
	store  ChildProfileStore
	logger *zap.Logger
}

// NewChildService creates a new child service
func NewChildService(store ChildProfileStore, logger *zap.Logger) *ChildService {
	return &ChildService{store: store, logger: logger}
}

// Create adds a child profile under a parent
func (s *ChildService) Create(parentID int64, name, avatarColor string) (*models.Child, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	child, err := s.store.CreateChild(parentID, name, avatarColor)
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	s.logger.Info("child created", zap.Int64("child_id", child.ID), zap.Int64("parent_id", parentID))
	return child, nil
}

// Get retrieves a child, verifying the requesting parent owns it
func (s *ChildService) Get(parentID, childID int64) (*models.Child, error) {
	child, err := s.store.GetChildByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	if child.ParentID != parentID {
		return nil, ErrChildUnauthorized
	}
	return child, nil
}

// List returns all of a parent's children
func (s *ChildService) List(parentID int64) ([]models.Child, error) {
	return s.store.GetParentChildren(parentID)
}

// Update edits a child's profile fields
func (s *ChildService) Update(parentID, childID int64, name, avatarColor string) (*models.Child, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	child, err := s.Get(parentID, childID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateChild(childID, name, avatarColor); err != nil {
		return nil, fmt.Errorf("failed to update child: %w", err)
	}

	child.Name = name
	child.AvatarColor = avatarColor
	return child, nil
}

// Stats returns a child's profile with ledger totals
func (s *ChildService) Stats(parentID, childID int64) (*models.ChildWithStats, error) {
	if _, err := s.Get(parentID, childID); err != nil {
		return nil, err
	}
	return s.store.GetChildStats(childID)
}
