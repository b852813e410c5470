package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"screenpoints/internal/models"
	"screenpoints/internal/security"
	"screenpoints/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ParentAccountStore is the persistence contract for parent accounts
type ParentAccountStore interface {
	CreateParent(email, passwordHash, name string) (*models.Parent, error)
	CreateOAuthParent(email, name, provider, subject string) (*models.Parent, error)
	GetParentByEmail(email string) (*models.Parent, error)
	GetParentByID(parentID int64) (*models.Parent, error)
	GetParentByOAuth(provider, subject string) (*models.Parent, error)
	LinkOAuth(parentID int64, provider, subject string) error
}

// AuthService handles parent registration, login and token validation
type AuthService struct {
	parents ParentAccountStore
	tokens  *security.TokenIssuer
	logger  *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(parents ParentAccountStore, tokens *security.TokenIssuer, logger *zap.Logger) *AuthService {
	return &AuthService{parents: parents, tokens: tokens, logger: logger}
}

// Register creates a new parent account
func (s *AuthService) Register(email, password, name string) (*models.Parent, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}

	existing, err := s.parents.GetParentByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing parent: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	parent, err := s.parents.CreateParent(email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}

	s.logger.Info("parent registered", zap.Int64("parent_id", parent.ID))
	return parent, nil
}

// Login authenticates a parent and issues an access token
func (s *AuthService) Login(email, password string) (string, *models.Parent, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	parent, err := s.parents.GetParentByEmail(email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get parent: %w", err)
	}
	if parent == nil || parent.PasswordHash == "" {
		return "", nil, ErrInvalidCredentials
	}

	if !security.CheckPassword(password, parent.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(parent.ID)
	if err != nil {
		return "", nil, err
	}
	return token, parent, nil
}

// OAuthLogin finds or creates the parent account for an OAuth identity and
// issues an access token. An existing account with the same email is linked
// rather than duplicated.
func (s *AuthService) OAuthLogin(provider, subject, email, name string) (string, *models.Parent, error) {
	parent, err := s.parents.GetParentByOAuth(provider, subject)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up oauth identity: %w", err)
	}

	if parent == nil && email != "" {
		existing, err := s.parents.GetParentByEmail(strings.ToLower(email))
		if err != nil {
			return "", nil, fmt.Errorf("failed to look up parent by email: %w", err)
		}
		if existing != nil {
			if err := s.parents.LinkOAuth(existing.ID, provider, subject); err != nil {
				return "", nil, err
			}
			parent = existing
		}
	}

	if parent == nil {
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		parent, err = s.parents.CreateOAuthParent(strings.ToLower(email), name, provider, subject)
		if err != nil {
			return "", nil, fmt.Errorf("failed to create oauth parent: %w", err)
		}
		s.logger.Info("parent registered via oauth",
			zap.Int64("parent_id", parent.ID),
			zap.String("provider", provider))
	}

	token, err := s.tokens.Issue(parent.ID)
	if err != nil {
		return "", nil, err
	}
	return token, parent, nil
}

// ValidateToken verifies an access token and loads the parent it belongs to
func (s *AuthService) ValidateToken(token string) (*models.Parent, error) {
	parentID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	parent, err := s.parents.GetParentByID(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, security.ErrTokenInvalid
	}
	return parent, nil
}
