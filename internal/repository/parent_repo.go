package repository

import (
	"database/sql"
	"fmt"
	"time"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// ParentRepository handles database operations for parent accounts
type ParentRepository struct {
	db database.DBTX
}

// NewParentRepository creates a new parent repository
func NewParentRepository(db database.DBTX) *ParentRepository {
	return &ParentRepository{db: db}
}

// CreateParent creates a new parent account with a password hash
func (r *ParentRepository) CreateParent(email, passwordHash, name string) (*models.Parent, error) {
	query := "INSERT INTO parents (email, password_hash, name) VALUES (?, ?, ?)"
	id, err := r.db.ExecReturningID(query, email, passwordHash, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}

	return &models.Parent{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

// CreateOAuthParent creates a parent account linked to an OAuth identity
func (r *ParentRepository) CreateOAuthParent(email, name, provider, subject string) (*models.Parent, error) {
	query := "INSERT INTO parents (email, password_hash, name, oauth_provider, oauth_subject) VALUES (?, '', ?, ?, ?)"
	id, err := r.db.ExecReturningID(query, email, name, provider, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth parent: %w", err)
	}

	return &models.Parent{
		ID:            id,
		Email:         email,
		Name:          name,
		OAuthProvider: provider,
		OAuthSubject:  subject,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}, nil
}

// GetParentByID retrieves a parent by ID
func (r *ParentRepository) GetParentByID(parentID int64) (*models.Parent, error) {
	query := `
		SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM parents WHERE id = ?
	`
	return r.scanParent(r.db.QueryRow(query, parentID))
}

// GetParentByEmail retrieves a parent by email
func (r *ParentRepository) GetParentByEmail(email string) (*models.Parent, error) {
	query := `
		SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM parents WHERE email = ?
	`
	return r.scanParent(r.db.QueryRow(query, email))
}

// GetParentByOAuth retrieves a parent by OAuth provider and subject
func (r *ParentRepository) GetParentByOAuth(provider, subject string) (*models.Parent, error) {
	query := `
		SELECT id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at
		FROM parents WHERE oauth_provider = ? AND oauth_subject = ?
	`
	return r.scanParent(r.db.QueryRow(query, provider, subject))
}

// LinkOAuth attaches an OAuth identity to an existing parent account
func (r *ParentRepository) LinkOAuth(parentID int64, provider, subject string) error {
	query := "UPDATE parents SET oauth_provider = ?, oauth_subject = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, provider, subject, parentID); err != nil {
		return fmt.Errorf("failed to link oauth identity: %w", err)
	}
	return nil
}

func (r *ParentRepository) scanParent(row *sql.Row) (*models.Parent, error) {
	parent := &models.Parent{}
	var provider, subject sql.NullString
	err := row.Scan(
		&parent.ID,
		&parent.Email,
		&parent.PasswordHash,
		&parent.Name,
		&provider,
		&subject,
		&parent.CreatedAt,
		&parent.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent: %w", err)
	}
	parent.OAuthProvider = provider.String
	parent.OAuthSubject = subject.String
	return parent, nil
}
