package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"screenpoints/internal/database"
)

const installKeySetting = "install_key"

// SettingsRepository stores key-value application settings
type SettingsRepository struct {
	db database.DBTX
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db database.DBTX) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting retrieves a setting value by key
func (r *SettingsRepository) GetSetting(key string) (string, error) {
	var value string
	query := `SELECT value FROM settings WHERE key = ?`
	err := r.db.QueryRow(query, key).Scan(&value)
	return value, err
}

// SetSetting updates or inserts a setting
func (r *SettingsRepository) SetSetting(key, value string) error {
	query := r.db.GetDialect().UpsertSettings()
	_, err := r.db.Exec(query, key, value)
	return err
}

// EnsureInstallKey returns the per-installation anonymization key, creating
// it on first use. The key is 32 random bytes, stored locally and never
// transmitted; pseudonyms derived from it are meaningless elsewhere.
func (r *SettingsRepository) EnsureInstallKey() ([]byte, error) {
	value, err := r.GetSetting(installKeySetting)
	if err == nil {
		key, derr := hex.DecodeString(value)
		if derr != nil {
			return nil, fmt.Errorf("stored install key is corrupt: %w", derr)
		}
		return key, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read install key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate install key: %w", err)
	}
	if err := r.SetSetting(installKeySetting, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store install key: %w", err)
	}
	return key, nil
}
