package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"screenpoints/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Parents     []ParentBackup     `json:"parents"`
	Children    []ChildBackup      `json:"children"`
	Rewards     []RewardBackup     `json:"rewards"`
	Sessions    []SessionBackup    `json:"sessions"`
	Ledger      []LedgerBackup     `json:"ledger_entries"`
	Redemptions []RedemptionBackup `json:"redemptions"`
	Events      []EventBackup      `json:"events"`
	Metrics     []MetricsBackup    `json:"aggregated_metrics"`
}

// ParentBackup represents a parent record for backup
type ParentBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChildBackup represents a child record for backup
type ChildBackup struct {
	ID           int64     `json:"id"`
	ParentID     int64     `json:"parent_id"`
	Name         string    `json:"name"`
	AvatarColor  string    `json:"avatar_color"`
	PointBalance int       `json:"point_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RewardBackup represents a reward record for backup
type RewardBackup struct {
	ID          int64     `json:"id"`
	ParentID    int64     `json:"parent_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PointCost   int       `json:"point_cost"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SessionBackup represents a screen-time session record for backup
type SessionBackup struct {
	ID              string    `json:"id"`
	ChildID         int64     `json:"child_id"`
	AppName         string    `json:"app_name"`
	Category        string    `json:"category"`
	DurationSeconds int       `json:"duration_seconds"`
	PointsEarned    int       `json:"points_earned"`
	OccurredAt      time.Time `json:"occurred_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// LedgerBackup represents a ledger entry for backup
type LedgerBackup struct {
	ID        int64     `json:"id"`
	ChildID   int64     `json:"child_id"`
	Kind      string    `json:"kind"`
	Points    int       `json:"points"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// RedemptionBackup represents a redemption record for backup
type RedemptionBackup struct {
	ID           int64     `json:"id"`
	ReferenceKey string    `json:"reference_key"`
	ChildID      int64     `json:"child_id"`
	RewardID     int64     `json:"reward_id"`
	PointCost    int       `json:"point_cost"`
	BalanceAfter int       `json:"balance_after"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

// EventBackup represents an anonymized analytics event for backup
type EventBackup struct {
	ID              string    `json:"id"`
	Pseudonym       string    `json:"pseudonym"`
	SessionToken    string    `json:"session_token"`
	Kind            string    `json:"kind"`
	Payload         string    `json:"payload"`
	OccurredAt      time.Time `json:"occurred_at"`
	AppVersion      string    `json:"app_version"`
	OSVersion       string    `json:"os_version"`
	DeviceClass     string    `json:"device_class"`
	Metadata        string    `json:"metadata"`
	AggregatedDay   bool      `json:"aggregated_day"`
	AggregatedWeek  bool      `json:"aggregated_week"`
	AggregatedMonth bool      `json:"aggregated_month"`
}

// MetricsBackup represents an aggregated metrics record for backup
type MetricsBackup struct {
	WindowKind   string    `json:"window_kind"`
	WindowStart  time.Time `json:"window_start"`
	EventCount   int       `json:"event_count"`
	FeatureUsage string    `json:"feature_usage"`
	Retention    string    `json:"retention"`
	Performance  string    `json:"performance"`
	ComputedAt   time.Time `json:"computed_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	s.logger.Info("database exported", zap.String("path", outputPath))
	return nil
}

// ExportToWriter exports the database as indented JSON to an io.Writer
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
	}

	steps := []struct {
		name string
		fn   func(*BackupData) error
	}{
		{"parents", s.exportParents},
		{"children", s.exportChildren},
		{"rewards", s.exportRewards},
		{"sessions", s.exportSessions},
		{"ledger entries", s.exportLedger},
		{"redemptions", s.exportRedemptions},
		{"events", s.exportEvents},
		{"metrics", s.exportMetrics},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	s.logger.Info("export assembled",
		zap.Int("parents", len(backup.Parents)),
		zap.Int("children", len(backup.Children)),
		zap.Int("rewards", len(backup.Rewards)),
		zap.Int("sessions", len(backup.Sessions)),
		zap.Int("ledger_entries", len(backup.Ledger)),
		zap.Int("redemptions", len(backup.Redemptions)),
		zap.Int("events", len(backup.Events)),
		zap.Int("metrics", len(backup.Metrics)))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// Import restores a database from a backup file. Target tables must be empty;
// rows keep their original IDs so references stay intact.
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	s.logger.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt))

	// parents before children before everything that references them
	if err := s.importParents(backup.Parents); err != nil {
		return fmt.Errorf("failed to import parents: %w", err)
	}
	if err := s.importChildren(backup.Children); err != nil {
		return fmt.Errorf("failed to import children: %w", err)
	}
	if err := s.importRewards(backup.Rewards); err != nil {
		return fmt.Errorf("failed to import rewards: %w", err)
	}
	if err := s.importSessions(backup.Sessions); err != nil {
		return fmt.Errorf("failed to import sessions: %w", err)
	}
	if err := s.importLedger(backup.Ledger); err != nil {
		return fmt.Errorf("failed to import ledger entries: %w", err)
	}
	if err := s.importRedemptions(backup.Redemptions); err != nil {
		return fmt.Errorf("failed to import redemptions: %w", err)
	}
	if err := s.importEvents(backup.Events); err != nil {
		return fmt.Errorf("failed to import events: %w", err)
	}
	if err := s.importMetrics(backup.Metrics); err != nil {
		return fmt.Errorf("failed to import metrics: %w", err)
	}

	s.logger.Info("database import completed")
	return nil
}

func (s *BackupService) exportParents(backup *BackupData) error {
	query := "SELECT id, email, password_hash, COALESCE(name, ''), COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), created_at, updated_at FROM parents ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p ParentBackup
		if err := rows.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.OAuthProvider, &p.OAuthSubject, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		backup.Parents = append(backup.Parents, p)
	}
	return rows.Err()
}

func (s *BackupService) exportChildren(backup *BackupData) error {
	query := "SELECT id, parent_id, name, COALESCE(avatar_color, ''), point_balance, created_at, updated_at FROM children ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ChildBackup
		if err := rows.Scan(&c.ID, &c.ParentID, &c.Name, &c.AvatarColor, &c.PointBalance, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Children = append(backup.Children, c)
	}
	return rows.Err()
}

func (s *BackupService) exportRewards(backup *BackupData) error {
	query := "SELECT id, parent_id, title, COALESCE(description, ''), point_cost, active, created_at, updated_at FROM rewards ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RewardBackup
		if err := rows.Scan(&r.ID, &r.ParentID, &r.Title, &r.Description, &r.PointCost, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return err
		}
		backup.Rewards = append(backup.Rewards, r)
	}
	return rows.Err()
}

func (s *BackupService) exportSessions(backup *BackupData) error {
	query := "SELECT id, child_id, app_name, category, duration_seconds, points_earned, occurred_at, created_at FROM screen_time_sessions ORDER BY created_at, id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sess SessionBackup
		if err := rows.Scan(&sess.ID, &sess.ChildID, &sess.AppName, &sess.Category, &sess.DurationSeconds, &sess.PointsEarned, &sess.OccurredAt, &sess.CreatedAt); err != nil {
			return err
		}
		backup.Sessions = append(backup.Sessions, sess)
	}
	return rows.Err()
}

func (s *BackupService) exportLedger(backup *BackupData) error {
	query := "SELECT id, child_id, kind, points, reference, created_at FROM ledger_entries ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LedgerBackup
		if err := rows.Scan(&l.ID, &l.ChildID, &l.Kind, &l.Points, &l.Reference, &l.CreatedAt); err != nil {
			return err
		}
		backup.Ledger = append(backup.Ledger, l)
	}
	return rows.Err()
}

func (s *BackupService) exportRedemptions(backup *BackupData) error {
	query := "SELECT id, reference_key, child_id, reward_id, point_cost, balance_after, redeemed_at FROM redemptions ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r RedemptionBackup
		if err := rows.Scan(&r.ID, &r.ReferenceKey, &r.ChildID, &r.RewardID, &r.PointCost, &r.BalanceAfter, &r.RedeemedAt); err != nil {
			return err
		}
		backup.Redemptions = append(backup.Redemptions, r)
	}
	return rows.Err()
}

func (s *BackupService) exportEvents(backup *BackupData) error {
	query := "SELECT id, pseudonym, session_token, kind, payload, occurred_at, app_version, os_version, device_class, metadata, aggregated_day, aggregated_week, aggregated_month FROM analytics_events ORDER BY occurred_at, id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e EventBackup
		if err := rows.Scan(&e.ID, &e.Pseudonym, &e.SessionToken, &e.Kind, &e.Payload, &e.OccurredAt, &e.AppVersion, &e.OSVersion, &e.DeviceClass, &e.Metadata, &e.AggregatedDay, &e.AggregatedWeek, &e.AggregatedMonth); err != nil {
			return err
		}
		backup.Events = append(backup.Events, e)
	}
	return rows.Err()
}

func (s *BackupService) exportMetrics(backup *BackupData) error {
	query := "SELECT window_kind, window_start, event_count, feature_usage, retention, performance, computed_at FROM aggregated_metrics ORDER BY window_kind, window_start"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m MetricsBackup
		if err := rows.Scan(&m.WindowKind, &m.WindowStart, &m.EventCount, &m.FeatureUsage, &m.Retention, &m.Performance, &m.ComputedAt); err != nil {
			return err
		}
		backup.Metrics = append(backup.Metrics, m)
	}
	return rows.Err()
}

func (s *BackupService) importParents(parents []ParentBackup) error {
	s.logger.Info("importing parents", zap.Int("count", len(parents)))
	for _, p := range parents {
		query := "INSERT INTO parents (id, email, password_hash, name, oauth_provider, oauth_subject, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, p.ID, p.Email, p.PasswordHash, p.Name, nullIfEmpty(p.OAuthProvider), nullIfEmpty(p.OAuthSubject), p.CreatedAt, p.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import parent %d: %w", p.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importChildren(children []ChildBackup) error {
	s.logger.Info("importing children", zap.Int("count", len(children)))
	for _, c := range children {
		query := "INSERT INTO children (id, parent_id, name, avatar_color, point_balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, c.ID, c.ParentID, c.Name, c.AvatarColor, c.PointBalance, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import child %d: %w", c.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importRewards(rewards []RewardBackup) error {
	s.logger.Info("importing rewards", zap.Int("count", len(rewards)))
	for _, r := range rewards {
		query := "INSERT INTO rewards (id, parent_id, title, description, point_cost, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, r.ID, r.ParentID, r.Title, r.Description, r.PointCost, r.Active, r.CreatedAt, r.UpdatedAt); err != nil {
			return fmt.Errorf("failed to import reward %d: %w", r.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importSessions(sessions []SessionBackup) error {
	s.logger.Info("importing sessions", zap.Int("count", len(sessions)))
	for _, sess := range sessions {
		query := "INSERT INTO screen_time_sessions (id, child_id, app_name, category, duration_seconds, points_earned, occurred_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, sess.ID, sess.ChildID, sess.AppName, sess.Category, sess.DurationSeconds, sess.PointsEarned, sess.OccurredAt, sess.CreatedAt); err != nil {
			return fmt.Errorf("failed to import session %s: %w", sess.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importLedger(entries []LedgerBackup) error {
	s.logger.Info("importing ledger entries", zap.Int("count", len(entries)))
	for _, l := range entries {
		query := "INSERT INTO ledger_entries (id, child_id, kind, points, reference, created_at) VALUES (?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, l.ID, l.ChildID, l.Kind, l.Points, l.Reference, l.CreatedAt); err != nil {
			return fmt.Errorf("failed to import ledger entry %d: %w", l.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importRedemptions(redemptions []RedemptionBackup) error {
	s.logger.Info("importing redemptions", zap.Int("count", len(redemptions)))
	for _, r := range redemptions {
		query := "INSERT INTO redemptions (id, reference_key, child_id, reward_id, point_cost, balance_after, redeemed_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, r.ID, r.ReferenceKey, r.ChildID, r.RewardID, r.PointCost, r.BalanceAfter, r.RedeemedAt); err != nil {
			return fmt.Errorf("failed to import redemption %d: %w", r.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importEvents(events []EventBackup) error {
	s.logger.Info("importing events", zap.Int("count", len(events)))
	for _, e := range events {
		query := "INSERT INTO analytics_events (id, pseudonym, session_token, kind, payload, occurred_at, app_version, os_version, device_class, metadata, aggregated_day, aggregated_week, aggregated_month) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, e.ID, e.Pseudonym, e.SessionToken, e.Kind, e.Payload, e.OccurredAt, e.AppVersion, e.OSVersion, e.DeviceClass, e.Metadata, e.AggregatedDay, e.AggregatedWeek, e.AggregatedMonth); err != nil {
			return fmt.Errorf("failed to import event %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importMetrics(records []MetricsBackup) error {
	s.logger.Info("importing metrics", zap.Int("count", len(records)))
	for _, m := range records {
		query := "INSERT INTO aggregated_metrics (window_kind, window_start, event_count, feature_usage, retention, performance, computed_at) VALUES (?, ?, ?, ?, ?, ?, ?)"
		if _, err := s.db.Exec(query, m.WindowKind, m.WindowStart, m.EventCount, m.FeatureUsage, m.Retention, m.Performance, m.ComputedAt); err != nil {
			return fmt.Errorf("failed to import metrics %s/%s: %w", m.WindowKind, m.WindowStart, err)
		}
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
