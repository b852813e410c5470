package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// MetricsRepository stores aggregated metrics, one record per window.
// Writes replace the existing record wholesale so recomputation never
// double-counts.
type MetricsRepository struct {
	db *database.DB
}

// NewMetricsRepository creates a new metrics repository
func NewMetricsRepository(db *database.DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// ReplaceMetrics deletes any prior record for the window and inserts the new
// one in a single transaction.
func (r *MetricsRepository) ReplaceMetrics(m *models.AggregatedMetrics) error {
	featureUsage, err := json.Marshal(m.FeatureUsage)
	if err != nil {
		return fmt.Errorf("failed to encode feature usage: %w", err)
	}
	retention, err := json.Marshal(m.Retention)
	if err != nil {
		return fmt.Errorf("failed to encode retention: %w", err)
	}
	performance, err := json.Marshal(m.Performance)
	if err != nil {
		return fmt.Errorf("failed to encode performance: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	del := "DELETE FROM aggregated_metrics WHERE window_kind = ? AND window_start = ?"
	if _, err := tx.Exec(del, string(m.Window.Kind), m.Window.Start); err != nil {
		return fmt.Errorf("failed to clear prior metrics: %w", err)
	}

	ins := `
		INSERT INTO aggregated_metrics
			(window_kind, window_start, event_count, feature_usage, retention, performance, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := tx.Exec(ins,
		string(m.Window.Kind),
		m.Window.Start,
		m.EventCount,
		string(featureUsage),
		string(retention),
		string(performance),
		m.ComputedAt,
	); err != nil {
		return fmt.Errorf("failed to insert metrics: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics: %w", err)
	}
	return nil
}

// GetMetrics retrieves the metrics record for a window
func (r *MetricsRepository) GetMetrics(kind models.WindowKind, start time.Time) (*models.AggregatedMetrics, error) {
	query := `
		SELECT window_kind, window_start, event_count, feature_usage, retention, performance, computed_at
		FROM aggregated_metrics
		WHERE window_kind = ? AND window_start = ?
	`
	m, err := r.scanMetrics(r.db.QueryRow(query, string(kind), start))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMetrics retrieves metrics records of one kind with window start in
// [from, to), oldest first.
func (r *MetricsRepository) ListMetrics(kind models.WindowKind, from, to time.Time) ([]models.AggregatedMetrics, error) {
	query := `
		SELECT window_kind, window_start, event_count, feature_usage, retention, performance, computed_at
		FROM aggregated_metrics
		WHERE window_kind = ? AND window_start >= ? AND window_start < ?
		ORDER BY window_start ASC
	`
	rows, err := r.db.Query(query, string(kind), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var result []models.AggregatedMetrics
	for rows.Next() {
		var (
			m                                 models.AggregatedMetrics
			kindStr, feature, retention, perf string
		)
		if err := rows.Scan(&kindStr, &m.Window.Start, &m.EventCount, &feature, &retention, &perf, &m.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}
		m.Window.Kind = models.WindowKind(kindStr)
		if err := decodeMetricsColumns(&m, feature, retention, perf); err != nil {
			return nil, err
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

func (r *MetricsRepository) scanMetrics(row *sql.Row) (*models.AggregatedMetrics, error) {
	var (
		m                                 models.AggregatedMetrics
		kindStr, feature, retention, perf string
	)
	err := row.Scan(&kindStr, &m.Window.Start, &m.EventCount, &feature, &retention, &perf, &m.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	m.Window.Kind = models.WindowKind(kindStr)
	if err := decodeMetricsColumns(&m, feature, retention, perf); err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeMetricsColumns(m *models.AggregatedMetrics, feature, retention, perf string) error {
	if err := json.Unmarshal([]byte(feature), &m.FeatureUsage); err != nil {
		return fmt.Errorf("failed to decode feature usage: %w", err)
	}
	if err := json.Unmarshal([]byte(retention), &m.Retention); err != nil {
		return fmt.Errorf("failed to decode retention: %w", err)
	}
	if err := json.Unmarshal([]byte(perf), &m.Performance); err != nil {
		return fmt.Errorf("failed to decode performance: %w", err)
	}
	return nil
}
