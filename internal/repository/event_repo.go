package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"screenpoints/internal/database"
	"screenpoints/internal/models"
)

// EventRepository stores anonymized analytics events. Raw events never reach
// this layer. Each row tracks which window granularities have aggregated it;
// rows become purgeable only once all three have.
type EventRepository struct {
	db database.DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// InsertEvent stores an anonymized event. Replayed event IDs are ignored to
// tolerate at-least-once delivery.
func (r *EventRepository) InsertEvent(e *models.AnonymizedEvent) error {
	payload, err := models.EncodePayload(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	metadata := []byte("{}")
	if len(e.Metadata) > 0 {
		metadata, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	query := `
		INSERT INTO analytics_events
			(id, pseudonym, session_token, kind, payload, occurred_at, app_version, os_version, device_class, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		e.ID,
		e.Pseudonym,
		e.SessionToken,
		string(e.Payload.EventKind()),
		string(payload),
		e.OccurredAt,
		e.AppVersion,
		e.OSVersion,
		string(e.DeviceClass),
		string(metadata),
	)
	if err != nil {
		if r.db.GetDialect().IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ListWindow returns all events with occurred_at in [start, end), in a
// deterministic order so recomputing a window is reproducible.
func (r *EventRepository) ListWindow(start, end time.Time) ([]models.AnonymizedEvent, error) {
	query := `
		SELECT id, pseudonym, session_token, kind, payload, occurred_at, app_version, os_version, device_class, metadata
		FROM analytics_events
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := r.db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.AnonymizedEvent
	for rows.Next() {
		var e models.AnonymizedEvent
		var kind, payload, deviceClass, metadata string
		if err := rows.Scan(&e.ID, &e.Pseudonym, &e.SessionToken, &kind, &payload, &e.OccurredAt, &e.AppVersion, &e.OSVersion, &deviceClass, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload, err = models.DecodePayload(models.EventKind(kind), []byte(payload))
		if err != nil {
			return nil, err
		}
		e.DeviceClass = models.DeviceClass(deviceClass)
		if metadata != "" && metadata != "{}" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// PseudonymsBefore returns the distinct pseudonyms with any event before t.
// Used to separate a window's new-user cohort from returning users.
func (r *EventRepository) PseudonymsBefore(t time.Time) (map[string]struct{}, error) {
	return r.pseudonymSet("SELECT DISTINCT pseudonym FROM analytics_events WHERE occurred_at < ?", t)
}

// ActivePseudonymsBetween returns the distinct pseudonyms with any event in
// [start, end). Used for retention follow-up days.
func (r *EventRepository) ActivePseudonymsBetween(start, end time.Time) (map[string]struct{}, error) {
	return r.pseudonymSet("SELECT DISTINCT pseudonym FROM analytics_events WHERE occurred_at >= ? AND occurred_at < ?", start, end)
}

func (r *EventRepository) pseudonymSet(query string, args ...interface{}) (map[string]struct{}, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pseudonyms: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan pseudonym: %w", err)
		}
		set[p] = struct{}{}
	}
	return set, rows.Err()
}

// MarkAggregated flags every event in [start, end) as covered by the given
// window granularity.
func (r *EventRepository) MarkAggregated(kind models.WindowKind, start, end time.Time) error {
	var column string
	switch kind {
	case models.WindowDay:
		column = "aggregated_day"
	case models.WindowWeek:
		column = "aggregated_week"
	case models.WindowMonth:
		column = "aggregated_month"
	default:
		return fmt.Errorf("unknown window kind: %s", kind)
	}

	query := "UPDATE analytics_events SET " + column + " = " + r.db.GetDialect().BoolValue(true) +
		" WHERE occurred_at >= ? AND occurred_at < ?"
	if _, err := r.db.Exec(query, start, end); err != nil {
		return fmt.Errorf("failed to mark events aggregated: %w", err)
	}
	return nil
}

// PurgeAggregated deletes events older than the cutoff that every window
// granularity has already aggregated. Events missing any flag are retained
// regardless of age.
func (r *EventRepository) PurgeAggregated(before time.Time) (int64, error) {
	t := r.db.GetDialect().BoolValue(true)
	query := "DELETE FROM analytics_events WHERE occurred_at < ?" +
		" AND aggregated_day = " + t +
		" AND aggregated_week = " + t +
		" AND aggregated_month = " + t
	result, err := r.db.Exec(query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	return result.RowsAffected()
}
