package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "provenant/pkg/platform/audit"
	txcontext "provenant/pkg/platform/tx"
)

// Store writes audit events to the audit_events table, joining the
// transaction carried by ctx when one is open.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, timestamp, action, subject, actor_id, actor_role,
			reason, decision, request_id, ip, severity
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		event.Action,
		event.Subject,
		event.ActorID,
		event.ActorRole,
		event.Reason,
		event.Decision,
		event.RequestID,
		event.IP,
		string(event.Severity),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, action, subject, actor_id, actor_role,
			reason, decision, request_id, ip, severity
		FROM audit_events
		ORDER BY timestamp DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var category, severity string
		if err := rows.Scan(&category, &e.Timestamp, &e.Action, &e.Subject, &e.ActorID, &e.ActorRole,
			&e.Reason, &e.Decision, &e.RequestID, &e.IP, &severity); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.Severity = audit.Severity(severity)
		out = append(out, e)
	}
	return out, rows.Err()
}
