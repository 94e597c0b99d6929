// Package postgres persists break-glass authorizations and their access log.
// Writes join the transaction carried by ctx, so an access log entry commits
// with the ledger unit that made the access.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"provenant/internal/breakglass/models"
	pgplatform "provenant/internal/platform/postgres"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

const foreignKeyViolation = "23503"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// RunInTx runs fn in a transaction shared by every store that picks the
// executor from ctx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, nil, fn)
}

const authorizationColumns = `
	id, admin_id, ticket_id, justification, granted_at, expires_at,
	revoked_at, revoked_by, revocation_reason`

func scanAuthorization(row interface{ Scan(...any) error }) (models.Authorization, error) {
	var (
		a                 models.Authorization
		revokedAt         sql.NullTime
		revokedBy, reason sql.NullString
	)
	err := row.Scan(&a.ID, &a.AdminID, &a.TicketID, &a.Justification, &a.GrantedAt, &a.ExpiresAt,
		&revokedAt, &revokedBy, &reason)
	if err != nil {
		return models.Authorization{}, err
	}
	a.GrantedAt = a.GrantedAt.UTC()
	a.ExpiresAt = a.ExpiresAt.UTC()
	if revokedAt.Valid {
		at := revokedAt.Time.UTC()
		a.RevokedAt = &at
	}
	a.RevokedBy = revokedBy.String
	a.RevocationReason = reason.String
	return a, nil
}

func (s *Store) Create(ctx context.Context, a *models.Authorization) error {
	if a == nil {
		return fmt.Errorf("authorization is required")
	}
	query := `
		INSERT INTO breakglass_authorizations (id, admin_id, ticket_id, justification, granted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		a.ID, a.AdminID, a.TicketID, a.Justification, a.GrantedAt, a.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert authorization %s: %w", a.ID, pgplatform.TranslateError(err))
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*models.Authorization, error) {
	a, err := scanAuthorization(txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+authorizationColumns+` FROM breakglass_authorizations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get authorization %s: %w", id, err)
	}
	return &a, nil
}

func (s *Store) ListByAdmin(ctx context.Context, adminID string) ([]models.Authorization, error) {
	return s.list(ctx, `SELECT `+authorizationColumns+` FROM breakglass_authorizations
		WHERE admin_id = $1 ORDER BY granted_at, id`, adminID)
}

func (s *Store) List(ctx context.Context) ([]models.Authorization, error) {
	return s.list(ctx, `SELECT `+authorizationColumns+` FROM breakglass_authorizations ORDER BY granted_at, id`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]models.Authorization, error) {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query authorizations: %w", err)
	}
	defer rows.Close()

	var out []models.Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan authorization: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Revoke sets the revocation once.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID, at time.Time, by, reason string) error {
	query := `
		UPDATE breakglass_authorizations
		SET revoked_at = $2, revoked_by = $3, revocation_reason = $4
		WHERE id = $1 AND revoked_at IS NULL
	`
	res, err := txcontext.Pick(ctx, s.db).ExecContext(ctx, query, id, at, by, reason)
	if err != nil {
		return fmt.Errorf("revoke authorization %s: %w", id, pgplatform.TranslateError(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke authorization %s: %w", id, err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return sentinel.ErrInvalidState
}

func (s *Store) AppendAccess(ctx context.Context, entry models.AccessLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	accessContext, err := json.Marshal(entry.Context)
	if err != nil {
		return fmt.Errorf("encode access context: %w", err)
	}
	query := `
		INSERT INTO breakglass_access_log (
			id, authorization_id, admin_id, table_name, record_id, operation, accessed_at, context
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx, query,
		entry.ID, entry.AuthorizationID, entry.AdminID, entry.TableName, entry.RecordID,
		string(entry.Operation), entry.Timestamp, accessContext)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("access log entry for authorization %s: %w", entry.AuthorizationID, sentinel.ErrNotFound)
		}
		return fmt.Errorf("insert access log entry: %w", pgplatform.TranslateError(err))
	}
	return nil
}

const accessColumns = `
	id, authorization_id, admin_id, table_name, record_id, operation, accessed_at, context`

func scanAccess(row interface{ Scan(...any) error }) (models.AccessLogEntry, error) {
	var (
		e         models.AccessLogEntry
		operation string
		raw       []byte
	)
	if err := row.Scan(&e.ID, &e.AuthorizationID, &e.AdminID, &e.TableName, &e.RecordID,
		&operation, &e.Timestamp, &raw); err != nil {
		return models.AccessLogEntry{}, err
	}
	e.Operation = models.AccessOperation(operation)
	e.Timestamp = e.Timestamp.UTC()
	if err := json.Unmarshal(raw, &e.Context); err != nil {
		return models.AccessLogEntry{}, fmt.Errorf("decode access context of %s: %w", e.ID, err)
	}
	return e, nil
}

// ListAccessLog returns the entries of one authorization, of every
// authorization when authorizationID is uuid.Nil.
func (s *Store) ListAccessLog(ctx context.Context, authorizationID uuid.UUID) ([]models.AccessLogEntry, error) {
	var out []models.AccessLogEntry
	err := s.scan(ctx, authorizationID, func(e models.AccessLogEntry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

// ScanAccessLog visits every entry in append order.
func (s *Store) ScanAccessLog(ctx context.Context, fn func(models.AccessLogEntry) error) error {
	return s.scan(ctx, uuid.Nil, fn)
}

func (s *Store) scan(ctx context.Context, authorizationID uuid.UUID, fn func(models.AccessLogEntry) error) error {
	query := `SELECT ` + accessColumns + ` FROM breakglass_access_log
		WHERE ($1::uuid IS NULL OR authorization_id = $1)
		ORDER BY position`
	var filter any
	if authorizationID != uuid.Nil {
		filter = authorizationID
	}
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, filter)
	if err != nil {
		return fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanAccess(rows)
		if err != nil {
			return fmt.Errorf("scan access log entry: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
