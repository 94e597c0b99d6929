package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"provenant/internal/ledger/models"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

const conflictColumns = `
	id, record_id, client_version, server_version, client_payload, server_payload,
	submitted_by, detected_at, resolved, resolution_strategy, resolved_payload,
	resolved_by, resolved_at, resolved_sequence_id`

func scanConflict(row scanner) (models.ConflictRecord, error) {
	var (
		c                            models.ConflictRecord
		clientPayload, serverPayload []byte
		resolvedPayload              []byte
		strategy, resolvedBy         sql.NullString
		resolvedAt                   sql.NullTime
		resolvedSeq                  sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.RecordID, &c.ClientVersion, &c.ServerVersion, &clientPayload, &serverPayload,
		&c.SubmittedBy, &c.DetectedAt, &c.Resolved, &strategy, &resolvedPayload,
		&resolvedBy, &resolvedAt, &resolvedSeq)
	if err != nil {
		return models.ConflictRecord{}, err
	}
	if err := json.Unmarshal(clientPayload, &c.ClientPayload); err != nil {
		return models.ConflictRecord{}, fmt.Errorf("decode client payload of conflict %s: %w", c.ID, err)
	}
	if err := json.Unmarshal(serverPayload, &c.ServerPayload); err != nil {
		return models.ConflictRecord{}, fmt.Errorf("decode server payload of conflict %s: %w", c.ID, err)
	}
	if resolvedPayload != nil {
		var p models.Payload
		if err := json.Unmarshal(resolvedPayload, &p); err != nil {
			return models.ConflictRecord{}, fmt.Errorf("decode resolved payload of conflict %s: %w", c.ID, err)
		}
		c.ResolvedPayload = &p
	}
	c.DetectedAt = c.DetectedAt.UTC()
	c.ResolutionStrategy = models.ResolutionStrategy(strategy.String)
	c.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		at := resolvedAt.Time.UTC()
		c.ResolvedAt = &at
	}
	if resolvedSeq.Valid {
		seq := resolvedSeq.Int64
		c.ResolvedSequenceID = &seq
	}
	return c, nil
}

func queryConflicts(ctx context.Context, q txcontext.Executor, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	query := `SELECT ` + conflictColumns + ` FROM conflict_records
		WHERE ($1::uuid IS NULL OR record_id = $1)
		AND (NOT $2 OR NOT resolved)
		ORDER BY position`
	var filter any
	if recordID != uuid.Nil {
		filter = recordID
	}
	rows, err := q.QueryContext(ctx, query, filter, onlyOpen)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	var out []models.ConflictRecord
	for rows.Next() {
		c, err := scanConflict(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func conflictByID(ctx context.Context, q txcontext.Executor, id uuid.UUID) (*models.ConflictRecord, error) {
	c, err := scanConflict(q.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM conflict_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get conflict %s: %w", id, err)
	}
	return &c, nil
}

// nullableJSON encodes v, or returns nil for a nil pointer.
func nullableJSON(p *models.Payload) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}
