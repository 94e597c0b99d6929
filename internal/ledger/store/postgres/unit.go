package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/projection"
	"provenant/internal/outbox"
	pgplatform "provenant/internal/platform/postgres"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

// unit is the write surface of one Within call. Every statement runs on the
// transaction carried by ctx.
type unit struct {
	store    *Store
	base     int64
	next     int64
	inserted map[int64]uuid.UUID
}

func (u *unit) q(ctx context.Context) txcontext.Executor {
	return txcontext.Pick(ctx, u.store.db)
}

func (u *unit) NextSequence(context.Context) (int64, error) {
	u.next++
	return u.next, nil
}

func (u *unit) Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error) {
	return queryEvents(ctx, u.q(ctx),
		`SELECT `+eventColumns+` FROM ledger_events WHERE record_id = $1 ORDER BY sequence_id`, recordID)
}

func (u *unit) LastEvent(ctx context.Context, recordID uuid.UUID) (*models.Event, error) {
	e, err := scanEvent(u.q(ctx).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM ledger_events WHERE record_id = $1 ORDER BY sequence_id DESC LIMIT 1`, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get last event of %s: %w", recordID, err)
	}
	return &e, nil
}

func (u *unit) EventBySequence(ctx context.Context, seq int64) (*models.Event, error) {
	return eventBySequence(ctx, u.q(ctx), seq)
}

// InsertEvent writes e. Sequence ids must be drawn from NextSequence and
// inserted in order.
func (u *unit) InsertEvent(ctx context.Context, e models.Event) error {
	want := u.base + int64(len(u.inserted)) + 1
	if e.SequenceID != want || e.SequenceID > u.next {
		return fmt.Errorf("insert event %d: sequence was not drawn in order", e.SequenceID)
	}
	if e.Digest == "" || e.ChainDigest == "" {
		return fmt.Errorf("insert event %d: event is not sealed", e.SequenceID)
	}
	provenance, err := json.Marshal(e.Provenance)
	if err != nil {
		return fmt.Errorf("encode provenance: %w", err)
	}
	data := []byte(e.Payload.Data)
	if len(data) == 0 {
		data = []byte("null")
	}
	var parent sql.NullInt64
	if e.ParentSequenceID != nil {
		parent = sql.NullInt64{Int64: *e.ParentSequenceID, Valid: true}
	}
	query := `
		INSERT INTO ledger_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = u.q(ctx).ExecContext(ctx, query,
		e.SequenceID, e.RecordID, e.SubjectID, e.PartitionID,
		string(e.Operation.Action), string(e.Operation.Origin),
		e.Payload.Kind, e.Payload.Version, string(data), e.ActorID, string(e.ActorRole),
		e.ClientTime, e.ServerTime, parent, e.Reason, e.ConflictResolved,
		string(provenance), e.Digest, e.ChainDigest)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", e.SequenceID, pgplatform.TranslateError(err))
	}
	u.inserted[e.SequenceID] = e.RecordID
	return nil
}

// Projection locks the row for the rest of the unit.
func (u *unit) Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error) {
	return projectionByRecord(ctx, u.q(ctx), recordID, true)
}

func (u *unit) Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error) {
	return u.store.Projections(ctx, partitionID)
}

func (u *unit) SaveProjection(ctx context.Context, applied projection.Applied) error {
	if applied.IsZero() {
		return fmt.Errorf("save projection: state was not produced by the projector")
	}
	state := applied.State()
	if rid, ok := u.inserted[state.HeadSequenceID]; !ok || rid != state.RecordID {
		return fmt.Errorf("save projection of %s: head %d is not an event of this unit", state.RecordID, state.HeadSequenceID)
	}
	current, err := json.Marshal(state.CurrentPayload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	annotation, err := nullableJSON(state.Annotation)
	if err != nil {
		return fmt.Errorf("encode annotation: %w", err)
	}
	query := `
		INSERT INTO projected_states (` + projectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (record_id) DO UPDATE SET
			current_payload = EXCLUDED.current_payload,
			annotation = EXCLUDED.annotation,
			version = EXCLUDED.version,
			head_sequence_id = EXCLUDED.head_sequence_id,
			is_deleted = EXCLUDED.is_deleted,
			updated_at = EXCLUDED.updated_at
	`
	_, err = u.q(ctx).ExecContext(ctx, query,
		state.RecordID, state.SubjectID, state.PartitionID, current, annotation,
		state.Version, state.HeadSequenceID, state.IsDeleted, state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save projection of %s: %w", state.RecordID, err)
	}
	return nil
}

func (u *unit) InsertConflict(ctx context.Context, c models.ConflictRecord) error {
	clientPayload, err := json.Marshal(c.ClientPayload)
	if err != nil {
		return fmt.Errorf("encode client payload: %w", err)
	}
	serverPayload, err := json.Marshal(c.ServerPayload)
	if err != nil {
		return fmt.Errorf("encode server payload: %w", err)
	}
	resolvedPayload, err := nullableJSON(c.ResolvedPayload)
	if err != nil {
		return fmt.Errorf("encode resolved payload: %w", err)
	}
	query := `
		INSERT INTO conflict_records (
			id, record_id, client_version, server_version, client_payload, server_payload,
			submitted_by, detected_at, resolved, resolution_strategy, resolved_payload,
			resolved_by, resolved_at, resolved_sequence_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, NULLIF($12, ''), $13, $14)
	`
	_, err = u.q(ctx).ExecContext(ctx, query,
		c.ID, c.RecordID, c.ClientVersion, c.ServerVersion, clientPayload, serverPayload,
		c.SubmittedBy, c.DetectedAt, c.Resolved, string(c.ResolutionStrategy), resolvedPayload,
		c.ResolvedBy, c.ResolvedAt, c.ResolvedSequenceID)
	if err != nil {
		return fmt.Errorf("insert conflict %s: %w", c.ID, pgplatform.TranslateError(err))
	}
	return nil
}

// UpdateConflict records a resolution. A resolved record is never reopened.
func (u *unit) UpdateConflict(ctx context.Context, c models.ConflictRecord) error {
	resolvedPayload, err := nullableJSON(c.ResolvedPayload)
	if err != nil {
		return fmt.Errorf("encode resolved payload: %w", err)
	}
	query := `
		UPDATE conflict_records SET
			resolved = $2,
			resolution_strategy = NULLIF($3, ''),
			resolved_payload = $4,
			resolved_by = NULLIF($5, ''),
			resolved_at = $6,
			resolved_sequence_id = $7
		WHERE id = $1 AND NOT resolved
	`
	res, err := u.q(ctx).ExecContext(ctx, query,
		c.ID, c.Resolved, string(c.ResolutionStrategy), resolvedPayload, c.ResolvedBy, c.ResolvedAt, c.ResolvedSequenceID)
	if err != nil {
		return fmt.Errorf("update conflict %s: %w", c.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update conflict %s: %w", c.ID, err)
	}
	if affected == 1 {
		return nil
	}
	if _, err := conflictByID(ctx, u.q(ctx), c.ID); err != nil {
		return fmt.Errorf("update conflict %s: %w", c.ID, err)
	}
	return fmt.Errorf("update conflict %s: %w", c.ID, sentinel.ErrInvalidState)
}

func (u *unit) Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	return queryConflicts(ctx, u.q(ctx), recordID, onlyOpen)
}

func (u *unit) Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	return conflictByID(ctx, u.q(ctx), id)
}

func (u *unit) RecordAccess(ctx context.Context, entry bgmodels.AccessLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := u.store.access.AppendAccess(ctx, entry); err != nil {
		return fmt.Errorf("record access log entry: %w", err)
	}
	return nil
}

func (u *unit) EnqueueOutbox(ctx context.Context, msg outbox.Message) error {
	if err := u.store.outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}
