// Package postgres is the durable ledger store.
//
// Units run in one database transaction that first locks the ledger_sequence
// row, so units are serialized across every process sharing the database and
// sequence numbers drawn by a rolled back unit are reused. ledger_events is
// guarded by triggers that refuse UPDATE, DELETE and TRUNCATE.
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
	"provenant/internal/ledger/ports"
	"provenant/internal/outbox"
	"provenant/pkg/domain"
	"provenant/pkg/platform/sentinel"
	txcontext "provenant/pkg/platform/tx"
)

// AccessSink writes break-glass access log entries. It must join the
// transaction carried by ctx.
type AccessSink interface {
	AppendAccess(ctx context.Context, entry bgmodels.AccessLogEntry) error
}

// OutboxSink writes outbox messages. It must join the transaction carried by
// ctx.
type OutboxSink interface {
	Enqueue(ctx context.Context, msg outbox.Message) error
}

type Store struct {
	db     *sql.DB
	access AccessSink
	outbox OutboxSink
}

func New(db *sql.DB, access AccessSink, outbox OutboxSink) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if access == nil {
		return nil, errors.New("access log sink is required")
	}
	if outbox == nil {
		return nil, errors.New("outbox sink is required")
	}
	return &Store{db: db, access: access, outbox: outbox}, nil
}

var _ ports.Ledger = (*Store)(nil)

// Within runs fn inside a read committed transaction holding the sequence
// row lock.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	return txcontext.Run(ctx, s.db, opts, func(ctx context.Context) error {
		var last int64
		err := txcontext.Pick(ctx, s.db).QueryRowContext(ctx,
			`SELECT last_used FROM ledger_sequence WHERE id = 1 FOR UPDATE`).Scan(&last)
		if err != nil {
			return fmt.Errorf("lock ledger sequence: %w", err)
		}
		u := &unit{store: s, base: last, next: last, inserted: make(map[int64]uuid.UUID)}
		if err := fn(ctx, u); err != nil {
			return err
		}
		if drawn := u.next - u.base; drawn != int64(len(u.inserted)) {
			return fmt.Errorf("unit drew %d sequence numbers but inserted %d events", drawn, len(u.inserted))
		}
		if u.next == u.base {
			return nil
		}
		_, err = txcontext.Pick(ctx, s.db).ExecContext(ctx,
			`UPDATE ledger_sequence SET last_used = $1 WHERE id = 1`, u.next)
		if err != nil {
			return fmt.Errorf("advance ledger sequence: %w", err)
		}
		return nil
	})
}

// Snapshot runs fn in a read-only repeatable read transaction. Every read made
// through the ctx passed to fn, including reads of other stores sharing the
// database, observes the same committed state.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	return txcontext.Run(ctx, s.db, opts, fn)
}

const eventColumns = `
	sequence_id, record_id, subject_id, partition_id, action, origin,
	payload_kind, payload_version, payload_data, actor_id, actor_role,
	client_time, server_time, parent_sequence_id, reason, conflict_resolved,
	provenance, digest, chain_digest`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (models.Event, error) {
	var (
		e          models.Event
		action     string
		origin     string
		actorRole  string
		data       []byte
		provenance []byte
		parent     sql.NullInt64
	)
	err := row.Scan(&e.SequenceID, &e.RecordID, &e.SubjectID, &e.PartitionID, &action, &origin,
		&e.Payload.Kind, &e.Payload.Version, &data, &e.ActorID, &actorRole,
		&e.ClientTime, &e.ServerTime, &parent, &e.Reason, &e.ConflictResolved,
		&provenance, &e.Digest, &e.ChainDigest)
	if err != nil {
		return models.Event{}, err
	}
	e.Operation = models.Operation{Action: models.Action(action), Origin: domain.Role(origin)}
	e.ActorRole = domain.Role(actorRole)
	e.Payload.Data = json.RawMessage(data)
	e.ClientTime = e.ClientTime.UTC()
	e.ServerTime = e.ServerTime.UTC()
	if parent.Valid {
		p := parent.Int64
		e.ParentSequenceID = &p
	}
	if err := json.Unmarshal(provenance, &e.Provenance); err != nil {
		return models.Event{}, fmt.Errorf("decode provenance of event %d: %w", e.SequenceID, err)
	}
	return e, nil
}

func queryEvents(ctx context.Context, q txcontext.Executor, query string, args ...any) ([]models.Event, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func eventBySequence(ctx context.Context, q txcontext.Executor, seq int64) (*models.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM ledger_events WHERE sequence_id = $1`, seq))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get event %d: %w", seq, err)
	}
	return &e, nil
}

func (s *Store) Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error) {
	return queryEvents(ctx, txcontext.Pick(ctx, s.db),
		`SELECT `+eventColumns+` FROM ledger_events WHERE record_id = $1 ORDER BY sequence_id`, recordID)
}

func (s *Store) EventBySequence(ctx context.Context, seq int64) (*models.Event, error) {
	return eventBySequence(ctx, txcontext.Pick(ctx, s.db), seq)
}

// ScanEvents streams every event in sequence order without loading the whole
// ledger into memory.
func (s *Store) ScanEvents(ctx context.Context, fn func(models.Event) error) error {
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, `SELECT `+eventColumns+` FROM ledger_events ORDER BY sequence_id`)
	if err != nil {
		return fmt.Errorf("scan events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

const projectionColumns = `
	record_id, subject_id, partition_id, current_payload, annotation,
	version, head_sequence_id, is_deleted, created_at, updated_at`

func scanProjection(row scanner) (models.ProjectedState, error) {
	var (
		p          models.ProjectedState
		current    []byte
		annotation []byte
	)
	err := row.Scan(&p.RecordID, &p.SubjectID, &p.PartitionID, &current, &annotation,
		&p.Version, &p.HeadSequenceID, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.ProjectedState{}, err
	}
	if err := json.Unmarshal(current, &p.CurrentPayload); err != nil {
		return models.ProjectedState{}, fmt.Errorf("decode payload of %s: %w", p.RecordID, err)
	}
	if annotation != nil {
		var a models.Payload
		if err := json.Unmarshal(annotation, &a); err != nil {
			return models.ProjectedState{}, fmt.Errorf("decode annotation of %s: %w", p.RecordID, err)
		}
		p.Annotation = &a
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func projectionByRecord(ctx context.Context, q txcontext.Executor, recordID uuid.UUID, lock bool) (*models.ProjectedState, error) {
	query := `SELECT ` + projectionColumns + ` FROM projected_states WHERE record_id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	p, err := scanProjection(q.QueryRowContext(ctx, query, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get projection %s: %w", recordID, err)
	}
	return &p, nil
}

func (s *Store) Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error) {
	return projectionByRecord(ctx, txcontext.Pick(ctx, s.db), recordID, false)
}

func (s *Store) Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error) {
	query := `SELECT ` + projectionColumns + ` FROM projected_states
		WHERE ($1 = '' OR partition_id = $1)
		ORDER BY created_at, record_id`
	rows, err := txcontext.Pick(ctx, s.db).QueryContext(ctx, query, partitionID)
	if err != nil {
		return nil, fmt.Errorf("query projections: %w", err)
	}
	defer rows.Close()

	out := []models.ProjectedState{}
	for rows.Next() {
		p, err := scanProjection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan projection: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	return queryConflicts(ctx, txcontext.Pick(ctx, s.db), recordID, onlyOpen)
}

func (s *Store) Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	return conflictByID(ctx, txcontext.Pick(ctx, s.db), id)
}
