// Package ports declares the storage and collaborator contracts of the ledger.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/google/uuid"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/projection"
	"provenant/internal/outbox"
)

// Reader serves committed state. Lookups of a single missing entity return
// sentinel.ErrNotFound.
type Reader interface {
	// Events returns the events of a record in sequence order.
	Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error)
	EventBySequence(ctx context.Context, seq int64) (*models.Event, error)
	// ScanEvents visits every event in sequence order. Returning an error from
	// fn stops the scan.
	ScanEvents(ctx context.Context, fn func(models.Event) error) error
	Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error)
	// Projections lists projected states, all partitions when partitionID is empty.
	Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error)
	// Conflicts lists conflict records, of every record when recordID is uuid.Nil.
	Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error)
	Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error)
}

// Ledger is the event store.
type Ledger interface {
	Reader
	// Within runs fn as one atomic unit. Units are serialized: at most one runs
	// at a time across every process sharing the store. When fn returns an
	// error nothing it wrote is kept, including sequence numbers it drew.
	Within(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	// Snapshot runs fn so that every read made through the ctx it receives
	// observes one committed state, unaffected by units committing meanwhile.
	Snapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerTx is the write surface of one atomic unit. Events can be inserted
// but never updated or removed.
type LedgerTx interface {
	NextSequence(ctx context.Context) (int64, error)
	Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error)
	// LastEvent returns the highest sequenced event of a record.
	LastEvent(ctx context.Context, recordID uuid.UUID) (*models.Event, error)
	EventBySequence(ctx context.Context, seq int64) (*models.Event, error)
	InsertEvent(ctx context.Context, e models.Event) error

	Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error)
	Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error)
	// SaveProjection is the only write path of projected state.
	SaveProjection(ctx context.Context, applied projection.Applied) error

	InsertConflict(ctx context.Context, c models.ConflictRecord) error
	UpdateConflict(ctx context.Context, c models.ConflictRecord) error
	Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error)
	Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error)

	AccessRecorder
	EnqueueOutbox(ctx context.Context, msg outbox.Message) error
}

// AccessRecorder persists break-glass access log entries.
type AccessRecorder interface {
	RecordAccess(ctx context.Context, entry bgmodels.AccessLogEntry) error
}

// EnrollmentChecker answers whether a subject may write at a partition.
type EnrollmentChecker interface {
	IsActivelyEnrolled(ctx context.Context, subjectID, partitionID string) (bool, error)
}

// AccessGuard admits admin access to sensitive tables and logs it through
// recorder in the caller's unit.
type AccessGuard interface {
	Access(ctx context.Context, adminID, table string, recordID uuid.UUID, op bgmodels.AccessOperation, recorder AccessRecorder) error
}
