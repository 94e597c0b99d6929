package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/ports"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

// recordReader is served both by committed state and by a ledger unit.
type recordReader interface {
	Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error)
	EventBySequence(ctx context.Context, seq int64) (*models.Event, error)
	Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error)
	Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error)
	Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error)
}

// read runs fn against committed state. Admins read through a unit that
// first admits the access and logs it; fn returns the record it touched.
func (s *Service) read(ctx context.Context, table string, fn func(ctx context.Context, r recordReader) (uuid.UUID, error)) error {
	actor := requestcontext.Actor(ctx)
	if actor.Role != domain.RoleAdmin {
		_, err := fn(ctx, s.ledger)
		return err
	}
	return s.ledger.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx ports.LedgerTx) error {
		recordID, err := fn(ctx, tx)
		if err != nil {
			return err
		}
		return s.guard.Access(ctx, actor.ID, table, recordID, bgmodels.AccessRead, tx)
	})
}

func notFound(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, what+" not found")
	}
	return translate(err, "failed to load "+what)
}

// GetState returns the projected state of a record.
func (s *Service) GetState(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error) {
	var state *models.ProjectedState
	err := s.read(ctx, TableProjections, func(ctx context.Context, r recordReader) (uuid.UUID, error) {
		p, err := r.Projection(ctx, recordID)
		if err != nil {
			return uuid.Nil, err
		}
		state = p
		return recordID, nil
	})
	if err != nil {
		return nil, notFound(err, "record")
	}
	return state, nil
}

// History returns the events of a record in sequence order.
func (s *Service) History(ctx context.Context, recordID uuid.UUID) ([]models.Event, error) {
	var events []models.Event
	err := s.read(ctx, TableEvents, func(ctx context.Context, r recordReader) (uuid.UUID, error) {
		list, err := r.Events(ctx, recordID)
		if err != nil {
			return uuid.Nil, err
		}
		if len(list) == 0 {
			return uuid.Nil, sentinel.ErrNotFound
		}
		events = list
		return recordID, nil
	})
	if err != nil {
		return nil, notFound(err, "record")
	}
	return events, nil
}

func (s *Service) EventBySequence(ctx context.Context, seq int64) (*models.Event, error) {
	var event *models.Event
	err := s.read(ctx, TableEvents, func(ctx context.Context, r recordReader) (uuid.UUID, error) {
		e, err := r.EventBySequence(ctx, seq)
		if err != nil {
			return uuid.Nil, err
		}
		event = e
		return e.RecordID, nil
	})
	if err != nil {
		return nil, notFound(err, "event")
	}
	return event, nil
}

// ListStates lists projected states of a partition, or of every partition
// when partitionID is empty. Admin listings are logged as one access without
// a record id.
func (s *Service) ListStates(ctx context.Context, partitionID string) ([]models.ProjectedState, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != domain.RoleAdmin {
		states, err := s.ledger.Projections(ctx, partitionID)
		if err != nil {
			return nil, translate(err, "failed to list records")
		}
		return states, nil
	}
	var states []models.ProjectedState
	err := s.ledger.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx ports.LedgerTx) error {
		list, err := tx.Projections(ctx, partitionID)
		if err != nil {
			return err
		}
		if err := s.guard.Access(ctx, actor.ID, TableProjections, uuid.Nil, bgmodels.AccessRead, tx); err != nil {
			return err
		}
		states = list
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to list records")
	}
	return states, nil
}

// ValidateChain recomputes every digest and chain link of a record. Once a
// link diverges every later event is reported invalid.
func (s *Service) ValidateChain(ctx context.Context, recordID uuid.UUID) ([]integrity.ChainCheckResult, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.ValidateChain", trace.WithAttributes(
		attribute.String("record_id", recordID.String()),
	))
	defer span.End()

	events, err := s.History(ctx, recordID)
	if err != nil {
		return nil, err
	}
	results := integrity.ValidateChain(events)
	valid := integrity.AllValid(results)
	span.SetAttributes(attribute.Bool("valid", valid))
	if s.metrics != nil {
		s.metrics.ObserveChainValidation(start, valid)
	}
	if !valid {
		seq, _ := integrity.FirstDivergence(results)
		s.logger.ErrorContext(ctx, "CRITICAL: hash chain divergence",
			"record_id", recordID,
			"sequence_id", seq,
		)
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventIntegrityFailure),
			Subject:   recordID.String(),
			Reason:    fmt.Sprintf("chain diverges at sequence %d", seq),
			RequestID: requestcontext.RequestID(ctx),
			Severity:  audit.SeverityCritical,
		})
	}
	return results, nil
}

// VerifyEvent recomputes the digest of one event.
func (s *Service) VerifyEvent(ctx context.Context, seq int64) (bool, error) {
	e, err := s.EventBySequence(ctx, seq)
	if err != nil {
		return false, err
	}
	return integrity.Verify(*e), nil
}
