package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/lineage"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/ports"
	"provenant/internal/ledger/projection"
	"provenant/internal/outbox"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

// Append validates a candidate and, in one atomic unit, assigns its sequence
// id, seals it into the record's chain, projects it and enqueues it for
// publication.
//
// A candidate whose parent is not the current head is recorded as a conflict
// and rejected with *models.ConflictError unless it is flagged as resolved.
// The conflict record is kept; no event is appended.
//
// Once the unit starts it runs to completion even if ctx is cancelled.
func (s *Service) Append(ctx context.Context, c models.Candidate) (*models.Event, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.Append", trace.WithAttributes(
		attribute.String("record_id", c.RecordID.String()),
		attribute.String("operation", c.Operation.String()),
	))
	defer span.End()

	e, err := s.appendCandidate(ctx, c)
	if s.metrics != nil {
		s.metrics.ObserveAppend(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		s.recordFailure(ctx, c, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("sequence_id", e.SequenceID))
	if s.metrics != nil {
		s.metrics.IncrementAppended(e.Operation.String())
	}
	s.logger.InfoContext(ctx, "event appended",
		"record_id", e.RecordID,
		"sequence_id", e.SequenceID,
		"operation", e.Operation.String(),
		"actor_id", e.ActorID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return e, nil
}

func (s *Service) appendCandidate(ctx context.Context, c models.Candidate) (*models.Event, error) {
	c, err := s.prepare(ctx, c)
	if err != nil {
		return nil, err
	}

	var (
		appended    models.Event
		conflictErr *models.ConflictError
	)
	err = s.ledger.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx ports.LedgerTx) error {
		conflictErr = nil
		now := integrity.NormalizeTime(s.clock())

		if c.ActorRole == domain.RoleAdmin {
			if err := s.guard.Access(ctx, c.ActorID, TableEvents, c.RecordID, bgmodels.AccessWrite, tx); err != nil {
				return err
			}
		}

		outcome, err := lineage.Check(ctx, tx, c, now)
		if err != nil {
			return err
		}
		if outcome.Conflict != nil && !c.ConflictResolved {
			if err := tx.InsertConflict(ctx, *outcome.Conflict); err != nil {
				return fmt.Errorf("record conflict: %w", err)
			}
			conflictErr = &models.ConflictError{
				RecordID:         c.RecordID,
				ConflictID:       outcome.Conflict.ID,
				ParentSequenceID: outcome.Conflict.ClientVersion,
				HeadSequenceID:   outcome.Conflict.ServerVersion,
			}
			return nil
		}

		e, err := s.appendInUnit(ctx, tx, c, now)
		if err != nil {
			return err
		}
		if c.ConflictResolved {
			if err := s.closeOpenConflicts(ctx, tx, e, uuid.Nil, models.StrategyManual, now); err != nil {
				return err
			}
		}
		if outcome.Conflict != nil {
			// The client already reconciled against the newer head.
			settled := *outcome.Conflict
			seq := e.SequenceID
			settled.ApplyResolution(models.StrategyManual, &e.Payload, c.ActorID, &seq, now)
			if err := tx.InsertConflict(ctx, settled); err != nil {
				return fmt.Errorf("record settled conflict: %w", err)
			}
		}
		appended = e
		return nil
	})
	if err != nil {
		return nil, translate(err, "failed to append event")
	}
	if conflictErr != nil {
		if s.metrics != nil {
			s.metrics.ConflictsDetected.Inc()
		}
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventConflictDetected),
			Subject:   c.RecordID.String(),
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			Decision:  conflictErr.ConflictID.String(),
			RequestID: requestcontext.RequestID(ctx),
		})
		return nil, conflictErr
	}
	return &appended, nil
}

// prepare runs every check that needs no ledger state: structure, schema,
// reason and enrollment. It returns the candidate with its payload data in
// canonical form and its client time normalized, so that the stored event is
// byte-for-byte what was hashed.
func (s *Service) prepare(ctx context.Context, c models.Candidate) (models.Candidate, error) {
	if err := validateStructure(c); err != nil {
		return c, err
	}
	if c.Operation.Action == models.ActionDelete && c.Payload.Kind == "" {
		c.Payload = models.Payload{}
	} else {
		if err := s.schemas.Validate(c.Payload); err != nil {
			return c, err
		}
		canonical, err := integrity.CanonicalizeJSON(c.Payload.Data)
		if err != nil {
			return c, &models.ValidationError{Field: "payload.data", Reason: err.Error()}
		}
		c.Payload.Data = canonical
	}
	c.Reason = strings.TrimSpace(c.Reason)
	if c.Reason == "" {
		return c, &models.ReasonRequiredError{RecordID: c.RecordID}
	}
	if err := s.checkEnrollment(ctx, c); err != nil {
		return c, err
	}
	c.ClientTime = integrity.NormalizeTime(c.ClientTime)
	return c, nil
}

func validateStructure(c models.Candidate) error {
	switch {
	case c.RecordID == uuid.Nil:
		return &models.ValidationError{Field: "record_id", Reason: "is required"}
	case strings.TrimSpace(c.SubjectID) == "":
		return &models.ValidationError{Field: "subject_id", Reason: "is required"}
	case strings.TrimSpace(c.PartitionID) == "":
		return &models.ValidationError{Field: "partition_id", Reason: "is required"}
	case strings.TrimSpace(c.ActorID) == "":
		return &models.ValidationError{Field: "actor_id", Reason: "is required"}
	case !c.ActorRole.IsValid():
		return &models.ValidationError{Field: "actor_role", Reason: fmt.Sprintf("unknown role %q", c.ActorRole)}
	case c.ClientTime.IsZero():
		return &models.ValidationError{Field: "client_time", Reason: "is required"}
	}
	if err := c.Operation.Validate(); err != nil {
		return &models.ValidationError{Field: "operation", Reason: err.Error()}
	}
	if c.Operation.Origin != c.ActorRole {
		return &models.ValidationError{
			Field:  "operation.origin",
			Reason: fmt.Sprintf("%s does not match actor role %s", c.Operation.Origin, c.ActorRole),
		}
	}
	if c.ParentSequenceID != nil && *c.ParentSequenceID < 1 {
		return &models.ValidationError{Field: "parent_sequence_id", Reason: "must be positive"}
	}
	return nil
}

// checkEnrollment applies to subjects only. Elevated roles bypass it, and the
// bypass is logged.
func (s *Service) checkEnrollment(ctx context.Context, c models.Candidate) error {
	if c.ActorRole.Elevated() {
		s.logger.InfoContext(ctx, "enrollment check bypassed",
			"actor_id", c.ActorID,
			"actor_role", string(c.ActorRole),
			"subject_id", c.SubjectID,
			"partition_id", c.PartitionID,
			"record_id", c.RecordID,
		)
		if s.metrics != nil {
			s.metrics.EnrollmentBypassed.WithLabelValues(string(c.ActorRole)).Inc()
		}
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventEnrollmentBypassed),
			Subject:   c.RecordID.String(),
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			RequestID: requestcontext.RequestID(ctx),
		})
		return nil
	}
	enrolled, err := s.enrollment.IsActivelyEnrolled(ctx, c.SubjectID, c.PartitionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check enrollment")
	}
	if !enrolled {
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventEnrollmentDenied),
			Subject:   c.SubjectID,
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			Reason:    c.PartitionID,
			RequestID: requestcontext.RequestID(ctx),
		})
		return &models.EnrollmentError{RecordID: c.RecordID, SubjectID: c.SubjectID, PartitionID: c.PartitionID}
	}
	return nil
}

// appendInUnit assigns the next sequence id and writes the event, its
// projection and its outbox message. Any failure rolls the whole unit back.
func (s *Service) appendInUnit(ctx context.Context, tx ports.LedgerTx, c models.Candidate, now time.Time) (models.Event, error) {
	current, err := tx.Projection(ctx, c.RecordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		current = nil
	} else if err != nil {
		return models.Event{}, fmt.Errorf("load projected state: %w", err)
	}

	prior := ""
	last, err := tx.LastEvent(ctx, c.RecordID)
	switch {
	case err == nil:
		prior = last.ChainDigest
	case !errors.Is(err, sentinel.ErrNotFound):
		return models.Event{}, fmt.Errorf("load chain head: %w", err)
	}

	seq, err := tx.NextSequence(ctx)
	if err != nil {
		return models.Event{}, fmt.Errorf("assign sequence: %w", err)
	}
	e := c.ToEvent(seq, now)
	if err := integrity.Seal(&e, prior); err != nil {
		return models.Event{}, &models.ValidationError{Field: "payload", Reason: err.Error()}
	}

	applied, err := projection.Apply(current, e)
	if err != nil {
		return models.Event{}, err
	}
	if err := tx.InsertEvent(ctx, e); err != nil {
		return models.Event{}, fmt.Errorf("insert event: %w", err)
	}
	if err := tx.SaveProjection(ctx, applied); err != nil {
		return models.Event{}, fmt.Errorf("save projection: %w", err)
	}

	body, err := json.Marshal(e)
	if err != nil {
		return models.Event{}, fmt.Errorf("encode outbox message: %w", err)
	}
	msg := outbox.Message{
		ID:        uuid.New(),
		Topic:     s.topic,
		Key:       e.RecordID.String(),
		EventType: e.Operation.String(),
		Payload:   body,
		CreatedAt: now,
	}
	if err := tx.EnqueueOutbox(ctx, msg); err != nil {
		return models.Event{}, fmt.Errorf("enqueue outbox message: %w", err)
	}
	return e, nil
}

// closeOpenConflicts marks every open conflict of e's record, except skip,
// as resolved by e.
func (s *Service) closeOpenConflicts(ctx context.Context, tx ports.LedgerTx, e models.Event, skip uuid.UUID, strategy models.ResolutionStrategy, now time.Time) error {
	open, err := tx.Conflicts(ctx, e.RecordID, true)
	if err != nil {
		return fmt.Errorf("load open conflicts: %w", err)
	}
	seq := e.SequenceID
	for _, conflict := range open {
		if conflict.ID == skip {
			continue
		}
		conflict.ApplyResolution(strategy, &e.Payload, e.ActorID, &seq, now)
		if err := tx.UpdateConflict(ctx, conflict); err != nil {
			return fmt.Errorf("resolve conflict %s: %w", conflict.ID, err)
		}
		if s.metrics != nil {
			s.metrics.ConflictsResolved.WithLabelValues(string(strategy)).Inc()
		}
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, c models.Candidate, err error) {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return
	}
	code := dErrors.CodeOf(err)
	if s.metrics != nil {
		s.metrics.IncrementRejected(string(code))
	}
	if !models.IsFatal(err) {
		s.logger.InfoContext(ctx, "append rejected",
			"record_id", c.RecordID,
			"operation", c.Operation.String(),
			"code", string(code),
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.FatalErrors.Inc()
	}
	s.logger.ErrorContext(ctx, "CRITICAL: ledger integrity failure during append",
		"record_id", c.RecordID,
		"operation", c.Operation.String(),
		"error", err,
	)
	_ = s.emit(ctx, audit.Event{
		Action:    string(audit.EventIntegrityFailure),
		Subject:   c.RecordID.String(),
		ActorID:   c.ActorID,
		Reason:    err.Error(),
		RequestID: requestcontext.RequestID(ctx),
		Severity:  audit.SeverityCritical,
	})
}
