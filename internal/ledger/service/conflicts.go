package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

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

// ListConflicts returns the conflict records of a record in detection order.
func (s *Service) ListConflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	var out []models.ConflictRecord
	err := s.read(ctx, TableConflicts, func(ctx context.Context, r recordReader) (uuid.UUID, error) {
		list, err := r.Conflicts(ctx, recordID, onlyOpen)
		out = list
		return recordID, err
	})
	if err != nil {
		return nil, translate(err, "failed to list conflicts")
	}
	return out, nil
}

func (s *Service) GetConflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	var out *models.ConflictRecord
	err := s.read(ctx, TableConflicts, func(ctx context.Context, r recordReader) (uuid.UUID, error) {
		c, err := r.Conflict(ctx, id)
		if err != nil {
			return uuid.Nil, err
		}
		out = c
		return c.RecordID, nil
	})
	if err != nil {
		return nil, notFound(err, "conflict")
	}
	return out, nil
}

// ResolveConflict settles an open conflict as the actor in ctx.
//
//   - server_wins closes the conflict without a new event
//   - client_wins appends the client's payload as an update of the current head
//   - merge and manual append the supplied payload
//
// A resolution event carries conflict_resolved and also closes every other
// open conflict of the record. The returned event is nil for server_wins.
func (s *Service) ResolveConflict(ctx context.Context, id uuid.UUID, req models.ResolveRequest) (*models.ConflictRecord, *models.Event, error) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() || !actor.Role.IsValid() {
		return nil, nil, dErrors.New(dErrors.CodeUnauthorized, "actor identity is required")
	}
	conflict, err := s.ledger.Conflict(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "conflict")
	}
	if err := conflict.CanResolve(req.Strategy, req.ResolvedPayload); err != nil {
		return nil, nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, nil, &models.ReasonRequiredError{RecordID: conflict.RecordID}
	}

	var candidate models.Candidate
	if req.Strategy != models.StrategyServerWins {
		candidate, err = s.resolutionCandidate(ctx, actor, conflict, req)
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		resolved models.ConflictRecord
		event    *models.Event
	)
	err = s.ledger.Within(context.WithoutCancel(ctx), func(ctx context.Context, tx ports.LedgerTx) error {
		event = nil
		current, err := tx.Conflict(ctx, id)
		if err != nil {
			return err
		}
		if err := current.CanResolve(req.Strategy, req.ResolvedPayload); err != nil {
			return err
		}
		now := integrity.NormalizeTime(s.clock())

		if actor.Role == domain.RoleAdmin {
			table := TableEvents
			if req.Strategy == models.StrategyServerWins {
				table = TableConflicts
			}
			if err := s.guard.Access(ctx, actor.ID, table, current.RecordID, bgmodels.AccessWrite, tx); err != nil {
				return err
			}
		}

		if req.Strategy == models.StrategyServerWins {
			current.ApplyResolution(req.Strategy, nil, actor.ID, nil, now)
		} else {
			head, err := tx.Projection(ctx, current.RecordID)
			if errors.Is(err, sentinel.ErrNotFound) {
				return &models.IntegrityError{RecordID: current.RecordID, SequenceID: current.ServerVersion, Reason: "conflicted record has no projected state"}
			}
			if err != nil {
				return fmt.Errorf("load projected state: %w", err)
			}
			parent := head.HeadSequenceID
			candidate.ParentSequenceID = &parent

			e, err := s.appendInUnit(ctx, tx, candidate, now)
			if err != nil {
				return err
			}
			seq := e.SequenceID
			current.ApplyResolution(req.Strategy, &e.Payload, actor.ID, &seq, now)
			if err := s.closeOpenConflicts(ctx, tx, e, current.ID, models.StrategyManual, now); err != nil {
				return err
			}
			event = &e
		}
		if err := tx.UpdateConflict(ctx, *current); err != nil {
			return fmt.Errorf("resolve conflict: %w", err)
		}
		resolved = *current
		return s.emit(ctx, audit.Event{
			Action:    string(audit.EventConflictResolved),
			Subject:   current.RecordID.String(),
			ActorID:   actor.ID,
			ActorRole: string(actor.Role),
			Decision:  string(req.Strategy),
			Reason:    req.Reason,
			RequestID: requestcontext.RequestID(ctx),
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, nil, translate(err, "failed to resolve conflict")
	}
	if s.metrics != nil {
		s.metrics.ConflictsResolved.WithLabelValues(string(req.Strategy)).Inc()
	}
	s.logger.InfoContext(ctx, "conflict resolved",
		"conflict_id", id,
		"record_id", resolved.RecordID,
		"strategy", string(req.Strategy),
		"actor_id", actor.ID,
	)
	return &resolved, event, nil
}

// resolutionCandidate builds and pre-validates the update that carries a
// resolution. Its parent is fixed inside the unit.
func (s *Service) resolutionCandidate(ctx context.Context, actor domain.Actor, conflict *models.ConflictRecord, req models.ResolveRequest) (models.Candidate, error) {
	state, err := s.ledger.Projection(ctx, conflict.RecordID)
	if err != nil {
		return models.Candidate{}, notFound(err, "record")
	}
	payload := conflict.ClientPayload
	if req.Strategy.RequiresPayload() {
		payload = *req.ResolvedPayload
	}
	clientTime := req.ClientTime
	if clientTime.IsZero() {
		clientTime = s.clock()
	}
	c := models.Candidate{
		RecordID:         conflict.RecordID,
		SubjectID:        state.SubjectID,
		PartitionID:      state.PartitionID,
		Operation:        models.Operation{Action: models.ActionUpdate, Origin: actor.Role},
		Payload:          payload.Clone(),
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		ClientTime:       clientTime,
		Reason:           req.Reason,
		ConflictResolved: true,
		Provenance:       req.Provenance,
	}
	if c.Provenance.SessionID == "" {
		c.Provenance.SessionID = actor.SessionID
	}
	return s.prepare(ctx, c)
}
