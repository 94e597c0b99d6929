// Package lineage checks parent pointers of candidates against the recorded
// history and detects edits made against a stale head.
package lineage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provenant/internal/ledger/models"
	"provenant/pkg/platform/sentinel"
)

// Lookup is the slice of a ledger unit the detector reads.
type Lookup interface {
	EventBySequence(ctx context.Context, seq int64) (*models.Event, error)
	Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error)
}

// Outcome of a lineage check. Conflict is nil when the parent is the head.
type Outcome struct {
	Head     *models.ProjectedState
	Conflict *models.ConflictRecord
}

// Check validates the candidate's lineage.
//
// Any parent pointer must name an event of the same record. For update-family
// actions the parent must also be the current head; otherwise a conflict
// record is built for the caller to persist. Candidates without a parent skip
// the head comparison.
func Check(ctx context.Context, lookup Lookup, c models.Candidate, now time.Time) (Outcome, error) {
	if c.ParentSequenceID == nil {
		return Outcome{}, nil
	}
	parentSeq := *c.ParentSequenceID

	parent, err := lookup.EventBySequence(ctx, parentSeq)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return Outcome{}, &models.InvalidLineageError{RecordID: c.RecordID, ParentSequenceID: parentSeq}
	case err != nil:
		return Outcome{}, fmt.Errorf("load parent event: %w", err)
	case parent.RecordID != c.RecordID:
		return Outcome{}, &models.InvalidLineageError{RecordID: c.RecordID, ParentSequenceID: parentSeq}
	}

	if !c.Operation.Action.ChecksLineage() {
		return Outcome{}, nil
	}

	head, err := lookup.Projection(ctx, c.RecordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		// The parent exists, so the record must have been projected.
		return Outcome{}, &models.IntegrityError{
			RecordID:   c.RecordID,
			SequenceID: parentSeq,
			Reason:     "record has events but no projected state",
		}
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("load projected state: %w", err)
	}
	if head.HeadSequenceID == parentSeq {
		return Outcome{Head: head}, nil
	}

	serverPayload := head.CurrentPayload
	if c.Operation.Action.IsAnnotation() && head.Annotation != nil {
		serverPayload = *head.Annotation
	}
	conflict := &models.ConflictRecord{
		ID:            uuid.New(),
		RecordID:      c.RecordID,
		ClientVersion: parentSeq,
		ServerVersion: head.HeadSequenceID,
		ClientPayload: c.Payload.Clone(),
		ServerPayload: serverPayload.Clone(),
		SubmittedBy:   c.ActorID,
		DetectedAt:    now,
	}
	return Outcome{Head: head, Conflict: conflict}, nil
}
