// Package projection derives the current state of a record from its events.
//
// Apply is the only way to produce an Applied value, and stores accept
// projected state only in that form. Nothing else in the module can write
// projected state.
package projection

import (
	"fmt"

	"provenant/internal/ledger/models"
)

// Applied is the sealed result of projecting one event.
type Applied struct {
	state    *models.ProjectedState
	inserted bool
}

// IsZero reports whether a was produced outside Apply.
func (a Applied) IsZero() bool { return a.state == nil }

// Inserted reports whether the event created the projected row.
func (a Applied) Inserted() bool { return a.inserted }

// State returns a copy of the projected state.
func (a Applied) State() models.ProjectedState {
	if a.state == nil {
		return models.ProjectedState{}
	}
	return a.state.Clone()
}

// Apply projects e onto current, which is nil when the record has no
// projected row yet.
//
//   - create, update, admin_correct: upsert; insert at version 1 when absent
//   - delete: mark deleted; a missing row is an OrphanDeleteError
//   - annotate_*: record the annotation; a missing row is an OrphanDeleteError
//
// Every applied event increments the version and moves the head.
func Apply(current *models.ProjectedState, e models.Event) (Applied, error) {
	if current != nil {
		if current.RecordID != e.RecordID {
			return Applied{}, fmt.Errorf("projection of record %s given event of record %s", current.RecordID, e.RecordID)
		}
		if current.SubjectID != e.SubjectID || current.PartitionID != e.PartitionID {
			return Applied{}, &models.ValidationError{
				Field:  "subject_id",
				Reason: fmt.Sprintf("record %s belongs to subject %s at %s", e.RecordID, current.SubjectID, current.PartitionID),
			}
		}
		if e.SequenceID <= current.HeadSequenceID {
			return Applied{}, fmt.Errorf("record %s: event %d does not follow head %d", e.RecordID, e.SequenceID, current.HeadSequenceID)
		}
	}

	action := e.Operation.Action
	switch {
	case action.ReplacesPayload():
		return applyReplace(current, e)
	case action == models.ActionDelete:
		return applyDelete(current, e)
	case action.IsAnnotation():
		return applyAnnotation(current, e)
	}
	return Applied{}, &models.ValidationError{Field: "operation", Reason: fmt.Sprintf("unknown action %q", action)}
}

func applyReplace(current *models.ProjectedState, e models.Event) (Applied, error) {
	if current == nil {
		return Applied{
			state: &models.ProjectedState{
				RecordID:       e.RecordID,
				SubjectID:      e.SubjectID,
				PartitionID:    e.PartitionID,
				CurrentPayload: e.Payload.Clone(),
				Version:        1,
				HeadSequenceID: e.SequenceID,
				CreatedAt:      e.ServerTime,
				UpdatedAt:      e.ServerTime,
			},
			inserted: true,
		}, nil
	}
	// Only a correction may bring a deleted record back.
	if current.IsDeleted && e.Operation.Action != models.ActionAdminCorrect {
		return Applied{}, &models.ValidationError{
			Field:  "operation",
			Reason: fmt.Sprintf("record %s is deleted; only an admin correction can restore it", e.RecordID),
		}
	}
	next := advance(current, e)
	next.CurrentPayload = e.Payload.Clone()
	next.IsDeleted = false
	return Applied{state: next}, nil
}

func applyDelete(current *models.ProjectedState, e models.Event) (Applied, error) {
	if current == nil {
		return Applied{}, &models.OrphanDeleteError{RecordID: e.RecordID, SequenceID: e.SequenceID, Action: e.Operation.Action}
	}
	if current.IsDeleted {
		return Applied{}, &models.ValidationError{Field: "operation", Reason: fmt.Sprintf("record %s is already deleted", e.RecordID)}
	}
	next := advance(current, e)
	next.IsDeleted = true
	return Applied{state: next}, nil
}

func applyAnnotation(current *models.ProjectedState, e models.Event) (Applied, error) {
	if current == nil {
		return Applied{}, &models.OrphanDeleteError{RecordID: e.RecordID, SequenceID: e.SequenceID, Action: e.Operation.Action}
	}
	if current.IsDeleted {
		return Applied{}, &models.ValidationError{
			Field:  "operation",
			Reason: fmt.Sprintf("record %s is deleted; annotations are not accepted", e.RecordID),
		}
	}
	next := advance(current, e)
	annotation := e.Payload.Clone()
	next.Annotation = &annotation
	return Applied{state: next}, nil
}

func advance(current *models.ProjectedState, e models.Event) *models.ProjectedState {
	next := current.Clone()
	next.Version++
	next.HeadSequenceID = e.SequenceID
	next.UpdatedAt = e.ServerTime
	return &next
}
