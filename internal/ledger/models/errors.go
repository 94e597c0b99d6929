package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	dErrors "provenant/pkg/domain-errors"
)

// ValidationError rejects a malformed candidate or payload.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) ErrorCode() dErrors.Code { return dErrors.CodeValidation }

func (e *ValidationError) Details() map[string]any {
	return map[string]any{"field": e.Field, "reason": e.Reason}
}

// ReasonRequiredError rejects a candidate without a justification.
type ReasonRequiredError struct {
	RecordID uuid.UUID
}

func (e *ReasonRequiredError) Error() string {
	return fmt.Sprintf("record %s: a non-empty reason is required", e.RecordID)
}

func (e *ReasonRequiredError) ErrorCode() dErrors.Code { return dErrors.CodeReasonRequired }

func (e *ReasonRequiredError) Details() map[string]any {
	return map[string]any{"record_id": e.RecordID.String()}
}

// EnrollmentError rejects a subject write outside an active enrollment.
type EnrollmentError struct {
	RecordID    uuid.UUID
	SubjectID   string
	PartitionID string
}

func (e *EnrollmentError) Error() string {
	return fmt.Sprintf("subject %s is not actively enrolled at %s", e.SubjectID, e.PartitionID)
}

func (e *EnrollmentError) ErrorCode() dErrors.Code { return dErrors.CodeNotEnrolled }

func (e *EnrollmentError) Details() map[string]any {
	return map[string]any{"record_id": e.RecordID.String(), "subject_id": e.SubjectID, "partition_id": e.PartitionID}
}

// InvalidLineageError rejects a parent pointer that does not name an event of
// the same record.
type InvalidLineageError struct {
	RecordID         uuid.UUID
	ParentSequenceID int64
}

func (e *InvalidLineageError) Error() string {
	return fmt.Sprintf("record %s: parent sequence %d is not an event of this record", e.RecordID, e.ParentSequenceID)
}

func (e *InvalidLineageError) ErrorCode() dErrors.Code { return dErrors.CodeInvalidLineage }

func (e *InvalidLineageError) Details() map[string]any {
	return map[string]any{"record_id": e.RecordID.String(), "parent_sequence_id": e.ParentSequenceID}
}

// ConflictError rejects an edit based on a stale head. The conflict record
// named by ConflictID has been persisted.
type ConflictError struct {
	RecordID         uuid.UUID
	ConflictID       uuid.UUID
	ParentSequenceID int64
	HeadSequenceID   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("record %s changed since sequence %d (head is %d); see conflict %s",
		e.RecordID, e.ParentSequenceID, e.HeadSequenceID, e.ConflictID)
}

func (e *ConflictError) ErrorCode() dErrors.Code { return dErrors.CodeConflict }

func (e *ConflictError) Details() map[string]any {
	return map[string]any{
		"record_id":          e.RecordID.String(),
		"conflict_id":        e.ConflictID.String(),
		"parent_sequence_id": e.ParentSequenceID,
		"head_sequence_id":   e.HeadSequenceID,
	}
}

// OrphanDeleteError signals a delete or annotation of a record that has no
// projected state. It indicates upstream corruption and is fatal.
type OrphanDeleteError struct {
	RecordID   uuid.UUID
	SequenceID int64
	Action     Action
}

func (e *OrphanDeleteError) Error() string {
	return fmt.Sprintf("record %s: %s at sequence %d has no projected state", e.RecordID, e.Action, e.SequenceID)
}

func (e *OrphanDeleteError) ErrorCode() dErrors.Code { return dErrors.CodeOrphanEvent }

func (e *OrphanDeleteError) Details() map[string]any {
	return map[string]any{"record_id": e.RecordID.String(), "sequence_id": e.SequenceID, "action": string(e.Action)}
}

// IntegrityError reports a digest or chain mismatch.
type IntegrityError struct {
	RecordID   uuid.UUID
	SequenceID int64
	Reason     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("record %s: integrity failure at sequence %d: %s", e.RecordID, e.SequenceID, e.Reason)
}

func (e *IntegrityError) ErrorCode() dErrors.Code { return dErrors.CodeIntegrity }

func (e *IntegrityError) Details() map[string]any {
	return map[string]any{"record_id": e.RecordID.String(), "sequence_id": e.SequenceID, "reason": e.Reason}
}

// IsFatal reports whether err indicates data corruption or an upstream logic
// bug rather than a recoverable caller mistake.
func IsFatal(err error) bool {
	var orphan *OrphanDeleteError
	var integrity *IntegrityError
	return errors.As(err, &orphan) || errors.As(err, &integrity)
}
