package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

type ModelsSuite struct {
	suite.Suite
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

func (s *ModelsSuite) TestParseOperation() {
	s.Run("origin and action round trip", func() {
		op, err := ParseOperation("subject.update")
		s.Require().NoError(err)
		s.Equal(Operation{Action: ActionUpdate, Origin: domain.RoleSubject}, op)
		s.Equal("subject.update", op.String())
	})

	s.Run("missing separator is rejected", func() {
		_, err := ParseOperation("update")
		s.Error(err)
	})

	s.Run("corrections are admin only", func() {
		_, err := ParseOperation("reviewer.admin_correct")
		s.Error(err)
		_, err = ParseOperation("admin.admin_correct")
		s.NoError(err)
	})

	s.Run("subjects cannot annotate", func() {
		_, err := ParseOperation("subject.annotate_create")
		s.Error(err)
		_, err = ParseOperation("reviewer.annotate_create")
		s.NoError(err)
	})
}

func (s *ModelsSuite) TestActionClassification() {
	s.True(ActionUpdate.ChecksLineage())
	s.True(ActionAnnotateUpdate.ChecksLineage())
	s.True(ActionAdminCorrect.ChecksLineage())
	s.False(ActionCreate.ChecksLineage())
	s.False(ActionDelete.ChecksLineage())

	s.True(ActionAdminCorrect.ReplacesPayload())
	s.False(ActionAnnotateCreate.ReplacesPayload())
	s.True(ActionAnnotateCreate.IsAnnotation())
}

func (s *ModelsSuite) TestEventCloneIsolatesMemory() {
	parent := int64(4)
	e := Event{
		SequenceID:       5,
		Payload:          Payload{Kind: "note", Version: "1.0", Data: json.RawMessage(`{"text":"a"}`)},
		ParentSequenceID: &parent,
	}
	c := e.Clone()
	c.Payload.Data[9] = 'z'
	*c.ParentSequenceID = 99

	s.Equal(`{"text":"a"}`, string(e.Payload.Data))
	s.Equal(int64(4), *e.ParentSequenceID)
}

func (s *ModelsSuite) TestConflictResolution() {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s.Run("merge requires payload", func() {
		c := &ConflictRecord{ID: uuid.New()}
		err := c.CanResolve(StrategyMerge, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("resolved conflict cannot be resolved again", func() {
		c := &ConflictRecord{ID: uuid.New()}
		s.Require().NoError(c.CanResolve(StrategyServerWins, nil))
		c.ApplyResolution(StrategyServerWins, nil, "reviewer-1", nil, now)

		s.True(c.Resolved)
		s.Equal("reviewer-1", c.ResolvedBy)
		s.Equal(now, *c.ResolvedAt)
		err := c.CanResolve(StrategyClientWins, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown strategy is rejected", func() {
		_, err := ParseResolutionStrategy("coin_flip")
		s.Error(err)
	})
}

func (s *ModelsSuite) TestErrorClassification() {
	recordID := uuid.New()

	s.Run("orphan and integrity failures are fatal", func() {
		s.True(IsFatal(fmt.Errorf("apply: %w", &OrphanDeleteError{RecordID: recordID, SequenceID: 3, Action: ActionDelete})))
		s.True(IsFatal(&IntegrityError{RecordID: recordID, SequenceID: 3}))
	})

	s.Run("caller mistakes are not fatal", func() {
		s.False(IsFatal(&ConflictError{RecordID: recordID}))
		s.False(IsFatal(&ValidationError{Field: "payload", Reason: "bad"}))
	})

	s.Run("typed errors carry codes", func() {
		s.True(dErrors.HasCode(&ReasonRequiredError{RecordID: recordID}, dErrors.CodeReasonRequired))
		s.True(dErrors.HasCode(&EnrollmentError{RecordID: recordID}, dErrors.CodeNotEnrolled))
		s.True(dErrors.HasCode(&InvalidLineageError{RecordID: recordID}, dErrors.CodeInvalidLineage))
		s.True(dErrors.HasCode(&ConflictError{RecordID: recordID}, dErrors.CodeConflict))
	})
}
