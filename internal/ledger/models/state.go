package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectedState is the derived current state of one record.
type ProjectedState struct {
	RecordID       uuid.UUID `json:"record_id"`
	SubjectID      string    `json:"subject_id"`
	PartitionID    string    `json:"partition_id"`
	CurrentPayload Payload   `json:"current_payload"`
	Annotation     *Payload  `json:"annotation,omitempty"`
	Version        int64     `json:"version"`
	HeadSequenceID int64     `json:"head_sequence_id"`
	IsDeleted      bool      `json:"is_deleted"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a deep copy.
func (s ProjectedState) Clone() ProjectedState {
	out := s
	out.CurrentPayload = s.CurrentPayload.Clone()
	if s.Annotation != nil {
		a := s.Annotation.Clone()
		out.Annotation = &a
	}
	return out
}
