// Package models describes the enrollment of a subject at a partition, as
// owned by the enrollment service upstream. The ledger only reads it.
package models

import "time"

type Status string

const (
	StatusActive    Status = "active"
	StatusWithdrawn Status = "withdrawn"
	StatusCompleted Status = "completed"
)

// Enrollment links a subject to the partition (site) it reports at.
type Enrollment struct {
	SubjectID   string    `json:"subject_id"`
	PartitionID string    `json:"partition_id"`
	Status      Status    `json:"status"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e Enrollment) IsActive() bool {
	return e.Status == StatusActive
}
