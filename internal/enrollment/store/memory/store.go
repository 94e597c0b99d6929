// Package memory keeps enrollments in process. It backs tests and local runs
// without a database.
package memory

import (
	"context"
	"sync"

	"provenant/internal/enrollment/models"
)

type key struct {
	subjectID   string
	partitionID string
}

type Store struct {
	mu          sync.RWMutex
	enrollments map[key]models.Enrollment
}

func New(enrollments ...models.Enrollment) *Store {
	s := &Store{enrollments: make(map[key]models.Enrollment)}
	for _, e := range enrollments {
		s.Put(e)
	}
	return s
}

// Put inserts or replaces an enrollment.
func (s *Store) Put(e models.Enrollment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments[key{e.SubjectID, e.PartitionID}] = e
}

func (s *Store) IsActivelyEnrolled(_ context.Context, subjectID, partitionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[key{subjectID, partitionID}]
	return ok && e.IsActive(), nil
}
