// Package postgres reads enrollments from the enrollments table, which the
// enrollment service owns and writes.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) IsActivelyEnrolled(ctx context.Context, subjectID, partitionID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM enrollments
			WHERE subject_id = $1 AND partition_id = $2 AND status = 'active'
		)
	`
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, subjectID, partitionID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return ok, nil
}
