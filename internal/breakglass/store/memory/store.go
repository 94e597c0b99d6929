package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"provenant/internal/breakglass/models"
	"provenant/pkg/platform/sentinel"
)

// Store keeps authorizations and the access log in memory. The access log
// has no update or delete path.
type Store struct {
	mu             sync.RWMutex
	authorizations map[uuid.UUID]models.Authorization
	accessLog      []models.AccessLogEntry
}

func New() *Store {
	return &Store{authorizations: make(map[uuid.UUID]models.Authorization)}
}

func (s *Store) Create(_ context.Context, a *models.Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorizations[a.ID]; ok {
		return sentinel.ErrConflict
	}
	s.authorizations[a.ID] = clone(*a)
	return nil
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (*models.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.authorizations[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (s *Store) ListByAdmin(_ context.Context, adminID string) ([]models.Authorization, error) {
	return s.filter(func(a models.Authorization) bool { return a.AdminID == adminID }), nil
}

func (s *Store) List(_ context.Context) ([]models.Authorization, error) {
	return s.filter(func(models.Authorization) bool { return true }), nil
}

func (s *Store) filter(keep func(models.Authorization) bool) []models.Authorization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Authorization, 0, len(s.authorizations))
	for _, a := range s.authorizations {
		if keep(a) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].GrantedAt.Before(out[j].GrantedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Revoke sets the revocation fields once.
func (s *Store) Revoke(_ context.Context, id uuid.UUID, at time.Time, by, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authorizations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if a.RevokedAt != nil {
		return sentinel.ErrInvalidState
	}
	a.ApplyRevocation(at, by, reason)
	s.authorizations[id] = a
	return nil
}

func (s *Store) AppendAccess(_ context.Context, entry models.AccessLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorizations[entry.AuthorizationID]; !ok {
		return sentinel.ErrNotFound
	}
	s.accessLog = append(s.accessLog, entry)
	return nil
}

// CheckAccess reports whether AppendAccess would accept entry. Authorizations
// are never removed, so an accepted entry stays acceptable.
func (s *Store) CheckAccess(_ context.Context, entry models.AccessLogEntry) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.authorizations[entry.AuthorizationID]; !ok {
		return sentinel.ErrNotFound
	}
	return nil
}

// PutAccess appends entries already accepted by CheckAccess.
func (s *Store) PutAccess(entries ...models.AccessLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessLog = append(s.accessLog, entries...)
}

func (s *Store) ListAccessLog(_ context.Context, authorizationID uuid.UUID) ([]models.AccessLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AccessLogEntry
	for _, e := range s.accessLog {
		if authorizationID == uuid.Nil || e.AuthorizationID == authorizationID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ScanAccessLog calls fn for every entry in append order.
func (s *Store) ScanAccessLog(_ context.Context, fn func(models.AccessLogEntry) error) error {
	s.mu.RLock()
	snapshot := s.accessLog[:len(s.accessLog):len(s.accessLog)]
	s.mu.RUnlock()
	for _, e := range snapshot {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func clone(a models.Authorization) models.Authorization {
	if a.RevokedAt != nil {
		at := *a.RevokedAt
		a.RevokedAt = &at
	}
	return a
}
