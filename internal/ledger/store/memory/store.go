// Package memory is an in-process ledger store.
//
// Units run one at a time under an exclusive lock and stage their writes;
// readers see committed state only. Events are stored and returned as deep
// copies and there is no path that changes or removes a stored event.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/ports"
	"provenant/internal/outbox"
	"provenant/pkg/platform/sentinel"
)

// AccessSink receives the access log entries of committed units. CheckAccess
// runs when an entry is staged; PutAccess runs on commit and cannot fail.
type AccessSink interface {
	CheckAccess(ctx context.Context, entry bgmodels.AccessLogEntry) error
	PutAccess(entries ...bgmodels.AccessLogEntry)
}

// OutboxSink receives the outbox messages of committed units.
type OutboxSink interface {
	Put(msgs ...outbox.Message)
}

// state is the committed ledger. events is append-only, so a copy of the
// slice header is a stable view of it.
type state struct {
	events      []models.Event // events[i].SequenceID == i+1
	byRecord    map[uuid.UUID][]int64
	projections map[uuid.UUID]models.ProjectedState
	conflicts   map[uuid.UUID]models.ConflictRecord
	conflictIDs []uuid.UUID
}

func (st *state) freeze() *state {
	byRecord := make(map[uuid.UUID][]int64, len(st.byRecord))
	for id, seqs := range st.byRecord {
		byRecord[id] = seqs[:len(seqs):len(seqs)]
	}
	return &state{
		events:      st.events[:len(st.events):len(st.events)],
		byRecord:    byRecord,
		projections: maps.Clone(st.projections),
		conflicts:   maps.Clone(st.conflicts),
		conflictIDs: st.conflictIDs[:len(st.conflictIDs):len(st.conflictIDs)],
	}
}

type snapshotKey struct{}

type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex

	committed state
	accessLog []bgmodels.AccessLogEntry
	messages  []outbox.Message

	accessSink AccessSink
	outboxSink OutboxSink
}

type Option func(*Store)

func WithAccessSink(sink AccessSink) Option {
	return func(s *Store) { s.accessSink = sink }
}

func WithOutboxSink(sink OutboxSink) Option {
	return func(s *Store) { s.outboxSink = sink }
}

func New(opts ...Option) *Store {
	s := &Store{
		committed: state{
			byRecord:    make(map[uuid.UUID][]int64),
			projections: make(map[uuid.UUID]models.ProjectedState),
			conflicts:   make(map[uuid.UUID]models.ConflictRecord),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.Ledger = (*Store)(nil)

// view runs fn against the snapshot carried by ctx, or against committed
// state under the read lock.
func (s *Store) view(ctx context.Context, fn func(st *state)) {
	if st, ok := ctx.Value(snapshotKey{}).(*state); ok {
		fn(st)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.committed)
}

// Snapshot freezes committed state under one read lock. Reads made through
// the ctx passed to fn observe that state and nothing committed later.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.RLock()
	frozen := s.committed.freeze()
	s.mu.RUnlock()
	return fn(context.WithValue(ctx, snapshotKey{}, frozen))
}

// Within runs fn against a staged unit and merges the unit into committed
// state when fn succeeds.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx ports.LedgerTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	last := int64(len(s.committed.events))
	s.mu.RUnlock()

	u := &unit{
		store:       s,
		base:        last,
		next:        last,
		projections: make(map[uuid.UUID]models.ProjectedState),
		conflicts:   make(map[uuid.UUID]models.ConflictRecord),
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	return s.commit(u)
}

// commit validates the unit and then applies it. Nothing after validation can
// fail, so a unit is either applied in full, sinks included, or not at all.
func (s *Store) commit(u *unit) error {
	if u.next != u.base+int64(len(u.events)) {
		return fmt.Errorf("unit drew sequence %d but inserted %d events", u.next-u.base, len(u.events))
	}

	s.mu.Lock()
	st := &s.committed
	for _, e := range u.events {
		st.events = append(st.events, e)
		st.byRecord[e.RecordID] = append(st.byRecord[e.RecordID], e.SequenceID)
	}
	for id, p := range u.projections {
		st.projections[id] = p
	}
	st.conflictIDs = append(st.conflictIDs, u.newConflicts...)
	for id, c := range u.conflicts {
		st.conflicts[id] = c
	}
	s.accessLog = append(s.accessLog, u.access...)
	s.messages = append(s.messages, u.messages...)
	s.mu.Unlock()

	if s.accessSink != nil && len(u.access) > 0 {
		s.accessSink.PutAccess(u.access...)
	}
	if s.outboxSink != nil && len(u.messages) > 0 {
		s.outboxSink.Put(u.messages...)
	}
	return nil
}

func (s *Store) Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error) {
	var out []models.Event
	s.view(ctx, func(st *state) { out = st.recordEvents(recordID) })
	return out, nil
}

func (st *state) recordEvents(recordID uuid.UUID) []models.Event {
	seqs := st.byRecord[recordID]
	out := make([]models.Event, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, st.events[seq-1].Clone())
	}
	return out
}

func (s *Store) EventBySequence(ctx context.Context, seq int64) (*models.Event, error) {
	var (
		e   *models.Event
		err error
	)
	s.view(ctx, func(st *state) { e, err = st.eventBySequence(seq) })
	return e, err
}

func (st *state) eventBySequence(seq int64) (*models.Event, error) {
	if seq < 1 || seq > int64(len(st.events)) {
		return nil, sentinel.ErrNotFound
	}
	e := st.events[seq-1].Clone()
	return &e, nil
}

func (s *Store) ScanEvents(ctx context.Context, fn func(models.Event) error) error {
	var events []models.Event
	s.view(ctx, func(st *state) { events = st.events[:len(st.events):len(st.events)] })
	for _, e := range events {
		if err := fn(e.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error) {
	var (
		p  models.ProjectedState
		ok bool
	)
	s.view(ctx, func(st *state) {
		p, ok = st.projections[recordID]
		p = p.Clone()
	})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *Store) Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error) {
	var out []models.ProjectedState
	s.view(ctx, func(st *state) {
		out = make([]models.ProjectedState, 0, len(st.projections))
		for _, p := range st.projections {
			if partitionID != "" && p.PartitionID != partitionID {
				continue
			}
			out = append(out, p.Clone())
		}
	})
	sortProjections(out)
	return out, nil
}

func sortProjections(out []models.ProjectedState) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].RecordID.String() < out[j].RecordID.String()
	})
}

func (s *Store) Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	var out []models.ConflictRecord
	s.view(ctx, func(st *state) {
		for _, id := range st.conflictIDs {
			c := st.conflicts[id]
			if recordID != uuid.Nil && c.RecordID != recordID {
				continue
			}
			if onlyOpen && c.Resolved {
				continue
			}
			out = append(out, c.Clone())
		}
	})
	return out, nil
}

func (s *Store) Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	var (
		c  models.ConflictRecord
		ok bool
	)
	s.view(ctx, func(st *state) {
		c, ok = st.conflicts[id]
		c = c.Clone()
	})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// AccessLog returns every committed access log entry.
func (s *Store) AccessLog() []bgmodels.AccessLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]bgmodels.AccessLogEntry(nil), s.accessLog...)
}

// Messages returns every committed outbox message.
func (s *Store) Messages() []outbox.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Message(nil), s.messages...)
}
