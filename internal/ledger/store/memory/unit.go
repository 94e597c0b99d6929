package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/models"
	"provenant/internal/ledger/projection"
	"provenant/internal/outbox"
	"provenant/pkg/platform/sentinel"
)

// unit stages the writes of one Within call. The store's write lock is held
// for the unit's lifetime, so committed state cannot move underneath it.
type unit struct {
	store *Store
	base  int64
	next  int64

	events       []models.Event
	projections  map[uuid.UUID]models.ProjectedState
	conflicts    map[uuid.UUID]models.ConflictRecord
	newConflicts []uuid.UUID
	access       []bgmodels.AccessLogEntry
	messages     []outbox.Message
}

func (u *unit) NextSequence(context.Context) (int64, error) {
	u.next++
	return u.next, nil
}

func (u *unit) Events(ctx context.Context, recordID uuid.UUID) ([]models.Event, error) {
	out, _ := u.store.Events(ctx, recordID)
	for _, e := range u.events {
		if e.RecordID == recordID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (u *unit) LastEvent(ctx context.Context, recordID uuid.UUID) (*models.Event, error) {
	for i := len(u.events) - 1; i >= 0; i-- {
		if u.events[i].RecordID == recordID {
			e := u.events[i].Clone()
			return &e, nil
		}
	}
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	seqs := u.store.committed.byRecord[recordID]
	if len(seqs) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return u.store.committed.eventBySequence(seqs[len(seqs)-1])
}

func (u *unit) EventBySequence(ctx context.Context, seq int64) (*models.Event, error) {
	if seq > u.base {
		i := seq - u.base - 1
		if i < int64(len(u.events)) {
			e := u.events[i].Clone()
			return &e, nil
		}
		return nil, sentinel.ErrNotFound
	}
	return u.store.EventBySequence(ctx, seq)
}

// InsertEvent stages e. Sequence ids must be drawn from NextSequence and
// inserted in order; an id that already names an event is refused.
func (u *unit) InsertEvent(_ context.Context, e models.Event) error {
	if e.SequenceID <= u.base || e.SequenceID <= u.base+int64(len(u.events)) {
		return fmt.Errorf("insert event %d: %w", e.SequenceID, sentinel.ErrImmutable)
	}
	if e.SequenceID != u.base+int64(len(u.events))+1 || e.SequenceID > u.next {
		return fmt.Errorf("insert event %d: sequence was not drawn in order", e.SequenceID)
	}
	if e.Digest == "" || e.ChainDigest == "" {
		return fmt.Errorf("insert event %d: event is not sealed", e.SequenceID)
	}
	u.events = append(u.events, e.Clone())
	return nil
}

func (u *unit) Projection(ctx context.Context, recordID uuid.UUID) (*models.ProjectedState, error) {
	if p, ok := u.projections[recordID]; ok {
		out := p.Clone()
		return &out, nil
	}
	return u.store.Projection(ctx, recordID)
}

// Projections lists committed state with the unit's staged rows laid over it.
func (u *unit) Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error) {
	committed, err := u.store.Projections(ctx, partitionID)
	if err != nil {
		return nil, err
	}
	if len(u.projections) == 0 {
		return committed, nil
	}
	byRecord := make(map[uuid.UUID]models.ProjectedState, len(committed)+len(u.projections))
	for _, p := range committed {
		byRecord[p.RecordID] = p
	}
	for id, p := range u.projections {
		if partitionID != "" && p.PartitionID != partitionID {
			continue
		}
		byRecord[id] = p.Clone()
	}
	out := make([]models.ProjectedState, 0, len(byRecord))
	for _, p := range byRecord {
		out = append(out, p)
	}
	sortProjections(out)
	return out, nil
}

func (u *unit) SaveProjection(_ context.Context, applied projection.Applied) error {
	if applied.IsZero() {
		return fmt.Errorf("save projection: state was not produced by the projector")
	}
	state := applied.State()
	head := state.HeadSequenceID
	if head <= u.base || head > u.base+int64(len(u.events)) || u.events[head-u.base-1].RecordID != state.RecordID {
		return fmt.Errorf("save projection of %s: head %d is not an event of this unit", state.RecordID, head)
	}
	u.projections[state.RecordID] = state
	return nil
}

func (u *unit) InsertConflict(_ context.Context, c models.ConflictRecord) error {
	if _, ok := u.conflicts[c.ID]; ok {
		return fmt.Errorf("insert conflict %s: %w", c.ID, sentinel.ErrConflict)
	}
	u.store.mu.RLock()
	_, exists := u.store.committed.conflicts[c.ID]
	u.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("insert conflict %s: %w", c.ID, sentinel.ErrConflict)
	}
	u.conflicts[c.ID] = c.Clone()
	u.newConflicts = append(u.newConflicts, c.ID)
	return nil
}

func (u *unit) UpdateConflict(ctx context.Context, c models.ConflictRecord) error {
	current, err := u.Conflict(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("update conflict %s: %w", c.ID, err)
	}
	if current.Resolved {
		return fmt.Errorf("update conflict %s: %w", c.ID, sentinel.ErrInvalidState)
	}
	u.conflicts[c.ID] = c.Clone()
	return nil
}

func (u *unit) Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error) {
	committed, _ := u.store.Conflicts(ctx, recordID, false)
	var out []models.ConflictRecord
	keep := func(c models.ConflictRecord) {
		if onlyOpen && c.Resolved {
			return
		}
		out = append(out, c.Clone())
	}
	for _, c := range committed {
		if staged, ok := u.conflicts[c.ID]; ok {
			c = staged
		}
		keep(c)
	}
	for _, id := range u.newConflicts {
		if c := u.conflicts[id]; recordID == uuid.Nil || c.RecordID == recordID {
			keep(c)
		}
	}
	return out, nil
}

func (u *unit) Conflict(ctx context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	if c, ok := u.conflicts[id]; ok {
		out := c.Clone()
		return &out, nil
	}
	return u.store.Conflict(ctx, id)
}

// RecordAccess stages entry after the access sink accepts it, so commit has
// nothing left that can refuse it.
func (u *unit) RecordAccess(ctx context.Context, entry bgmodels.AccessLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if sink := u.store.accessSink; sink != nil {
		if err := sink.CheckAccess(ctx, entry); err != nil {
			return fmt.Errorf("record access log entry: %w", err)
		}
	}
	u.access = append(u.access, entry)
	return nil
}

func (u *unit) EnqueueOutbox(_ context.Context, msg outbox.Message) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.Payload = append([]byte(nil), msg.Payload...)
	u.messages = append(u.messages, msg)
	return nil
}
