package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"provenant/internal/outbox"
)

// Store is an in-memory outbox used by tests and the memory ledger.
type Store struct {
	mu       sync.Mutex
	messages []outbox.Message
	index    map[uuid.UUID]int
}

func New() *Store {
	return &Store{index: make(map[uuid.UUID]int)}
}

func (s *Store) Enqueue(_ context.Context, msg outbox.Message) error {
	s.Put(msg)
	return nil
}

// Put adds msgs in order. Messages whose id is already present are skipped.
func (s *Store) Put(msgs ...outbox.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range msgs {
		s.put(msg)
	}
}

func (s *Store) put(msg outbox.Message) {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if _, ok := s.index[msg.ID]; ok {
		return
	}
	msg.Payload = append([]byte(nil), msg.Payload...)
	s.index[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
}

// Pending returns unpublished messages in enqueue order.
func (s *Store) Pending(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Message
	for _, m := range s.messages {
		if m.PublishedAt != nil {
			continue
		}
		m.Payload = append([]byte(nil), m.Payload...)
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok || s.messages[i].PublishedAt != nil {
			continue
		}
		published := at
		s.messages[i].PublishedAt = &published
	}
	return nil
}

// All returns every message, published or not.
func (s *Store) All() []outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Message, len(s.messages))
	copy(out, s.messages)
	return out
}
