// Package outbox relays messages written inside ledger transactions to the
// message broker. Writing the message in the same unit as the event means a
// committed event is always published at least once and a rolled back one
// never is.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one pending broker record.
type Message struct {
	ID          uuid.UUID
	Topic       string
	Key         string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// Store is the durable side of the outbox.
type Store interface {
	Enqueue(ctx context.Context, msg Message) error
	Pending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers messages to the broker. Publish returns only after every
// message has been acknowledged.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}
