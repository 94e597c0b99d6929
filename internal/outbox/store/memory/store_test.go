package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/outbox"
)

func TestStore_PendingAndMarkPublished(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := outbox.Message{ID: uuid.New(), Topic: "t", Payload: []byte("1")}
	second := outbox.Message{ID: uuid.New(), Topic: "t", Payload: []byte("2")}
	require.NoError(t, s.Enqueue(ctx, first))
	require.NoError(t, s.Enqueue(ctx, second))
	require.NoError(t, s.Enqueue(ctx, first), "duplicate ids are ignored")

	pending, err := s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	limited, err := s.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.MarkPublished(ctx, []uuid.UUID{first.ID}, time.Now()))
	pending, err = s.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)
	assert.Len(t, s.All(), 2)
}

func TestStore_EnqueueCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := New()
	payload := []byte("abc")
	require.NoError(t, s.Enqueue(ctx, outbox.Message{Payload: payload}))
	payload[0] = 'x'
	pending, err := s.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(pending[0].Payload))
	assert.NotEqual(t, uuid.Nil, pending[0].ID)
}
