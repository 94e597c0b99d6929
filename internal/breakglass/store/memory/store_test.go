package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provenant/internal/breakglass/models"
	"provenant/pkg/platform/sentinel"
)

func grant(t *testing.T, adminID string, at time.Time) *models.Authorization {
	t.Helper()
	a, err := models.NewAuthorization(uuid.New(), adminID, "INC-1", "emergency review of a flagged record", at, at.Add(time.Hour), 0, 0)
	require.NoError(t, err)
	return a
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("create rejects duplicate ids", func(t *testing.T) {
		s := New()
		a := grant(t, "admin-1", now)
		require.NoError(t, s.Create(ctx, a))
		assert.ErrorIs(t, s.Create(ctx, a), sentinel.ErrConflict)
	})

	t.Run("reads return copies", func(t *testing.T) {
		s := New()
		a := grant(t, "admin-1", now)
		require.NoError(t, s.Create(ctx, a))
		got, err := s.FindByID(ctx, a.ID)
		require.NoError(t, err)
		got.ApplyRevocation(now, "someone", "tamper")
		again, err := s.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, again.RevokedAt)
	})

	t.Run("revocation is set once", func(t *testing.T) {
		s := New()
		a := grant(t, "admin-1", now)
		require.NoError(t, s.Create(ctx, a))
		require.NoError(t, s.Revoke(ctx, a.ID, now.Add(time.Minute), "sec-1", "done"))
		assert.ErrorIs(t, s.Revoke(ctx, a.ID, now.Add(2*time.Minute), "sec-2", "again"), sentinel.ErrInvalidState)
		got, err := s.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "sec-1", got.RevokedBy)
		assert.ErrorIs(t, s.Revoke(ctx, uuid.New(), now, "x", "y"), sentinel.ErrNotFound)
	})

	t.Run("lists filter by admin in grant order", func(t *testing.T) {
		s := New()
		first := grant(t, "admin-1", now)
		second := grant(t, "admin-1", now.Add(time.Minute))
		other := grant(t, "admin-2", now)
		for _, a := range []*models.Authorization{second, other, first} {
			require.NoError(t, s.Create(ctx, a))
		}
		mine, err := s.ListByAdmin(ctx, "admin-1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, first.ID, mine[0].ID)
		all, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("access log entries need a known authorization", func(t *testing.T) {
		s := New()
		a := grant(t, "admin-1", now)
		require.NoError(t, s.Create(ctx, a))
		entry := models.AccessLogEntry{ID: uuid.New(), AuthorizationID: a.ID, AdminID: "admin-1", TableName: "ledger_events", Operation: models.AccessRead, Timestamp: now}
		require.NoError(t, s.AppendAccess(ctx, entry))
		assert.ErrorIs(t, s.AppendAccess(ctx, models.AccessLogEntry{AuthorizationID: uuid.New()}), sentinel.ErrNotFound)

		entries, err := s.ListAccessLog(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.AccessLogEntry{entry}, entries)

		var scanned int
		require.NoError(t, s.ScanAccessLog(ctx, func(models.AccessLogEntry) error { scanned++; return nil }))
		assert.Equal(t, 1, scanned)
	})
}
