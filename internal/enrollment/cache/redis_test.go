package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"provenant/internal/ledger/ports/mocks"
)

func TestUnavailableRedisFallsThroughToSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	source := mocks.NewMockEnrollmentChecker(ctrl)
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	checker := New(source, client)

	source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s1", "site-a").Return(true, nil)
	ok, err := checker.IsActivelyEnrolled(context.Background(), "s1", "site-a")
	require.NoError(t, err)
	assert.True(t, ok)

	source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s2", "site-a").Return(false, nil)
	ok, err = checker.IsActivelyEnrolled(context.Background(), "s2", "site-a")
	require.NoError(t, err)
	assert.False(t, ok, "a cache failure never admits a write")
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "enrollment:active:site-a:s1", cacheKey("s1", "site-a"))
}
