//go:build integration

package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provenant/internal/enrollment/cache"
	"provenant/internal/ledger/ports/mocks"
	"provenant/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	ctrl    *gomock.Controller
	source  *mocks.MockEnrollmentChecker
	checker *cache.Checker
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.Client.FlushAll(context.Background()).Err())
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockEnrollmentChecker(s.ctrl)
	s.checker = cache.New(s.source, s.redis.Client, cache.WithTTL(time.Minute))
}

func (s *RedisCacheSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *RedisCacheSuite) TestPositiveAnswerIsCached() {
	ctx := context.Background()
	s.source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s1", "site-a").Return(true, nil).Times(1)

	for i := 0; i < 3; i++ {
		ok, err := s.checker.IsActivelyEnrolled(ctx, "s1", "site-a")
		s.Require().NoError(err)
		s.True(ok)
	}
}

func (s *RedisCacheSuite) TestNegativeAnswerIsNotCached() {
	ctx := context.Background()
	s.source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s2", "site-a").Return(false, nil).Times(2)

	for i := 0; i < 2; i++ {
		ok, err := s.checker.IsActivelyEnrolled(ctx, "s2", "site-a")
		s.Require().NoError(err)
		s.False(ok)
	}
}

func (s *RedisCacheSuite) TestSourceErrorsPropagate() {
	boom := errors.New("database down")
	s.source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s3", "site-a").Return(false, boom)

	ok, err := s.checker.IsActivelyEnrolled(context.Background(), "s3", "site-a")
	s.ErrorIs(err, boom)
	s.False(ok)
}

func (s *RedisCacheSuite) TestInvalidate() {
	ctx := context.Background()
	s.source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s1", "site-a").Return(true, nil)
	s.source.EXPECT().IsActivelyEnrolled(gomock.Any(), "s1", "site-a").Return(false, nil)

	ok, err := s.checker.IsActivelyEnrolled(ctx, "s1", "site-a")
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.checker.Invalidate(ctx, "s1", "site-a"))
	ok, err = s.checker.IsActivelyEnrolled(ctx, "s1", "site-a")
	s.Require().NoError(err)
	s.False(ok)
}
