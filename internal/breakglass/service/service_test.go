package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"provenant/internal/breakglass/metrics"
	"provenant/internal/breakglass/models"
	"provenant/internal/breakglass/store/memory"
	"provenant/internal/ledger/ports/mocks"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
	"provenant/pkg/requestcontext"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
	fail   error
}

func (r *recordingAudit) Emit(_ context.Context, e audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recordingAudit) count(action audit.AuditEvent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Action == string(action) {
			n++
		}
	}
	return n
}

type BreakGlassSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *memory.Store
	audit   *recordingAudit
	metrics *metrics.Metrics
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestBreakGlassSuite(t *testing.T) {
	suite.Run(t, new(BreakGlassSuite))
}

func (s *BreakGlassSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = memory.New()
	s.audit = &recordingAudit{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	svc, err := New(s.store,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithAuditPublisher(s.audit),
		WithClock(func() time.Time { return s.now }),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
}

func (s *BreakGlassSuite) register(adminID string, d time.Duration) *models.Authorization {
	a, err := s.service.Register(s.ctx, models.RegisterRequest{
		AdminID:       adminID,
		TicketID:      "INC-7",
		Justification: "sponsor escalation for site data lock",
		GrantedAt:     s.now,
		ExpiresAt:     s.now.Add(d),
	})
	s.Require().NoError(err)
	return a
}

func (s *BreakGlassSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}

func (s *BreakGlassSuite) TestRegister() {
	s.Run("stores the grant and audits it", func() {
		a := s.register("admin-1", time.Hour)
		stored, err := s.service.Get(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal("INC-7", stored.TicketID)
		s.Equal(1, s.audit.count(audit.EventBreakGlassRegistered))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Registered))
	})

	s.Run("rejects grants over 24 hours", func() {
		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			AdminID: "admin-1", TicketID: "INC-8", Justification: "sponsor escalation for site data lock",
			GrantedAt: s.now, ExpiresAt: s.now.Add(25 * time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects grants that are already over", func() {
		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			AdminID: "admin-1", TicketID: "INC-9", Justification: "sponsor escalation for site data lock",
			GrantedAt: s.now.Add(-2 * time.Hour), ExpiresAt: s.now.Add(-time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate ids conflict", func() {
		a := s.register("admin-1", time.Hour)
		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			AuthorizationID: a.ID, AdminID: "admin-1", TicketID: "INC-7", Justification: a.Justification,
			GrantedAt: s.now, ExpiresAt: s.now.Add(time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("a failed compliance event fails the registration", func() {
		s.audit.fail = errors.New("audit store down")
		defer func() { s.audit.fail = nil }()
		_, err := s.service.Register(s.ctx, models.RegisterRequest{
			AdminID: "admin-3", TicketID: "INC-10", Justification: "sponsor escalation for site data lock",
			GrantedAt: s.now, ExpiresAt: s.now.Add(time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *BreakGlassSuite) TestActivityIsEvaluatedAtReadTime() {
	s.register("admin-1", time.Hour)

	active, err := s.service.HasActiveAuthorization(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.True(active)

	s.now = s.now.Add(time.Hour)
	active, err = s.service.HasActiveAuthorization(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.False(active, "a grant is inert at expires_at")

	active, err = s.service.HasActiveAuthorization(s.ctx, "admin-2")
	s.Require().NoError(err)
	s.False(active)
}

func (s *BreakGlassSuite) TestActiveAuthorizationPicksLatestExpiry() {
	s.register("admin-1", time.Hour)
	longer := s.register("admin-1", 3*time.Hour)
	a, err := s.service.ActiveAuthorization(s.ctx, "admin-1")
	s.Require().NoError(err)
	s.Equal(longer.ID, a.ID)
}

func (s *BreakGlassSuite) TestAccess() {
	recordID := uuid.New()

	s.Run("denied without an active grant", func() {
		recorder := mocks.NewMockAccessRecorder(s.ctrl)
		err := s.service.Access(s.ctx, "admin-1", "ledger_events", recordID, models.AccessRead, recorder)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(1, s.audit.count(audit.EventBreakGlassDenied))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AccessDenied.WithLabelValues("ledger_events", "read")))
	})

	a := s.register("admin-1", time.Hour)

	s.Run("writes exactly one entry through the recorder", func() {
		ctx := requestcontext.WithClientMetadata(s.ctx, "10.1.1.1", "curl/8")
		recorder := mocks.NewMockAccessRecorder(s.ctrl)
		recorder.EXPECT().RecordAccess(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, entry models.AccessLogEntry) error {
				s.Equal(a.ID, entry.AuthorizationID)
				s.Equal("admin-1", entry.AdminID)
				s.Equal("ledger_events", entry.TableName)
				s.Equal(recordID, entry.RecordID)
				s.Equal(models.AccessWrite, entry.Operation)
				s.Equal(s.now, entry.Timestamp)
				s.Equal("req-1", entry.Context.RequestID)
				s.Equal("10.1.1.1", entry.Context.IPAddress)
				s.NotEqual(uuid.Nil, entry.ID)
				return nil
			})
		s.Require().NoError(s.service.Access(ctx, "admin-1", "ledger_events", recordID, models.AccessWrite, recorder))
	})

	s.Run("a failed log write refuses the access", func() {
		recorder := mocks.NewMockAccessRecorder(s.ctrl)
		recorder.EXPECT().RecordAccess(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		err := s.service.Access(s.ctx, "admin-1", "ledger_events", recordID, models.AccessRead, recorder)
		s.True(dErrors.HasCode(err, dErrors.CodePolicy))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.AccessLogFails))
	})

	s.Run("without a recorder the store is written", func() {
		s.Require().NoError(s.service.Access(s.ctx, "admin-1", "projected_states", recordID, models.AccessRead, nil))
		entries, err := s.service.ListAccessLog(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal("projected_states", entries[0].TableName)
	})

	s.Run("expired grants admit nothing", func() {
		s.now = s.now.Add(2 * time.Hour)
		err := s.service.Access(s.ctx, "admin-1", "ledger_events", recordID, models.AccessRead, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *BreakGlassSuite) TestRevoke() {
	a := s.register("admin-1", time.Hour)

	s.Run("reason is required", func() {
		_, err := s.service.Revoke(s.ctx, a.ID, "security-1", " ")
		s.True(dErrors.HasCode(err, dErrors.CodeReasonRequired))
	})

	s.Run("revocation ends access immediately", func() {
		revoked, err := s.service.Revoke(s.ctx, a.ID, "security-1", "investigation closed")
		s.Require().NoError(err)
		s.Require().NotNil(revoked.RevokedAt)
		s.Equal("security-1", revoked.RevokedBy)
		active, err := s.service.HasActiveAuthorization(s.ctx, "admin-1")
		s.Require().NoError(err)
		s.False(active)
		s.Equal(1, s.audit.count(audit.EventBreakGlassRevoked))
	})

	s.Run("inert grants cannot be revoked", func() {
		_, err := s.service.Revoke(s.ctx, a.ID, "security-1", "again")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		expiring := s.register("admin-2", time.Minute)
		s.now = s.now.Add(time.Minute)
		_, err = s.service.Revoke(s.ctx, expiring.ID, "security-1", "late")
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("unknown grant", func() {
		_, err := s.service.Revoke(s.ctx, uuid.New(), "security-1", "x")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *BreakGlassSuite) TestListActive() {
	short := s.register("admin-1", time.Hour)
	long := s.register("admin-2", 2*time.Hour)
	revoked := s.register("admin-3", time.Hour)
	_, err := s.service.Revoke(s.ctx, revoked.ID, "security-1", "not needed")
	s.Require().NoError(err)

	active, err := s.service.ListActive(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal(short.ID, active[0].ID)
	s.Equal(long.ID, active[1].ID)
}

func (s *BreakGlassSuite) TestExpirySweepReportsOnce() {
	s.register("admin-1", time.Hour)
	s.register("admin-2", 3*time.Hour)

	n, err := s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.now = s.now.Add(90 * time.Minute)
	n, err = s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
	s.Equal(1, s.audit.count(audit.EventBreakGlassExpired))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ExpiredSwept))
}

func (s *BreakGlassSuite) TestExpirySweepBoundaryGrantIsReportedOnce() {
	s.register("admin-1", time.Hour)

	s.now = s.now.Add(time.Hour)
	n, err := s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n, "a grant expiring at the sweep instant belongs to that sweep")

	n, err = s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	s.now = s.now.Add(time.Minute)
	n, err = s.service.ExpirySweep(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
	s.Equal(1, s.audit.count(audit.EventBreakGlassExpired))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ExpiredSwept))
}
