package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"provenant/internal/breakglass/metrics"
	"provenant/internal/breakglass/models"
	"provenant/internal/ledger/ports"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

// Store persists authorizations and the access log. Missing entities are
// reported as sentinel.ErrNotFound; a duplicate id as sentinel.ErrConflict and
// a second revocation as sentinel.ErrInvalidState.
type Store interface {
	Create(ctx context.Context, a *models.Authorization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Authorization, error)
	ListByAdmin(ctx context.Context, adminID string) ([]models.Authorization, error)
	List(ctx context.Context) ([]models.Authorization, error)
	Revoke(ctx context.Context, id uuid.UUID, at time.Time, by, reason string) error
	AppendAccess(ctx context.Context, entry models.AccessLogEntry) error
	ListAccessLog(ctx context.Context, authorizationID uuid.UUID) ([]models.AccessLogEntry, error)
}

// Transactor runs fn in one unit of work so that a grant change and its
// compliance audit event commit together.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, e audit.Event) error
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Service controls time-boxed emergency access for admins.
type Service struct {
	store            Store
	tx               Transactor
	logger           *slog.Logger
	metrics          *metrics.Metrics
	auditPublisher   AuditPublisher
	clock            func() time.Time
	maxDuration      time.Duration
	minJustification int

	sweepMu    sync.Mutex
	sweptUntil time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithTransactor(tx Transactor) Option {
	return func(s *Service) { s.tx = tx }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithLimits narrows the grant limits. Values outside the model limits are
// clamped by models.NewAuthorization.
func WithLimits(maxDuration time.Duration, minJustification int) Option {
	return func(s *Service) {
		s.maxDuration = maxDuration
		s.minJustification = minJustification
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("break-glass store is required")
	}
	s := &Service{
		store:  store,
		tx:     passthroughTx{},
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sweptUntil = s.clock()
	return s, nil
}

var _ ports.AccessGuard = (*Service)(nil)

// Register validates and stores a grant approved by the external workflow.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Authorization, error) {
	a, err := models.NewAuthorization(req.AuthorizationID, req.AdminID, req.TicketID, req.Justification,
		req.GrantedAt, req.ExpiresAt, s.maxDuration, s.minJustification)
	if err != nil {
		return nil, err
	}
	if !s.clock().Before(a.ExpiresAt) {
		return nil, dErrors.New(dErrors.CodeValidation, "authorization has already expired")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, a); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:    string(audit.EventBreakGlassRegistered),
			Subject:   a.ID.String(),
			ActorID:   a.AdminID,
			ActorRole: "admin",
			Reason:    a.Justification,
			Decision:  a.TicketID,
			RequestID: requestcontext.RequestID(ctx),
		})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "authorization is already registered")
		}
		return nil, wrap(err, "failed to register authorization")
	}
	if s.metrics != nil {
		s.metrics.Registered.Inc()
	}
	s.logger.InfoContext(ctx, "break-glass authorization registered",
		"authorization_id", a.ID,
		"admin_id", a.AdminID,
		"ticket_id", a.TicketID,
		"expires_at", a.ExpiresAt,
	)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Authorization, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "authorization not found")
		}
		return nil, wrap(err, "failed to load authorization")
	}
	return a, nil
}

// ActiveAuthorization returns the active grant of adminID that expires last.
// Activity is evaluated against the clock on every call.
func (s *Service) ActiveAuthorization(ctx context.Context, adminID string) (*models.Authorization, error) {
	grants, err := s.store.ListByAdmin(ctx, adminID)
	if err != nil {
		return nil, wrap(err, "failed to load authorizations")
	}
	now := s.clock()
	var best *models.Authorization
	for i := range grants {
		g := &grants[i]
		if !g.IsActive(now) {
			continue
		}
		if best == nil || g.ExpiresAt.After(best.ExpiresAt) {
			best = g
		}
	}
	if best == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no active authorization")
	}
	return best, nil
}

func (s *Service) HasActiveAuthorization(ctx context.Context, adminID string) (bool, error) {
	_, err := s.ActiveAuthorization(ctx, adminID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Access admits one admin access to a sensitive table and writes its access
// log entry through recorder. A nil recorder writes straight to the store.
// Without an active authorization, or when the entry cannot be written, the
// access is refused.
func (s *Service) Access(ctx context.Context, adminID, table string, recordID uuid.UUID, op models.AccessOperation, recorder ports.AccessRecorder) error {
	a, err := s.ActiveAuthorization(ctx, adminID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		if s.metrics != nil {
			s.metrics.AccessDenied.WithLabelValues(table, string(op)).Inc()
		}
		s.logger.WarnContext(ctx, "break-glass access denied",
			"admin_id", adminID,
			"table", table,
			"record_id", recordID,
			"operation", string(op),
		)
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventBreakGlassDenied),
			Subject:   table + "/" + recordID.String(),
			ActorID:   adminID,
			ActorRole: "admin",
			Decision:  string(op),
			RequestID: requestcontext.RequestID(ctx),
			IP:        requestcontext.ClientIP(ctx),
			Severity:  audit.SeverityWarning,
		})
		return dErrors.New(dErrors.CodeForbidden, "no active break-glass authorization")
	}

	entry := models.AccessLogEntry{
		ID:              uuid.New(),
		AuthorizationID: a.ID,
		AdminID:         adminID,
		TableName:       table,
		RecordID:        recordID,
		Operation:       op,
		Timestamp:       s.clock().UTC(),
		Context: models.AccessContext{
			RequestID: requestcontext.RequestID(ctx),
			IPAddress: requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			SessionID: requestcontext.Actor(ctx).SessionID,
		},
	}
	if recorder == nil {
		recorder = storeRecorder{s.store}
	}
	if err := recorder.RecordAccess(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AccessLogFails.Inc()
		}
		s.logger.ErrorContext(ctx, "CRITICAL: break-glass access log write failed",
			"authorization_id", a.ID,
			"admin_id", adminID,
			"table", table,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodePolicy, "access log entry could not be written")
	}
	if s.metrics != nil {
		s.metrics.AccessGranted.WithLabelValues(table, string(op)).Inc()
	}
	return nil
}

type storeRecorder struct{ store Store }

func (r storeRecorder) RecordAccess(ctx context.Context, entry models.AccessLogEntry) error {
	return r.store.AppendAccess(ctx, entry)
}

// Revoke ends a grant early. Revoking an expired or revoked grant fails.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, by, reason string) (*models.Authorization, error) {
	by = strings.TrimSpace(by)
	reason = strings.TrimSpace(reason)
	if by == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "revoked_by is required")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeReasonRequired, "a revocation reason is required")
	}

	var revoked *models.Authorization
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.store.FindByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.clock().UTC()
		if err := a.CanRevoke(now); err != nil {
			return err
		}
		if err := s.store.Revoke(ctx, id, now, by, reason); err != nil {
			return err
		}
		a.ApplyRevocation(now, by, reason)
		revoked = a
		return s.emit(ctx, audit.Event{
			Action:    string(audit.EventBreakGlassRevoked),
			Subject:   id.String(),
			ActorID:   by,
			Reason:    reason,
			RequestID: requestcontext.RequestID(ctx),
		})
	})
	switch {
	case err == nil:
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "authorization not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "authorization is already revoked")
	default:
		return nil, wrap(err, "failed to revoke authorization")
	}
	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}
	s.logger.InfoContext(ctx, "break-glass authorization revoked",
		"authorization_id", id,
		"admin_id", revoked.AdminID,
		"revoked_by", by,
	)
	return revoked, nil
}

// ListActive returns the grants active now, soonest expiry first.
func (s *Service) ListActive(ctx context.Context) ([]models.Authorization, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, wrap(err, "failed to list authorizations")
	}
	now := s.clock()
	out := make([]models.Authorization, 0, len(all))
	for _, a := range all {
		if a.IsActive(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *Service) ListAccessLog(ctx context.Context, authorizationID uuid.UUID) ([]models.AccessLogEntry, error) {
	if _, err := s.Get(ctx, authorizationID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListAccessLog(ctx, authorizationID)
	if err != nil {
		return nil, wrap(err, "failed to list access log")
	}
	return entries, nil
}

// ExpirySweep reports grants that expired in (previous sweep, now]. It only
// logs; activity never depends on it.
func (s *Service) ExpirySweep(ctx context.Context) (int, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	all, err := s.store.List(ctx)
	if err != nil {
		return 0, wrap(err, "failed to list authorizations")
	}
	now := s.clock()
	reported := 0
	for _, a := range all {
		if a.RevokedAt != nil || !a.ExpiresAt.After(s.sweptUntil) || a.ExpiresAt.After(now) {
			continue
		}
		reported++
		s.logger.InfoContext(ctx, "break-glass authorization expired",
			"authorization_id", a.ID,
			"admin_id", a.AdminID,
			"expired_at", a.ExpiresAt,
		)
		_ = s.emit(ctx, audit.Event{
			Action:    string(audit.EventBreakGlassExpired),
			Subject:   a.ID.String(),
			ActorID:   a.AdminID,
			Timestamp: a.ExpiresAt,
		})
	}
	if s.metrics != nil {
		s.metrics.ExpiredSwept.Add(float64(reported))
	}
	s.sweptUntil = now
	return reported, nil
}

func (s *Service) emit(ctx context.Context, e audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.clock().UTC()
	}
	return s.auditPublisher.Emit(ctx, e)
}

func wrap(err error, msg string) error {
	var coded dErrors.Coded
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
