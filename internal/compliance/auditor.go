// Package compliance runs read-only audits over the ledger, its projections
// and the break-glass access log, and renders the findings for inspectors.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/compliance/metrics"
	"provenant/internal/ledger/models"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
)

// LedgerReader is the read side of the ledger store. Snapshot scopes the
// other reads to one committed state.
type LedgerReader interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context) error) error
	ScanEvents(ctx context.Context, fn func(models.Event) error) error
	Projections(ctx context.Context, partitionID string) ([]models.ProjectedState, error)
	Conflicts(ctx context.Context, recordID uuid.UUID, onlyOpen bool) ([]models.ConflictRecord, error)
}

// AccessLog is the read side of the break-glass store.
type AccessLog interface {
	List(ctx context.Context) ([]bgmodels.Authorization, error)
	ScanAccessLog(ctx context.Context, fn func(bgmodels.AccessLogEntry) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, e audit.Event) error
}

// Auditor never writes to the ledger.
type Auditor struct {
	ledger         LedgerReader
	access         AccessLog
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	auditPublisher AuditPublisher
	clock          func() time.Time

	mu   sync.Mutex
	last *Report
}

type Option func(*Auditor)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Auditor) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Auditor) { a.metrics = m }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(a *Auditor) { a.tracer = tracer }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(a *Auditor) { a.auditPublisher = p }
}

func WithClock(clock func() time.Time) Option {
	return func(a *Auditor) { a.clock = clock }
}

func New(ledger LedgerReader, access AccessLog, opts ...Option) (*Auditor, error) {
	if ledger == nil {
		return nil, errors.New("ledger reader is required")
	}
	if access == nil {
		return nil, errors.New("access log reader is required")
	}
	a := &Auditor{
		ledger: ledger,
		access: access,
		logger: slog.Default(),
		tracer: otel.Tracer("provenant/compliance"),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Run loads a snapshot and evaluates every check. Each check with no issue
// contributes one pass row so the report lists every check that ran.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	ctx, span := a.tracer.Start(ctx, "compliance.Run")
	defer span.End()
	start := a.clock()

	snap, err := a.load(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit snapshot")
	}
	span.SetAttributes(
		attribute.Int("events", len(snap.events)),
		attribute.Int("records", len(snap.byRecord)),
	)

	results := make([][]Finding, len(checks))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range checks {
		g.Go(func() error {
			found := c.run(snap)
			if len(found) == 0 {
				found = []Finding{{CheckName: c.name, Status: StatusPass, Severity: SeverityInfo, Details: "no issues"}}
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var findings []Finding
	for _, r := range results {
		findings = append(findings, r...)
	}
	report := &Report{
		GeneratedAt: a.clock().UTC(),
		Events:      len(snap.events),
		Records:     len(snap.byRecord),
		Summary:     summarize(len(checks), findings),
		Findings:    findings,
	}

	a.observe(report, a.clock().Sub(start))
	a.mu.Lock()
	a.last = report
	a.mu.Unlock()

	if err := a.emit(ctx, report); err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record compliance run")
	}
	return report, nil
}

// Last returns the most recent report, if any run completed.
func (a *Auditor) Last() (*Report, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.last != nil
}

// load reads every input of the checks inside one ledger snapshot, so the
// cross checks between events, projections and conflicts never see a unit
// half applied. A store sharing the ledger's database joins the snapshot; the
// access log is read before grants, so every logged entry finds its grant.
func (a *Auditor) load(ctx context.Context) (*snapshot, error) {
	snap := newSnapshot()
	err := a.ledger.Snapshot(ctx, func(ctx context.Context) error {
		err := a.ledger.ScanEvents(ctx, func(e models.Event) error {
			snap.addEvent(e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan events: %w", err)
		}
		projections, err := a.ledger.Projections(ctx, "")
		if err != nil {
			return fmt.Errorf("list projections: %w", err)
		}
		for _, p := range projections {
			snap.projections[p.RecordID] = p
		}
		if snap.conflicts, err = a.ledger.Conflicts(ctx, uuid.Nil, false); err != nil {
			return fmt.Errorf("list conflicts: %w", err)
		}
		err = a.access.ScanAccessLog(ctx, func(e bgmodels.AccessLogEntry) error {
			snap.access = append(snap.access, e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("scan access log: %w", err)
		}
		grants, err := a.access.List(ctx)
		if err != nil {
			return fmt.Errorf("list authorizations: %w", err)
		}
		for _, grant := range grants {
			snap.grants[grant.ID] = grant
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (a *Auditor) observe(r *Report, took time.Duration) {
	byCheck := make(map[string]map[string]int)
	for _, f := range r.Findings {
		if byCheck[f.CheckName] == nil {
			byCheck[f.CheckName] = make(map[string]int)
		}
		byCheck[f.CheckName][string(f.Status)]++
	}
	a.metrics.Observe(string(r.Summary.Status), took.Seconds(), byCheck)

	level := slog.LevelInfo
	switch {
	case r.Summary.Fatal:
		level = slog.LevelError
	case r.Summary.Failures > 0 || r.Summary.Warnings > 0:
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "compliance run completed",
		"status", r.Summary.Status,
		"events", r.Events,
		"records", r.Records,
		"passed", r.Summary.Passed,
		"warnings", r.Summary.Warnings,
		"failures", r.Summary.Failures,
		"fatal", r.Summary.Fatal,
		"duration_ms", took.Milliseconds(),
	)
}

func (a *Auditor) emit(ctx context.Context, r *Report) error {
	if a.auditPublisher == nil {
		return nil
	}
	event := audit.Event{
		Category:  audit.EventComplianceRun.Category(),
		Timestamp: r.GeneratedAt,
		Action:    string(audit.EventComplianceRun),
		Subject:   "compliance",
		ActorID:   "system",
		Decision:  string(r.Summary.Status),
		Reason: fmt.Sprintf("%d checks, %d passed, %d warnings, %d failures",
			r.Summary.Checks, r.Summary.Passed, r.Summary.Warnings, r.Summary.Failures),
	}
	if err := a.auditPublisher.Emit(ctx, event); err != nil {
		return err
	}
	if !r.Summary.Fatal {
		return nil
	}
	return a.auditPublisher.Emit(ctx, audit.Event{
		Category:  audit.EventIntegrityFailure.Category(),
		Timestamp: r.GeneratedAt,
		Action:    string(audit.EventIntegrityFailure),
		Subject:   "compliance",
		ActorID:   "system",
		Decision:  "fatal",
		Reason:    "compliance run reported fatal findings",
		Severity:  audit.SeverityCritical,
	})
}
