package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
	"provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/audit"
)

type fakeLedger struct {
	events      []models.Event
	projections []models.ProjectedState
	conflicts   []models.ConflictRecord
	err         error
}

func (f *fakeLedger) Snapshot(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (f *fakeLedger) ScanEvents(_ context.Context, fn func(models.Event) error) error {
	if f.err != nil {
		return f.err
	}
	for _, e := range f.events {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeLedger) Projections(context.Context, string) ([]models.ProjectedState, error) {
	return f.projections, nil
}

func (f *fakeLedger) Conflicts(context.Context, uuid.UUID, bool) ([]models.ConflictRecord, error) {
	return f.conflicts, nil
}

type fakeAccess struct {
	grants []bgmodels.Authorization
	log    []bgmodels.AccessLogEntry
}

func (f *fakeAccess) List(context.Context) ([]bgmodels.Authorization, error) { return f.grants, nil }

func (f *fakeAccess) ScanAccessLog(_ context.Context, fn func(bgmodels.AccessLogEntry) error) error {
	for _, e := range f.log {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

type recordingPublisher struct {
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, e audit.Event) error {
	p.events = append(p.events, e)
	return nil
}

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type AuditorSuite struct {
	suite.Suite
	ctx       context.Context
	ledger    *fakeLedger
	access    *fakeAccess
	publisher *recordingPublisher
	auditor   *Auditor
	seq       int64
}

func TestAuditorSuite(t *testing.T) {
	suite.Run(t, new(AuditorSuite))
}

func (s *AuditorSuite) SetupTest() {
	s.ctx = context.Background()
	s.ledger = &fakeLedger{}
	s.access = &fakeAccess{}
	s.publisher = &recordingPublisher{}
	s.seq = 0
	var err error
	s.auditor, err = New(s.ledger, s.access,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.publisher),
		WithClock(func() time.Time { return base.Add(time.Hour) }),
	)
	s.Require().NoError(err)
}

// addRecord appends a sealed create followed by updates and the matching
// projection.
func (s *AuditorSuite) addRecord(updates int) uuid.UUID {
	recordID := uuid.New()
	prior := ""
	var parent *int64
	var last models.Event
	for i := 0; i <= updates; i++ {
		s.seq++
		action := models.ActionCreate
		if i > 0 {
			action = models.ActionUpdate
		}
		e := models.Event{
			SequenceID:       s.seq,
			RecordID:         recordID,
			SubjectID:        "subj-1",
			PartitionID:      "site-a",
			Operation:        models.Operation{Action: action, Origin: domain.RoleSubject},
			Payload:          models.Payload{Kind: "vitals", Version: "1", Data: json.RawMessage(fmt.Sprintf(`{"hr":%d}`, 60+i))},
			ActorID:          "subj-1",
			ActorRole:        domain.RoleSubject,
			ClientTime:       base.Add(time.Duration(s.seq) * time.Minute),
			ServerTime:       base.Add(time.Duration(s.seq) * time.Minute),
			ParentSequenceID: parent,
			Reason:           "scheduled visit",
			Provenance:       models.Provenance{DeviceID: "dev-1", IPAddress: "10.0.0.1", SessionID: "sess-1"},
		}
		s.Require().NoError(integrity.Seal(&e, prior))
		prior = e.ChainDigest
		seq := e.SequenceID
		parent = &seq
		last = e
		s.ledger.events = append(s.ledger.events, e)
	}
	s.ledger.projections = append(s.ledger.projections, models.ProjectedState{
		RecordID:       recordID,
		SubjectID:      "subj-1",
		PartitionID:    "site-a",
		CurrentPayload: last.Payload,
		Version:        int64(updates + 1),
		HeadSequenceID: last.SequenceID,
	})
	return recordID
}

func (s *AuditorSuite) run() *Report {
	report, err := s.auditor.Run(s.ctx)
	s.Require().NoError(err)
	return report
}

func failuresOf(r *Report, check string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.CheckName == check && f.Status != StatusPass {
			out = append(out, f)
		}
	}
	return out
}

func (s *AuditorSuite) TestCleanLedgerPasses() {
	s.addRecord(2)
	s.addRecord(0)

	report := s.run()

	s.Equal(StatusPass, report.Summary.Status)
	s.Equal(len(checks), report.Summary.Checks)
	s.Equal(len(checks), report.Summary.Passed)
	s.False(report.Summary.Fatal)
	s.Equal(4, report.Events)
	s.Equal(2, report.Records)
	s.Require().Len(s.publisher.events, 1)
	s.Equal(string(audit.EventComplianceRun), s.publisher.events[0].Action)
	s.Equal(audit.CategoryCompliance, s.publisher.events[0].Category)

	last, ok := s.auditor.Last()
	s.True(ok)
	s.Same(report, last)
}

func (s *AuditorSuite) TestSequenceGapIsReported() {
	s.addRecord(0)
	s.seq += 3
	s.addRecord(0)

	found := failuresOf(s.run(), CheckSequenceGaps)

	s.Require().Len(found, 1)
	s.Equal(StatusFail, found[0].Status)
	s.Equal(SeverityHigh, found[0].Severity)
	s.False(found[0].Fatal)
}

func (s *AuditorSuite) TestTamperedPayloadBreaksChain() {
	recordID := s.addRecord(2)
	s.ledger.events[1].Payload.Data = json.RawMessage(`{"hr":120}`)

	report := s.run()
	found := failuresOf(report, CheckChainIntegrity)

	s.Require().Len(found, 1)
	s.True(found[0].Fatal)
	s.Equal(recordID, *found[0].RecordID)
	s.Equal(int64(2), *found[0].SequenceID)
	s.Contains(found[0].Details, "digest mismatch")
	s.True(report.Summary.Fatal)
	s.Require().Len(s.publisher.events, 2)
	s.Equal(string(audit.EventIntegrityFailure), s.publisher.events[1].Action)
}

func (s *AuditorSuite) TestLineageCompleteness() {
	s.Run("parent in another record", func() {
		s.SetupTest()
		s.addRecord(0)
		s.addRecord(1)
		other := int64(1)
		e := &s.ledger.events[2]
		e.ParentSequenceID = &other
		s.Require().NoError(integrity.Seal(e, s.ledger.events[1].ChainDigest))

		found := failuresOf(s.run(), CheckCompleteness)
		s.Require().Len(found, 1)
		s.True(found[0].Fatal)
		s.Contains(found[0].Details, "belongs to record")
	})
	s.Run("record without create", func() {
		s.SetupTest()
		s.addRecord(0)
		e := &s.ledger.events[0]
		e.Operation.Action = models.ActionDelete
		s.Require().NoError(integrity.Seal(e, ""))

		found := failuresOf(s.run(), CheckCompleteness)
		s.Require().Len(found, 1)
		s.True(found[0].Fatal)
	})
	s.Run("missing attribution", func() {
		s.SetupTest()
		s.addRecord(0)
		e := &s.ledger.events[0]
		e.Provenance.SessionID = ""
		s.Require().NoError(integrity.Seal(e, ""))

		found := failuresOf(s.run(), CheckCompleteness)
		s.Require().Len(found, 1)
		s.False(found[0].Fatal)
		s.Equal(SeverityMedium, found[0].Severity)
		s.Contains(found[0].Details, "session_id")
	})
}

func (s *AuditorSuite) TestProjectionCrossChecks() {
	s.addRecord(1)
	stale := s.addRecord(1)
	s.addRecord(0)
	for i := range s.ledger.projections {
		if s.ledger.projections[i].RecordID == stale {
			s.ledger.projections[i].Version = 1
			s.ledger.projections[i].HeadSequenceID = 3
		}
	}
	s.ledger.projections = s.ledger.projections[:2]

	report := s.run()

	head := failuresOf(report, CheckProjectionHead)
	s.Require().Len(head, 1)
	s.Equal(stale, *head[0].RecordID)
	version := failuresOf(report, CheckProjectionVersion)
	s.Require().Len(version, 1)
	s.Contains(version[0].Details, "version 1 but 2 events")
	coverage := failuresOf(report, CheckProjectionCoverage)
	s.Require().Len(coverage, 1)
	s.True(coverage[0].Fatal)
	s.Equal(StatusFail, report.Summary.Status)
}

func (s *AuditorSuite) TestOpenConflictsWarn() {
	recordID := s.addRecord(1)
	s.ledger.conflicts = []models.ConflictRecord{
		{ID: uuid.New(), RecordID: recordID, ServerVersion: 2, DetectedAt: base},
		{ID: uuid.New(), RecordID: recordID, ServerVersion: 2, DetectedAt: base, Resolved: true},
	}

	report := s.run()
	found := failuresOf(report, CheckOpenConflicts)

	s.Require().Len(found, 1)
	s.Equal(StatusWarn, found[0].Status)
	s.Equal(SeverityLow, found[0].Severity)
	s.Equal(StatusWarn, report.Summary.Status)
}

func (s *AuditorSuite) TestBreakGlassAccessWindow() {
	recordID := s.addRecord(0)
	revokedAt := base.Add(30 * time.Minute)
	grant := bgmodels.Authorization{
		ID:        uuid.New(),
		AdminID:   "admin-1",
		GrantedAt: base,
		ExpiresAt: base.Add(2 * time.Hour),
		RevokedAt: &revokedAt,
	}
	s.access.grants = []bgmodels.Authorization{grant}
	entry := func(admin string, at time.Time, authID uuid.UUID) bgmodels.AccessLogEntry {
		return bgmodels.AccessLogEntry{
			ID: uuid.New(), AuthorizationID: authID, AdminID: admin, TableName: "ledger_events",
			RecordID: recordID, Operation: bgmodels.AccessRead, Timestamp: at,
		}
	}
	s.access.log = []bgmodels.AccessLogEntry{
		entry("admin-1", base.Add(10*time.Minute), grant.ID),
		entry("admin-1", base.Add(40*time.Minute), grant.ID),
		entry("admin-2", base.Add(10*time.Minute), grant.ID),
		entry("admin-1", base.Add(10*time.Minute), uuid.New()),
	}

	found := failuresOf(s.run(), CheckBreakGlassAccess)

	s.Require().Len(found, 3)
	s.Contains(found[0].Details, "was not active")
	s.Contains(found[1].Details, "belongs to admin-1")
	s.Contains(found[2].Details, "does not exist")
}

func (s *AuditorSuite) TestLoadFailureIsInternal() {
	s.ledger.err = errors.New("connection reset")

	_, err := s.auditor.Run(s.ctx)

	s.Require().Error(err)
	s.Equal(dErrors.CodeInternal, dErrors.CodeOf(err))
	s.Empty(s.publisher.events)
}

func TestGapFindingSeverity(t *testing.T) {
	cases := []struct {
		from, to int64
		status   Status
		severity Severity
	}{
		{from: 4, to: 4, status: StatusWarn, severity: SeverityLow},
		{from: 4, to: 8, status: StatusFail, severity: SeverityHigh},
		{from: 4, to: 13, status: StatusFail, severity: SeverityCritical},
	}
	for _, tc := range cases {
		f := gapFinding(tc.from, tc.to)
		require.Equal(t, tc.status, f.Status, "gap %d..%d", tc.from, tc.to)
		require.Equal(t, tc.severity, f.Severity, "gap %d..%d", tc.from, tc.to)
	}
}

func TestNewRequiresReaders(t *testing.T) {
	_, err := New(nil, &fakeAccess{})
	require.Error(t, err)
	_, err = New(&fakeLedger{}, nil)
	require.Error(t, err)
}
