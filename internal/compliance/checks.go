package compliance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	bgmodels "provenant/internal/breakglass/models"
	"provenant/internal/ledger/integrity"
	"provenant/internal/ledger/models"
)

// snapshot is the read-only view every check runs against.
type snapshot struct {
	events      []models.Event
	byRecord    map[uuid.UUID][]models.Event
	bySequence  map[int64]models.Event
	projections map[uuid.UUID]models.ProjectedState
	conflicts   []models.ConflictRecord
	grants      map[uuid.UUID]bgmodels.Authorization
	access      []bgmodels.AccessLogEntry
}

func newSnapshot() *snapshot {
	return &snapshot{
		byRecord:    make(map[uuid.UUID][]models.Event),
		bySequence:  make(map[int64]models.Event),
		projections: make(map[uuid.UUID]models.ProjectedState),
		grants:      make(map[uuid.UUID]bgmodels.Authorization),
	}
}

func (s *snapshot) addEvent(e models.Event) {
	s.events = append(s.events, e)
	s.byRecord[e.RecordID] = append(s.byRecord[e.RecordID], e)
	s.bySequence[e.SequenceID] = e
}

// recordIDs returns the records with events in a stable order.
func (s *snapshot) recordIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.byRecord))
	for id := range s.byRecord {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.byRecord[ids[i]][0].SequenceID < s.byRecord[ids[j]][0].SequenceID
	})
	return ids
}

func (s *snapshot) projectionIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.projections))
	for id := range s.projections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

type check struct {
	name string
	run  func(s *snapshot) []Finding
}

var checks = []check{
	{CheckSequenceGaps, checkSequenceGaps},
	{CheckCompleteness, checkCompleteness},
	{CheckChainIntegrity, checkChainIntegrity},
	{CheckProjectionHead, checkProjectionHead},
	{CheckProjectionVersion, checkProjectionVersion},
	{CheckProjectionCoverage, checkProjectionCoverage},
	{CheckOpenConflicts, checkOpenConflicts},
	{CheckBreakGlassAccess, checkBreakGlassAccess},
}

func recordRef(id uuid.UUID) *uuid.UUID { return &id }

func seqRef(seq int64) *int64 { return &seq }

// gapFinding grades a run of missing sequence ids by its length.
func gapFinding(from, to int64) Finding {
	missing := to - from + 1
	f := Finding{
		CheckName:  CheckSequenceGaps,
		SequenceID: seqRef(to + 1),
		Details:    fmt.Sprintf("sequence ids %d..%d missing (%d)", from, to, missing),
	}
	switch {
	case missing == 1:
		f.Status, f.Severity = StatusWarn, SeverityLow
	case missing < 10:
		f.Status, f.Severity = StatusFail, SeverityHigh
	default:
		f.Status, f.Severity = StatusFail, SeverityCritical
	}
	return f
}

func checkSequenceGaps(s *snapshot) []Finding {
	var out []Finding
	var prev int64
	for _, e := range s.events {
		if e.SequenceID > prev+1 {
			out = append(out, gapFinding(prev+1, e.SequenceID-1))
		}
		if e.SequenceID <= prev {
			out = append(out, Finding{
				CheckName:  CheckSequenceGaps,
				Status:     StatusFail,
				Severity:   SeverityCritical,
				Fatal:      true,
				SequenceID: seqRef(e.SequenceID),
				Details:    fmt.Sprintf("sequence id %d is out of order after %d", e.SequenceID, prev),
			})
			continue
		}
		prev = e.SequenceID
	}
	return out
}

// checkCompleteness verifies ALCOA+ attribution and that every lineage link
// resolves to an earlier event of the same record.
func checkCompleteness(s *snapshot) []Finding {
	var out []Finding
	fail := func(e models.Event, severity Severity, fatal bool, format string, args ...any) {
		out = append(out, Finding{
			CheckName:  CheckCompleteness,
			Status:     StatusFail,
			Severity:   severity,
			Fatal:      fatal,
			RecordID:   recordRef(e.RecordID),
			SequenceID: seqRef(e.SequenceID),
			Details:    fmt.Sprintf(format, args...),
		})
	}
	for _, id := range s.recordIDs() {
		events := s.byRecord[id]
		if first := events[0]; !first.Operation.Action.ReplacesPayload() {
			fail(first, SeverityCritical, true, "record starts with %s; no create precedes it", first.Operation.Action)
		}
		for _, e := range events {
			if e.Digest == "" || e.ChainDigest == "" {
				fail(e, SeverityCritical, true, "event is not sealed")
			}
			var missing []string
			if strings.TrimSpace(e.Provenance.DeviceID) == "" {
				missing = append(missing, "device_id")
			}
			if strings.TrimSpace(e.Provenance.IPAddress) == "" {
				missing = append(missing, "ip_address")
			}
			if strings.TrimSpace(e.Provenance.SessionID) == "" {
				missing = append(missing, "session_id")
			}
			if strings.TrimSpace(e.ActorID) == "" {
				missing = append(missing, "actor_id")
			}
			if strings.TrimSpace(e.Reason) == "" {
				missing = append(missing, "reason")
			}
			if len(missing) > 0 {
				fail(e, SeverityMedium, false, "missing %s", strings.Join(missing, ", "))
			}
			if e.ParentSequenceID == nil {
				continue
			}
			parent, ok := s.bySequence[*e.ParentSequenceID]
			switch {
			case !ok:
				fail(e, SeverityCritical, true, "parent %d does not exist", *e.ParentSequenceID)
			case parent.RecordID != e.RecordID:
				fail(e, SeverityCritical, true, "parent %d belongs to record %s", parent.SequenceID, parent.RecordID)
			case parent.SequenceID >= e.SequenceID:
				fail(e, SeverityCritical, true, "parent %d does not precede the event", parent.SequenceID)
			}
		}
	}
	return out
}

func checkChainIntegrity(s *snapshot) []Finding {
	var out []Finding
	for _, id := range s.recordIDs() {
		results := integrity.ValidateChain(s.byRecord[id])
		for i, r := range results {
			if r.Valid {
				continue
			}
			out = append(out, Finding{
				CheckName:  CheckChainIntegrity,
				Status:     StatusFail,
				Severity:   SeverityCritical,
				Fatal:      true,
				RecordID:   recordRef(id),
				SequenceID: seqRef(r.SequenceID),
				Details:    fmt.Sprintf("%s; %d of %d events from here are invalid", r.Reason, len(results)-i, len(results)),
			})
			break
		}
	}
	return out
}

func crossFailure(name string, id uuid.UUID, seq *int64, format string, args ...any) Finding {
	return Finding{
		CheckName:  name,
		Status:     StatusFail,
		Severity:   SeverityCritical,
		Fatal:      true,
		RecordID:   recordRef(id),
		SequenceID: seq,
		Details:    fmt.Sprintf(format, args...),
	}
}

func checkProjectionHead(s *snapshot) []Finding {
	var out []Finding
	for _, id := range s.projectionIDs() {
		p := s.projections[id]
		head, ok := s.bySequence[p.HeadSequenceID]
		switch {
		case !ok:
			out = append(out, crossFailure(CheckProjectionHead, id, seqRef(p.HeadSequenceID), "head %d does not exist", p.HeadSequenceID))
			continue
		case head.RecordID != id:
			out = append(out, crossFailure(CheckProjectionHead, id, seqRef(p.HeadSequenceID), "head %d belongs to record %s", p.HeadSequenceID, head.RecordID))
			continue
		}
		events := s.byRecord[id]
		if last := events[len(events)-1].SequenceID; last != p.HeadSequenceID {
			out = append(out, crossFailure(CheckProjectionHead, id, seqRef(p.HeadSequenceID), "head %d is not the latest event %d", p.HeadSequenceID, last))
		}
	}
	return out
}

func checkProjectionVersion(s *snapshot) []Finding {
	var out []Finding
	for _, id := range s.projectionIDs() {
		p := s.projections[id]
		if n := int64(len(s.byRecord[id])); p.Version != n {
			out = append(out, crossFailure(CheckProjectionVersion, id, seqRef(p.HeadSequenceID), "version %d but %d events", p.Version, n))
		}
	}
	return out
}

func checkProjectionCoverage(s *snapshot) []Finding {
	var out []Finding
	for _, id := range s.recordIDs() {
		if _, ok := s.projections[id]; !ok {
			events := s.byRecord[id]
			out = append(out, crossFailure(CheckProjectionCoverage, id, seqRef(events[len(events)-1].SequenceID), "%d events but no projected state", len(events)))
		}
	}
	for _, id := range s.projectionIDs() {
		if _, ok := s.byRecord[id]; !ok {
			out = append(out, crossFailure(CheckProjectionCoverage, id, nil, "projected state without events"))
		}
	}
	return out
}

func checkOpenConflicts(s *snapshot) []Finding {
	var out []Finding
	for _, c := range s.conflicts {
		if c.Resolved {
			continue
		}
		out = append(out, Finding{
			CheckName:  CheckOpenConflicts,
			Status:     StatusWarn,
			Severity:   SeverityLow,
			RecordID:   recordRef(c.RecordID),
			SequenceID: seqRef(c.ServerVersion),
			Details:    fmt.Sprintf("conflict %s open since %s", c.ID, c.DetectedAt.UTC().Format("2006-01-02T15:04:05Z")),
		})
	}
	return out
}

// activeAt evaluates a grant at a past instant, honoring a later revocation.
func activeAt(a bgmodels.Authorization, at bgmodels.AccessLogEntry) bool {
	ts := at.Timestamp
	if ts.Before(a.GrantedAt) || !ts.Before(a.ExpiresAt) {
		return false
	}
	return a.RevokedAt == nil || ts.Before(*a.RevokedAt)
}

func checkBreakGlassAccess(s *snapshot) []Finding {
	var out []Finding
	for _, entry := range s.access {
		grant, ok := s.grants[entry.AuthorizationID]
		var reason string
		switch {
		case !ok:
			reason = fmt.Sprintf("authorization %s does not exist", entry.AuthorizationID)
		case grant.AdminID != entry.AdminID:
			reason = fmt.Sprintf("authorization %s belongs to %s, not %s", grant.ID, grant.AdminID, entry.AdminID)
		case !activeAt(grant, entry):
			reason = fmt.Sprintf("authorization %s was not active at %s", grant.ID, entry.Timestamp.UTC().Format("2006-01-02T15:04:05Z"))
		default:
			continue
		}
		out = append(out, Finding{
			CheckName: CheckBreakGlassAccess,
			Status:    StatusFail,
			Severity:  SeverityCritical,
			Fatal:     true,
			RecordID:  recordRef(entry.RecordID),
			Details:   fmt.Sprintf("%s %s on %s: %s", entry.AdminID, entry.Operation, entry.TableName, reason),
		})
	}
	return out
}
