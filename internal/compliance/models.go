package compliance

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Check names.
const (
	CheckSequenceGaps       = "sequence_gaps"
	CheckCompleteness       = "completeness"
	CheckChainIntegrity     = "chain_integrity"
	CheckProjectionHead     = "projection_head"
	CheckProjectionVersion  = "projection_version"
	CheckProjectionCoverage = "projection_coverage"
	CheckOpenConflicts      = "open_conflicts"
	CheckBreakGlassAccess   = "breakglass_access"
)

// Finding is one row of a compliance report. Fatal rows indicate corruption
// or a logic bug and are never downgraded.
type Finding struct {
	CheckName  string     `json:"check_name"`
	Status     Status     `json:"status"`
	Severity   Severity   `json:"severity"`
	Fatal      bool       `json:"fatal"`
	RecordID   *uuid.UUID `json:"record_id,omitempty"`
	SequenceID *int64     `json:"sequence_id,omitempty"`
	Details    string     `json:"details"`
}

// Summary counts findings by status.
type Summary struct {
	Checks   int    `json:"checks"`
	Passed   int    `json:"passed"`
	Warnings int    `json:"warnings"`
	Failures int    `json:"failures"`
	Fatal    bool   `json:"fatal"`
	Status   Status `json:"status"`
}

type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Events      int       `json:"events"`
	Records     int       `json:"records"`
	Summary     Summary   `json:"summary"`
	Findings    []Finding `json:"findings"`
}

func summarize(checks int, findings []Finding) Summary {
	s := Summary{Checks: checks, Status: StatusPass}
	for _, f := range findings {
		switch f.Status {
		case StatusPass:
			s.Passed++
		case StatusWarn:
			s.Warnings++
			if s.Status == StatusPass {
				s.Status = StatusWarn
			}
		case StatusFail:
			s.Failures++
			s.Status = StatusFail
		}
		if f.Fatal {
			s.Fatal = true
		}
	}
	return s
}
