package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "provenant/pkg/domain-errors"
)

// ResolutionStrategy is how a detected conflict was settled.
type ResolutionStrategy string

const (
	StrategyClientWins ResolutionStrategy = "client_wins"
	StrategyServerWins ResolutionStrategy = "server_wins"
	StrategyMerge      ResolutionStrategy = "merge"
	StrategyManual     ResolutionStrategy = "manual"
)

func (s ResolutionStrategy) IsValid() bool {
	switch s {
	case StrategyClientWins, StrategyServerWins, StrategyMerge, StrategyManual:
		return true
	}
	return false
}

// RequiresPayload reports whether the caller must supply the resolved payload.
func (s ResolutionStrategy) RequiresPayload() bool {
	return s == StrategyMerge || s == StrategyManual
}

// ParseResolutionStrategy validates a strategy string.
func ParseResolutionStrategy(s string) (ResolutionStrategy, error) {
	strategy := ResolutionStrategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("unknown resolution strategy %q", s)
	}
	return strategy, nil
}

// ConflictRecord captures a rejected concurrent edit.
//
// ClientVersion is the head the client assumed (its parent sequence id) and
// ServerVersion the head actually current when the edit arrived.
//
// Invariants:
//   - Resolved records carry a strategy, a resolver and a resolution time
//   - A resolved record is never reopened
type ConflictRecord struct {
	ID                 uuid.UUID          `json:"id"`
	RecordID           uuid.UUID          `json:"record_id"`
	ClientVersion      int64              `json:"client_version"`
	ServerVersion      int64              `json:"server_version"`
	ClientPayload      Payload            `json:"client_payload"`
	ServerPayload      Payload            `json:"server_payload"`
	SubmittedBy        string             `json:"submitted_by"`
	DetectedAt         time.Time          `json:"detected_at"`
	Resolved           bool               `json:"resolved"`
	ResolutionStrategy ResolutionStrategy `json:"resolution_strategy,omitempty"`
	ResolvedPayload    *Payload           `json:"resolved_payload,omitempty"`
	ResolvedBy         string             `json:"resolved_by,omitempty"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty"`
	ResolvedSequenceID *int64             `json:"resolved_sequence_id,omitempty"`
}

// CanResolve checks that the conflict is still open and the strategy usable.
func (c *ConflictRecord) CanResolve(strategy ResolutionStrategy, payload *Payload) error {
	if c.Resolved {
		return dErrors.New(dErrors.CodeInvariantViolation, "conflict is already resolved")
	}
	if !strategy.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown resolution strategy")
	}
	if strategy.RequiresPayload() && payload == nil {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s resolution requires a resolved payload", strategy))
	}
	return nil
}

// ApplyResolution closes the conflict. seq is the event that carried the
// resolution, nil when the server state was kept as is.
func (c *ConflictRecord) ApplyResolution(strategy ResolutionStrategy, payload *Payload, by string, seq *int64, now time.Time) {
	c.Resolved = true
	c.ResolutionStrategy = strategy
	if payload != nil {
		p := payload.Clone()
		c.ResolvedPayload = &p
	}
	c.ResolvedBy = by
	c.ResolvedAt = &now
	c.ResolvedSequenceID = seq
}

// Clone returns a deep copy.
func (c ConflictRecord) Clone() ConflictRecord {
	out := c
	out.ClientPayload = c.ClientPayload.Clone()
	out.ServerPayload = c.ServerPayload.Clone()
	if c.ResolvedPayload != nil {
		p := c.ResolvedPayload.Clone()
		out.ResolvedPayload = &p
	}
	if c.ResolvedAt != nil {
		at := *c.ResolvedAt
		out.ResolvedAt = &at
	}
	if c.ResolvedSequenceID != nil {
		seq := *c.ResolvedSequenceID
		out.ResolvedSequenceID = &seq
	}
	return out
}

// ResolveRequest settles an open conflict.
type ResolveRequest struct {
	Strategy        ResolutionStrategy `json:"strategy"`
	ResolvedPayload *Payload           `json:"resolved_payload,omitempty"`
	Reason          string             `json:"reason"`
	ClientTime      time.Time          `json:"client_time"`
	Provenance      Provenance         `json:"provenance"`
}
