package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"provenant/pkg/domain"
)

// Payload is a versioned, typed clinical payload.
type Payload struct {
	Kind    string          `json:"kind"`
	Version string          `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Tag renders the payload type tag, e.g. "note-v1.0".
func (p Payload) Tag() string {
	return fmt.Sprintf("%s-v%s", p.Kind, p.Version)
}

// Clone returns a payload that shares no memory with p.
func (p Payload) Clone() Payload {
	out := p
	if p.Data != nil {
		out.Data = append(json.RawMessage(nil), p.Data...)
	}
	return out
}

// Provenance captures the ALCOA+ attribution metadata of a change.
type Provenance struct {
	DeviceID   string `json:"device_id"`
	Device     string `json:"device,omitempty"`
	IPAddress  string `json:"ip_address"`
	SessionID  string `json:"session_id"`
	UserAgent  string `json:"user_agent,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

// Event is an appended, immutable ledger entry.
type Event struct {
	SequenceID       int64       `json:"sequence_id"`
	RecordID         uuid.UUID   `json:"record_id"`
	SubjectID        string      `json:"subject_id"`
	PartitionID      string      `json:"partition_id"`
	Operation        Operation   `json:"operation"`
	Payload          Payload     `json:"payload"`
	ActorID          string      `json:"actor_id"`
	ActorRole        domain.Role `json:"actor_role"`
	ClientTime       time.Time   `json:"client_time"`
	ServerTime       time.Time   `json:"server_time"`
	ParentSequenceID *int64      `json:"parent_sequence_id,omitempty"`
	Reason           string      `json:"reason"`
	ConflictResolved bool        `json:"conflict_resolved"`
	Provenance       Provenance  `json:"provenance"`
	Digest           string      `json:"digest"`
	ChainDigest      string      `json:"chain_digest"`
}

// Clone returns a deep copy so callers can never reach stored memory.
func (e Event) Clone() Event {
	out := e
	out.Payload = e.Payload.Clone()
	if e.ParentSequenceID != nil {
		parent := *e.ParentSequenceID
		out.ParentSequenceID = &parent
	}
	return out
}

// Candidate is an event submitted for append. Sequence, server time and
// digests are assigned by the ledger.
type Candidate struct {
	RecordID         uuid.UUID   `json:"record_id"`
	SubjectID        string      `json:"subject_id"`
	PartitionID      string      `json:"partition_id"`
	Operation        Operation   `json:"operation"`
	Payload          Payload     `json:"payload"`
	ActorID          string      `json:"actor_id"`
	ActorRole        domain.Role `json:"actor_role"`
	ClientTime       time.Time   `json:"client_time"`
	ParentSequenceID *int64      `json:"parent_sequence_id,omitempty"`
	Reason           string      `json:"reason"`
	ConflictResolved bool        `json:"conflict_resolved"`
	Provenance       Provenance  `json:"provenance"`
}

// ToEvent stamps the candidate with its assigned sequence and server time.
func (c Candidate) ToEvent(seq int64, serverTime time.Time) Event {
	e := Event{
		SequenceID:       seq,
		RecordID:         c.RecordID,
		SubjectID:        c.SubjectID,
		PartitionID:      c.PartitionID,
		Operation:        c.Operation,
		Payload:          c.Payload.Clone(),
		ActorID:          c.ActorID,
		ActorRole:        c.ActorRole,
		ClientTime:       c.ClientTime,
		ServerTime:       serverTime,
		Reason:           c.Reason,
		ConflictResolved: c.ConflictResolved,
		Provenance:       c.Provenance,
	}
	if c.ParentSequenceID != nil {
		parent := *c.ParentSequenceID
		e.ParentSequenceID = &parent
	}
	return e
}
