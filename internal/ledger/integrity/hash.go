// Package integrity computes and verifies the per-event digest and the
// per-record hash chain of the ledger.
//
// digest       = SHA-256("provenant/event/v1" 0x00 canonical(event))
// chain_digest = SHA-256("provenant/chain/v1" 0x00 digest || prior_chain_digest)
//
// The chain is scoped to a record: the first event of a record chains from the
// empty string, so corruption invalidates that record's history from the
// corrupted event onward and leaves other records verifiable.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"provenant/internal/ledger/models"
)

// Domain prefixes. The version suffix allows a future algorithm migration.
const (
	DomainEvent = "provenant/event/v1"
	DomainChain = "provenant/chain/v1"
)

// TimeLayout is the fixed-width timestamp form used in canonical encodings.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// NormalizeTime truncates to the precision every backing store can hold.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalEvent returns the canonical encoding of the immutable fields of e.
// Digest and ChainDigest are excluded.
func CanonicalEvent(e models.Event) ([]byte, error) {
	var parent any
	if e.ParentSequenceID != nil {
		parent = *e.ParentSequenceID
	}
	data := json.RawMessage(e.Payload.Data)
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	obj := map[string]any{
		"sequence_id":  e.SequenceID,
		"record_id":    e.RecordID.String(),
		"subject_id":   e.SubjectID,
		"partition_id": e.PartitionID,
		"operation": map[string]any{
			"action": string(e.Operation.Action),
			"origin": string(e.Operation.Origin),
		},
		"payload": map[string]any{
			"kind":    e.Payload.Kind,
			"version": e.Payload.Version,
			"data":    data,
		},
		"actor_id":           e.ActorID,
		"actor_role":         string(e.ActorRole),
		"client_time":        NormalizeTime(e.ClientTime).Format(TimeLayout),
		"server_time":        NormalizeTime(e.ServerTime).Format(TimeLayout),
		"parent_sequence_id": parent,
		"reason":             e.Reason,
		"conflict_resolved":  e.ConflictResolved,
		"provenance": map[string]any{
			"device_id":   e.Provenance.DeviceID,
			"device":      e.Provenance.Device,
			"ip_address":  e.Provenance.IPAddress,
			"session_id":  e.Provenance.SessionID,
			"user_agent":  e.Provenance.UserAgent,
			"app_version": e.Provenance.AppVersion,
		},
	}
	out, err := MarshalCanonical(obj)
	if err != nil {
		return nil, fmt.Errorf("canonical event %d: %w", e.SequenceID, err)
	}
	return out, nil
}

// Digest hashes the canonical encoding of e.
func Digest(e models.Event) (string, error) {
	canon, err := CanonicalEvent(e)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainEvent, canon), nil
}

// ChainDigest links digest to the chain digest of the previous event of the
// same record ("" for the first).
func ChainDigest(digest, prior string) string {
	return hashWithDomain(DomainChain, []byte(digest+prior))
}

// Seal fills Digest and ChainDigest of e.
func Seal(e *models.Event, prior string) error {
	digest, err := Digest(*e)
	if err != nil {
		return err
	}
	e.Digest = digest
	e.ChainDigest = ChainDigest(digest, prior)
	return nil
}

// Verify recomputes the digest of e and compares it with the stored one.
func Verify(e models.Event) bool {
	digest, err := Digest(e)
	if err != nil {
		return false
	}
	return digest == e.Digest
}

// ChainCheckResult is the verdict for one event of a chain walk.
type ChainCheckResult struct {
	SequenceID     int64  `json:"sequence_id"`
	DigestValid    bool   `json:"digest_valid"`
	ChainValid     bool   `json:"chain_valid"`
	Valid          bool   `json:"valid"`
	ExpectedDigest string `json:"expected_digest,omitempty"`
	ExpectedChain  string `json:"expected_chain_digest,omitempty"`
	StoredChain    string `json:"stored_chain_digest"`
	Reason         string `json:"reason,omitempty"`
}

// ValidateChain walks the events of one record in sequence order, recomputing
// every digest and chain link from the previous recomputed link. The first
// divergence and every later event are reported invalid.
func ValidateChain(events []models.Event) []ChainCheckResult {
	results := make([]ChainCheckResult, 0, len(events))
	prior := ""
	var lastSeq, brokenAt int64
	broken := false

	for i, e := range events {
		res := ChainCheckResult{SequenceID: e.SequenceID, StoredChain: e.ChainDigest}

		digest, err := Digest(e)
		switch {
		case err != nil:
			res.Reason = err.Error()
		case digest != e.Digest:
			res.ExpectedDigest = digest
			res.Reason = "digest mismatch"
		default:
			res.DigestValid = true
		}

		expected := ChainDigest(digest, prior)
		res.ExpectedChain = expected
		res.ChainValid = err == nil && expected == e.ChainDigest
		if !res.ChainValid && res.Reason == "" {
			res.Reason = "chain digest mismatch"
		}

		if i > 0 && e.SequenceID <= lastSeq {
			res.ChainValid = false
			res.Reason = "events out of sequence order"
		}
		if i > 0 && e.RecordID != events[0].RecordID {
			res.ChainValid = false
			res.Reason = "event belongs to another record"
		}

		res.Valid = res.DigestValid && res.ChainValid
		if broken && res.Valid {
			res.Valid = false
			res.Reason = "follows broken link at sequence " + strconv.FormatInt(brokenAt, 10)
		}
		if !res.Valid && !broken {
			broken, brokenAt = true, e.SequenceID
		}

		results = append(results, res)
		prior = expected
		lastSeq = e.SequenceID
	}
	return results
}

// FirstDivergence returns the sequence id of the first invalid result.
func FirstDivergence(results []ChainCheckResult) (int64, bool) {
	for _, r := range results {
		if !r.Valid {
			return r.SequenceID, true
		}
	}
	return 0, false
}

// AllValid reports whether every result is valid.
func AllValid(results []ChainCheckResult) bool {
	_, broken := FirstDivergence(results)
	return !broken
}
