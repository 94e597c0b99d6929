package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "provenant/pkg/domain-errors"
)

// Grant limits.
const (
	MaxDuration         = 24 * time.Hour
	MinJustificationLen = 20
)

// Status is the derived lifecycle state of an Authorization.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
	// StatusPending covers grants whose window has not opened yet.
	StatusPending Status = "pending"
)

// Authorization is an externally approved, time-boxed emergency grant.
//
// Invariants:
//   - Justification has at least MinJustificationLen characters
//   - GrantedAt < ExpiresAt <= GrantedAt + MaxDuration
//   - Once RevokedAt is set it never changes
//   - An inert grant (expired or revoked) is kept, never deleted
type Authorization struct {
	ID               uuid.UUID  `json:"authorization_id"`
	AdminID          string     `json:"admin_id"`
	TicketID         string     `json:"ticket_id"`
	Justification    string     `json:"justification"`
	GrantedAt        time.Time  `json:"granted_at"`
	ExpiresAt        time.Time  `json:"expires_at"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevokedBy        string     `json:"revoked_by,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`
}

// NewAuthorization validates an approved grant. maxDuration and minJustification
// of zero fall back to the package limits; neither may exceed them.
func NewAuthorization(id uuid.UUID, adminID, ticketID, justification string, grantedAt, expiresAt time.Time, maxDuration time.Duration, minJustification int) (*Authorization, error) {
	if maxDuration <= 0 || maxDuration > MaxDuration {
		maxDuration = MaxDuration
	}
	if minJustification < MinJustificationLen {
		minJustification = MinJustificationLen
	}
	adminID = strings.TrimSpace(adminID)
	ticketID = strings.TrimSpace(ticketID)
	justification = strings.TrimSpace(justification)

	switch {
	case adminID == "":
		return nil, dErrors.New(dErrors.CodeValidation, "admin_id is required")
	case ticketID == "":
		return nil, dErrors.New(dErrors.CodeValidation, "ticket_id is required")
	case utf8.RuneCountInString(justification) < minJustification:
		return nil, dErrors.New(dErrors.CodeValidation, "justification is too short")
	case grantedAt.IsZero() || expiresAt.IsZero():
		return nil, dErrors.New(dErrors.CodeValidation, "granted_at and expires_at are required")
	case !expiresAt.After(grantedAt):
		return nil, dErrors.New(dErrors.CodeValidation, "expires_at must be after granted_at")
	case expiresAt.Sub(grantedAt) > maxDuration:
		return nil, dErrors.New(dErrors.CodeValidation, "authorization may not exceed "+maxDuration.String())
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Authorization{
		ID:            id,
		AdminID:       adminID,
		TicketID:      ticketID,
		Justification: justification,
		GrantedAt:     grantedAt,
		ExpiresAt:     expiresAt,
	}, nil
}

// IsActive is evaluated at read time; no sweep is needed for correctness.
func (a *Authorization) IsActive(now time.Time) bool {
	return a.RevokedAt == nil && !now.Before(a.GrantedAt) && now.Before(a.ExpiresAt)
}

// StatusAt derives the lifecycle state at now.
func (a *Authorization) StatusAt(now time.Time) Status {
	switch {
	case a.RevokedAt != nil:
		return StatusRevoked
	case !now.Before(a.ExpiresAt):
		return StatusExpired
	case now.Before(a.GrantedAt):
		return StatusPending
	}
	return StatusActive
}

// CanRevoke checks that the grant is not inert.
func (a *Authorization) CanRevoke(now time.Time) error {
	switch a.StatusAt(now) {
	case StatusRevoked:
		return dErrors.New(dErrors.CodeInvariantViolation, "authorization is already revoked")
	case StatusExpired:
		return dErrors.New(dErrors.CodeInvariantViolation, "authorization has already expired")
	}
	return nil
}

// ApplyRevocation marks the grant revoked. Call CanRevoke first.
func (a *Authorization) ApplyRevocation(now time.Time, by, reason string) {
	a.RevokedAt = &now
	a.RevokedBy = by
	a.RevocationReason = reason
}

// AccessOperation classifies a guarded access.
type AccessOperation string

const (
	AccessRead  AccessOperation = "read"
	AccessWrite AccessOperation = "write"
)

// AccessContext carries request metadata for the access log.
type AccessContext struct {
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// AccessLogEntry records one access made under an authorization. Entries are
// append-only.
type AccessLogEntry struct {
	ID              uuid.UUID       `json:"id"`
	AuthorizationID uuid.UUID       `json:"authorization_id"`
	AdminID         string          `json:"admin_id"`
	TableName       string          `json:"table_name"`
	RecordID        uuid.UUID       `json:"record_id"`
	Operation       AccessOperation `json:"operation"`
	Timestamp       time.Time       `json:"timestamp"`
	Context         AccessContext   `json:"context"`
}

// RegisterRequest is the payload the approval workflow submits.
type RegisterRequest struct {
	AuthorizationID uuid.UUID `json:"authorization_id"`
	AdminID         string    `json:"admin_id"`
	TicketID        string    `json:"ticket_id"`
	Justification   string    `json:"justification"`
	GrantedAt       time.Time `json:"granted_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// RevokeRequest ends a grant early.
type RevokeRequest struct {
	RevokedBy string `json:"revoked_by"`
	Reason    string `json:"reason"`
}
