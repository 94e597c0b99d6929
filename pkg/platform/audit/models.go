// Package audit records operational facts about the ledger that are not
// ledger events themselves: conflicts, enrollment bypasses, break-glass
// lifecycle, guard configuration and compliance runs.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and delivery guarantees.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance. They are
	// written synchronously and a failed write fails the caller.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring. They are
	// buffered and written asynchronously.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity. These are logged only.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject is the entity acted upon: a record id, authorization id or
	// check name.
	Subject   string
	ActorID   string
	ActorRole string
	Reason    string
	Decision  string
	RequestID string
	IP        string
	Severity  Severity
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type AuditEvent string

const (
	// Ledger events
	EventConflictDetected   AuditEvent = "conflict_detected"
	EventConflictResolved   AuditEvent = "conflict_resolved"
	EventEnrollmentBypassed AuditEvent = "enrollment_bypassed"
	EventEnrollmentDenied   AuditEvent = "enrollment_denied"
	EventIntegrityFailure   AuditEvent = "integrity_failure"
	EventImmutabilityOff    AuditEvent = "immutability_enforcement_disabled"

	// Break-glass events
	EventBreakGlassRegistered AuditEvent = "breakglass_registered"
	EventBreakGlassRevoked    AuditEvent = "breakglass_revoked"
	EventBreakGlassDenied     AuditEvent = "breakglass_access_denied"
	EventBreakGlassExpired    AuditEvent = "breakglass_expired"

	// Compliance auditor events
	EventComplianceRun AuditEvent = "compliance_run_completed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventConflictResolved:     CategoryCompliance,
	EventBreakGlassRegistered: CategoryCompliance,
	EventBreakGlassRevoked:    CategoryCompliance,
	EventComplianceRun:        CategoryCompliance,

	EventEnrollmentDenied: CategorySecurity,
	EventIntegrityFailure: CategorySecurity,
	EventImmutabilityOff:  CategorySecurity,
	EventBreakGlassDenied: CategorySecurity,

	EventConflictDetected:   CategoryOperations,
	EventEnrollmentBypassed: CategoryOperations,
	EventBreakGlassExpired:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
