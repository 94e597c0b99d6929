package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"provenant/internal/ledger/models"
	"provenant/internal/platform/middleware"
	"provenant/pkg/domain"
	"provenant/pkg/requestcontext"
)

// AppendRequest is the body of an event submission. The record id comes from
// the path; actor and provenance come from the request context.
type AppendRequest struct {
	SubjectID        string         `json:"subject_id"`
	PartitionID      string         `json:"partition_id"`
	Action           models.Action  `json:"action"`
	Payload          models.Payload `json:"payload"`
	ClientTime       time.Time      `json:"client_time"`
	ParentSequenceID *int64         `json:"parent_sequence_id,omitempty"`
	Reason           string         `json:"reason"`
	ConflictResolved bool           `json:"conflict_resolved"`
	// DeviceID is used when the client did not send the device header.
	DeviceID string `json:"device_id,omitempty"`
}

// ToCandidate attributes the request to the authenticated actor. The origin
// of the operation is the actor's role.
func (r AppendRequest) ToCandidate(ctx context.Context, recordID uuid.UUID) models.Candidate {
	actor := requestcontext.Actor(ctx)
	return models.Candidate{
		RecordID:         recordID,
		SubjectID:        r.SubjectID,
		PartitionID:      r.PartitionID,
		Operation:        models.Operation{Action: r.Action, Origin: actor.Role},
		Payload:          r.Payload,
		ActorID:          actor.ID,
		ActorRole:        actor.Role,
		ClientTime:       r.ClientTime,
		ParentSequenceID: r.ParentSequenceID,
		Reason:           r.Reason,
		ConflictResolved: r.ConflictResolved,
		Provenance:       provenanceFrom(ctx, actor, r.DeviceID),
	}
}

// ResolveConflictRequest settles an open conflict.
type ResolveConflictRequest struct {
	Strategy        models.ResolutionStrategy `json:"strategy"`
	ResolvedPayload *models.Payload           `json:"resolved_payload,omitempty"`
	Reason          string                    `json:"reason"`
	ClientTime      time.Time                 `json:"client_time"`
	DeviceID        string                    `json:"device_id,omitempty"`
}

func (r ResolveConflictRequest) ToModel(ctx context.Context) models.ResolveRequest {
	return models.ResolveRequest{
		Strategy:        r.Strategy,
		ResolvedPayload: r.ResolvedPayload,
		Reason:          r.Reason,
		ClientTime:      r.ClientTime,
		Provenance:      provenanceFrom(ctx, requestcontext.Actor(ctx), r.DeviceID),
	}
}

func provenanceFrom(ctx context.Context, actor domain.Actor, bodyDeviceID string) models.Provenance {
	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		deviceID = bodyDeviceID
	}
	ua := requestcontext.UserAgent(ctx)
	return models.Provenance{
		DeviceID:   deviceID,
		Device:     middleware.DescribeDevice(ua),
		IPAddress:  requestcontext.ClientIP(ctx),
		SessionID:  actor.SessionID,
		UserAgent:  ua,
		AppVersion: requestcontext.AppVersion(ctx),
	}
}
