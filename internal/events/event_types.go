package events

import (
	"time"

	"github.com/spec-kit/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestClassified    EventType = "request_classified"
	EventRequestDeleted       EventType = "request_deleted"
	EventClassificationFailed EventType = "classification_failed"
	EventUserRoleChanged      EventType = "user_role_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	OwnerID  *string `json:"owner_id,omitempty"`
	Location *string `json:"location,omitempty"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// RequestClassifiedPayload payload.
type RequestClassifiedPayload struct {
	Category domain.RequestCategory `json:"category"`
	Priority domain.RequestPriority `json:"priority"`
	Attempt  int                    `json:"attempt"`
}

// ClassificationFailedPayload marks a request the pipeline gave up on.
// Terminal but visible: operators pick these up for manual classification.
type ClassificationFailedPayload struct {
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

// UserRoleChangedPayload payload.
type UserRoleChangedPayload struct {
	TargetID string          `json:"target_id"`
	OldRole  domain.UserRole `json:"old_role"`
	NewRole  domain.UserRole `json:"new_role"`
}
