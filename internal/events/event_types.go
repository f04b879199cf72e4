package events

import (
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated         EventType = "request_created"
	EventRequestStatusChanged   EventType = "request_status_changed"
	EventRequestPriorityChanged EventType = "request_priority_changed"
	EventRequestAssigned        EventType = "request_assigned"
	EventRequestEscalated       EventType = "request_escalated"
	EventRequestSLABreached     EventType = "request_sla_breached"
	EventRequestNoteAdded       EventType = "request_note_added"
)

// Actor encapsulates actor metadata for an event. System-driven events
// carry no user id.
type Actor struct {
	UserID *string          `json:"user_id,omitempty"`
	Role   *domain.UserRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	TrackingCode string                 `json:"tracking_code"`
	Category     domain.RequestCategory `json:"category"`
	DistrictID   string                 `json:"district_id"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	Comment   string               `json:"comment,omitempty"`
}

// RequestPriorityChangedPayload payload.
type RequestPriorityChangedPayload struct {
	OldPriority domain.RequestPriority `json:"old_priority"`
	NewPriority domain.RequestPriority `json:"new_priority"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssigneeUserID string `json:"assignee_user_id"`
	AssigneeName   string `json:"assignee_name"`
}

// RequestEscalatedPayload payload.
type RequestEscalatedPayload struct {
	OldPriority  domain.RequestPriority `json:"old_priority"`
	NewPriority  domain.RequestPriority `json:"new_priority"`
	HoursElapsed int                    `json:"hours_elapsed"`
}

// RequestSLABreachedPayload payload.
type RequestSLABreachedPayload struct {
	TrackingCode string    `json:"tracking_code"`
	Deadline     time.Time `json:"deadline"`
}
