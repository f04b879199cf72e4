package domain

import "time"

// RequestUpdate is an immutable audit entry on a service request.
// Internal entries are hidden from the public tracking view.
type RequestUpdate struct {
	ID               string
	RequestID        string
	ActorUserID      *string
	ActorName        *string
	Message          *string
	FromStatus       *RequestStatus
	ToStatus         *RequestStatus
	FromPriority     *RequestPriority
	ToPriority       *RequestPriority
	IsAutoEscalation bool
	IsInternal       bool
	CreatedAt        time.Time
}
