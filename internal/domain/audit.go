package domain

import "time"

// AuditLog records an administrative action, separate from the
// citizen-visible request update trail.
type AuditLog struct {
	ID          string
	ActorUserID *string
	Action      string
	EntityType  string
	EntityID    string
	Details     *string
	CreatedAt   time.Time
}
