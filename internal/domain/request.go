package domain

import "time"

// RequestCategory classifies the kind of municipal issue reported.
type RequestCategory string

const (
	CategoryLighting RequestCategory = "lighting"
	CategoryWater    RequestCategory = "water"
	CategoryWaste    RequestCategory = "waste"
	CategoryRoads    RequestCategory = "roads"
	CategoryOther    RequestCategory = "other"
)

// Categories lists every known category.
var Categories = []RequestCategory{
	CategoryLighting,
	CategoryWater,
	CategoryWaste,
	CategoryRoads,
	CategoryOther,
}

// Valid reports whether the category is a member of the closed set.
func (c RequestCategory) Valid() bool {
	switch c {
	case CategoryLighting, CategoryWater, CategoryWaste, CategoryRoads, CategoryOther:
		return true
	}
	return false
}

// RequestPriority enumerates urgency levels. Auto-escalation only moves
// upward; manual overrides may go either way.
type RequestPriority string

const (
	PriorityNormal RequestPriority = "normal"
	PriorityHigh   RequestPriority = "high"
	PriorityUrgent RequestPriority = "urgent"
)

// Valid reports whether the priority is a member of the closed set.
func (p RequestPriority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Severity orders priorities from least (0) to most severe.
func (p RequestPriority) Severity() int {
	switch p {
	case PriorityUrgent:
		return 2
	case PriorityHigh:
		return 1
	default:
		return 0
	}
}

// RequestStatus enumerates workflow states for service requests.
type RequestStatus string

const (
	StatusSubmitted  RequestStatus = "submitted"
	StatusReceived   RequestStatus = "received"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusRejected   RequestStatus = "rejected"
)

// Valid reports whether the status is a member of the closed set.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusReceived, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// SLAStatus describes where a request stands against its deadline.
type SLAStatus string

const (
	SLAMet      SLAStatus = "met"
	SLAAtRisk   SLAStatus = "at_risk"
	SLABreached SLAStatus = "breached"
)

// ServiceRequest is the aggregate for citizen-reported issues.
type ServiceRequest struct {
	ID                  string
	TrackingCode        string
	MunicipalityID      string
	DistrictID          string
	Category            RequestCategory
	Priority            RequestPriority
	Status              RequestStatus
	Description         string
	AddressText         *string
	LocationLat         *float64
	LocationLng         *float64
	AssignedToUserID    *string
	AssignedToName      *string
	RejectionReason     *string
	CompletionPhotoURL  *string
	IsAutoEscalated     bool
	PriorityEscalatedAt *time.Time
	SLADeadline         *time.Time
	SLAStatus           SLAStatus
	SLABreachedAt       *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ClosedAt            *time.Time
}

// Closed reports whether the request reached a terminal status.
func (r *ServiceRequest) Closed() bool {
	return r.Status.Terminal()
}
