package dto

import (
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/sla"
)

// SubmitRequestRequest is the public intake payload.
type SubmitRequestRequest struct {
	Category    string   `json:"category"`
	DistrictID  string   `json:"district_id"`
	Description string   `json:"description"`
	AddressText *string  `json:"address_text,omitempty"`
	LocationLat *float64 `json:"location_lat,omitempty"`
	LocationLng *float64 `json:"location_lng,omitempty"`
}

// AssignRequest nominates a staff member for a request.
type AssignRequest struct {
	StaffUserID string `json:"staff_user_id"`
}

// StatusUpdateRequest moves a request along the workflow.
type StatusUpdateRequest struct {
	Status             string  `json:"status"`
	RejectionReason    *string `json:"rejection_reason,omitempty"`
	CompletionPhotoURL *string `json:"completion_photo_url,omitempty"`
	Message            *string `json:"message,omitempty"`
	Note               *string `json:"note,omitempty"`
}

// PriorityUpdateRequest applies a manual priority override.
type PriorityUpdateRequest struct {
	Priority string `json:"priority"`
}

// NoteRequest appends an internal note.
type NoteRequest struct {
	Message string `json:"message"`
}

// CitizenMessageRequest appends a public follow-up message.
type CitizenMessageRequest struct {
	Message string `json:"message"`
}

// RequestSummary is the list-view projection of a request.
type RequestSummary struct {
	ID              string     `json:"id"`
	TrackingCode    string     `json:"tracking_code"`
	DistrictID      string     `json:"district_id"`
	Category        string     `json:"category"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	Description     string     `json:"description"`
	AssignedToName  *string    `json:"assigned_to_name,omitempty"`
	IsAutoEscalated bool       `json:"is_auto_escalated"`
	SLAStatus       string     `json:"sla_status,omitempty"`
	SLADeadline     *time.Time `json:"sla_deadline,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RequestDetail extends the summary with full lifecycle fields.
type RequestDetail struct {
	RequestSummary
	MunicipalityID      string           `json:"municipality_id"`
	AddressText         *string          `json:"address_text,omitempty"`
	LocationLat         *float64         `json:"location_lat,omitempty"`
	LocationLng         *float64         `json:"location_lng,omitempty"`
	AssignedToUserID    *string          `json:"assigned_to_user_id,omitempty"`
	RejectionReason     *string          `json:"rejection_reason,omitempty"`
	CompletionPhotoURL  *string          `json:"completion_photo_url,omitempty"`
	PriorityEscalatedAt *time.Time       `json:"priority_escalated_at,omitempty"`
	SLABreachedAt       *time.Time       `json:"sla_breached_at,omitempty"`
	ClosedAt            *time.Time       `json:"closed_at,omitempty"`
	HoursToEscalation   *int             `json:"hours_to_escalation,omitempty"`
	NextStatuses        []string         `json:"next_statuses"`
	Updates             []UpdateResponse `json:"updates"`
}

// UpdateResponse projects one timeline entry.
type UpdateResponse struct {
	ID               string    `json:"id"`
	ActorName        *string   `json:"actor_name,omitempty"`
	Message          *string   `json:"message,omitempty"`
	FromStatus       *string   `json:"from_status,omitempty"`
	ToStatus         *string   `json:"to_status,omitempty"`
	FromPriority     *string   `json:"from_priority,omitempty"`
	ToPriority       *string   `json:"to_priority,omitempty"`
	IsAutoEscalation bool      `json:"is_auto_escalation"`
	IsInternal       bool      `json:"is_internal"`
	CreatedAt        time.Time `json:"created_at"`
}

// PaginatedRequests wraps a page of request summaries.
type PaginatedRequests struct {
	Items    []RequestSummary `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// TrackingResponse is the public, unauthenticated view.
type TrackingResponse struct {
	TrackingCode   string           `json:"tracking_code"`
	Category       string           `json:"category"`
	Status         string           `json:"status"`
	Description    string           `json:"description"`
	AssignedToName *string          `json:"assigned_to_name,omitempty"`
	SLADeadline    *time.Time       `json:"sla_deadline,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Updates        []UpdateResponse `json:"updates"`
}

// DistrictResponse lists reference data for the intake form.
type DistrictResponse struct {
	ID             string `json:"id"`
	MunicipalityID string `json:"municipality_id"`
	Name           string `json:"name"`
}

// CategoryComplianceResponse aggregates SLA outcomes for one category.
type CategoryComplianceResponse struct {
	Total    int `json:"total"`
	Met      int `json:"met"`
	Breached int `json:"breached"`
	Rate     int `json:"rate"`
}

// ComplianceReportResponse is the admin SLA report payload.
type ComplianceReportResponse struct {
	OverallRate int                                   `json:"overall_rate"`
	ByCategory  map[string]CategoryComplianceResponse `json:"by_category"`
}

// NewRequestSummary maps a domain request onto the summary projection.
func NewRequestSummary(req *domain.ServiceRequest) RequestSummary {
	return RequestSummary{
		ID:              req.ID,
		TrackingCode:    req.TrackingCode,
		DistrictID:      req.DistrictID,
		Category:        string(req.Category),
		Priority:        string(req.Priority),
		Status:          string(req.Status),
		Description:     req.Description,
		AssignedToName:  req.AssignedToName,
		IsAutoEscalated: req.IsAutoEscalated,
		SLAStatus:       string(req.SLAStatus),
		SLADeadline:     req.SLADeadline,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

// NewRequestDetail maps a request with its update trail onto the detail
// projection, computed at the given time.
func NewRequestDetail(req *domain.ServiceRequest, updates []domain.RequestUpdate, now time.Time) RequestDetail {
	detail := RequestDetail{
		RequestSummary:      NewRequestSummary(req),
		MunicipalityID:      req.MunicipalityID,
		AddressText:         req.AddressText,
		LocationLat:         req.LocationLat,
		LocationLng:         req.LocationLng,
		AssignedToUserID:    req.AssignedToUserID,
		RejectionReason:     req.RejectionReason,
		CompletionPhotoURL:  req.CompletionPhotoURL,
		PriorityEscalatedAt: req.PriorityEscalatedAt,
		SLABreachedAt:       req.SLABreachedAt,
		ClosedAt:            req.ClosedAt,
		NextStatuses:        nextStatuses(req.Status),
		Updates:             NewUpdateResponses(updates),
	}
	if !req.Closed() {
		if hours := sla.HoursUntilNextEscalation(req, now); hours >= 0 {
			detail.HoursToEscalation = &hours
		}
	}
	return detail
}

// NewUpdateResponses maps a slice of timeline entries.
func NewUpdateResponses(updates []domain.RequestUpdate) []UpdateResponse {
	result := make([]UpdateResponse, 0, len(updates))
	for i := range updates {
		result = append(result, NewUpdateResponse(&updates[i]))
	}
	return result
}

// NewUpdateResponse maps one timeline entry.
func NewUpdateResponse(update *domain.RequestUpdate) UpdateResponse {
	return UpdateResponse{
		ID:               update.ID,
		ActorName:        update.ActorName,
		Message:          update.Message,
		FromStatus:       statusString(update.FromStatus),
		ToStatus:         statusString(update.ToStatus),
		FromPriority:     priorityString(update.FromPriority),
		ToPriority:       priorityString(update.ToPriority),
		IsAutoEscalation: update.IsAutoEscalation,
		IsInternal:       update.IsInternal,
		CreatedAt:        update.CreatedAt,
	}
}

// NewTrackingResponse maps the public view of a request.
func NewTrackingResponse(req *domain.ServiceRequest, updates []domain.RequestUpdate) TrackingResponse {
	return TrackingResponse{
		TrackingCode:   req.TrackingCode,
		Category:       string(req.Category),
		Status:         string(req.Status),
		Description:    req.Description,
		AssignedToName: req.AssignedToName,
		SLADeadline:    req.SLADeadline,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
		Updates:        NewUpdateResponses(updates),
	}
}

// NewDistrictResponses maps reference districts.
func NewDistrictResponses(districts []domain.District) []DistrictResponse {
	result := make([]DistrictResponse, 0, len(districts))
	for _, district := range districts {
		result = append(result, DistrictResponse{
			ID:             district.ID,
			MunicipalityID: district.MunicipalityID,
			Name:           district.Name,
		})
	}
	return result
}

// NewComplianceReportResponse maps the SLA aggregation.
func NewComplianceReportResponse(rate int, byCategory map[domain.RequestCategory]sla.CategoryCompliance) ComplianceReportResponse {
	categories := make(map[string]CategoryComplianceResponse, len(byCategory))
	for category, compliance := range byCategory {
		categories[string(category)] = CategoryComplianceResponse{
			Total:    compliance.Total,
			Met:      compliance.Met,
			Breached: compliance.Breached,
			Rate:     compliance.Rate,
		}
	}
	return ComplianceReportResponse{OverallRate: rate, ByCategory: categories}
}

func nextStatuses(current domain.RequestStatus) []string {
	valid := domain.ValidNextStatuses(current)
	out := make([]string, 0, len(valid))
	for _, status := range valid {
		out = append(out, string(status))
	}
	return out
}

func statusString(s *domain.RequestStatus) *string {
	if s == nil {
		return nil
	}
	str := string(*s)
	return &str
}

func priorityString(p *domain.RequestPriority) *string {
	if p == nil {
		return nil
	}
	str := string(*p)
	return &str
}
