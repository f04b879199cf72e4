package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/events"
	"github.com/spec-kit/municipal-requests/internal/repository"
	"github.com/spec-kit/municipal-requests/internal/sla"
	"github.com/spec-kit/municipal-requests/internal/taxonomy"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// Clock supplies the current time; injected for deterministic tests.
type Clock func() time.Time

// RequestService orchestrates the request lifecycle: intake, assignment,
// status and priority changes, notes and the public tracking view. Every
// mutation bumps UpdatedAt and appends at least one RequestUpdate.
type RequestService struct {
	requests   repository.RequestRepository
	updates    repository.RequestUpdateRepository
	districts  repository.DistrictRepository
	users      repository.UserRepository
	audit      repository.AuditLogRepository
	dispatcher events.Dispatcher
	now        Clock
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo  repository.RequestRepository
	UpdateRepo   repository.RequestUpdateRepository
	DistrictRepo repository.DistrictRepository
	UserRepo     repository.UserRepository
	AuditRepo    repository.AuditLogRepository
	Dispatcher   events.Dispatcher
	Now          Clock
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		updates:    deps.UpdateRepo,
		districts:  deps.DistrictRepo,
		users:      deps.UserRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// CreateInput describes the public intake payload.
type CreateInput struct {
	Category    domain.RequestCategory
	DistrictID  string
	Description string
	AddressText *string
	LocationLat *float64
	LocationLng *float64
}

// Create files a new request: submitted status, normal priority, a fresh
// tracking code, a pinned SLA deadline and the initial audit entry.
func (s *RequestService) Create(ctx context.Context, input CreateInput) (*domain.ServiceRequest, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}

	district, err := s.districts.GetByID(ctx, input.DistrictID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("district", map[string]any{"district_id": input.DistrictID})
		}
		return nil, apperrors.MapError(err)
	}

	code, err := s.uniqueTrackingCode(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now()
	deadline := sla.Deadline(now, input.Category, domain.PriorityNormal)

	req := &domain.ServiceRequest{
		ID:             uuid.NewString(),
		TrackingCode:   code,
		MunicipalityID: district.MunicipalityID,
		DistrictID:     district.ID,
		Category:       input.Category,
		Priority:       domain.PriorityNormal,
		Status:         domain.StatusSubmitted,
		Description:    description,
		AddressText:    input.AddressText,
		LocationLat:    input.LocationLat,
		LocationLng:    input.LocationLng,
		SLADeadline:    &deadline,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	req.SLAStatus = sla.Evaluate(req, now)

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendUpdate(ctx, &domain.RequestUpdate{
		RequestID: req.ID,
		Message:   ptr("request received"),
		ToStatus:  ptrStatus(domain.StatusSubmitted),
	}, now); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		Payload: events.RequestCreatedPayload{
			TrackingCode: req.TrackingCode,
			Category:     req.Category,
			DistrictID:   req.DistrictID,
		},
	})
	return req, nil
}

// AssignStaff assigns a field staff member to the request. The target
// must hold the staff role and belong to the request's district.
func (s *RequestService) AssignStaff(ctx context.Context, requestID, staffUserID string, actor *domain.User) (*domain.ServiceRequest, error) {
	req, err := s.getScoped(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	staff, err := s.users.GetByID(ctx, staffUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("staff member", map[string]any{"user_id": staffUserID})
		}
		return nil, apperrors.MapError(err)
	}
	if staff.Role != domain.RoleStaff {
		return nil, apperrors.NewAssignmentError("user does not hold the staff role", map[string]any{"user_id": staff.ID})
	}
	if staff.DistrictID == nil || *staff.DistrictID != req.DistrictID {
		return nil, apperrors.NewAssignmentError("staff member belongs to a different district", map[string]any{
			"user_id":     staff.ID,
			"district_id": req.DistrictID,
		})
	}

	now := s.now()
	req.AssignedToUserID = &staff.ID
	req.AssignedToName = &staff.Name
	req.UpdatedAt = now
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendUpdate(ctx, &domain.RequestUpdate{
		RequestID:   req.ID,
		ActorUserID: actorID(actor),
		ActorName:   actorName(actor),
		Message:     ptr("request assigned to " + staff.Name),
		IsInternal:  true,
	}, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAudit(ctx, actor, "assign_staff", req.ID, staff.ID, now)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestAssigned,
		RequestID: req.ID,
		Actor:     eventActor(actor),
		Payload: events.RequestAssignedPayload{
			AssigneeUserID: staff.ID,
			AssigneeName:   staff.Name,
		},
	})
	return req, nil
}

// StatusChangeInput carries the target status with its conditionally
// required fields and optional operator messages.
type StatusChangeInput struct {
	NewStatus          domain.RequestStatus
	RejectionReason    *string
	CompletionPhotoURL *string
	Message            *string
	Note               *string
}

// ChangeStatus advances the request along the transition graph. All
// validation happens before any state is touched; rejection requires a
// reason and completion requires a photo reference.
func (s *RequestService) ChangeStatus(ctx context.Context, requestID string, input StatusChangeInput, actor *domain.User) (*domain.ServiceRequest, error) {
	req, err := s.getScoped(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	if !domain.CanTransitionTo(req.Status, input.NewStatus) {
		return nil, apperrors.NewInvalidTransition(string(req.Status), string(input.NewStatus))
	}
	if input.NewStatus == domain.StatusRejected && strings.TrimSpace(deref(input.RejectionReason)) == "" {
		return nil, apperrors.NewValidationError("rejection_reason is required when rejecting", nil)
	}
	if input.NewStatus == domain.StatusCompleted && strings.TrimSpace(deref(input.CompletionPhotoURL)) == "" {
		return nil, apperrors.NewValidationError("completion_photo_url is required when completing", nil)
	}

	now := s.now()
	oldStatus := req.Status
	req.Status = input.NewStatus
	req.UpdatedAt = now

	if input.NewStatus.Terminal() && req.ClosedAt == nil {
		req.ClosedAt = &now
	}
	if input.NewStatus == domain.StatusRejected {
		req.RejectionReason = input.RejectionReason
	}
	if input.NewStatus == domain.StatusCompleted {
		req.CompletionPhotoURL = input.CompletionPhotoURL
	}
	req.SLAStatus = sla.Evaluate(req, now)

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendUpdate(ctx, &domain.RequestUpdate{
		RequestID:   req.ID,
		ActorUserID: actorID(actor),
		ActorName:   actorName(actor),
		Message:     input.Message,
		FromStatus:  ptrStatus(oldStatus),
		ToStatus:    ptrStatus(req.Status),
	}, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.NewStatus == domain.StatusRejected {
		if err := s.appendUpdate(ctx, &domain.RequestUpdate{
			RequestID:   req.ID,
			ActorUserID: actorID(actor),
			ActorName:   actorName(actor),
			Message:     ptr("rejection reason: " + deref(input.RejectionReason)),
		}, now); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	if note := strings.TrimSpace(deref(input.Note)); note != "" {
		if err := s.appendUpdate(ctx, &domain.RequestUpdate{
			RequestID:   req.ID,
			ActorUserID: actorID(actor),
			ActorName:   actorName(actor),
			Message:     &note,
			IsInternal:  true,
		}, now); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	s.recordAudit(ctx, actor, "status_change", req.ID, fmt.Sprintf("%s -> %s", oldStatus, req.Status), now)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: req.ID,
		Actor:     eventActor(actor),
		Payload: events.RequestStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: req.Status,
			Comment:   deref(input.Message),
		},
	})
	return req, nil
}

// ChangePriority applies a manual priority override. Unlike automatic
// escalation it may move in either direction, and it clears the
// escalation tracking fields. The SLA deadline stays pinned.
func (s *RequestService) ChangePriority(ctx context.Context, requestID string, newPriority domain.RequestPriority, actor *domain.User) (*domain.ServiceRequest, error) {
	req, err := s.getScoped(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	if req.Priority == newPriority {
		return nil, apperrors.NewValidationError("priority unchanged", nil)
	}

	now := s.now()
	oldPriority := req.Priority
	req.Priority = newPriority
	req.IsAutoEscalated = false
	req.PriorityEscalatedAt = nil
	req.UpdatedAt = now

	if err := s.requests.Update(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.appendUpdate(ctx, &domain.RequestUpdate{
		RequestID:    req.ID,
		ActorUserID:  actorID(actor),
		ActorName:    actorName(actor),
		Message:      ptr(fmt.Sprintf("priority changed from %s to %s", oldPriority, newPriority)),
		FromPriority: ptrPriority(oldPriority),
		ToPriority:   ptrPriority(newPriority),
		IsInternal:   true,
	}, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAudit(ctx, actor, "priority_change", req.ID, fmt.Sprintf("%s -> %s", oldPriority, newPriority), now)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestPriorityChanged,
		RequestID: req.ID,
		Actor:     eventActor(actor),
		Payload: events.RequestPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return req, nil
}

// AddInternalNote appends a staff-only audit entry without touching
// request state.
func (s *RequestService) AddInternalNote(ctx context.Context, requestID, message string, actor *domain.User) (*domain.RequestUpdate, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required", nil)
	}
	req, err := s.getScoped(ctx, requestID, actor)
	if err != nil {
		return nil, err
	}

	now := s.now()
	update := &domain.RequestUpdate{
		RequestID:   req.ID,
		ActorUserID: actorID(actor),
		ActorName:   actorName(actor),
		Message:     &message,
		IsInternal:  true,
	}
	if err := s.appendUpdate(ctx, update, now); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.recordAudit(ctx, actor, "add_note", req.ID, "", now)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestNoteAdded,
		RequestID: req.ID,
		Actor:     eventActor(actor),
	})
	return update, nil
}

// TrackByCode is the unauthenticated read path. Internal updates are
// filtered out; the code is case-insensitive.
func (s *RequestService) TrackByCode(ctx context.Context, trackingCode string) (*domain.ServiceRequest, []domain.RequestUpdate, error) {
	code := strings.ToUpper(strings.TrimSpace(trackingCode))
	req, err := s.requests.GetByTrackingCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("tracking code", map[string]any{"tracking_code": code})
		}
		return nil, nil, apperrors.MapError(err)
	}
	updates, err := s.updates.ListByRequest(ctx, req.ID, false)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return req, updates, nil
}

// AddCitizenMessage lets a citizen append a follow-up message via the
// tracking code, visible on the public view.
func (s *RequestService) AddCitizenMessage(ctx context.Context, trackingCode, message string) (*domain.ServiceRequest, []domain.RequestUpdate, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, apperrors.NewValidationError("message is required", nil)
	}
	req, _, err := s.TrackByCode(ctx, trackingCode)
	if err != nil {
		return nil, nil, err
	}
	if err := s.appendUpdate(ctx, &domain.RequestUpdate{
		RequestID: req.ID,
		Message:   &message,
	}, s.now()); err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	updates, err := s.updates.ListByRequest(ctx, req.ID, false)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return req, updates, nil
}

// GetForAdmin fetches a request with its full update trail, enforcing
// the caller's scope.
func (s *RequestService) GetForAdmin(ctx context.Context, requestID string, actor *domain.User) (*domain.ServiceRequest, []domain.RequestUpdate, error) {
	req, err := s.getScoped(ctx, requestID, actor)
	if err != nil {
		return nil, nil, err
	}
	updates, err := s.updates.ListByRequest(ctx, req.ID, true)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return req, updates, nil
}

// ListFilter captures admin listing parameters before scoping.
type ListFilter struct {
	Statuses   []domain.RequestStatus
	Categories []domain.RequestCategory
	Priorities []domain.RequestPriority
	DistrictID *string
	Page       int
	PageSize   int
}

// List returns a scoped, paginated page of requests plus the total count.
func (s *RequestService) List(ctx context.Context, filter ListFilter, actor *domain.User) ([]domain.ServiceRequest, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	repoFilter := repository.RequestFilter{
		Statuses:   filter.Statuses,
		Categories: filter.Categories,
		Priorities: filter.Priorities,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	// municipal admins may narrow to one of their districts
	if filter.DistrictID != nil && actor != nil && actor.Role == domain.RoleMunicipalAdmin {
		repoFilter.DistrictID = filter.DistrictID
	}
	applyScope(&repoFilter, actor)

	items, err := s.requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	total, err := s.requests.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return items, total, nil
}

// ComplianceReport aggregates SLA outcomes over closed requests within
// the caller's scope.
func (s *RequestService) ComplianceReport(ctx context.Context, actor *domain.User) (int, map[domain.RequestCategory]sla.CategoryCompliance, error) {
	repoFilter := repository.RequestFilter{
		Statuses: []domain.RequestStatus{domain.StatusCompleted, domain.StatusRejected},
		Limit:    10000,
	}
	applyScope(&repoFilter, actor)

	closed, err := s.requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return 0, nil, apperrors.MapError(err)
	}
	return sla.ComplianceRate(closed), sla.ComplianceByCategory(closed), nil
}

func (s *RequestService) getScoped(ctx context.Context, requestID string, actor *domain.User) (*domain.ServiceRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	if !canAccess(actor, req) {
		return nil, apperrors.NewForbidden("request outside caller scope")
	}
	return req, nil
}

// canAccess enforces role scoping: municipal admins see their
// municipality, district admins and staff their district.
func canAccess(actor *domain.User, req *domain.ServiceRequest) bool {
	if actor == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleMunicipalAdmin:
		return actor.MunicipalityID == req.MunicipalityID
	case domain.RoleDistrictAdmin, domain.RoleStaff:
		return actor.DistrictID != nil && *actor.DistrictID == req.DistrictID
	}
	return false
}

func applyScope(filter *repository.RequestFilter, actor *domain.User) {
	if actor == nil {
		return
	}
	switch actor.Role {
	case domain.RoleMunicipalAdmin:
		id := actor.MunicipalityID
		filter.MunicipalityID = &id
	case domain.RoleDistrictAdmin, domain.RoleStaff:
		filter.DistrictID = actor.DistrictID
	}
}

func (s *RequestService) uniqueTrackingCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := generateTrackingCode()
		if err != nil {
			return "", err
		}
		exists, err := s.requests.TrackingCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperrors.NewConflict("could not generate unique tracking code", nil)
}

func generateTrackingCode() (string, error) {
	buf := make([]byte, taxonomy.TrackingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	alphabet := taxonomy.TrackingCodeAlphabet
	code := make([]byte, len(buf))
	for i, b := range buf {
		code[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(code), nil
}

func (s *RequestService) appendUpdate(ctx context.Context, update *domain.RequestUpdate, now time.Time) error {
	update.ID = uuid.NewString()
	update.CreatedAt = now
	return s.updates.Create(ctx, update)
}

func (s *RequestService) recordAudit(ctx context.Context, actor *domain.User, action, entityID, details string, now time.Time) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:          uuid.NewString(),
		ActorUserID: actorID(actor),
		Action:      action,
		EntityType:  "service_request",
		EntityID:    entityID,
		CreatedAt:   now,
	}
	if details != "" {
		entry.Details = &details
	}
	// audit failures never fail the operation
	_ = s.audit.Create(ctx, entry)
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor *domain.User) events.Actor {
	if actor == nil {
		return events.Actor{}
	}
	return events.Actor{UserID: &actor.ID, Role: &actor.Role}
}

func actorID(actor *domain.User) *string {
	if actor == nil {
		return nil
	}
	return &actor.ID
}

func actorName(actor *domain.User) *string {
	if actor == nil {
		return nil
	}
	return &actor.Name
}

func ptr(s string) *string {
	return &s
}

func ptrStatus(s domain.RequestStatus) *domain.RequestStatus {
	return &s
}

func ptrPriority(p domain.RequestPriority) *domain.RequestPriority {
	return &p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
