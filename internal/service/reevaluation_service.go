package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/events"
	"github.com/spec-kit/municipal-requests/internal/repository"
	"github.com/spec-kit/municipal-requests/internal/sla"
)

// ReevaluationService runs the periodic pass over open requests,
// applying at most one escalation step and one SLA status transition per
// request per invocation. It holds no timer state; the scheduler passes
// the evaluation time in.
type ReevaluationService struct {
	requests   repository.RequestRepository
	updates    repository.RequestUpdateRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewReevaluationService constructs the service.
func NewReevaluationService(requests repository.RequestRepository, updates repository.RequestUpdateRepository, dispatcher events.Dispatcher, logger *zap.Logger) *ReevaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReevaluationService{
		requests:   requests,
		updates:    updates,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ReevaluationChange summarizes what one pass did to one request.
type ReevaluationChange struct {
	RequestID     string
	TrackingCode  string
	EscalatedFrom domain.RequestPriority
	EscalatedTo   domain.RequestPriority
	SLAFrom       domain.SLAStatus
	SLATo         domain.SLAStatus
	Breached      bool
}

// Escalated reports whether the pass promoted the request's priority.
func (c ReevaluationChange) Escalated() bool {
	return c.EscalatedTo != ""
}

// Reevaluate evaluates every open request at the given time. A failure
// on one request is logged and skipped; the rest of the batch proceeds.
// The pass is idempotent: with nothing past a threshold it applies no
// changes.
func (s *ReevaluationService) Reevaluate(ctx context.Context, now time.Time) ([]ReevaluationChange, error) {
	open, err := s.requests.ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	var applied []ReevaluationChange
	for i := range open {
		change, err := s.reevaluateOne(ctx, &open[i], now)
		if err != nil {
			s.logger.Error("reevaluation failed for request",
				zap.String("request_id", open[i].ID),
				zap.Error(err))
			continue
		}
		if change != nil {
			applied = append(applied, *change)
		}
	}
	return applied, nil
}

func (s *ReevaluationService) reevaluateOne(ctx context.Context, req *domain.ServiceRequest, now time.Time) (*ReevaluationChange, error) {
	change := ReevaluationChange{RequestID: req.ID, TrackingCode: req.TrackingCode}
	dirty := false

	// Pin the deadline before any escalation step so it reflects the
	// classification in effect when first computed.
	if req.SLADeadline == nil {
		deadline := sla.Deadline(req.CreatedAt, req.Category, req.Priority)
		req.SLADeadline = &deadline
		dirty = true
	}

	decision := sla.EvaluateEscalation(req, now)
	if decision.Escalate {
		oldPriority := req.Priority
		req.Priority = decision.NewPriority
		req.IsAutoEscalated = true
		req.PriorityEscalatedAt = &now
		dirty = true
		change.EscalatedFrom = oldPriority
		change.EscalatedTo = decision.NewPriority

		message := fmt.Sprintf("priority auto-escalated from %s to %s after %d hours",
			oldPriority, decision.NewPriority, decision.HoursElapsed)
		if err := s.append(ctx, &domain.RequestUpdate{
			RequestID:        req.ID,
			Message:          &message,
			FromPriority:     &oldPriority,
			ToPriority:       &req.Priority,
			IsAutoEscalation: true,
		}, now); err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{
			Type:      events.EventRequestEscalated,
			RequestID: req.ID,
			Timestamp: now,
			Payload: events.RequestEscalatedPayload{
				OldPriority:  oldPriority,
				NewPriority:  req.Priority,
				HoursElapsed: decision.HoursElapsed,
			},
		})
	}

	newStatus := sla.Evaluate(req, now)
	if newStatus != req.SLAStatus {
		change.SLAFrom = req.SLAStatus
		change.SLATo = newStatus
		previous := req.SLAStatus
		req.SLAStatus = newStatus
		dirty = true

		// The breach stamp is set at most once per request.
		if newStatus == domain.SLABreached && previous != domain.SLABreached && req.SLABreachedAt == nil {
			req.SLABreachedAt = &now
			change.Breached = true

			message := "resolution deadline missed"
			if err := s.append(ctx, &domain.RequestUpdate{
				RequestID: req.ID,
				Message:   &message,
			}, now); err != nil {
				return nil, err
			}
			s.publish(ctx, events.Event{
				Type:      events.EventRequestSLABreached,
				RequestID: req.ID,
				Timestamp: now,
				Payload: events.RequestSLABreachedPayload{
					TrackingCode: req.TrackingCode,
					Deadline:     *req.SLADeadline,
				},
			})
		}
	}

	if !dirty {
		return nil, nil
	}
	req.UpdatedAt = now
	if err := s.requests.Update(ctx, req); err != nil {
		return nil, err
	}
	return &change, nil
}

func (s *ReevaluationService) append(ctx context.Context, update *domain.RequestUpdate, now time.Time) error {
	update.ID = uuid.NewString()
	update.CreatedAt = now
	return s.updates.Create(ctx, update)
}

func (s *ReevaluationService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
