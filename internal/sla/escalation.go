package sla

import (
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/taxonomy"
)

// EscalationDecision is the outcome of evaluating one request against
// its escalation rule. HoursElapsed counts whole hours since the
// baseline regardless of whether an escalation fires.
type EscalationDecision struct {
	Escalate     bool
	NewPriority  domain.RequestPriority
	HoursElapsed int
}

// EvaluateEscalation decides whether elapsed time warrants promoting the
// request's priority by one level. Closed requests never escalate. The
// baseline is the last escalation time when present, otherwise creation
// time, so each promotion restarts the clock for the next one.
func EvaluateEscalation(req *domain.ServiceRequest, now time.Time) EscalationDecision {
	if req.Closed() {
		return EscalationDecision{}
	}

	baseline := req.CreatedAt
	if req.PriorityEscalatedAt != nil {
		baseline = *req.PriorityEscalatedAt
	}
	hours := int(now.Sub(baseline).Hours())

	rule := taxonomy.RuleFor(req.Category, req.Priority)
	if !rule.HasNext() {
		return EscalationDecision{HoursElapsed: hours}
	}
	if hours >= rule.HoursToNext {
		return EscalationDecision{
			Escalate:     true,
			NewPriority:  rule.Next,
			HoursElapsed: hours,
		}
	}
	return EscalationDecision{HoursElapsed: hours}
}

// HoursUntilNextEscalation returns the whole hours left before the next
// automatic promotion, or -1 when the request is at the ceiling.
func HoursUntilNextEscalation(req *domain.ServiceRequest, now time.Time) int {
	rule := taxonomy.RuleFor(req.Category, req.Priority)
	if !rule.HasNext() {
		return -1
	}
	baseline := req.CreatedAt
	if req.PriorityEscalatedAt != nil {
		baseline = *req.PriorityEscalatedAt
	}
	remaining := rule.HoursToNext - int(now.Sub(baseline).Hours())
	if remaining < 0 {
		return 0
	}
	return remaining
}
