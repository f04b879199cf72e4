package sla

import (
	"testing"
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

func TestEvaluateEscalationFires(t *testing.T) {
	t.Parallel()

	// Water at normal priority escalates after 12 hours.
	req := openRequest(domain.CategoryWater, domain.PriorityNormal)

	decision := EvaluateEscalation(req, baseTime.Add(12*time.Hour))
	if !decision.Escalate {
		t.Fatal("expected escalation at the threshold")
	}
	if decision.NewPriority != domain.PriorityHigh {
		t.Errorf("got %s, want %s", decision.NewPriority, domain.PriorityHigh)
	}
	if decision.HoursElapsed != 12 {
		t.Errorf("got %d hours elapsed, want 12", decision.HoursElapsed)
	}
}

func TestEvaluateEscalationBelowThreshold(t *testing.T) {
	t.Parallel()

	req := openRequest(domain.CategoryWater, domain.PriorityNormal)

	decision := EvaluateEscalation(req, baseTime.Add(11*time.Hour+59*time.Minute))
	if decision.Escalate {
		t.Error("expected no escalation below the threshold")
	}
	if decision.HoursElapsed != 11 {
		t.Errorf("got %d hours elapsed, want 11", decision.HoursElapsed)
	}
}

func TestEvaluateEscalationAtCeiling(t *testing.T) {
	t.Parallel()

	req := openRequest(domain.CategoryWater, domain.PriorityUrgent)

	decision := EvaluateEscalation(req, baseTime.Add(1000*time.Hour))
	if decision.Escalate {
		t.Error("urgent requests must never auto-escalate")
	}
}

func TestEvaluateEscalationClosedRequest(t *testing.T) {
	t.Parallel()

	req := openRequest(domain.CategoryWater, domain.PriorityNormal)
	req.Status = domain.StatusCompleted

	decision := EvaluateEscalation(req, baseTime.Add(1000*time.Hour))
	if decision.Escalate {
		t.Error("closed requests must never escalate")
	}
}

func TestEvaluateEscalationBaselineResets(t *testing.T) {
	t.Parallel()

	// After a promotion the clock restarts from the escalation time,
	// not from creation.
	req := openRequest(domain.CategoryWater, domain.PriorityHigh)
	escalatedAt := baseTime.Add(12 * time.Hour)
	req.PriorityEscalatedAt = &escalatedAt

	// 5 hours after the last escalation; water/high needs 6.
	if decision := EvaluateEscalation(req, escalatedAt.Add(5*time.Hour)); decision.Escalate {
		t.Error("expected no escalation 5h after baseline reset")
	}
	decision := EvaluateEscalation(req, escalatedAt.Add(6*time.Hour))
	if !decision.Escalate || decision.NewPriority != domain.PriorityUrgent {
		t.Errorf("expected promotion to urgent, got %+v", decision)
	}
}

func TestHoursUntilNextEscalation(t *testing.T) {
	t.Parallel()

	req := openRequest(domain.CategoryWater, domain.PriorityNormal)

	if got := HoursUntilNextEscalation(req, baseTime.Add(4*time.Hour)); got != 8 {
		t.Errorf("got %d, want 8", got)
	}
	if got := HoursUntilNextEscalation(req, baseTime.Add(30*time.Hour)); got != 0 {
		t.Errorf("overdue request: got %d, want 0", got)
	}

	req.Priority = domain.PriorityUrgent
	if got := HoursUntilNextEscalation(req, baseTime); got != -1 {
		t.Errorf("at ceiling: got %d, want -1", got)
	}
}
