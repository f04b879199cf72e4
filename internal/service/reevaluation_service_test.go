package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/municipal-requests/internal/domain"
)

func newReevalEnv(t *testing.T) (*testEnv, *ReevaluationService) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewReevaluationService(env.requests, env.updates, nil, nil)
	return env, svc
}

func TestReevaluateEscalatesOneStep(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	// Far past both the 12h normal and 6h high thresholds; a single
	// pass still promotes only one level.
	now := testTime.Add(20 * time.Hour)
	changes, err := svc.Reevaluate(ctx, now)
	if err != nil {
		t.Fatalf("reevaluate: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	change := changes[0]
	if !change.Escalated() || change.EscalatedFrom != domain.PriorityNormal || change.EscalatedTo != domain.PriorityHigh {
		t.Errorf("unexpected change: %+v", change)
	}

	stored, _ := env.requests.GetByID(ctx, req.ID)
	if stored.Priority != domain.PriorityHigh {
		t.Errorf("priority = %s, want high", stored.Priority)
	}
	if !stored.IsAutoEscalated {
		t.Error("is_auto_escalated not set")
	}
	if stored.PriorityEscalatedAt == nil || !stored.PriorityEscalatedAt.Equal(now) {
		t.Errorf("priority_escalated_at = %v, want %v", stored.PriorityEscalatedAt, now)
	}

	// The escalation appends a public, auto-flagged timeline entry.
	var escalations int
	for _, update := range env.updates.byRequest(req.ID) {
		if update.IsAutoEscalation {
			escalations++
			if update.IsInternal {
				t.Error("escalation entry must be public")
			}
		}
	}
	if escalations != 1 {
		t.Errorf("got %d escalation entries, want 1", escalations)
	}
}

func TestReevaluateSecondPassPromotesAgain(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	first := testTime.Add(12 * time.Hour)
	if _, err := svc.Reevaluate(ctx, first); err != nil {
		t.Fatal(err)
	}
	// water/high escalates 6h after the previous promotion.
	second := first.Add(6 * time.Hour)
	changes, err := svc.Reevaluate(ctx, second)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].EscalatedTo != domain.PriorityUrgent {
		t.Fatalf("second pass: %+v", changes)
	}

	stored, _ := env.requests.GetByID(ctx, req.ID)
	if stored.Priority != domain.PriorityUrgent {
		t.Errorf("priority = %s, want urgent", stored.Priority)
	}

	// Urgent is the ceiling; nothing further ever fires.
	changes, err = svc.Reevaluate(ctx, second.Add(1000*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	for _, change := range changes {
		if change.Escalated() {
			t.Errorf("escalated past the ceiling: %+v", change)
		}
	}
}

func TestReevaluateIsIdempotent(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	env.mustCreate(t, domain.CategoryWater)

	now := testTime.Add(13 * time.Hour)
	if _, err := svc.Reevaluate(ctx, now); err != nil {
		t.Fatal(err)
	}
	changes, err := svc.Reevaluate(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("repeated pass applied changes: %+v", changes)
	}
}

func TestReevaluateStampsBreachOnce(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)

	now := testTime.Add(25 * time.Hour)
	changes, err := svc.Reevaluate(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || !changes[0].Breached {
		t.Fatalf("expected a breach, got %+v", changes)
	}

	stored, _ := env.requests.GetByID(ctx, req.ID)
	if stored.SLAStatus != domain.SLABreached {
		t.Errorf("sla status = %s, want breached", stored.SLAStatus)
	}
	if stored.SLABreachedAt == nil || !stored.SLABreachedAt.Equal(now) {
		t.Errorf("sla_breached_at = %v, want %v", stored.SLABreachedAt, now)
	}

	// A later pass must not move the stamp.
	if _, err := svc.Reevaluate(ctx, now.Add(10*time.Hour)); err != nil {
		t.Fatal(err)
	}
	after, _ := env.requests.GetByID(ctx, req.ID)
	if !after.SLABreachedAt.Equal(now) {
		t.Errorf("breach stamp moved to %v", after.SLABreachedAt)
	}
}

func TestReevaluateClosedRequestsUntouched(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	req := env.mustCreate(t, domain.CategoryWater)
	stored, _ := env.requests.GetByID(ctx, req.ID)
	closedAt := testTime.Add(time.Hour)
	stored.Status = domain.StatusCompleted
	stored.ClosedAt = &closedAt
	if err := env.requests.Update(ctx, stored); err != nil {
		t.Fatal(err)
	}

	changes, err := svc.Reevaluate(ctx, testTime.Add(100*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Errorf("closed request changed: %+v", changes)
	}
}

func TestReevaluateIsolatesFailures(t *testing.T) {
	t.Parallel()
	env, svc := newReevalEnv(t)
	ctx := context.Background()

	broken := env.mustCreate(t, domain.CategoryWater)
	healthy := env.mustCreate(t, domain.CategoryWater)
	env.requests.failID = broken.ID

	changes, err := svc.Reevaluate(ctx, testTime.Add(13*time.Hour))
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(changes) != 1 || changes[0].RequestID != healthy.ID {
		t.Errorf("expected only the healthy request to change, got %+v", changes)
	}
}
