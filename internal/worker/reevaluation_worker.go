package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/municipal-requests/internal/service"
)

// StartReevaluationWorker runs the periodic escalation and deadline
// pass until the context is cancelled. It fires once at startup so a
// restart never delays overdue escalations by a full interval.
func StartReevaluationWorker(ctx context.Context, svc *service.ReevaluationService, interval time.Duration, logger *zap.Logger) {
	go func() {
		runPass(ctx, svc, logger)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("reevaluation worker stopped")
				return
			case <-ticker.C:
				runPass(ctx, svc, logger)
			}
		}
	}()
}

func runPass(ctx context.Context, svc *service.ReevaluationService, logger *zap.Logger) {
	changes, err := svc.Reevaluate(ctx, time.Now())
	if err != nil {
		logger.Error("reevaluation pass failed", zap.Error(err))
		return
	}

	escalated := 0
	breached := 0
	for _, change := range changes {
		if change.Escalated() {
			escalated++
		}
		if change.Breached {
			breached++
		}
	}
	if len(changes) > 0 {
		logger.Info("reevaluation pass applied changes",
			zap.Int("changed", len(changes)),
			zap.Int("escalated", escalated),
			zap.Int("breached", breached))
	}
}
