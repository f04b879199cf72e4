package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/municipal-requests/internal/api/http"
	"github.com/spec-kit/municipal-requests/internal/api/http/handlers"
	"github.com/spec-kit/municipal-requests/internal/auth"
	"github.com/spec-kit/municipal-requests/internal/config"
	"github.com/spec-kit/municipal-requests/internal/events"
	"github.com/spec-kit/municipal-requests/internal/observability"
	"github.com/spec-kit/municipal-requests/internal/persistence"
	"github.com/spec-kit/municipal-requests/internal/ratelimit"
	"github.com/spec-kit/municipal-requests/internal/repository"
	"github.com/spec-kit/municipal-requests/internal/service"
	"github.com/spec-kit/municipal-requests/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	requestRepo := repository.NewRequestRepository(pool)
	updateRepo := repository.NewRequestUpdateRepository(pool)
	districtRepo := repository.NewDistrictRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo:  requestRepo,
		UpdateRepo:   updateRepo,
		DistrictRepo: districtRepo,
		UserRepo:     userRepo,
		AuditRepo:    auditRepo,
		Dispatcher:   dispatcher,
	})
	reevaluationService := service.NewReevaluationService(requestRepo, updateRepo, dispatcher, logger)
	authService := service.NewAuthService(cfg.Auth, userRepo)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService)
	worker.StartReevaluationWorker(ctx, reevaluationService, cfg.Scheduler.ReevaluationInterval(), logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	publicLimiter := ratelimit.NewLimiter(redis.Client, cfg.RateLimit.PublicPerHour, time.Hour, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Public:         handlers.NewPublicHandler(requestService, districtRepo),
		Admin:          handlers.NewAdminHandler(requestService),
		Reports:        handlers.NewReportsHandler(requestService),
		AuthMiddleware: authMiddleware,
		PublicLimiter:  publicLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
