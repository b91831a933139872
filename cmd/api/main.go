package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/session"
	"github.com/spec-kit/complaint-service/internal/worker"
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

	var sessions session.Store
	if redis.Ping(ctx) == nil {
		sessions = session.NewRedisStore(redis.Client)
	} else {
		logger.Warn("redis unreachable, falling back to in-memory sessions")
		sessions = session.NewMemoryStore()
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Sessions:          sessions,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: complaintRepo,
		Dispatcher:    dispatcher,
	})
	userService := service.NewUserService(userRepo, profileRepo)

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	if cfg.Poller.Enabled {
		poller := worker.NewPoller(complaintRepo, dispatcher, cfg.Poller.Interval(), logger)
		go poller.Run(ctx)
	}

	metrics := observability.NewMetrics()
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), sessions, userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Profile:        handlers.NewProfileHandler(userService),
		Admin:          handlers.NewAdminHandler(complaintService, userService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
