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

	httptransport "github.com/spec-kit/complaint-service/internal/api/http"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/media"
	"github.com/spec-kit/complaint-service/internal/notify"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/persistence"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/worker"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	mediaProvider, err := media.NewMinIOProvider(cfg.Media, logger)
	if err != nil {
		logger.Fatal("failed to init media provider", zap.Error(err))
	}
	if err := mediaProvider.EnsureBucket(ctx); err != nil {
		logger.Warn("media bucket not ready", zap.Error(err))
	}

	notifier, closeNotifier := buildNotifier(cfg.Notification, logger)
	defer closeNotifier()

	metrics := observability.NewMetrics()
	runner := worker.NewBestEffort(logger, metrics)
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	complaintRepo := repository.NewComplaintRepository(pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())

	service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   userRepo,
		Notifier:   notifier,
		Runner:     runner,
		EmailFrom:  cfg.Notification.EmailFrom,
		Logger:     logger,
	}).RegisterHandlers()

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Revoker:      redis,
		Dispatcher:   dispatcher,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: complaintRepo,
		UserRepo:      userRepo,
		Media:         mediaProvider,
		Dispatcher:    dispatcher,
		Runner:        runner,
		Logger:        logger,
		DeleteTimeout: cfg.Media.DeleteTimeout(),
	})
	userService := service.NewUserService(service.UserDependencies{
		UserRepo:      userRepo,
		ComplaintRepo: complaintRepo,
		Media:         mediaProvider,
		Runner:        runner,
		Logger:        logger,
		BcryptCost:    cfg.Auth.BcryptCost,
		DeleteTimeout: cfg.Media.DeleteTimeout(),
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo, redis, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimit(),
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.Dependency{Name: "postgres", Pinger: pg},
			handlers.Dependency{Name: "redis", Pinger: redis},
			handlers.Dependency{Name: "media", Pinger: mediaProvider},
		),
		Auth:           handlers.NewAuthHandler(authService),
		Admin:          handlers.NewAdminHandler(userService),
		Complaints:     handlers.NewComplaintsHandler(complaintService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownGrace); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer drainCancel()
	if !runner.Drain(drainCtx) {
		logger.Warn("best-effort tasks still running at shutdown")
	}
}

func buildNotifier(cfg config.NotificationConfig, logger *zap.Logger) (notify.Notifier, func()) {
	if cfg.Driver != "amqp" {
		return notify.NewLogNotifier(logger), func() {}
	}
	amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.Exchange, logger)
	if err != nil {
		logger.Error("amqp notifier unavailable; falling back to log notifier", zap.Error(err))
		return notify.NewLogNotifier(logger), func() {}
	}
	return amqpNotifier, amqpNotifier.Close
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
