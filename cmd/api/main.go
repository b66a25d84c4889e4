package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httpapi "github.com/ispdesk/routing-service/internal/api/http"
	"github.com/ispdesk/routing-service/internal/api/http/handlers"
	"github.com/ispdesk/routing-service/internal/auth"
	"github.com/ispdesk/routing-service/internal/config"
	"github.com/ispdesk/routing-service/internal/events"
	"github.com/ispdesk/routing-service/internal/notifier"
	"github.com/ispdesk/routing-service/internal/observability"
	"github.com/ispdesk/routing-service/internal/persistence"
	"github.com/ispdesk/routing-service/internal/repository"
	"github.com/ispdesk/routing-service/internal/routing"
	"github.com/ispdesk/routing-service/internal/service"
	"github.com/ispdesk/routing-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()

	pool := postgres.PoolHandle()
	stores := repository.NewStores(pool)
	uow := repository.NewUnitOfWork(pool)
	table := routing.NewTable()
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	transferService := service.NewTransferService(service.TransferDependencies{
		UnitOfWork: uow,
		Stores:     stores,
		Table:      table,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})
	inboxService := service.NewInboxService(service.InboxDependencies{
		Stores: stores,
		Cache:  redisConn.Client,
		Logger: logger,
		Config: cfg.Inbox,
	})
	inboxService.RegisterCacheInvalidation(dispatcher)

	hook := notifier.NewWebhook(cfg.Notification, logger)
	notificationService := service.NewNotificationService(dispatcher, hook, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)
	worker.StartCleanupWorker(ctx, inboxService, cfg.Inbox.CleanupInterval(), logger)

	authService := service.NewAuthService(cfg.Auth, stores.Staff)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), stores.Staff)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})

	httpapi.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httpapi.RegisterRoutes(app, httpapi.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, postgres, redisConn),
		Staff:          handlers.NewStaffHandler(authService),
		Transfers:      handlers.NewTransfersHandler(transferService),
		Inbox:          handlers.NewInboxHandler(inboxService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
