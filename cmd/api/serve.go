package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func serve(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, pg, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backend", zap.Error(err))
		return err
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Error("open attachment storage", zap.Error(err))
		return err
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	limiter := redis.LoginLimiter(cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow())

	if err := service.NewBootstrapper(db.users, db.admins, hasher, logger).Run(ctx, cfg.Bootstrap); err != nil {
		logger.Error("bootstrap principals", zap.Error(err))
		return err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(service.NewActivityService(dispatcher, logger, metrics))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:  db.users,
		AdminRepo: db.admins,
		Hasher:    hasher,
		Tokens:    tokens,
		Limiter:   limiter,
		Logger:    logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		UserRepo:         db.users,
		AdminRepo:        db.admins,
		Hasher:           hasher,
		AdminAutoApprove: cfg.Auth.AdminAutoApprove,
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Transactor:     db.tx,
		TicketRepo:     db.tickets,
		AttachmentRepo: db.attachments,
		StatusLogRepo:  db.logs,
		Store:          files,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	dashboardService := service.NewDashboardService(db.dashboard)

	app := httptransport.NewApp(httptransport.ServerConfig{
		AppName:        cfg.App.Name,
		BodyLimitMB:    cfg.App.BodyLimitMB,
		RequestTimeout: cfg.App.RequestTimeout(),
	}, logger, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(adminService),
		Admins:         handlers.NewAdminsHandler(adminService, dashboardService),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager(), auth.NewResolver(db.users, db.admins), logger),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("fiber listen", zap.Error(err))
			return err
		}
	}
	return app.ShutdownWithTimeout(shutdownTimeout)
}
