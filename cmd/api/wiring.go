package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

// backend is the set of repositories the services run on, either Postgres
// or the in-process store.
type backend struct {
	tx          repository.Transactor
	users       repository.UserRepository
	admins      repository.AdminRepository
	tickets     repository.TicketRepository
	attachments repository.AttachmentRepository
	logs        repository.StatusLogRepository
	dashboard   repository.DashboardRepository
}

func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, *persistence.Postgres, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if !pg.Enabled() {
		logger.Warn("running on the in-memory store; data is lost on exit")
		store := memory.NewStore()
		return &backend{
			tx:          store,
			users:       store.Users(),
			admins:      store.Admins(),
			tickets:     store.Tickets(),
			attachments: store.Attachments(),
			logs:        store.StatusLogs(),
			dashboard:   store.Dashboard(),
		}, pg, nil
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return &backend{
		tx:          repository.NewTransactor(pg.Pool),
		users:       repository.NewUserRepository(pg.Pool),
		admins:      repository.NewAdminRepository(pg.Pool),
		tickets:     repository.NewTicketRepository(pg.Pool),
		attachments: repository.NewAttachmentRepository(pg.Pool),
		logs:        repository.NewStatusLogRepository(pg.Pool),
		dashboard:   repository.NewDashboardRepository(pg.Pool),
	}, pg, nil
}
