package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/service"
)

func migrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if !pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to run migrations")
	}
	return persistence.RunMigrations(cmd.Context(), pg.Pool, logger)
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, pg, err := openBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	if !pg.Enabled() {
		logger.Warn("bootstrapping the in-memory store has no lasting effect")
	}

	hasher := auth.NewHasher(cfg.Auth.BcryptCost)
	if err := service.NewBootstrapper(db.users, db.admins, hasher, logger).Run(cmd.Context(), cfg.Bootstrap); err != nil {
		return err
	}
	logger.Info("bootstrap complete", zap.String("admin_email", cfg.Bootstrap.AdminEmail))
	return nil
}
