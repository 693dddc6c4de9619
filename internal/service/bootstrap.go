package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Bootstrapper ensures the configured initial principals exist. Running it
// again is harmless: existing records keep their password and role and are
// only re-activated.
type Bootstrapper struct {
	users  repository.UserRepository
	admins repository.AdminRepository
	hasher *auth.Hasher
	logger *zap.Logger
}

// NewBootstrapper constructs a bootstrapper.
func NewBootstrapper(users repository.UserRepository, admins repository.AdminRepository, hasher *auth.Hasher, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{users: users, admins: admins, hasher: hasher, logger: logger}
}

// Run ensures the senior admin and the default user from cfg. Empty emails are skipped.
func (b *Bootstrapper) Run(ctx context.Context, cfg config.BootstrapConfig) error {
	if cfg.AdminEmail != "" {
		if _, err := b.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName, domain.AdminRoleSenior); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}
	if cfg.UserEmail != "" {
		if _, err := b.EnsureUser(ctx, cfg.UserEmail, cfg.UserPassword, cfg.UserName); err != nil {
			return fmt.Errorf("bootstrap user: %w", err)
		}
	}
	return nil
}

// EnsureAdmin creates an active admin or re-activates an existing one.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context, email, password, name string, role domain.AdminRole) (*domain.Admin, error) {
	existing, err := b.admins.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Active {
			if err := b.admins.SetActive(ctx, existing.ID, true); err != nil {
				return nil, err
			}
			existing.Active = true
			b.logger.Info("bootstrap admin re-activated", zap.Int64("admin_id", existing.ID))
		}
		return existing, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	if password == "" {
		return nil, errors.New("password required to create bootstrap admin")
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	admin := &domain.Admin{Email: email, PasswordHash: hash, FullName: name, Role: role, Active: true}
	if err := b.admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	b.logger.Info("bootstrap admin created", zap.Int64("admin_id", admin.ID), zap.String("role", string(role)))
	return admin, nil
}

// EnsureUser creates an active user or re-activates an existing one.
func (b *Bootstrapper) EnsureUser(ctx context.Context, email, password, name string) (*domain.User, error) {
	existing, err := b.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.Active {
			if err := b.users.SetActive(ctx, existing.ID, true); err != nil {
				return nil, err
			}
			existing.Active = true
			b.logger.Info("bootstrap user re-activated", zap.Int64("user_id", existing.ID))
		}
		return existing, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	if password == "" {
		return nil, errors.New("password required to create bootstrap user")
	}
	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{Email: email, PasswordHash: hash, FullName: name, Active: true}
	if err := b.users.Create(ctx, user); err != nil {
		return nil, err
	}
	b.logger.Info("bootstrap user created", zap.Int64("user_id", user.ID))
	return user, nil
}
