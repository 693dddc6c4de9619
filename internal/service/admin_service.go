package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminService manages the two principal directories.
type AdminService struct {
	users            repository.UserRepository
	admins           repository.AdminRepository
	hasher           *auth.Hasher
	adminAutoApprove bool
	logger           *zap.Logger
}

// AdminDependencies encapsulates collaborators for directory management.
type AdminDependencies struct {
	UserRepo         repository.UserRepository
	AdminRepo        repository.AdminRepository
	Hasher           *auth.Hasher
	AdminAutoApprove bool
	Logger           *zap.Logger
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		users:            deps.UserRepo,
		admins:           deps.AdminRepo,
		hasher:           deps.Hasher,
		adminAutoApprove: deps.AdminAutoApprove,
		logger:           logger,
	}
}

// CreateAdminInput describes a new administrator.
type CreateAdminInput struct {
	Email    string
	Password string
	FullName string
	Role     domain.AdminRole
}

// CreateUserInput describes a new end user.
type CreateUserInput struct {
	Email    string
	Password string
	FullName string
}

var (
	seniorOnly = auth.Chain(auth.Authenticated, auth.Active, auth.RoleIn(auth.SeniorOnly...))
	anyAdmin   = auth.Chain(auth.Authenticated, auth.Active, auth.AdminOnly)
)

// CreateAdmin adds an administrator. New admins wait for approval unless
// auto approval is configured.
func (s *AdminService) CreateAdmin(ctx context.Context, actor *domain.Principal, input CreateAdminInput) (*domain.Admin, error) {
	if err := seniorOnly(actor); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("role", "role must be one of senior_admin, sub_admin, junior_admin")
	}
	if err := checkCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	admin := &domain.Admin{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         input.Role,
		Active:       s.adminAutoApprove,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, createError(err)
	}
	s.logger.Info("admin created",
		zap.Int64("admin_id", admin.ID),
		zap.String("role", string(admin.Role)),
		zap.Int64("created_by", actor.ID()))
	return admin, nil
}

// CreateUser adds an active end user on behalf of any admin.
func (s *AdminService) CreateUser(ctx context.Context, actor *domain.Principal, input CreateUserInput) (*domain.User, error) {
	if err := anyAdmin(actor); err != nil {
		return nil, err
	}
	if err := checkCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        input.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Active:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, createError(err)
	}
	s.logger.Info("user created", zap.Int64("user_id", user.ID), zap.Int64("created_by", actor.ID()))
	return user, nil
}

// ListUsers pages through end users.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.Principal, limit, offset int) ([]domain.User, error) {
	if err := anyAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListAdmins pages through administrators.
func (s *AdminService) ListAdmins(ctx context.Context, actor *domain.Principal, limit, offset int) ([]domain.Admin, error) {
	if err := anyAdmin(actor); err != nil {
		return nil, err
	}
	admins, err := s.admins.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admins, nil
}

// SetUserActive approves (true) or blocks (false) an end user.
func (s *AdminService) SetUserActive(ctx context.Context, actor *domain.Principal, userID int64, active bool) (*domain.User, error) {
	if err := seniorOnly(actor); err != nil {
		return nil, err
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return nil, notFoundOr(err, "user", "user_id", userID)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", "user_id", userID)
	}
	s.logger.Info("user activation changed", zap.Int64("user_id", userID), zap.Bool("active", active), zap.Int64("changed_by", actor.ID()))
	return user, nil
}

// SetAdminActive approves (true) or blocks (false) an administrator. An admin
// cannot block themselves.
func (s *AdminService) SetAdminActive(ctx context.Context, actor *domain.Principal, adminID int64, active bool) (*domain.Admin, error) {
	if err := seniorOnly(actor); err != nil {
		return nil, err
	}
	if !active && adminID == actor.ID() {
		return nil, apperrors.NewValidationError("id", "admins cannot deactivate their own account")
	}
	if err := s.admins.SetActive(ctx, adminID, active); err != nil {
		return nil, notFoundOr(err, "admin", "admin_id", adminID)
	}
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, notFoundOr(err, "admin", "admin_id", adminID)
	}
	s.logger.Info("admin activation changed", zap.Int64("admin_id", adminID), zap.Bool("active", active), zap.Int64("changed_by", actor.ID()))
	return admin, nil
}

func checkCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return apperrors.NewValidationError("email", "a valid email is required")
	}
	if password == "" {
		return apperrors.NewValidationError("password", "password is required")
	}
	return nil
}

func (s *AdminService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", apperrors.NewValidationError("password", "password must be at most 72 bytes")
	}
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func createError(err error) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return apperrors.NewValidationError("email", "email already registered")
	}
	return apperrors.MapError(err)
}

func notFoundOr(err error, resource, key string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{key: id})
	}
	return apperrors.MapError(err)
}
