package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthService coordinates the two login flows.
type AuthService struct {
	users   repository.UserRepository
	admins  repository.AdminRepository
	hasher  *auth.Hasher
	tokens  *auth.TokenManager
	limiter auth.LoginLimiter
	logger  *zap.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthDependencies encapsulates collaborators for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	AdminRepo repository.AdminRepository
	Hasher    *auth.Hasher
	Tokens    *auth.TokenManager
	Limiter   auth.LoginLimiter
	Logger    *zap.Logger
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token     string
	Kind      domain.PrincipalKind
	ExpiresAt time.Time
	Principal *domain.Principal
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = auth.NopLimiter{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:   deps.UserRepo,
		admins:  deps.AdminRepo,
		hasher:  deps.Hasher,
		tokens:  deps.Tokens,
		limiter: limiter,
		logger:  logger,
	}
}

// LoginUser authenticates against the user store only.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	return s.login(ctx, domain.PrincipalKindUser, email, password, func(ctx context.Context) (*domain.Principal, string, error) {
		user, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, "", err
		}
		return domain.UserPrincipal(user), user.PasswordHash, nil
	})
}

// LoginAdmin authenticates against the admin store only.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	return s.login(ctx, domain.PrincipalKindAdmin, email, password, func(ctx context.Context) (*domain.Principal, string, error) {
		admin, err := s.admins.GetByEmail(ctx, email)
		if err != nil {
			return nil, "", err
		}
		return domain.AdminPrincipal(admin), admin.PasswordHash, nil
	})
}

type principalLookup func(ctx context.Context) (*domain.Principal, string, error)

// login checks credentials before the active flag, so only a caller who knows
// the password learns that the account is inactive.
func (s *AuthService) login(ctx context.Context, kind domain.PrincipalKind, email, password string, lookup principalLookup) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, apperrors.NewUnauthenticated()
	}

	allowed, err := s.limiter.Allow(ctx, kind, email)
	if err != nil {
		s.logger.Warn("login limiter unavailable", zap.String("kind", string(kind)), zap.Error(err))
	}
	if !allowed {
		return nil, apperrors.NewTooManyAttempts()
	}

	principal, digest, err := lookup(ctx)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		// keep timing close to the wrong-password path
		s.hasher.Verify(password, s.dummyDigest())
		s.recordFailure(ctx, kind, email)
		return nil, apperrors.NewUnauthenticated()
	}
	if !s.hasher.Verify(password, digest) {
		s.recordFailure(ctx, kind, email)
		return nil, apperrors.NewUnauthenticated()
	}
	s.clearFailures(ctx, kind, email)

	if err := auth.Active(principal); err != nil {
		return nil, err
	}

	token, exp, err := s.tokens.Issue(principal.Email(), kind, 0)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("login",
		zap.String("kind", string(kind)),
		zap.String("principal_id", strconv.FormatInt(principal.ID(), 10)))
	return &LoginResult{Token: token, Kind: kind, ExpiresAt: exp, Principal: principal}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, kind domain.PrincipalKind, email string) {
	if err := s.limiter.Fail(ctx, kind, email); err != nil {
		s.logger.Warn("record failed login", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *AuthService) clearFailures(ctx context.Context, kind domain.PrincipalKind, email string) {
	if err := s.limiter.Reset(ctx, kind, email); err != nil {
		s.logger.Warn("reset failed logins", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (s *AuthService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("helpdesk-dummy-password")
		if err == nil {
			s.dummyHash = digest
		}
	})
	return s.dummyHash
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
