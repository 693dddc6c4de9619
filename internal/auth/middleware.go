package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const principalKey = "auth_principal"

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	tokens   *TokenManager
	resolver *Resolver
	logger   *zap.Logger
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, resolver *Resolver, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver, logger: logger}
}

// Handle enforces authentication for protected routes. Every token or lookup
// failure is reported the same way.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return apperrors.NewUnauthenticated()
	}

	identity, err := m.tokens.Validate(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthenticated()
	}

	principal, err := m.resolver.Resolve(c.UserContext(), identity)
	if err != nil {
		if !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
			m.logger.Error("resolve principal", zap.String("kind", string(identity.Kind)), zap.Error(err))
		}
		return err
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}
