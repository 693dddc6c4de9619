package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AuthHandler exposes the login endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// LoginUser handles POST /auth/login/user.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	return h.login(c, h.auth.LoginUser)
}

// LoginAdmin handles POST /auth/login/admin.
func (h *AuthHandler) LoginAdmin(c *fiber.Ctx) error {
	return h.login(c, h.auth.LoginAdmin)
}

type loginFunc func(ctx context.Context, email, password string) (*service.LoginResult, error)

func (h *AuthHandler) login(c *fiber.Ctx, fn loginFunc) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	// missing credentials fail like wrong ones
	if req.Validate() != nil {
		return apperrors.NewUnauthenticated()
	}
	result, err := fn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: result.Token,
		TokenType:   "bearer",
		Kind:        result.Kind,
		ExpiresAt:   result.ExpiresAt,
	}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPrincipalResponse(principal)})
}
