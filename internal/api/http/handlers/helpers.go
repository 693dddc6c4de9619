package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

func currentPrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthenticated()
	}
	return principal, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError(name, name+" must be a positive integer")
	}
	return id, nil
}

// pagination reads skip and limit query parameters.
func pagination(c *fiber.Ctx) (limit, offset int, err error) {
	offset = c.QueryInt("skip", 0)
	limit = c.QueryInt("limit", defaultPageLimit)
	if offset < 0 {
		return 0, 0, apperrors.NewValidationError("skip", "skip must not be negative")
	}
	if limit <= 0 || limit > maxPageLimit {
		return 0, 0, apperrors.NewValidationError("limit", "limit must be between 1 and 500")
	}
	return limit, offset, nil
}

func parseBody(c *fiber.Ctx, req dto.Validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	return dto.Check(req)
}
