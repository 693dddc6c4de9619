package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Guard is a single authorization check over the resolved principal.
type Guard func(p *domain.Principal) error

// Allowed role sets. Roles are never implicitly ordered; each operation names
// the exact set it accepts.
var (
	SeniorOnly   = []domain.AdminRole{domain.AdminRoleSenior}
	SeniorOrSub  = []domain.AdminRole{domain.AdminRoleSenior, domain.AdminRoleSub}
	AnyAdminRole = []domain.AdminRole{domain.AdminRoleSenior, domain.AdminRoleSub, domain.AdminRoleJunior}
)

const (
	msgAdminPending = "admin account pending approval"
	msgUserBlocked  = "user account is blocked"
)

// Authenticated passes when a principal was resolved.
func Authenticated(p *domain.Principal) error {
	if p == nil || (p.User == nil && p.Admin == nil) {
		return apperrors.NewUnauthenticated()
	}
	return nil
}

// Active passes when the principal's active flag is set.
func Active(p *domain.Principal) error {
	if p.Active() {
		return nil
	}
	if p.IsAdmin() {
		return apperrors.NewAccountInactive(msgAdminPending)
	}
	return apperrors.NewAccountInactive(msgUserBlocked)
}

// AdminOnly passes for admin principals.
func AdminOnly(p *domain.Principal) error {
	if !p.IsAdmin() {
		return apperrors.NewForbidden("admin privileges required",
			map[string]any{"required_kind": string(domain.PrincipalKindAdmin)})
	}
	return nil
}

// UserOnly passes for regular users.
func UserOnly(p *domain.Principal) error {
	if p.IsAdmin() {
		return apperrors.NewForbidden("regular user required",
			map[string]any{"required_kind": string(domain.PrincipalKindUser)})
	}
	return nil
}

// RoleIn passes for admins whose role is in allowed. Non-admins fail the
// same way as AdminOnly.
func RoleIn(allowed ...domain.AdminRole) Guard {
	set := make(map[domain.AdminRole]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		set[role] = struct{}{}
		names = append(names, string(role))
	}
	return func(p *domain.Principal) error {
		if err := AdminOnly(p); err != nil {
			return err
		}
		if _, ok := set[p.Admin.Role]; !ok {
			return apperrors.NewForbidden("insufficient role",
				map[string]any{"required_roles": names})
		}
		return nil
	}
}

// Chain evaluates guards in order and returns the first failure.
func Chain(guards ...Guard) Guard {
	return func(p *domain.Principal) error {
		for _, guard := range guards {
			if err := guard(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// Require evaluates guards against the principal stored by Middleware.
// Authenticated and Active always run first.
func Require(guards ...Guard) fiber.Handler {
	chain := Chain(append([]Guard{Authenticated, Active}, guards...)...)
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		if err := chain(principal); err != nil {
			return err
		}
		return c.Next()
	}
}
