package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

func adminWith(role domain.AdminRole, active bool) *domain.Principal {
	return domain.AdminPrincipal(&domain.Admin{ID: 1, Email: "a@example.com", Role: role, Active: active})
}

func userWith(active bool) *domain.Principal {
	return domain.UserPrincipal(&domain.User{ID: 1, Email: "u@example.com", Active: active})
}

func TestGuards(t *testing.T) {
	cases := []struct {
		name      string
		guard     Guard
		principal *domain.Principal
		code      string
	}{
		{"authenticated nil", Authenticated, nil, apperrors.CodeUnauthenticated},
		{"authenticated empty", Authenticated, &domain.Principal{}, apperrors.CodeUnauthenticated},
		{"authenticated user", Authenticated, userWith(true), ""},
		{"active blocked user", Active, userWith(false), apperrors.CodeAccountInactive},
		{"active pending admin", Active, adminWith(domain.AdminRoleSub, false), apperrors.CodeAccountInactive},
		{"active admin", Active, adminWith(domain.AdminRoleJunior, true), ""},
		{"admin only user", AdminOnly, userWith(true), apperrors.CodeForbidden},
		{"admin only junior", AdminOnly, adminWith(domain.AdminRoleJunior, true), ""},
		{"user only admin", UserOnly, adminWith(domain.AdminRoleSenior, true), apperrors.CodeForbidden},
		{"user only user", UserOnly, userWith(true), ""},
		{"senior or sub junior", RoleIn(SeniorOrSub...), adminWith(domain.AdminRoleJunior, true), apperrors.CodeForbidden},
		{"senior or sub sub", RoleIn(SeniorOrSub...), adminWith(domain.AdminRoleSub, true), ""},
		{"senior only sub", RoleIn(SeniorOnly...), adminWith(domain.AdminRoleSub, true), apperrors.CodeForbidden},
		{"senior only senior", RoleIn(SeniorOnly...), adminWith(domain.AdminRoleSenior, true), ""},
		{"role on user", RoleIn(AnyAdminRole...), userWith(true), apperrors.CodeForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.guard(tc.principal)
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func TestInactiveMessagesDifferByKind(t *testing.T) {
	adminErr := apperrors.ToDomainError(Active(adminWith(domain.AdminRoleSub, false)))
	userErr := apperrors.ToDomainError(Active(userWith(false)))

	assert.Equal(t, "admin account pending approval", adminErr.Message)
	assert.Equal(t, "user account is blocked", userErr.Message)
	assert.Equal(t, adminErr.Code, userErr.Code)
}

func TestRoleInReportsAllowedSet(t *testing.T) {
	err := apperrors.ToDomainError(RoleIn(SeniorOrSub...)(adminWith(domain.AdminRoleJunior, true)))
	assert.Equal(t, []string{"senior_admin", "sub_admin"}, err.Details["required_roles"])

	err = apperrors.ToDomainError(UserOnly(adminWith(domain.AdminRoleSenior, true)))
	assert.Equal(t, "user", err.Details["required_kind"])
}

func TestChainStopsAtFirstFailure(t *testing.T) {
	calls := 0
	counting := func(*domain.Principal) error {
		calls++
		return nil
	}
	err := Chain(Authenticated, Active, counting, AdminOnly, counting)(userWith(false))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccountInactive))
	assert.Zero(t, calls)

	err = Chain(Authenticated, Active, counting, AdminOnly, counting)(userWith(true))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Equal(t, 1, calls)
}
