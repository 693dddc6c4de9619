package domain

import "time"

// AdminRole enumerates administrator tiers.
type AdminRole string

const (
	AdminRoleSenior AdminRole = "senior_admin"
	AdminRoleSub    AdminRole = "sub_admin"
	AdminRoleJunior AdminRole = "junior_admin"
)

// AdminRoles lists every role, most privileged first.
var AdminRoles = []AdminRole{AdminRoleSenior, AdminRoleSub, AdminRoleJunior}

// Valid reports whether r is a known role.
func (r AdminRole) Valid() bool {
	for _, known := range AdminRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Admin models a support administrator. An inactive admin is pending approval.
type Admin struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	Role         AdminRole
	Active       bool
	CreatedAt    time.Time
}
