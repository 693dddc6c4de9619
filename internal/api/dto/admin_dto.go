package dto

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// bcrypt only hashes the first 72 bytes and rejects longer input.
const maxPasswordBytes = 72

var passwordRules = []validation.Rule{
	validation.Required,
	validation.By(func(value interface{}) error {
		if s, _ := value.(string); len(s) > maxPasswordBytes {
			return errors.New("must be at most 72 bytes")
		}
		return nil
	}),
}

// CreateAdminRequest payload for POST /admins.
type CreateAdminRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	FullName string           `json:"full_name"`
	Role     domain.AdminRole `json:"role"`
}

func (r CreateAdminRequest) Validate() error {
	roles := make([]interface{}, 0, len(domain.AdminRoles))
	for _, role := range domain.AdminRoles {
		roles = append(roles, role)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.FullName, validation.Length(0, 255)),
		validation.Field(&r.Role, validation.Required, validation.In(roles...)),
	)
}

// CreateUserRequest payload for POST /users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.FullName, validation.Length(0, 255)),
	)
}

// UserResponse never carries the password hash.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse maps a user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, FullName: u.FullName, IsActive: u.Active, CreatedAt: u.CreatedAt}
}

// AdminResponse never carries the password hash.
type AdminResponse struct {
	ID        int64            `json:"id"`
	Email     string           `json:"email"`
	FullName  string           `json:"full_name"`
	Role      domain.AdminRole `json:"role"`
	IsActive  bool             `json:"is_active"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewAdminResponse maps an admin.
func NewAdminResponse(a *domain.Admin) AdminResponse {
	return AdminResponse{ID: a.ID, Email: a.Email, FullName: a.FullName, Role: a.Role, IsActive: a.Active, CreatedAt: a.CreatedAt}
}

// DashboardResponse is the stats rollup. in_progress extends the
// established key set.
type DashboardResponse struct {
	Total      int64              `json:"total"`
	Pending    int64              `json:"pending"`
	InProgress int64              `json:"in_progress"`
	OnHold     int64              `json:"on_hold"`
	Resolved   int64              `json:"resolved"`
	Workload   []WorkloadResponse `json:"workload"`
}

// WorkloadResponse is one assignee bucket. A null admin id is the unassigned group.
type WorkloadResponse struct {
	AdminID *int64 `json:"admin_id"`
	Count   int64  `json:"count"`
}

// NewDashboardResponse maps stats.
func NewDashboardResponse(s *domain.TicketStats) DashboardResponse {
	workload := make([]WorkloadResponse, 0, len(s.Workload))
	for _, w := range s.Workload {
		workload = append(workload, WorkloadResponse{AdminID: w.AdminID, Count: w.Count})
	}
	return DashboardResponse{
		Total:      s.Total,
		Pending:    s.Pending,
		InProgress: s.InProgress,
		OnHold:     s.OnHold,
		Resolved:   s.Resolved,
		Workload:   workload,
	}
}
