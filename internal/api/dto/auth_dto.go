package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// LoginRequest payload for both login endpoints.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string               `json:"access_token"`
	TokenType   string               `json:"token_type"`
	Kind        domain.PrincipalKind `json:"type"`
	ExpiresAt   time.Time            `json:"expires_at"`
}

// PrincipalResponse describes the caller behind a token.
type PrincipalResponse struct {
	Kind  domain.PrincipalKind `json:"type"`
	User  *UserResponse        `json:"user,omitempty"`
	Admin *AdminResponse       `json:"admin,omitempty"`
}

// NewPrincipalResponse maps the resolved principal.
func NewPrincipalResponse(p *domain.Principal) PrincipalResponse {
	resp := PrincipalResponse{Kind: p.Kind}
	if p.User != nil {
		user := NewUserResponse(p.User)
		resp.User = &user
	}
	if p.Admin != nil {
		admin := NewAdminResponse(p.Admin)
		resp.Admin = &admin
	}
	return resp
}
