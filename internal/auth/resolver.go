package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Resolver maps a validated token identity onto exactly one stored principal.
type Resolver struct {
	users  repository.UserRepository
	admins repository.AdminRepository
}

// NewResolver constructs a resolver over both identity stores.
func NewResolver(users repository.UserRepository, admins repository.AdminRepository) *Resolver {
	return &Resolver{users: users, admins: admins}
}

// Resolve looks up the admin store for admin tokens and the user store
// otherwise. A vanished principal is an authentication failure.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (*domain.Principal, error) {
	if id.Kind == domain.PrincipalKindAdmin {
		admin, err := r.admins.GetByEmail(ctx, id.Subject)
		if err != nil {
			return nil, lookupError(err)
		}
		return domain.AdminPrincipal(admin), nil
	}
	user, err := r.users.GetByEmail(ctx, id.Subject)
	if err != nil {
		return nil, lookupError(err)
	}
	return domain.UserPrincipal(user), nil
}

func lookupError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewUnauthenticated()
	}
	return apperrors.NewInternalError(err)
}
