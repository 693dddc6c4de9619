package domain

// PrincipalKind tags which identity store a token refers to.
type PrincipalKind string

const (
	PrincipalKindUser  PrincipalKind = "user"
	PrincipalKindAdmin PrincipalKind = "admin"
)

// Valid reports whether k is one of the two known kinds.
func (k PrincipalKind) Valid() bool {
	return k == PrincipalKindUser || k == PrincipalKindAdmin
}

// Principal is the authenticated caller. Exactly one of User or Admin is set,
// matching Kind.
type Principal struct {
	Kind  PrincipalKind
	User  *User
	Admin *Admin
}

// UserPrincipal wraps an end-user.
func UserPrincipal(u *User) *Principal {
	return &Principal{Kind: PrincipalKindUser, User: u}
}

// AdminPrincipal wraps an administrator.
func AdminPrincipal(a *Admin) *Principal {
	return &Principal{Kind: PrincipalKindAdmin, Admin: a}
}

// IsAdmin is the derived flag every guard keys on.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Kind == PrincipalKindAdmin && p.Admin != nil
}

// ID returns the identifier within the principal's own store.
func (p *Principal) ID() int64 {
	switch {
	case p == nil:
		return 0
	case p.Admin != nil:
		return p.Admin.ID
	case p.User != nil:
		return p.User.ID
	}
	return 0
}

// Email returns the lookup key carried in tokens.
func (p *Principal) Email() string {
	switch {
	case p == nil:
		return ""
	case p.Admin != nil:
		return p.Admin.Email
	case p.User != nil:
		return p.User.Email
	}
	return ""
}

// Active reports the principal's active flag.
func (p *Principal) Active() bool {
	switch {
	case p == nil:
		return false
	case p.Admin != nil:
		return p.Admin.Active
	case p.User != nil:
		return p.User.Active
	}
	return false
}
