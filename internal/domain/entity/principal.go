package entity

import "context"

// OwnsTokenFunc checks whether a raw refresh token is one of the principal's usable tokens.
type OwnsTokenFunc func(ctx context.Context, token string) (bool, error)

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	ID        uint64
	Role      Role
	OwnsToken OwnsTokenFunc
}

// IsAdmin reports whether the principal carries the Admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether the principal may act on the given account.
func (p *Principal) CanAccess(accountID uint64) bool {
	return p.IsAdmin() || p.ID == accountID
}
