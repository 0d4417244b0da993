package entity

import "time"

// RefreshToken is one link in an account's refresh token rotation chain.
// Records are never deleted; rotation and revocation only mark them.
type RefreshToken struct {
	ID          uint64
	AccountID   uint64
	TokenHash   string // SHA-256 of the opaque value handed to the client.
	Expires     time.Time
	Created     time.Time
	CreatedByIP string
	IsActive    bool

	Revoked         *time.Time
	RevokedByIP     *string
	ReplacedByToken *string // Hash of the successor issued on rotation.
}

// IsExpired reports whether the token is past its expiry.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.Expires)
}

// IsUsable reports whether the token may still be used for refresh or ownership checks.
func (t *RefreshToken) IsUsable(now time.Time) bool {
	return t.IsActive && t.Revoked == nil && !t.IsExpired(now)
}

// TokenRevocation carries the audit fields written when a token is revoked.
type TokenRevocation struct {
	At              time.Time
	ByIP            string
	ReplacedByToken *string
}
