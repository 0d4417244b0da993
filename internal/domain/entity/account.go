// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "time"

// Account is the credential-bearing identity of a person using the system.
type Account struct {
	ID           uint64 // Immutable numeric identifier.
	Title        string
	FirstName    string
	LastName     string
	Email        string // Unique, compared case-sensitively as stored.
	PasswordHash string // bcrypt hash, never the plaintext.
	Role         Role

	IsVerified bool
	IsActive   bool

	// VerificationToken and ResetToken hold SHA-256 digests; the raw values only
	// travel in the emails.
	VerificationToken *string // Single-use; nil once verified.

	// ResetToken and ResetTokenExpires are set together and cleared together.
	ResetToken        *string
	ResetTokenExpires *time.Time

	Created       time.Time
	Updated       *time.Time
	Verified      *time.Time
	PasswordReset *time.Time
}

// IsAdmin reports whether the account carries the Admin role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// HasValidResetToken reports whether a reset is pending and still inside its window.
func (a *Account) HasValidResetToken(now time.Time) bool {
	return a.ResetToken != nil && a.ResetTokenExpires != nil && now.Before(*a.ResetTokenExpires)
}

// SetResetToken starts a password reset window.
func (a *Account) SetResetToken(tokenHash string, expires time.Time) {
	a.ResetToken = &tokenHash
	a.ResetTokenExpires = &expires
}

// ClearResetToken ends the pending password reset, if any.
func (a *Account) ClearResetToken() {
	a.ResetToken = nil
	a.ResetTokenExpires = nil
}

// MarkVerified flags the account verified and consumes the verification token.
func (a *Account) MarkVerified(now time.Time) {
	a.IsVerified = true
	a.VerificationToken = nil
	if a.Verified == nil {
		a.Verified = &now
	}
}

// Touch stamps the update time.
func (a *Account) Touch(now time.Time) {
	a.Updated = &now
}
