// Package entity contains the core business objects of the project.
package entity

import "slices"

// Role represents the authorization level of an account.
type Role string

const (
	// RoleAdmin can manage every account and token.
	RoleAdmin Role = "Admin"
	// RoleUser can only act on its own account.
	RoleUser Role = "User"
)

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// Roles is a slice of Role for convenience.
type Roles []Role

// Contains checks if the roles slice contains a specific role.
func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}
