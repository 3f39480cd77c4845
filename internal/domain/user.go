package domain

import "time"

// UserRole enumerates the three authorization tiers.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminTier reports whether the role carries operator privileges.
func (u *User) AdminTier() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSuperAdmin)
}

// ValidRole reports whether r is a known role.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AssignableRole reports whether r may be the target of a role change.
// super_admin is only ever assigned by the startup bootstrap.
func AssignableRole(r UserRole) bool {
	return r == RoleUser || r == RoleAdmin
}
