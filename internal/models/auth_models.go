package models

import (
	"strings"
	"time"
)

// User lifecycle statuses.
const (
	UserStatusActive   = "Active"
	UserStatusInactive = "Inactive"
	UserStatusDeleted  = "Deleted"
)

// System roles that cannot be renamed or deleted.
const (
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "SuperAdmin"
	RoleMember     = "Member"
)

// User represents a principal in the system
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"` // '-' means don't send in JSON response
	Email        string     `json:"email" db:"email"`
	FullName     *string    `json:"full_name,omitempty" db:"full_name"`
	Status       string     `json:"status" db:"status"`
	RoleID       int64      `json:"role_id" db:"role_id"`
	OTPCode      *string    `json:"-" db:"otp_code"`
	OTPExpiresAt *time.Time `json:"-" db:"otp_expires_at"`
	DateJoined   time.Time  `json:"date_joined" db:"date_joined"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Role         *Role      `json:"role,omitempty"` // For joining with Role
}

// IsActive reports whether the user's lifecycle status permits acting.
func (u *User) IsActive() bool {
	return u.Status == "" || strings.EqualFold(u.Status, UserStatusActive)
}

// RoleName returns the joined role name, or "" when the role is not loaded.
func (u *User) RoleName() string {
	if u.Role != nil {
		return u.Role.Name
	}
	return ""
}

// PermissionCodes collects the user's role permission codes into a set.
// Permission rows expose a canonical Code with Name as a fallback for rows
// written before the code column existed.
func (u *User) PermissionCodes() map[string]bool {
	codes := make(map[string]bool)
	if u.Role == nil {
		return codes
	}
	for _, p := range u.Role.Permissions {
		switch {
		case p.Code != nil && *p.Code != "":
			codes[*p.Code] = true
		case p.Name != "":
			codes[p.Name] = true
		}
	}
	return codes
}

// Role represents a named bundle of permissions assigned to users
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name" db:"name"`
	Description *string      `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
	Permissions []Permission `json:"permissions,omitempty"` // For joining with Permissions
}

// IsSystem reports whether the role is one of the protected system roles.
func (r *Role) IsSystem() bool {
	return strings.EqualFold(r.Name, RoleAdmin) || strings.EqualFold(r.Name, RoleSuperAdmin) || strings.EqualFold(r.Name, RoleMember)
}

// Permission represents an atomic capability gating one operation class
type Permission struct {
	ID          int64     `json:"id"`
	Code        *string   `json:"code,omitempty" db:"code"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// RolePermission is the join table for roles and permissions
type RolePermission struct {
	RoleID       int64     `json:"role_id" db:"role_id"`
	PermissionID int64     `json:"permission_id" db:"permission_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
