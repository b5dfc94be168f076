package entities

import (
	"strings"
	"time"
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	default:
		return false
	}
}

// Principal is the resolved caller identity attached to every
// authenticated request.
type Principal struct {
	UserID      string
	CompanyID   string
	Role        Role
	Permissions []string
}

func (p Principal) Validate() bool {
	return strings.TrimSpace(p.UserID) != "" &&
		strings.TrimSpace(p.CompanyID) != "" &&
		IsValidRole(p.Role)
}

// Session binds an opaque token to a principal for a bounded lifetime.
type Session struct {
	Token     string
	Principal Principal
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
