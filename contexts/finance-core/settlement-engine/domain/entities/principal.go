package entities

type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Principal is the resolved identity of the caller for one request.
// It is produced by the session service and never persisted here.
type Principal struct {
	UserID      string
	CompanyID   string
	Role        Role
	Permissions []string
}
