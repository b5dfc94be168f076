package services

import "meridian/contexts/finance-core/settlement-engine/domain/entities"

// Scope identifies the tenant a privileged action targets.
type Scope struct {
	CompanyID string
}

// AdminOnly reports whether the principal may perform money-moving
// operations inside the given tenant. Unknown roles and cross-tenant
// principals are denied; the function never errors.
func AdminOnly(principal entities.Principal, companyID string) bool {
	if principal.CompanyID == "" || companyID == "" {
		return false
	}
	if principal.CompanyID != companyID {
		return false
	}
	switch principal.Role {
	case entities.RoleOwner, entities.RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAuthorized evaluates one action against the principal's role and
// explicit permission set, always tenant-scoped. Pure function of its
// inputs so it is safe to call on every request.
func IsAuthorized(principal entities.Principal, action string, scope Scope) bool {
	if AdminOnly(principal, scope.CompanyID) {
		return true
	}
	if principal.CompanyID == "" || principal.CompanyID != scope.CompanyID {
		return false
	}
	return GrantsPermission(principal.Permissions, action)
}

func GrantsPermission(permissions []string, permission string) bool {
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}
