package domain

import "strings"

// Role identifies a staff or guest category. The zero value means "no role".
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFrontDesk    Role = "front_desk"
	RoleHousekeeping Role = "housekeeping"
	RoleRestaurant   Role = "restaurant"
	RoleSecurity     Role = "security"
	RoleMaintenance  Role = "maintenance"
	RoleTransport    Role = "transport"
	RoleInventory    Role = "inventory"
	RoleGuest        Role = "guest"
)

var knownRoles = []Role{
	RoleAdmin,
	RoleFrontDesk,
	RoleHousekeeping,
	RoleRestaurant,
	RoleSecurity,
	RoleMaintenance,
	RoleTransport,
	RoleInventory,
	RoleGuest,
}

// Roles returns the closed set of roles in declaration order.
func Roles() []Role {
	out := make([]Role, len(knownRoles))
	copy(out, knownRoles)
	return out
}

// ParseRole normalises s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range knownRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	for _, known := range knownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Action is a short verb tag checked against a role and resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AnyResource is the wildcard resource key in the rule table.
const AnyResource = "*"
