// Package policy holds the static rule table and navigation map shared by every
// session, plus the pure decisions built on top of them.
package policy

import "github.com/hotelops/console/internal/core/domain"

type actions []domain.Action

var (
	crud     = actions{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete}
	readOnly = actions{domain.ActionRead}
)

// rules maps role -> resource (or "*") -> allowed actions. Absence means deny.
// Admin is not listed: it bypasses the table.
var rules = map[domain.Role]map[string]actions{
	domain.RoleFrontDesk: {
		domain.AnyResource:   readOnly,
		"reservations":       crud,
		"guests":             {domain.ActionRead, domain.ActionCreate, domain.ActionUpdate},
		"rooms":              {domain.ActionRead, domain.ActionUpdate},
		"transport_bookings": {domain.ActionRead, domain.ActionCreate},
		"service_requests":   {domain.ActionRead, domain.ActionUpdate},
		"lost_and_found":     crud,
	},
	domain.RoleHousekeeping: {
		"rooms":              {domain.ActionRead, domain.ActionUpdate},
		"housekeeping_tasks": crud,
		"inventory":          readOnly,
		"lost_and_found":     {domain.ActionRead, domain.ActionCreate, domain.ActionUpdate},
		"service_requests":   {domain.ActionRead, domain.ActionUpdate},
	},
	domain.RoleRestaurant: {
		"restaurant_orders": crud,
		"inventory":         readOnly,
		"service_requests":  readOnly,
	},
	domain.RoleSecurity: {
		"incidents":      crud,
		"guests":         readOnly,
		"reservations":   readOnly,
		"lost_and_found": crud,
	},
	domain.RoleMaintenance: {
		"maintenance_requests": crud,
		"rooms":                {domain.ActionRead, domain.ActionUpdate},
		"inventory":            {domain.ActionRead, domain.ActionUpdate},
	},
	domain.RoleTransport: {
		"transport_bookings": crud,
		"guests":             readOnly,
	},
	domain.RoleInventory: {
		"inventory":         crud,
		"restaurant_orders": readOnly,
	},
	domain.RoleGuest: {
		"service_requests":  {domain.ActionRead, domain.ActionCreate},
		"restaurant_orders": {domain.ActionCreate},
	},
}

// Can reports whether role may perform action on resource. It never panics:
// an empty or unknown role is denied, admin is always allowed.
func Can(role domain.Role, action domain.Action, resource string) bool {
	if role == "" {
		return false
	}
	if role == domain.RoleAdmin {
		return true
	}
	table, ok := rules[role]
	if !ok {
		return false
	}
	return table[domain.AnyResource].contains(action) || table[resource].contains(action)
}

func (a actions) contains(action domain.Action) bool {
	for _, x := range a {
		if x == action {
			return true
		}
	}
	return false
}
