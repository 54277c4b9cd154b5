package policy

import (
	"strings"

	"github.com/hotelops/console/internal/core/domain"
)

// NavigationEntry is one sidebar link. The first entry of a role is its home.
type NavigationEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

var navigation = map[domain.Role][]NavigationEntry{
	domain.RoleAdmin: {
		{Name: "Dashboard", Path: "/admin"},
		{Name: "Reservations", Path: "/reservations"},
		{Name: "Rooms", Path: "/rooms"},
		{Name: "Guests", Path: "/guests"},
		{Name: "Staff", Path: "/staff"},
		{Name: "Housekeeping", Path: "/housekeeping"},
		{Name: "Inventory", Path: "/inventory"},
		{Name: "Maintenance", Path: "/maintenance"},
		{Name: "Restaurant", Path: "/restaurant"},
		{Name: "Security", Path: "/security"},
		{Name: "Transport", Path: "/transport"},
		{Name: "Lost & Found", Path: "/lost-and-found"},
		{Name: "Settings", Path: "/settings"},
	},
	domain.RoleFrontDesk: {
		{Name: "Front Desk", Path: "/front-desk"},
		{Name: "Reservations", Path: "/reservations"},
		{Name: "Guests", Path: "/guests"},
		{Name: "Rooms", Path: "/rooms"},
		{Name: "Lost & Found", Path: "/lost-and-found"},
	},
	domain.RoleHousekeeping: {
		{Name: "Housekeeping", Path: "/housekeeping"},
		{Name: "Rooms", Path: "/rooms"},
		{Name: "Lost & Found", Path: "/lost-and-found"},
	},
	domain.RoleRestaurant: {
		{Name: "Restaurant", Path: "/restaurant"},
		{Name: "Orders", Path: "/restaurant/orders"},
	},
	domain.RoleSecurity: {
		{Name: "Security", Path: "/security"},
		{Name: "Incidents", Path: "/security/incidents"},
		{Name: "Lost & Found", Path: "/lost-and-found"},
	},
	domain.RoleMaintenance: {
		{Name: "Maintenance", Path: "/maintenance"},
		{Name: "Rooms", Path: "/rooms"},
	},
	domain.RoleTransport: {
		{Name: "Transport", Path: "/transport"},
		{Name: "Bookings", Path: "/transport/bookings"},
	},
	domain.RoleInventory: {
		{Name: "Inventory", Path: "/inventory"},
		{Name: "Stock Levels", Path: "/inventory/stock"},
	},
	domain.RoleGuest: {
		{Name: "My Stay", Path: "/guest"},
		{Name: "Requests", Path: "/guest/requests"},
		{Name: "Dining", Path: "/guest/dining"},
	},
}

// landingAliases are generic entry paths that always forward to the role's home.
var landingAliases = []string{"/", "/dashboard", "/home"}

// NavigationFor returns the ordered navigation of role, or an empty slice for
// an unknown role. The result is a copy.
func NavigationFor(role domain.Role) []NavigationEntry {
	entries := navigation[role]
	out := make([]NavigationEntry, len(entries))
	copy(out, entries)
	return out
}

// Home returns the path of the role's first navigation entry.
func Home(role domain.Role) (string, bool) {
	entries := navigation[role]
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].Path, true
}

// Decision is the outcome of a route guard evaluation. A zero Redirect means
// no navigation should happen.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

// Evaluate runs the route guard for the given role state and current path.
// It does nothing until the state is loaded.
func Evaluate(state domain.EffectiveRoleState, path string) Decision {
	if !state.Loaded {
		return Decision{}
	}
	entries := navigation[state.Role]
	for _, e := range entries {
		if path == e.Path || strings.HasPrefix(path, e.Path+"/") {
			return Decision{Allowed: true}
		}
	}
	if len(entries) > 0 {
		return Decision{Redirect: entries[0].Path}
	}
	return Decision{}
}

// LandingRedirect forwards an exact landing alias to the role's home. It is
// independent of Evaluate.
func LandingRedirect(role domain.Role, path string) (string, bool) {
	home, ok := Home(role)
	if !ok {
		return "", false
	}
	for _, alias := range landingAliases {
		if path == alias {
			return home, true
		}
	}
	return "", false
}
