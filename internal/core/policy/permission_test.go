package policy

import (
	"testing"

	"github.com/hotelops/console/internal/core/domain"
)

var allActions = []domain.Action{domain.ActionRead, domain.ActionCreate, domain.ActionUpdate, domain.ActionDelete, "export"}

var sampleResources = []string{"rooms", "reservations", "guests", "staff", "inventory", "incidents", "accounts", "unknown_resource"}

func TestCan_AdminIsSuperuser(t *testing.T) {
	for _, a := range allActions {
		for _, r := range sampleResources {
			if !Can(domain.RoleAdmin, a, r) {
				t.Errorf("admin denied %s on %s", a, r)
			}
		}
	}
}

func TestCan_UndefinedAndUnknownRoleDenied(t *testing.T) {
	if Can("", domain.ActionRead, "rooms") {
		t.Error("undefined role must be denied")
	}
	if Can("night_auditor", domain.ActionRead, "rooms") {
		t.Error("unknown role must be denied")
	}
}

func TestCan_MatchesRuleTableExactly(t *testing.T) {
	for _, role := range domain.Roles() {
		if role == domain.RoleAdmin {
			continue
		}
		table := rules[role]
		for _, a := range allActions {
			for _, r := range sampleResources {
				want := table[domain.AnyResource].contains(a) || table[r].contains(a)
				if got := Can(role, a, r); got != want {
					t.Errorf("Can(%s, %s, %s) = %v, want %v", role, a, r, got, want)
				}
			}
		}
	}
}

func TestCan_Examples(t *testing.T) {
	cases := []struct {
		role     domain.Role
		action   domain.Action
		resource string
		want     bool
	}{
		{domain.RoleFrontDesk, domain.ActionRead, "staff", true}, // wildcard read
		{domain.RoleFrontDesk, domain.ActionDelete, "staff", false},
		{domain.RoleFrontDesk, domain.ActionDelete, "reservations", true},
		{domain.RoleHousekeeping, domain.ActionDelete, "rooms", false},
		{domain.RoleHousekeeping, domain.ActionUpdate, "rooms", true},
		{domain.RoleGuest, domain.ActionCreate, "service_requests", true},
		{domain.RoleGuest, domain.ActionRead, "rooms", false},
		{domain.RoleInventory, domain.ActionUpdate, "accounts", false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action, tc.resource); got != tc.want {
			t.Errorf("Can(%s, %s, %s) = %v, want %v", tc.role, tc.action, tc.resource, got, tc.want)
		}
	}
}
