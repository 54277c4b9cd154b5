package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
)

func TestRouteGuard_NoRedirectUntilLoadedThenExactlyOne(t *testing.T) {
	lookup := &stubLookup{
		results: []lookupResult{{role: domain.RoleFrontDesk}},
		gate:    make(chan struct{}),
	}
	feed := newStubFeed()
	resolver := NewRoleResolver(domain.SessionContext{Identity: "alice@hotel.test"}, lookup, feed, zerolog.Nop())
	resolver.Start(context.Background())
	defer resolver.Close()

	nav := &recordingNavigator{}
	guard := NewRouteGuard(resolver, nav, zerolog.Nop())
	guard.Start("/kitchen/orders")
	defer guard.Stop()

	guard.Navigate("/security")
	if got := nav.all(); len(got) != 0 {
		t.Fatalf("redirect issued before loaded: %v", got)
	}

	lookup.gate <- struct{}{}
	waitLoaded(t, resolver)

	home := policy.NavigationFor(domain.RoleFrontDesk)[0].Path
	waitFor(t, "redirect", func() bool { return len(nav.all()) > 0 })
	if got := nav.all(); !reflect.DeepEqual(got, []string{home}) {
		t.Fatalf("expected exactly one redirect to %s, got %v", home, got)
	}
	if guard.Path() != home {
		t.Fatalf("guard path = %s, want %s", guard.Path(), home)
	}

	// A pushed re-lookup with the same role on an allowed path changes nothing.
	go func() { lookup.gate <- struct{}{} }()
	feed.Publish(domain.ChangeEvent{Topic: domain.TopicRoles, Key: "alice@hotel.test", Op: domain.OpRole})
	waitFor(t, "second lookup", func() bool { return lookup.callCount() == 2 })
	if got := nav.all(); len(got) != 1 {
		t.Fatalf("expected no further redirect, got %v", got)
	}
}

func TestRouteGuard_DemoPathIsUnconditional(t *testing.T) {
	resolver := NewRoleResolver(domain.SessionContext{DemoRole: "restaurant"}, nil, nil, zerolog.Nop())
	resolver.Start(context.Background())
	defer resolver.Close()

	nav := &recordingNavigator{}
	guard := NewRouteGuard(resolver, nav, zerolog.Nop())
	guard.Start("/admin")
	defer guard.Stop()

	home := policy.NavigationFor(domain.RoleRestaurant)[0].Path
	if got := nav.all(); !reflect.DeepEqual(got, []string{home}) {
		t.Fatalf("expected redirect to %s, got %v", home, got)
	}
}

func TestRouteGuard_AllowedNestedPath(t *testing.T) {
	resolver := NewRoleResolver(domain.SessionContext{DemoRole: "front_desk"}, nil, nil, zerolog.Nop())
	resolver.Start(context.Background())
	defer resolver.Close()

	entry := policy.NavigationFor(domain.RoleFrontDesk)[1]
	nav := &recordingNavigator{}
	guard := NewRouteGuard(resolver, nav, zerolog.Nop())
	guard.Start(entry.Path + "/42")
	defer guard.Stop()

	if got := nav.all(); len(got) != 0 {
		t.Fatalf("nested path must be allowed, got %v", got)
	}
}

func TestRouteGuard_StopDetaches(t *testing.T) {
	resolver := NewRoleResolver(domain.SessionContext{DemoRole: "guest"}, nil, nil, zerolog.Nop())
	nav := &recordingNavigator{}
	guard := NewRouteGuard(resolver, nav, zerolog.Nop())
	guard.Start("/admin")
	guard.Stop()
	guard.Stop()

	resolver.Start(context.Background())
	defer resolver.Close()
	guard.Navigate("/maintenance")
	if got := nav.all(); len(got) != 0 {
		t.Fatalf("stopped guard redirected: %v", got)
	}
}

func TestDecide(t *testing.T) {
	loaded := func(role domain.Role) domain.EffectiveRoleState {
		return domain.EffectiveRoleState{Role: role, Loaded: true}
	}
	home, _ := policy.Home(domain.RoleMaintenance)

	cases := []struct {
		name  string
		state domain.EffectiveRoleState
		path  string
		want  policy.Decision
	}{
		{"pending does nothing", domain.EffectiveRoleState{Role: domain.RoleMaintenance}, "/admin", policy.Decision{}},
		{"home allowed", loaded(domain.RoleMaintenance), home, policy.Decision{Allowed: true}},
		{"foreign path redirected", loaded(domain.RoleMaintenance), "/admin", policy.Decision{Redirect: home}},
		{"landing alias redirected", loaded(domain.RoleMaintenance), "/dashboard", policy.Decision{Redirect: home}},
		{"no role, no entries", loaded(""), "/dashboard", policy.Decision{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state, tc.path); got != tc.want {
				t.Fatalf("Decide(%+v, %q) = %+v, want %+v", tc.state, tc.path, got, tc.want)
			}
		})
	}
}
