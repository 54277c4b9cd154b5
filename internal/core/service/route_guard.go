package service

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/policy"
)

// Navigator performs the navigation a route guard decides on.
type Navigator interface {
	Redirect(path string)
}

// Decide combines the navigation guard and the landing alias guard. The
// landing guard only applies when the navigation guard allows the path.
func Decide(state domain.EffectiveRoleState, path string) policy.Decision {
	d := policy.Evaluate(state, path)
	if d.Redirect != "" {
		return d
	}
	if home, ok := policy.LandingRedirect(state.Role, path); ok && home != path {
		return policy.Decision{Redirect: home}
	}
	return d
}

// RouteGuard re-evaluates Decide whenever the role state or the current path
// changes and forwards redirects to a Navigator. A redirect moves the guard to
// the target path, so one violation produces exactly one redirect.
type RouteGuard struct {
	source RoleState
	nav    Navigator
	log    zerolog.Logger

	mu      sync.Mutex
	path    string
	running bool
	unwatch func()
}

func NewRouteGuard(source RoleState, nav Navigator, log zerolog.Logger) *RouteGuard {
	return &RouteGuard{source: source, nav: nav, log: log}
}

// Start begins guarding at path.
func (g *RouteGuard) Start(path string) {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.path = path
	g.mu.Unlock()

	unwatch := g.source.Watch(func(state domain.EffectiveRoleState) {
		g.check(state)
	})

	g.mu.Lock()
	g.unwatch = unwatch
	g.mu.Unlock()

	g.check(g.source.State())
}

// Navigate records a path change and re-evaluates.
func (g *RouteGuard) Navigate(path string) {
	g.mu.Lock()
	g.path = path
	g.mu.Unlock()
	g.check(g.source.State())
}

// Path returns the path the guard currently considers active.
func (g *RouteGuard) Path() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.path
}

// Stop detaches the guard. It is idempotent.
func (g *RouteGuard) Stop() {
	g.mu.Lock()
	unwatch := g.unwatch
	g.unwatch = nil
	g.running = false
	g.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
}

func (g *RouteGuard) check(state domain.EffectiveRoleState) {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	from := g.path
	d := Decide(state, from)
	if d.Redirect == "" || d.Redirect == from {
		g.mu.Unlock()
		return
	}
	g.path = d.Redirect
	g.mu.Unlock()

	g.log.Debug().Str("from", from).Str("to", d.Redirect).Str("role", string(state.Role)).Msg("route guard redirect")
	g.nav.Redirect(d.Redirect)
}
