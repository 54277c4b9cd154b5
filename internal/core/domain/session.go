package domain

import "context"

// SessionContext describes who is driving a session. It is injected into the
// role resolver instead of being read from ambient state.
type SessionContext struct {
	// Identity is the authenticated account id or email. Empty when unauthenticated.
	Identity string
	// DemoRole is the client-asserted marker for unauthenticated demo sessions.
	DemoRole string
}

// Authenticated reports whether the session carries an account identity.
func (s SessionContext) Authenticated() bool {
	return s.Identity != ""
}

// Demo reports whether the session is an unauthenticated demo session.
func (s SessionContext) Demo() bool {
	return !s.Authenticated() && s.DemoRole != ""
}

// Key identifies the session for registry lookups. A bearer identity always
// wins over a demo marker.
func (s SessionContext) Key() string {
	switch {
	case s.Authenticated():
		return "auth:" + s.Identity
	case s.DemoRole != "":
		return "demo:" + s.DemoRole
	default:
		return "anonymous"
	}
}

// Phase is the role resolver lifecycle position.
type Phase string

const (
	PhaseInit        Phase = "init"
	PhaseDemoReady   Phase = "demo_ready"
	PhaseAuthPending Phase = "auth_pending"
	PhaseAuthReady   Phase = "auth_ready"
)

// EffectiveRoleState is the role the route guard currently trusts.
type EffectiveRoleState struct {
	Role   Role  `json:"role,omitempty"`
	Loaded bool  `json:"loaded"`
	Phase  Phase `json:"phase"`
}

type identityKey struct{}

// ContextWithIdentity stores the account identity used for owner scoping.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by ContextWithIdentity.
func IdentityFromContext(ctx context.Context) string {
	id, _ := ctx.Value(identityKey{}).(string)
	return id
}
