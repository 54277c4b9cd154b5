package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// ErrResolverClosed is returned by WaitLoaded once the resolver is torn down.
var ErrResolverClosed = errors.New("role resolver closed")

// RoleState is the read side of a role resolver.
type RoleState interface {
	State() domain.EffectiveRoleState
	// Watch registers fn for every state change. The returned function
	// removes it and is safe to call repeatedly.
	Watch(fn func(domain.EffectiveRoleState)) (unwatch func())
}

// RoleResolver owns the EffectiveRoleState of one session.
//
// Demo and anonymous sessions are loaded as soon as Start runs. Authenticated
// sessions start pending, perform one authoritative lookup and then follow
// role change notifications for their identity. A re-lookup never clears
// loaded. After Close no further state change is observable.
type RoleResolver struct {
	session domain.SessionContext
	lookup  ports.RoleLookup
	feed    ports.ChangeFeed
	log     zerolog.Logger

	notifyMu sync.Mutex

	mu        sync.Mutex
	state     domain.EffectiveRoleState
	watchers  map[int]func(domain.EffectiveRoleState)
	nextWatch int
	seq       uint64
	started   bool
	closed    bool
	token     ports.Token
	hasToken  bool
	ctx       context.Context
	cancel    context.CancelFunc
	loaded    chan struct{}
	done      chan struct{}
}

var _ RoleState = (*RoleResolver)(nil)

// NewRoleResolver creates a resolver for session. lookup may be nil when no
// authoritative store is configured; authenticated sessions then resolve to
// no role. feed may be nil to disable pushed role changes.
func NewRoleResolver(session domain.SessionContext, lookup ports.RoleLookup, feed ports.ChangeFeed, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{
		session:  session,
		lookup:   lookup,
		feed:     feed,
		log:      log.With().Str("session", session.Key()).Logger(),
		state:    domain.EffectiveRoleState{Phase: domain.PhaseInit},
		watchers: make(map[int]func(domain.EffectiveRoleState)),
		loaded:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Session returns the session the resolver was built for.
func (r *RoleResolver) Session() domain.SessionContext {
	return r.session
}

// Start leaves INIT. It runs once; later calls are ignored. ctx bounds every
// lookup the resolver performs.
func (r *RoleResolver) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started || r.closed {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)

	if !r.session.Authenticated() {
		role, ok := domain.ParseRole(r.session.DemoRole)
		if !ok && r.session.DemoRole != "" {
			r.log.Warn().Str("marker", r.session.DemoRole).Msg("unknown demo role ignored")
		}
		r.mu.Unlock()
		r.apply(0, domain.EffectiveRoleState{Role: role, Loaded: true, Phase: domain.PhaseDemoReady})
		return
	}

	if r.feed != nil {
		identity := r.session.Identity
		r.token = r.feed.Subscribe(func(ev domain.ChangeEvent) bool {
			return ev.Topic == domain.TopicRoles && ev.Key == identity
		}, func(domain.ChangeEvent) {
			r.log.Debug().Msg("role change pushed, looking up again")
			go r.refresh()
		})
		r.hasToken = true
	}
	r.state.Phase = domain.PhaseAuthPending
	pending := r.state
	r.mu.Unlock()

	r.notify(pending)
	go r.refresh()
}

// State returns the current role state.
func (r *RoleResolver) State() domain.EffectiveRoleState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Watch registers fn for state changes.
func (r *RoleResolver) Watch(fn func(domain.EffectiveRoleState)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return func() {}
	}
	id := r.nextWatch
	r.nextWatch++
	r.watchers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, id)
			r.mu.Unlock()
		})
	}
}

// WaitLoaded blocks until the state is loaded, ctx is done or the resolver is closed.
func (r *RoleResolver) WaitLoaded(ctx context.Context) (domain.EffectiveRoleState, error) {
	select {
	case <-r.loaded:
		return r.State(), nil
	default:
	}
	select {
	case <-r.loaded:
		return r.State(), nil
	case <-r.done:
		return r.State(), ErrResolverClosed
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}
}

// Close tears the resolver down. It is idempotent.
func (r *RoleResolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.watchers = map[int]func(domain.EffectiveRoleState){}
	hasToken, token := r.hasToken, r.token
	r.hasToken = false
	if r.cancel != nil {
		r.cancel()
	}
	close(r.done)
	r.mu.Unlock()

	if hasToken {
		r.feed.Unsubscribe(token)
	}
}

// refresh looks the role up again. When lookups overlap only the most
// recently started one may change the state.
func (r *RoleResolver) refresh() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	seq := r.seq
	ctx := r.ctx
	r.mu.Unlock()

	role, err := r.lookupRole(ctx)
	if err != nil {
		// Fail closed: a session whose role cannot be confirmed gets none.
		r.log.Warn().Err(err).Msg("role lookup failed")
		role = ""
	}
	r.apply(seq, domain.EffectiveRoleState{Role: role, Loaded: true, Phase: domain.PhaseAuthReady})
}

func (r *RoleResolver) lookupRole(ctx context.Context) (domain.Role, error) {
	if r.lookup == nil {
		return "", fmt.Errorf("lookup role: %w: no account store configured", domain.ErrTransport)
	}
	raw, err := r.lookup.LookupRole(ctx, r.session.Identity)
	if err != nil {
		return "", err
	}
	role, ok := domain.ParseRole(string(raw))
	if !ok {
		return "", fmt.Errorf("lookup role: unknown role %q", raw)
	}
	return role, nil
}

// apply installs next unless the resolver is closed or a newer lookup was
// started after seq. seq 0 means unconditional.
func (r *RoleResolver) apply(seq uint64, next domain.EffectiveRoleState) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if r.closed || (seq != 0 && seq != r.seq) {
		r.mu.Unlock()
		return
	}
	changed := r.state != next
	r.state = next
	if next.Loaded {
		select {
		case <-r.loaded:
		default:
			close(r.loaded)
		}
	}
	watchers := r.snapshotWatchers()
	r.mu.Unlock()

	if changed {
		r.log.Debug().Str("role", string(next.Role)).Str("phase", string(next.Phase)).Msg("role state changed")
		for _, fn := range watchers {
			fn(next)
		}
	}
}

func (r *RoleResolver) notify(state domain.EffectiveRoleState) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	watchers := r.snapshotWatchers()
	r.mu.Unlock()
	for _, fn := range watchers {
		fn(state)
	}
}

func (r *RoleResolver) snapshotWatchers() []func(domain.EffectiveRoleState) {
	out := make([]func(domain.EffectiveRoleState), 0, len(r.watchers))
	for _, fn := range r.watchers {
		out = append(out, fn)
	}
	return out
}
