package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

type sessionEntry struct {
	resolver *RoleResolver
	lastUsed time.Time
}

// SessionRegistry keeps one started RoleResolver per session key, so every
// request of a session reads the same EffectiveRoleState.
type SessionRegistry struct {
	ctx    context.Context
	lookup ports.RoleLookup
	feed   ports.ChangeFeed
	log    zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*sessionEntry
	closed  bool
}

// NewSessionRegistry creates a registry whose resolvers run under ctx.
func NewSessionRegistry(ctx context.Context, lookup ports.RoleLookup, feed ports.ChangeFeed, log zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		ctx:     ctx,
		lookup:  lookup,
		feed:    feed,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*sessionEntry),
	}
}

// Acquire returns the resolver of session, creating and starting it on first use.
// A closed registry hands out resolvers that are already closed.
//
// Resolvers are keyed by identity and shared by every client of that identity,
// so a client switching identity gets a different resolver and never sees the
// previous identity's state. The previous resolver keeps its feed subscription
// until Sweep finds it idle.
func (r *SessionRegistry) Acquire(session domain.SessionContext) *RoleResolver {
	key := session.Key()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		res := NewRoleResolver(session, r.lookup, r.feed, r.log)
		res.Close()
		return res
	}
	if e, ok := r.entries[key]; ok {
		e.lastUsed = r.now()
		r.mu.Unlock()
		return e.resolver
	}
	res := NewRoleResolver(session, r.lookup, r.feed, r.log)
	r.entries[key] = &sessionEntry{resolver: res, lastUsed: r.now()}
	r.mu.Unlock()

	res.Start(r.ctx)
	r.log.Debug().Str("session", key).Msg("session started")
	return res
}

// Sweep closes resolvers idle for longer than maxIdle and returns how many it closed.
func (r *SessionRegistry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*RoleResolver
	for key, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.resolver)
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()

	for _, res := range stale {
		res.Close()
	}
	if len(stale) > 0 {
		r.log.Debug().Int("closed", len(stale)).Msg("idle sessions swept")
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes the registry.
func (r *SessionRegistry) Run(ctx context.Context, maxIdle time.Duration) {
	interval := maxIdle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep(maxIdle)
		}
	}
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close closes every resolver. It is idempotent.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	entries := r.entries
	r.entries = map[string]*sessionEntry{}
	r.mu.Unlock()

	for _, e := range entries {
		e.resolver.Close()
	}
}
