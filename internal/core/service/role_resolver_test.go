package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitLoaded(t *testing.T, r *RoleResolver) domain.EffectiveRoleState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := r.WaitLoaded(ctx)
	if err != nil {
		t.Fatalf("wait loaded: %v", err)
	}
	return st
}

func TestRoleResolver_DemoMarkerLoadsImmediately(t *testing.T) {
	lookup := &stubLookup{}
	r := NewRoleResolver(domain.SessionContext{DemoRole: "housekeeping"}, lookup, newStubFeed(), zerolog.Nop())
	if st := r.State(); st.Phase != domain.PhaseInit || st.Loaded {
		t.Fatalf("expected INIT before start, got %+v", st)
	}

	r.Start(context.Background())
	defer r.Close()

	st := r.State()
	if !st.Loaded || st.Role != domain.RoleHousekeeping || st.Phase != domain.PhaseDemoReady {
		t.Fatalf("unexpected demo state: %+v", st)
	}
	if lookup.callCount() != 0 {
		t.Fatal("demo sessions must not perform a lookup")
	}
}

func TestRoleResolver_AnonymousLoadsWithoutRole(t *testing.T) {
	r := NewRoleResolver(domain.SessionContext{}, &stubLookup{}, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	st := r.State()
	if !st.Loaded || st.Role != "" {
		t.Fatalf("unexpected anonymous state: %+v", st)
	}
}

func TestRoleResolver_UnknownDemoMarkerHasNoRole(t *testing.T) {
	r := NewRoleResolver(domain.SessionContext{DemoRole: "overlord"}, nil, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	if st := r.State(); !st.Loaded || st.Role != "" {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestRoleResolver_AuthenticatedLookup(t *testing.T) {
	lookup := &stubLookup{
		results: []lookupResult{{role: domain.RoleFrontDesk}},
		gate:    make(chan struct{}),
	}
	session := domain.SessionContext{Identity: "alice@hotel.test", DemoRole: "admin"}
	r := NewRoleResolver(session, lookup, newStubFeed(), zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	if st := r.State(); st.Loaded || st.Phase != domain.PhaseAuthPending || st.Role != "" {
		t.Fatalf("expected pending state without demo role, got %+v", st)
	}

	lookup.gate <- struct{}{}
	st := waitLoaded(t, r)
	if st.Role != domain.RoleFrontDesk || st.Phase != domain.PhaseAuthReady {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestRoleResolver_LookupFailureStillLoads(t *testing.T) {
	lookup := &stubLookup{results: []lookupResult{{err: domain.ErrNotFound}}}
	r := NewRoleResolver(domain.SessionContext{Identity: "bob@hotel.test"}, lookup, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	st := waitLoaded(t, r)
	if st.Role != "" || st.Phase != domain.PhaseAuthReady {
		t.Fatalf("expected loaded without role, got %+v", st)
	}
}

func TestRoleResolver_NoAccountStoreStillLoads(t *testing.T) {
	r := NewRoleResolver(domain.SessionContext{Identity: "bob@hotel.test"}, nil, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	if st := waitLoaded(t, r); st.Role != "" {
		t.Fatalf("expected no role, got %+v", st)
	}
}

func TestRoleResolver_UnknownStoredRoleIsUndefined(t *testing.T) {
	lookup := &stubLookup{results: []lookupResult{{role: "night_auditor"}}}
	r := NewRoleResolver(domain.SessionContext{Identity: "carol@hotel.test"}, lookup, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	if st := waitLoaded(t, r); st.Role != "" {
		t.Fatalf("expected no role, got %+v", st)
	}
}

func TestRoleResolver_PushedChangeKeepsLoaded(t *testing.T) {
	lookup := &stubLookup{results: []lookupResult{
		{role: domain.RoleGuest},
		{role: domain.RoleFrontDesk},
	}}
	feed := newStubFeed()
	r := NewRoleResolver(domain.SessionContext{Identity: "dave@hotel.test"}, lookup, feed, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()
	waitLoaded(t, r)

	var mu sync.Mutex
	var seen []domain.EffectiveRoleState
	r.Watch(func(st domain.EffectiveRoleState) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, st)
	})

	// Events for other identities are ignored.
	feed.Publish(domain.ChangeEvent{Topic: domain.TopicRoles, Key: "someone@hotel.test", Op: domain.OpRole})
	feed.Publish(domain.ChangeEvent{Topic: domain.TopicRoles, Key: "dave@hotel.test", Op: domain.OpRole})

	waitFor(t, "role update", func() bool { return r.State().Role == domain.RoleFrontDesk })

	mu.Lock()
	defer mu.Unlock()
	for _, st := range seen {
		if !st.Loaded {
			t.Fatalf("re-lookup must not reset loaded: %+v", seen)
		}
	}
	if lookup.callCount() != 2 {
		t.Fatalf("expected 2 lookups, got %d", lookup.callCount())
	}
}

func TestRoleResolver_FailedRelookupFailsClosed(t *testing.T) {
	lookup := &stubLookup{results: []lookupResult{
		{role: domain.RoleSecurity},
		{err: domain.ErrTransport},
	}}
	feed := newStubFeed()
	r := NewRoleResolver(domain.SessionContext{Identity: "erin@hotel.test"}, lookup, feed, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()
	waitLoaded(t, r)

	feed.Publish(domain.ChangeEvent{Topic: domain.TopicRoles, Key: "erin@hotel.test", Op: domain.OpRole})
	waitFor(t, "fail closed", func() bool { return r.State().Role == "" })
	if !r.State().Loaded {
		t.Fatal("loaded must stay true")
	}
}

func TestRoleResolver_CloseStopsUpdates(t *testing.T) {
	lookup := &stubLookup{
		results: []lookupResult{{role: domain.RoleAdmin}},
		gate:    make(chan struct{}),
	}
	feed := newStubFeed()
	r := NewRoleResolver(domain.SessionContext{Identity: "frank@hotel.test"}, lookup, feed, zerolog.Nop())
	r.Start(context.Background())
	if feed.count() != 1 {
		t.Fatalf("expected one feed subscription, got %d", feed.count())
	}

	notified := false
	r.Watch(func(domain.EffectiveRoleState) { notified = true })

	r.Close()
	r.Close()
	if feed.count() != 0 {
		t.Fatal("close must unsubscribe from the feed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := r.WaitLoaded(ctx); !errors.Is(err, ErrResolverClosed) {
		t.Fatalf("expected ErrResolverClosed, got %v", err)
	}

	// The in-flight lookup was cancelled; its result must be discarded.
	select {
	case lookup.gate <- struct{}{}:
	case <-time.After(50 * time.Millisecond):
	}
	time.Sleep(20 * time.Millisecond)
	if st := r.State(); st.Loaded || st.Role != "" {
		t.Fatalf("state changed after close: %+v", st)
	}
	if notified {
		t.Fatal("watcher notified after close")
	}
}

func TestRoleResolver_WaitLoadedHonoursContext(t *testing.T) {
	lookup := &stubLookup{gate: make(chan struct{})}
	r := NewRoleResolver(domain.SessionContext{Identity: "gina@hotel.test"}, lookup, nil, zerolog.Nop())
	r.Start(context.Background())
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st, err := r.WaitLoaded(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if st.Loaded {
		t.Fatal("state must still be pending")
	}
}

func TestRoleResolver_UnwatchIsIdempotent(t *testing.T) {
	r := NewRoleResolver(domain.SessionContext{DemoRole: "guest"}, nil, nil, zerolog.Nop())
	calls := 0
	unwatch := r.Watch(func(domain.EffectiveRoleState) { calls++ })
	unwatch()
	unwatch()

	r.Start(context.Background())
	defer r.Close()
	if calls != 0 {
		t.Fatalf("removed watcher was called %d times", calls)
	}
}
