package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type lookupResult struct {
	role domain.Role
	err  error
}

// stubLookup answers lookups from a queue of results. When gate is set each
// lookup waits for a value on it before answering.
type stubLookup struct {
	mu      sync.Mutex
	results []lookupResult
	calls   int
	gate    chan struct{}
}

func (l *stubLookup) LookupRole(ctx context.Context, _ string) (domain.Role, error) {
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if len(l.results) == 0 {
		return "", fmt.Errorf("lookup: %w", domain.ErrTransport)
	}
	r := l.results[0]
	if len(l.results) > 1 {
		l.results = l.results[1:]
	}
	return r.role, r.err
}

func (l *stubLookup) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type feedSub struct {
	pred func(domain.ChangeEvent) bool
	fn   func(domain.ChangeEvent)
}

// stubFeed delivers published events synchronously to matching subscribers.
type stubFeed struct {
	mu   sync.Mutex
	next ports.Token
	subs map[ports.Token]feedSub
}

func newStubFeed() *stubFeed {
	return &stubFeed{subs: make(map[ports.Token]feedSub)}
}

func (f *stubFeed) Subscribe(pred func(domain.ChangeEvent) bool, fn func(domain.ChangeEvent)) ports.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.subs[f.next] = feedSub{pred: pred, fn: fn}
	return f.next
}

func (f *stubFeed) Unsubscribe(token ports.Token) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, token)
}

func (f *stubFeed) Publish(ev domain.ChangeEvent) {
	f.mu.Lock()
	var matched []func(domain.ChangeEvent)
	for _, s := range f.subs {
		if s.pred == nil || s.pred(ev) {
			matched = append(matched, s.fn)
		}
	}
	f.mu.Unlock()
	for _, fn := range matched {
		fn(ev)
	}
}

func (f *stubFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// memStore is an in-memory RecordStore with failure injection.
type memStore struct {
	mu        sync.Mutex
	records   []domain.Record
	seq       int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	listCalls int
	// listGate, when set, blocks List until a value is received.
	listGate chan struct{}

	onChange     func(domain.ChangeEvent)
	subscribed   int
	unsubscribed int
}

func (s *memStore) List(ctx context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	gate := s.listGate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, partial domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	rec := partial.Clone()
	if rec.ID() == "" {
		s.seq++
		rec[domain.FieldID] = fmt.Sprintf("r%d", s.seq)
	}
	s.records = append(s.records, rec)
	return rec.Clone(), nil
}

func (s *memStore) Update(_ context.Context, id string, patch domain.Record) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	for i, r := range s.records {
		if r.ID() == id {
			s.records[i] = r.Merge(patch)
			return s.records[i].Clone(), nil
		}
	}
	return nil, fmt.Errorf("update %s: %w", id, domain.ErrNotFound)
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i, r := range s.records {
		if r.ID() == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) Subscribe(_ context.Context, onChange func(domain.ChangeEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = onChange
	s.subscribed++
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.onChange = nil
			s.unsubscribed++
		})
	}
}

// push simulates a change notification from the backend.
func (s *memStore) push(ev domain.ChangeEvent) {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (s *memStore) seed(records ...domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// stubOpener records which collections it opened.
type stubOpener struct {
	mu     sync.Mutex
	opened []string
	err    error
}

func (o *stubOpener) Open(collection string, _ ports.StoreOptions) (ports.RecordStore, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	o.opened = append(o.opened, collection)
	return &memStore{}, nil
}

// recordingNavigator collects redirects.
type recordingNavigator struct {
	mu        sync.Mutex
	redirects []string
}

func (n *recordingNavigator) Redirect(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, path)
}

func (n *recordingNavigator) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.redirects...)
}
