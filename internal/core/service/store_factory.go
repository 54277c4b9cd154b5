package service

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// StoreOptions describes the consumer asking for a store.
type StoreOptions struct {
	// Title names the consumer. The local collection key is derived from it
	// when no table is given.
	Title string
	// Demo marks unauthenticated demo sessions, which never reach the remote backend.
	Demo        bool
	OwnerScoped bool
	OrderField  string
}

// StoreHandle is a record store tagged with the backend serving it.
type StoreHandle struct {
	ports.RecordStore
	Backend    domain.Backend
	Collection string
}

type handleKey struct {
	backend    domain.Backend
	collection string
}

// StoreFactory binds consumers to a backend. Bindings are memoised per
// backend and collection, so a consumer keeps the backend it was given.
type StoreFactory struct {
	local  ports.BackendOpener
	remote ports.BackendOpener
	log    zerolog.Logger

	mu      sync.Mutex
	handles map[handleKey]StoreHandle
}

// NewStoreFactory creates a factory. remote is nil when no remote connection
// could be constructed from configuration.
func NewStoreFactory(local, remote ports.BackendOpener, log zerolog.Logger) *StoreFactory {
	return &StoreFactory{
		local:   local,
		remote:  remote,
		log:     log,
		handles: make(map[handleKey]StoreHandle),
	}
}

// RemoteAvailable reports whether a remote backend was configured.
func (f *StoreFactory) RemoteAvailable() bool {
	return f.remote != nil
}

// Get returns the store for table. The remote backend is chosen iff table is
// non-empty, a remote backend is configured and the session is not a demo.
// Every other consumer is served locally, keyed by table or by its title.
func (f *StoreFactory) Get(table string, opts StoreOptions) (StoreHandle, error) {
	key := handleKey{backend: domain.BackendLocal, collection: table}
	if table != "" && f.remote != nil && !opts.Demo {
		key.backend = domain.BackendRemote
	}
	if key.collection == "" {
		key.collection = domain.CollectionKey(opts.Title)
	}
	if key.collection == "" {
		return StoreHandle{}, fmt.Errorf("get store: %w: no table or title given", domain.ErrUnknownCollection)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.handles[key]; ok {
		return h, nil
	}

	opener := f.local
	if key.backend == domain.BackendRemote {
		opener = f.remote
	}
	store, err := opener.Open(key.collection, ports.StoreOptions{
		OwnerScoped: opts.OwnerScoped,
		OrderField:  opts.OrderField,
	})
	if err != nil {
		return StoreHandle{}, fmt.Errorf("get store %s: %w", key.collection, err)
	}

	h := StoreHandle{RecordStore: store, Backend: key.backend, Collection: key.collection}
	f.handles[key] = h
	f.log.Debug().Str("collection", h.Collection).Stringer("backend", h.Backend).Msg("store bound")
	return h, nil
}

// ForModule returns the store serving m for a demo or regular session.
func (f *StoreFactory) ForModule(m domain.Module, demo bool) (StoreHandle, error) {
	return f.Get(m.Collection, StoreOptions{
		Title:       m.Title,
		Demo:        demo,
		OwnerScoped: m.OwnerScoped,
		OrderField:  m.OrderField,
	})
}
