// Package local implements the single-writer record store persisted as one
// JSON array per collection key under a data directory.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

var validKey = regexp.MustCompile(`^[a-z0-9_]+$`)

// Opener hands out stores rooted at one data directory. Stores opened for the
// same key share a lock so concurrent consumers never interleave writes.
type Opener struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ ports.BackendOpener = (*Opener)(nil)

// NewOpener creates an Opener persisting under dir.
func NewOpener(dir string, log zerolog.Logger) *Opener {
	return &Opener{dir: dir, log: log, locks: make(map[string]*sync.Mutex)}
}

// Open returns the store for collection key.
func (o *Opener) Open(key string, opts ports.StoreOptions) (ports.RecordStore, error) {
	if !validKey.MatchString(key) {
		return nil, fmt.Errorf("local store: invalid collection key %q", key)
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return nil, fmt.Errorf("local store: create data dir: %w", err)
	}

	o.mu.Lock()
	lock, ok := o.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[key] = lock
	}
	o.mu.Unlock()

	return &Store{
		path: filepath.Join(o.dir, key+".json"),
		key:  key,
		opts: opts,
		mu:   lock,
		log:  o.log.With().Str("collection", key).Str("backend", "local").Logger(),
	}, nil
}

// Store is the local backend for one collection. Records keep insertion order.
// Delete of a missing id is a no-op.
type Store struct {
	path string
	key  string
	opts ports.StoreOptions
	mu   *sync.Mutex
	log  zerolog.Logger
}

func (s *Store) List(ctx context.Context) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	owner := s.owner(ctx)
	out := make([]domain.Record, 0, len(all))
	for _, r := range all {
		if s.visible(r, owner) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, partial domain.Record) (domain.Record, error) {
	rec, err := partial.Normalize()
	if err != nil {
		return nil, err
	}
	if rec.ID() == "" {
		rec[domain.FieldID] = uuid.NewString()
	}
	if owner := s.owner(ctx); owner != "" {
		rec[domain.FieldOwner] = owner
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ID() == rec.ID() {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidRecord, rec.ID())
		}
	}
	all = append(all, rec)
	if err := s.write(all); err != nil {
		return nil, err
	}
	s.log.Debug().Str("id", rec.ID()).Msg("record created")
	return rec.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	clean, err := patch.Normalize()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	owner := s.owner(ctx)
	for i, r := range all {
		if r.ID() != id || !s.visible(r, owner) {
			continue
		}
		merged := r.Merge(clean)
		if s.opts.OwnerScoped {
			// The owner attribute is not patchable.
			if v, ok := r[domain.FieldOwner]; ok {
				merged[domain.FieldOwner] = v
			} else {
				delete(merged, domain.FieldOwner)
			}
		}
		all[i] = merged
		if err := s.write(all); err != nil {
			return nil, err
		}
		return merged.Clone(), nil
	}
	return nil, fmt.Errorf("update %s/%s: %w", s.key, id, domain.ErrNotFound)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	owner := s.owner(ctx)
	kept := all[:0]
	removed := false
	for _, r := range all {
		if r.ID() == id && s.visible(r, owner) {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return nil
	}
	return s.write(kept)
}

// Subscribe is a no-op: the local store has a single writer and nothing to observe.
func (s *Store) Subscribe(context.Context, func(domain.ChangeEvent)) func() {
	return func() {}
}

func (s *Store) owner(ctx context.Context) string {
	if !s.opts.OwnerScoped {
		return ""
	}
	return domain.IdentityFromContext(ctx)
}

func (s *Store) visible(r domain.Record, owner string) bool {
	if owner == "" {
		return true
	}
	return r[domain.FieldOwner] == owner
}

func (s *Store) read() ([]domain.Record, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local store: read %s: %w", s.key, err)
	}
	if len(raw) == 0 {
		return []domain.Record{}, nil
	}
	var records []domain.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("local store: decode %s: %w", s.key, err)
	}
	return records, nil
}

func (s *Store) write(records []domain.Record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("local store: encode %s: %w", s.key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), s.key+".*.tmp")
	if err != nil {
		return fmt.Errorf("local store: write %s: %w", s.key, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("local store: write %s: %w", s.key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("local store: write %s: %w", s.key, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("local store: write %s: %w", s.key, err)
	}
	return nil
}
