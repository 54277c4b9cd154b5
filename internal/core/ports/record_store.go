package ports

import (
	"context"

	"github.com/hotelops/console/internal/core/domain"
)

// RecordStore is the contract every backend implements.
type RecordStore interface {
	// List returns every visible record. Remote backends order most-recent-first
	// by the ordering field with id as tie-break; local backends keep insertion order.
	List(ctx context.Context) ([]domain.Record, error)
	// Create assigns an id when missing and stamps the owner for owner-scoped collections.
	Create(ctx context.Context, partial domain.Record) (domain.Record, error)
	// Update merges patch onto the record with the given id. Fails with
	// domain.ErrNotFound when the id is absent or excluded by the owner filter.
	Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id string) error
	// Subscribe registers onChange for pushed changes. ctx supplies the identity
	// for owner-scoped filtering; the subscription ends when ctx is done or the
	// returned function is called. The function is safe to call any number of times.
	Subscribe(ctx context.Context, onChange func(domain.ChangeEvent)) (unsubscribe func())
}

// StoreOptions configures a backend for one collection.
type StoreOptions struct {
	OwnerScoped bool
	OrderField  string
}

// BackendOpener constructs a record store for a collection.
type BackendOpener interface {
	Open(collection string, opts StoreOptions) (RecordStore, error)
}
