package mongo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

const (
	fieldMongoID   = "_id"
	fieldCreatedAt = "created_at"

	// Fixed width so lexical order equals chronological order.
	createdAtLayout = "2006-01-02T15:04:05.000000Z"
)

// RecordOpener opens remote record stores on one database.
type RecordOpener struct {
	db      *mongo.Database
	feed    ports.ChangeFeed
	watcher *ChangeWatcher
	log     zerolog.Logger
}

var _ ports.BackendOpener = (*RecordOpener)(nil)

// NewRecordOpener wires remote stores to the change feed fed by watcher.
func NewRecordOpener(db *mongo.Database, feed ports.ChangeFeed, watcher *ChangeWatcher, log zerolog.Logger) *RecordOpener {
	return &RecordOpener{db: db, feed: feed, watcher: watcher, log: log}
}

// Open returns the remote store for the collection. It does not contact the server.
func (o *RecordOpener) Open(collection string, opts ports.StoreOptions) (ports.RecordStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("remote store: collection name required")
	}
	return &RecordStore{
		name:    collection,
		col:     o.db.Collection(collection),
		db:      o.db,
		opts:    opts,
		feed:    o.feed,
		watcher: o.watcher,
		now:     time.Now,
		log:     o.log.With().Str("collection", collection).Str("backend", "remote").Logger(),
	}, nil
}

// RecordStore is the remote backend for one collection. Lists are ordered
// most-recent-first by the ordering field, ties and records lacking the field
// fall back to id order. Delete of a missing id fails with domain.ErrNotFound.
type RecordStore struct {
	name    string
	col     *mongo.Collection
	db      *mongo.Database
	opts    ports.StoreOptions
	feed    ports.ChangeFeed
	watcher *ChangeWatcher
	now     func() time.Time
	log     zerolog.Logger

	exists atomic.Bool
}

func (s *RecordStore) List(ctx context.Context) ([]domain.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	sort := bson.D{{Key: fieldMongoID, Value: 1}}
	if s.opts.OrderField != "" {
		sort = bson.D{{Key: s.opts.OrderField, Value: -1}, {Key: fieldMongoID, Value: 1}}
	}

	cur, err := s.col.Find(ctx, s.ownerFilter(ctx, bson.M{}), options.Find().SetSort(sort))
	if err != nil {
		return nil, classify("list "+s.name, err)
	}
	defer cur.Close(ctx)

	out := []domain.Record{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, classify("list "+s.name, err)
		}
		out = append(out, fromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, classify("list "+s.name, err)
	}
	return out, nil
}

func (s *RecordStore) Create(ctx context.Context, partial domain.Record) (domain.Record, error) {
	rec, err := partial.Normalize()
	if err != nil {
		return nil, err
	}
	if rec.ID() == "" {
		rec[domain.FieldID] = uuid.NewString()
	}
	if _, ok := rec[fieldCreatedAt]; !ok {
		rec[fieldCreatedAt] = s.now().UTC().Format(createdAtLayout)
	}
	if owner := s.owner(ctx); owner != "" {
		rec[domain.FieldOwner] = owner
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if _, err := s.col.InsertOne(ctx, toDocument(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidRecord, rec.ID())
		}
		return nil, classify("create "+s.name, err)
	}
	return rec, nil
}

func (s *RecordStore) Update(ctx context.Context, id string, patch domain.Record) (domain.Record, error) {
	clean, err := patch.Normalize()
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	for k, v := range clean {
		if k == domain.FieldID || k == fieldMongoID || (s.opts.OwnerScoped && k == domain.FieldOwner) {
			continue
		}
		set[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	filter := s.ownerFilter(ctx, bson.M{fieldMongoID: id})
	var doc bson.M
	if len(set) == 0 {
		err = s.col.FindOne(ctx, filter).Decode(&doc)
	} else {
		err = s.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("update %s/%s", s.name, id), err)
	}
	return fromDocument(doc), nil
}

func (s *RecordStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := s.ensureCollection(ctx); err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, s.ownerFilter(ctx, bson.M{fieldMongoID: id}))
	if err != nil {
		return classify(fmt.Sprintf("delete %s/%s", s.name, id), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete %s/%s: %w", s.name, id, domain.ErrNotFound)
	}
	return nil
}

// Subscribe registers onChange on the collection's change feed, narrowed to the
// caller's records for owner-scoped collections.
func (s *RecordStore) Subscribe(ctx context.Context, onChange func(domain.ChangeEvent)) func() {
	owner := s.owner(ctx)
	token := s.feed.Subscribe(func(ev domain.ChangeEvent) bool {
		if ev.Topic != domain.TopicRecords || ev.Key != s.name {
			return false
		}
		// Deletes carry no document, so they cannot be narrowed by owner.
		return owner == "" || ev.Owner == "" || ev.Owner == owner
	}, onChange)
	s.watcher.Acquire(s.name)

	var once sync.Once
	done := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			s.feed.Unsubscribe(token)
			s.watcher.Release(s.name)
			close(done)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-done:
		}
	}()
	return unsubscribe
}

// ensureCollection reports domain.ErrSchemaMissing for collections that were
// never provisioned. A positive answer is cached.
func (s *RecordStore) ensureCollection(ctx context.Context) error {
	if s.exists.Load() {
		return nil
	}
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: s.name}})
	if err != nil {
		return classify("inspect "+s.name, err)
	}
	if len(names) == 0 {
		return fmt.Errorf("collection %s: %w", s.name, domain.ErrSchemaMissing)
	}
	s.exists.Store(true)
	return nil
}

func (s *RecordStore) owner(ctx context.Context) string {
	if !s.opts.OwnerScoped {
		return ""
	}
	return domain.IdentityFromContext(ctx)
}

func (s *RecordStore) ownerFilter(ctx context.Context, filter bson.M) bson.M {
	if owner := s.owner(ctx); owner != "" {
		filter[domain.FieldOwner] = owner
	}
	return filter
}

func toDocument(r domain.Record) bson.M {
	doc := bson.M{}
	for k, v := range r {
		if k == domain.FieldID {
			doc[fieldMongoID] = v
			continue
		}
		doc[k] = v
	}
	return doc
}

func fromDocument(doc bson.M) domain.Record {
	rec := domain.Record{}
	for k, v := range doc {
		if k == fieldMongoID {
			rec[domain.FieldID] = scalarString(v)
			continue
		}
		rec[k] = scalar(v)
	}
	return rec
}

// scalar folds BSON values into the record value set.
func scalar(v any) any {
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(createdAtLayout)
	case primitive.Decimal128:
		return x.String()
	}
	if nv, err := domain.NormalizeValue(v); err == nil {
		return nv
	}
	return fmt.Sprint(v)
}

func scalarString(v any) string {
	if s, ok := scalar(v).(string); ok {
		return s
	}
	return fmt.Sprint(scalar(v))
}
