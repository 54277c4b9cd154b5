package mongo

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

type watch struct {
	refs   int
	cancel context.CancelFunc
}

// ChangeWatcher runs one change stream per watched collection and publishes
// every change as a domain.ChangeEvent. Streams are reference counted: the
// first Acquire starts a stream, the last Release stops it. A stream that
// fails is not restarted until every holder has released it.
type ChangeWatcher struct {
	ctx context.Context
	db  *mongo.Database
	pub ports.ChangePublisher
	log zerolog.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

// NewChangeWatcher creates a watcher whose streams stop when ctx is cancelled.
func NewChangeWatcher(ctx context.Context, db *mongo.Database, pub ports.ChangePublisher, log zerolog.Logger) *ChangeWatcher {
	return &ChangeWatcher{ctx: ctx, db: db, pub: pub, log: log, watches: make(map[string]*watch)}
}

// Acquire registers interest in collection, starting its stream if needed.
func (w *ChangeWatcher) Acquire(collection string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if wt, ok := w.watches[collection]; ok {
		wt.refs++
		return
	}
	ctx, cancel := context.WithCancel(w.ctx)
	w.watches[collection] = &watch{refs: 1, cancel: cancel}
	go w.run(ctx, collection)
}

// Release drops one registration, stopping the stream with the last one.
func (w *ChangeWatcher) Release(collection string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	wt, ok := w.watches[collection]
	if !ok {
		return
	}
	wt.refs--
	if wt.refs <= 0 {
		wt.cancel()
		delete(w.watches, collection)
	}
}

// Holders returns the number of registrations on collection.
func (w *ChangeWatcher) Holders(collection string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if wt, ok := w.watches[collection]; ok {
		return wt.refs
	}
	return 0
}

type changeDocument struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID any `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
}

func (w *ChangeWatcher) run(ctx context.Context, collection string) {
	log := w.log.With().Str("collection", collection).Logger()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}}}}},
	}
	stream, err := w.db.Collection(collection).Watch(ctx, pipeline,
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		if !errors.Is(ctx.Err(), context.Canceled) {
			log.Error().Err(classify("watch "+collection, err)).Msg("change stream failed to start")
		}
		return
	}
	defer stream.Close(context.Background())

	log.Debug().Msg("change stream started")
	for stream.Next(ctx) {
		var change changeDocument
		if err := stream.Decode(&change); err != nil {
			log.Warn().Err(err).Msg("undecodable change event skipped")
			continue
		}
		w.pub.Publish(toChangeEvent(collection, change))
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		log.Error().Err(classify("watch "+collection, err)).Msg("change stream terminated")
	}
}

func toChangeEvent(collection string, c changeDocument) domain.ChangeEvent {
	ev := domain.ChangeEvent{
		Topic:    domain.TopicRecords,
		Key:      collection,
		RecordID: scalarString(c.DocumentKey.ID),
	}
	switch c.OperationType {
	case "insert":
		ev.Op = domain.OpInsert
	case "delete":
		ev.Op = domain.OpDelete
	default:
		ev.Op = domain.OpUpdate
	}
	if owner, ok := c.FullDocument[domain.FieldOwner].(string); ok {
		ev.Owner = owner
	}
	return ev
}
