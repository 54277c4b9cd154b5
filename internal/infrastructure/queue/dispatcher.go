package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

type subscription struct {
	predicate func(domain.ChangeEvent) bool
	onEvent   func(domain.ChangeEvent)
}

// Dispatcher fans change events out to subscribers through a fixed set of
// workers, sharded by event key so events for one collection or identity are
// delivered in publish order.
type Dispatcher struct {
	workers []chan domain.ChangeEvent
	log     zerolog.Logger

	mu   sync.RWMutex
	subs map[ports.Token]subscription
	next ports.Token
}

var (
	_ ports.ChangeFeed          = (*Dispatcher)(nil)
	_ ports.ChangePublisher     = (*Dispatcher)(nil)
	_ ports.RoleChangePublisher = (*Dispatcher)(nil)
)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.ChangeEvent, numWorkers),
		log:     log,
		subs:    make(map[ports.Token]subscription),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ChangeEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Publish sends an event to the worker responsible for its key.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Publish(event domain.ChangeEvent) {
	d.workers[d.shardIndex(event.Key)] <- event
}

// PublishRoleChange announces a role change to subscribers of this process
// only. It is used when no cross-instance notifier is configured.
func (d *Dispatcher) PublishRoleChange(_ context.Context, identity string) error {
	if identity == "" {
		return domain.ErrUnauthenticated
	}
	d.Publish(domain.ChangeEvent{Topic: domain.TopicRoles, Key: identity, Op: domain.OpRole})
	return nil
}

// Subscribe registers onEvent for every published event accepted by predicate.
// A nil predicate accepts everything.
func (d *Dispatcher) Subscribe(predicate func(domain.ChangeEvent) bool, onEvent func(domain.ChangeEvent)) ports.Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.subs[d.next] = subscription{predicate: predicate, onEvent: onEvent}
	return d.next
}

// Unsubscribe removes the subscription. Unknown or already removed tokens are ignored.
func (d *Dispatcher) Unsubscribe(token ports.Token) {
	d.mu.Lock()
	delete(d.subs, token)
	d.mu.Unlock()
}

// Subscribers returns the number of live subscriptions.
func (d *Dispatcher) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// shardIndex maps an event key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(id, event)
		}
	}
}

func (d *Dispatcher) deliver(workerID int, event domain.ChangeEvent) {
	d.mu.RLock()
	matched := make([]ports.Token, 0, len(d.subs))
	for tok, sub := range d.subs {
		if sub.predicate == nil || sub.predicate(event) {
			matched = append(matched, tok)
		}
	}
	d.mu.RUnlock()

	for _, tok := range matched {
		d.mu.RLock()
		sub, live := d.subs[tok]
		d.mu.RUnlock()
		if !live {
			continue
		}
		d.invoke(workerID, sub, event)
	}
}

func (d *Dispatcher) invoke(workerID int, sub subscription, event domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().
				Interface("panic", r).
				Str("topic", string(event.Topic)).
				Str("key", event.Key).
				Int("worker_id", workerID).
				Msg("change subscriber panicked")
		}
	}()
	sub.onEvent(event)
}
