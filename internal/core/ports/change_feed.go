package ports

import "github.com/hotelops/console/internal/core/domain"

// Token identifies a change feed subscription.
type Token uint64

// ChangeFeed is a message-passing channel decoupled from any transport.
type ChangeFeed interface {
	Subscribe(predicate func(domain.ChangeEvent) bool, onEvent func(domain.ChangeEvent)) Token
	// Unsubscribe is idempotent; unknown tokens are ignored.
	Unsubscribe(token Token)
}

// ChangePublisher feeds events into a ChangeFeed.
type ChangePublisher interface {
	Publish(event domain.ChangeEvent)
}
