package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hotelops/console/internal/core/domain"
	"github.com/hotelops/console/internal/core/ports"
)

// RoleChangesChannel carries one message per account whose role changed.
// The payload is the account identity.
const RoleChangesChannel = "role_changes"

// RoleNotifier fans role changes out across server instances.
type RoleNotifier struct {
	client *redis.Client
	log    zerolog.Logger
}

var _ ports.RoleChangePublisher = (*RoleNotifier)(nil)

// NewRoleNotifier creates a RoleNotifier wrapping the given Redis client.
func NewRoleNotifier(client *redis.Client, log zerolog.Logger) *RoleNotifier {
	return &RoleNotifier{client: client, log: log}
}

// PublishRoleChange announces that identity's role changed.
func (n *RoleNotifier) PublishRoleChange(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("publish role change: %w", domain.ErrUnauthenticated)
	}
	if err := n.client.Publish(ctx, RoleChangesChannel, identity).Err(); err != nil {
		return fmt.Errorf("publish role change: %w: %w", domain.ErrTransport, err)
	}
	return nil
}

// Relay forwards every role change onto pub until ctx is cancelled. It blocks,
// so run it in its own goroutine. The returned error is nil on cancellation.
func (n *RoleNotifier) Relay(ctx context.Context, pub ports.ChangePublisher) error {
	sub := n.client.Subscribe(ctx, RoleChangesChannel)
	defer sub.Close()

	// Wait for the subscription to be confirmed so no message is lost.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", RoleChangesChannel, err)
	}
	n.log.Info().Str("channel", RoleChangesChannel).Msg("relaying role changes")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			identity := strings.TrimSpace(msg.Payload)
			if identity == "" {
				n.log.Warn().Msg("empty role change payload skipped")
				continue
			}
			pub.Publish(domain.ChangeEvent{
				Topic: domain.TopicRoles,
				Key:   identity,
				Op:    domain.OpRole,
			})
		}
	}
}
