package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier broadcasts small messages to every instance over Redis pub/sub.
// Without a client publishing is a no-op and Listen returns immediately.
type Notifier struct {
	client *redis.Client
	logger *zap.Logger
}

// NewNotifier creates a notifier. client may be nil.
func NewNotifier(client *redis.Client, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: client, logger: logger}
}

// Enabled reports whether messages actually leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.client != nil
}

// Publish sends payload on channel.
func (n *Notifier) Publish(ctx context.Context, channel, payload string) error {
	if !n.Enabled() {
		return nil
	}
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

// Listen calls handle for every message on channel until ctx is done.
func (n *Notifier) Listen(ctx context.Context, channel string, handle func(context.Context, string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	n.logger.Info("listening for notifications", zap.String("channel", channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handle(ctx, msg.Payload)
		}
	}
}
