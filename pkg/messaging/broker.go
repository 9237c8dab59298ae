package messaging

import "context"

// Broker publishes operational events, e.g. sync-failure alerts for
// operators.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
