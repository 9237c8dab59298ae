package alert

import (
	"context"

	"github.com/carewire/hospital-api/pkg/messaging"
)

const defaultChannel = "alerts.sync_failed"

// BrokerAlerter publishes alerts to the message broker so dashboards and
// on-call tooling can subscribe.
type BrokerAlerter struct {
	broker  messaging.Broker
	channel string
}

func NewBrokerAlerter(broker messaging.Broker, channel string) *BrokerAlerter {
	if channel == "" {
		channel = defaultChannel
	}
	return &BrokerAlerter{broker: broker, channel: channel}
}

func (b *BrokerAlerter) Fire(ctx context.Context, a Alert) error {
	return b.broker.Publish(ctx, b.channel, a)
}
