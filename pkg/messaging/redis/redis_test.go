package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker(t *testing.T) *Broker {
	t.Helper()

	srv := miniredis.RunT(t)
	logger := zerolog.Nop()
	broker, err := NewBroker(Config{URL: "redis://" + srv.Addr()}, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })

	return broker.(*Broker)
}

func TestNewBrokerRejectsBadURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewBroker(Config{URL: "not-a-url"}, &logger)
	assert.Error(t, err)
}

func TestNewBrokerRejectsUnreachableServer(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewBroker(Config{URL: "redis://127.0.0.1:1"}, &logger)
	assert.Error(t, err)
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages, err := broker.Subscribe(ctx, "alerts")
	require.NoError(t, err)

	// The subscriber goroutine needs to be attached before publishing.
	time.Sleep(50 * time.Millisecond)

	alert := map[string]string{"flow": "schedule", "record_id": "abc"}
	require.NoError(t, broker.Publish(ctx, "alerts", alert))

	select {
	case raw := <-messages:
		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, alert, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	broker := newTestBroker(t)

	ctx, cancel := context.WithCancel(context.Background())
	messages, err := broker.Subscribe(ctx, "alerts")
	require.NoError(t, err)

	cancel()

	select {
	case _, open := <-messages:
		assert.False(t, open, "channel closes once the subscription ends")
	case <-time.After(2 * time.Second):
		t.Fatal("channel never closed")
	}
}

func TestPublishRefusesUnencodableMessage(t *testing.T) {
	broker := newTestBroker(t)
	err := broker.Publish(context.Background(), "alerts", make(chan int))
	assert.Error(t, err)
}
