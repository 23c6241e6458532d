package mqtt

import (
	"context"
	"errors"
	"testing"
)

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "train state", got: topics.TrainState(21), want: "railyard/state/train/21"},
		{name: "switch state", got: topics.SwitchState(1), want: "railyard/state/switch/1"},
		{name: "all states", got: topics.AllStates(), want: "railyard/state/#"},
		{name: "all trains", got: topics.AllTrainStates(), want: "railyard/state/train/+"},
		{name: "all switches", got: topics.AllSwitchStates(), want: "railyard/state/switch/+"},
		{name: "system status", got: topics.SystemStatus(), want: "railyard/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Publish("", []byte("x"), 0, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("railyard/state/train/1", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}

	big := make([]byte, maxPayloadSize+1)
	if err := c.Publish("railyard/state/train/1", big, 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("oversize payload error = %v, want ErrPublishFailed", err)
	}

	// Disconnected client refuses to publish.
	if err := c.Publish("railyard/state/train/1", []byte("x"), 0, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscribe_Validation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	if err := c.Subscribe("", 0, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("railyard/state/#", 5, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("bad qos error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("railyard/state/#", 0, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("nil handler error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("railyard/state/#", 0, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if c.SubscriptionCount() != 0 {
		t.Errorf("count = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("railyard/state/#") {
		t.Error("unexpected subscription")
	}

	c.subscriptions["railyard/state/#"] = subscription{topic: "railyard/state/#"}
	if c.SubscriptionCount() != 1 {
		t.Errorf("count = %d, want 1", c.SubscriptionCount())
	}
	if !c.HasSubscription("railyard/state/#") {
		t.Error("subscription not tracked")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v, want nil", err)
	}
}
