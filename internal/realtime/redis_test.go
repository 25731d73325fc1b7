package realtime

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisBroker, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	broker, err := NewRedisBroker("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis broker: %v", err)
	}
	return broker, s
}

func TestNewRedisBrokerBadURL(t *testing.T) {
	if _, err := NewRedisBroker("not-a-url"); err == nil {
		t.Fatal("expected error for invalid url")
	}
}

func TestRedisBrokerPublishSubscribe(t *testing.T) {
	broker, _ := setupTestRedis(t)
	defer broker.Close()

	ctx := context.Background()
	if err := broker.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	sub, err := broker.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	ev, _ := NewEvent(Update, map[string]any{"id": "rec-1", "data": [][]string{{"A"}}})
	if err := broker.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got := receive(t, sub)
	if got.Type != Update {
		t.Fatalf("type = %s", got.Type)
	}
	if string(got.New) != `{"data":[["A"]],"id":"rec-1"}` {
		t.Fatalf("payload = %s", got.New)
	}
}

func TestRedisBrokerCloseEndsSubscription(t *testing.T) {
	broker, _ := setupTestRedis(t)
	defer broker.Close()

	sub, err := broker.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	sub.Close()
	for range sub.C {
	}
}

func TestRedisBrokerWithChannel(t *testing.T) {
	broker, mr := setupTestRedis(t)
	defer broker.Close()
	broker.WithChannel("custom:changes").WithChannel("")

	ctx := context.Background()
	sub, err := broker.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if n := mr.Publish(DefaultChannel, `{"eventType":"UPDATE","new":null}`); n != 0 {
		t.Fatalf("default channel has %d subscribers", n)
	}
	ev, _ := NewEvent(Insert, map[string]string{"id": "r"})
	if err := broker.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := receive(t, sub); got.Type != Insert {
		t.Fatalf("type = %s", got.Type)
	}
}
