package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestLocalBrokerFanOut(t *testing.T) {
	b := NewLocalBroker()
	ctx := context.Background()

	s1, _ := b.Subscribe(ctx)
	s2, _ := b.Subscribe(ctx)
	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	ev, err := NewEvent(Update, map[string]any{"id": "r1"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if err := b.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, sub := range []*Subscription{s1, s2} {
		got := receive(t, sub)
		if got.Type != Update || string(got.New) != `{"id":"r1"}` {
			t.Fatalf("unexpected event %+v", got)
		}
	}

	s1.Close()
	s1.Close() // should not panic
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after close, got %d", b.Count())
	}
	if _, ok := <-s1.C; ok {
		t.Fatal("closed subscription should have a closed channel")
	}
	s2.Close()
}

func TestLocalBrokerKeepsNewestForSlowSubscriber(t *testing.T) {
	b := NewLocalBroker()
	sub, _ := b.Subscribe(context.Background())
	defer sub.Close()

	total := subscriberBuffer + 4
	for i := range total {
		ev, _ := NewEvent(Update, map[string]string{"id": strconv.Itoa(i)})
		_ = b.Publish(context.Background(), ev)
	}
	if len(sub.C) != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", len(sub.C), subscriberBuffer)
	}

	var last Event
	for range subscriberBuffer {
		last = <-sub.C
	}
	var rec struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(last.New, &rec); err != nil {
		t.Fatalf("decode last event: %v", err)
	}
	if want := strconv.Itoa(total - 1); rec.ID != want {
		t.Fatalf("last delivered id = %q, want %q", rec.ID, want)
	}
}

func TestLocalBrokerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocalBroker().Subscribe(ctx); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestLocalBrokerConcurrent(t *testing.T) {
	b := NewLocalBroker()
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, _ := b.Subscribe(context.Background())
			_ = b.Publish(context.Background(), Event{Type: Insert})
			sub.Close()
		}()
	}
	wg.Wait()
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestEventJSON(t *testing.T) {
	ev, _ := NewEvent(Delete, nil)
	encoded, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `{"eventType":"DELETE","new":null}` {
		t.Fatalf("encoded = %s", encoded)
	}
	if ev.HasRecord() {
		t.Fatal("nil record should not count as a record")
	}

	var decoded Event
	if err := json.Unmarshal([]byte(`{"eventType":"UPDATE","new":{"data":[]}}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != Update || !decoded.HasRecord() {
		t.Fatalf("decoded = %+v", decoded)
	}
}
