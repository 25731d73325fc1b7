package realtime

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Broker fans change events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Subscription delivers events on C until it is closed or its transport
// fails, at which point C is closed.
type Subscription struct {
	C <-chan Event

	once sync.Once
	stop func()
}

func newSubscription(c <-chan Event, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

type subscriber struct {
	ch chan Event
}

// LocalBroker is an in-process broker. A slow subscriber loses its oldest
// buffered events rather than blocking publishers, so the newest record
// always reaches it.
type LocalBroker struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

// NewLocalBroker creates an empty broker.
func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subscribers: make(map[*subscriber]struct{})}
}

// Subscribe registers a new subscriber.
func (b *LocalBroker) Subscribe(ctx context.Context) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &subscriber{ch: make(chan Event, subscriberBuffer)}
	b.mu.Lock()
	b.subscribers[s] = struct{}{}
	b.mu.Unlock()
	return newSubscription(s.ch, func() { b.unregister(s) }), nil
}

func (b *LocalBroker) unregister(s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subscribers[s]; ok {
		delete(b.subscribers, s)
		close(s.ch)
	}
	b.mu.Unlock()
}

// Publish delivers ev to every subscriber. Publishers are serialized so that
// only the subscriber's own reader can race with the eviction below.
func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subscribers {
		s.offer(ev)
	}
	return nil
}

// offer enqueues ev, evicting the oldest buffered event while full.
func (s *subscriber) offer(ev Event) {
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Count returns the number of live subscribers.
func (b *LocalBroker) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
