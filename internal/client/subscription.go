package client

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is a pushed message routed to this client's principal.
type Event struct {
	ID      string
	Origin  string
	Payload json.RawMessage
}

// Subscription pairs an event id with its callback.
type Subscription struct {
	EventID  string
	Callback func(Event)
}

// subscriptions fans inbound events out to every matching callback on a
// dedicated goroutine, so slow callbacks never stall the receive loop.
type subscriptions struct {
	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64

	queue  chan Event
	done   chan struct{}
	logger *slog.Logger
}

func newSubscriptions(buffer int, logger *slog.Logger) *subscriptions {
	s := &subscriptions{
		subs:   make(map[uint64]*Subscription),
		queue:  make(chan Event, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run()
	return s
}

func (s *subscriptions) add(sub *Subscription) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// publish queues ev. When the queue is full the event is dropped.
func (s *subscriptions) publish(ev Event) {
	select {
	case s.queue <- ev:
	default:
		s.logger.Warn("event queue full, dropping event", "event_id", ev.ID, "origin", ev.Origin)
	}
}

func (s *subscriptions) run() {
	defer close(s.done)
	for ev := range s.queue {
		for _, sub := range s.matching(ev.ID) {
			s.invoke(sub, ev)
		}
	}
}

func (s *subscriptions) matching(eventID string) []*Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Subscription
	for _, sub := range s.subs {
		if sub.EventID == eventID {
			out = append(out, sub)
		}
	}
	return out
}

func (s *subscriptions) invoke(sub *Subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event callback panicked", "event_id", ev.ID, "panic", r)
		}
	}()
	sub.Callback(ev)
}

// close stops accepting events and waits for queued ones to be handled.
func (s *subscriptions) close() {
	close(s.queue)
	<-s.done
}
