// Package realtime implements the push side of the messaging core: a
// topic-keyed publish/subscribe hub that delivers full-snapshot updates to
// subscribers without polling. Topics are opaque strings (the services key
// them by user or by conversation), payloads are whatever snapshot type the
// hub is instantiated with.
package realtime

import (
	"sync"
)

// CancelFunc detaches a subscriber. It is idempotent and safe to call
// concurrently with in-flight deliveries: once it returns, the callback
// will not be invoked again.
type CancelFunc func()

// subscriber owns a buffered inbox drained by a dedicated goroutine, so
// callbacks for one subscriber run sequentially and in publish order.
type subscriber[T any] struct {
	mu     sync.Mutex
	fn     func(T)
	inbox  chan T
	done   chan struct{}
	closed bool
}

func (s *subscriber[T]) deliver(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.fn(v)
	}
}

// offer enqueues v without blocking. Because every update carries a full
// snapshot, a slow subscriber may have its oldest pending update replaced by
// the newest one instead of stalling publishers.
func (s *subscriber[T]) offer(v T) {
	select {
	case s.inbox <- v:
		return
	default:
	}
	select {
	case <-s.inbox:
	default:
	}
	select {
	case s.inbox <- v:
	default:
	}
}

func (s *subscriber[T]) run(load func() (T, bool)) {
	if load != nil {
		if snapshot, ok := load(); ok {
			select {
			case <-s.done:
				return
			default:
				s.deliver(snapshot)
			}
		}
	}
	for {
		select {
		case <-s.done:
			return
		case v := <-s.inbox:
			s.deliver(v)
		}
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	close(s.done)
}

// Hub fans snapshot updates out to per-topic subscribers.
type Hub[T any] struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber[T]]struct{}
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		topics: make(map[string]map[*subscriber[T]]struct{}),
	}
}

// Subscribe registers fn for updates published to topic. If load is non-nil
// it is invoked once, off the caller's goroutine, to produce the initial
// snapshot, which is delivered before any published update. The returned
// CancelFunc detaches the subscriber.
func (h *Hub[T]) Subscribe(topic string, load func() (T, bool), fn func(T)) CancelFunc {
	sub := &subscriber[T]{
		fn:    fn,
		inbox: make(chan T, 8),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber[T]]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	go sub.run(load)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			sub.close()
		})
	}
}

// Publish fans v out to every subscriber of topic. Publishing never blocks.
func (h *Hub[T]) Publish(topic string, v T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.topics[topic] {
		sub.offer(v)
	}
}

// SubscriberCount reports active subscribers on a topic.
func (h *Hub[T]) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
