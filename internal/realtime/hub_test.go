package realtime

import (
	"sync"
	"testing"
	"time"
)

func collect(t *testing.T) (func(int), func() int) {
	t.Helper()
	ch := make(chan int, 64)
	fn := func(v int) { ch <- v }
	next := func() int {
		t.Helper()
		select {
		case v := <-ch:
			return v
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for update")
			return 0
		}
	}
	return fn, next
}

func TestSubscribeDeliversSnapshotThenUpdates(t *testing.T) {
	hub := NewHub[int]()
	fn, next := collect(t)

	cancel := hub.Subscribe("topic", func() (int, bool) { return 1, true }, fn)
	defer cancel()

	if got := next(); got != 1 {
		t.Fatalf("expected initial snapshot 1, got %d", got)
	}

	hub.Publish("topic", 2)
	if got := next(); got != 2 {
		t.Fatalf("expected update 2, got %d", got)
	}
}

func TestPublishReachesOnlyMatchingTopic(t *testing.T) {
	hub := NewHub[int]()
	fn, next := collect(t)

	cancel := hub.Subscribe("a", nil, fn)
	defer cancel()

	hub.Publish("b", 99)
	hub.Publish("a", 7)
	if got := next(); got != 7 {
		t.Fatalf("expected only topic-a update 7, got %d", got)
	}
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	hub := NewHub[int]()

	var mu sync.Mutex
	received := 0
	cancel := hub.Subscribe("topic", nil, func(int) {
		mu.Lock()
		received++
		mu.Unlock()
	})

	cancel()
	cancel() // second call must be a no-op

	if n := hub.SubscriberCount("topic"); n != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", n)
	}

	hub.Publish("topic", 1)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if received != 0 {
		t.Fatalf("expected no deliveries after cancel, got %d", received)
	}
}

func TestCancelSafeConcurrentWithPublish(t *testing.T) {
	hub := NewHub[int]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		cancel := hub.Subscribe("topic", nil, func(int) {})
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				hub.Publish("topic", j)
			}
		}()
		go func() {
			defer wg.Done()
			cancel()
			cancel()
		}()
	}
	wg.Wait()

	if n := hub.SubscriberCount("topic"); n != 0 {
		t.Fatalf("expected all subscribers gone, got %d", n)
	}
}

func TestSlowSubscriberGetsNewestSnapshot(t *testing.T) {
	hub := NewHub[int]()

	release := make(chan struct{})
	got := make(chan int, 64)
	cancel := hub.Subscribe("topic", nil, func(v int) {
		<-release
		got <- v
	})
	defer cancel()

	// Flood well past the inbox capacity while the callback is blocked.
	for i := 1; i <= 100; i++ {
		hub.Publish("topic", i)
	}
	close(release)

	last := 0
	deadline := time.After(2 * time.Second)
	for last != 100 {
		select {
		case last = <-got:
		case <-deadline:
			t.Fatalf("never received newest update, last seen %d", last)
		}
	}
}

func TestUpdatesDeliveredInPublishOrder(t *testing.T) {
	hub := NewHub[int]()
	fn, next := collect(t)

	cancel := hub.Subscribe("topic", nil, fn)
	defer cancel()

	hub.Publish("topic", 1)
	if got := next(); got != 1 {
		t.Fatalf("expected 1 first, got %d", got)
	}
	hub.Publish("topic", 2)
	hub.Publish("topic", 3)

	first := next()
	second := next()
	if first >= second {
		t.Fatalf("expected ascending delivery order, got %d then %d", first, second)
	}
}
