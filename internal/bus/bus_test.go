// ABOUTME: Tests for the fan-out event bus.
// ABOUTME: Covers fan-out equality, unsubscribe semantics, slow-subscriber isolation, concurrency.

package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehq/verse-gateway/internal/event"
)

func makeEvent(userID, content string) event.Event {
	return event.New(event.KindOutput, userID, "c-1", map[string]any{"content": content})
}

func TestBus_AllSubscribersReceiveSameEvent(t *testing.T) {
	b := New(nil)
	defer b.Close()

	subs := make([]*Subscription, 5)
	for i := range subs {
		subs[i] = b.Subscribe()
	}

	evt := makeEvent("u-1", "hello")
	b.Publish(evt)

	for i, sub := range subs {
		select {
		case got := <-sub.Events():
			assert.Equal(t, evt, got, "subscriber %d got a different event value", i)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d timed out", i)
		}
	}
}

func TestBus_PublishWithZeroSubscribersIsNoop(t *testing.T) {
	b := New(nil)
	defer b.Close()

	// Must not block or panic; the bus holds no backlog.
	b.Publish(makeEvent("u-1", "nobody home"))

	sub := b.Subscribe()
	select {
	case got := <-sub.Events():
		t.Fatalf("late subscriber should not receive earlier event, got %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := New(nil)
	defer b.Close()

	sub := b.Subscribe()
	other := b.Subscribe()

	b.Unsubscribe(sub)
	b.Publish(makeEvent("u-1", "after unsubscribe"))

	// Channel is closed on unsubscribe; any read reports closed, not an event.
	_, open := <-sub.Events()
	assert.False(t, open)

	// Re-publishing does not resurrect delivery.
	b.Publish(makeEvent("u-1", "still nothing"))
	_, open = <-sub.Events()
	assert.False(t, open)

	// The remaining subscriber got both events.
	for i := 0; i < 2; i++ {
		select {
		case <-other.Events():
		case <-time.After(time.Second):
			t.Fatalf("remaining subscriber missed event %d", i)
		}
	}
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New(nil)
	defer b.Close()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // second time is a no-op, not a panic
	b.Unsubscribe(nil) // nil handle is a no-op too

	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := newWithTimeout(nil, 10*time.Millisecond)
	defer b.Close()

	slow := b.Subscribe()
	fast := b.Subscribe()

	// Fill the slow subscriber's buffer without draining it.
	for i := 0; i < subscriberBufferSize; i++ {
		b.Publish(makeEvent("u-1", "fill"))
		<-fast.Events()
	}

	done := make(chan struct{})
	go func() {
		b.Publish(makeEvent("u-1", "overflow"))
		close(done)
	}()

	// The fast subscriber still gets the event; Publish returns within the
	// bounded per-subscriber timeout instead of hanging on the slow one.
	select {
	case got := <-fast.Events():
		assert.Equal(t, "overflow", got.Payload["content"])
	case <-time.After(time.Second):
		t.Fatal("fast subscriber blocked behind slow subscriber")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish did not return after per-subscriber timeout")
	}

	_ = slow
}

func TestBus_SubscriberCountReturnsToBaseline(t *testing.T) {
	b := New(nil)
	defer b.Close()

	baseline := b.SubscriberCount()
	for i := 0; i < 20; i++ {
		sub := b.Subscribe()
		b.Publish(makeEvent("u-1", "cycle"))
		b.Unsubscribe(sub)
	}
	assert.Equal(t, baseline, b.SubscriberCount())
}

func TestBus_ConcurrentSubscribeUnsubscribePublish(t *testing.T) {
	b := New(nil)
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				sub := b.Subscribe()
				b.Publish(makeEvent("u-1", "concurrent"))
				b.Unsubscribe(sub)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBus_PerSubscriberOrderPreserved(t *testing.T) {
	b := New(nil)
	defer b.Close()

	sub := b.Subscribe()
	contents := []string{"one", "two", "three", "four"}
	for _, c := range contents {
		b.Publish(makeEvent("u-1", c))
	}

	for _, want := range contents {
		select {
		case got := <-sub.Events():
			require.Equal(t, want, got.Payload["content"])
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for ordered delivery")
		}
	}
}

func TestBus_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := New(nil)
	b.Close()

	sub := b.Subscribe()
	_, open := <-sub.Events()
	assert.False(t, open)
}
