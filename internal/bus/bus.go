// ABOUTME: In-process fan-out event bus decoupling input ingestion from output delivery.
// ABOUTME: Every subscriber receives every event; delivery failures are isolated per subscriber.

package bus

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/versehq/verse-gateway/internal/event"
)

const (
	// subscriberBufferSize is the channel buffer for each subscription.
	subscriberBufferSize = 64

	// defaultSendTimeout bounds how long Publish waits on a single slow
	// subscriber before dropping the event for that subscriber only.
	defaultSendTimeout = time.Second
)

// Subscription is a registered delivery channel. The subscriber owns its
// lifetime and is solely responsible for draining it; the bus keeps only a
// reference used for delivery.
type Subscription struct {
	id string
	ch chan event.Event
}

// Events returns the delivery channel. It is closed on unsubscribe.
func (s *Subscription) Events() <-chan event.Event {
	return s.ch
}

// Bus provides best-effort, non-persistent pub/sub for Events. There is no
// filtering or routing at the bus level: every subscriber receives every
// published event and does its own filtering. Subscriptions are kept in
// registration order so a single Publish offers the event to all
// subscribers in that order.
type Bus struct {
	mu          sync.RWMutex
	subs        []*Subscription
	sendTimeout time.Duration
	logger      *slog.Logger
	closed      bool
}

// New creates a Bus. Pass nil logger for default.
func New(logger *slog.Logger) *Bus {
	return newWithTimeout(logger, defaultSendTimeout)
}

// newWithTimeout exists so tests can exercise the slow-subscriber path
// without waiting out the production timeout.
func newWithTimeout(logger *slog.Logger, sendTimeout time.Duration) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		sendTimeout: sendTimeout,
		logger:      logger.With("component", "bus"),
	}
}

// Subscribe registers a new delivery channel and returns its handle.
// Registration is O(1) and safe against concurrent Publish.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New().String(),
		ch: make(chan event.Event, subscriberBufferSize),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", sub.id)
	return sub
}

// Unsubscribe removes a subscription and closes its channel. It is
// idempotent: unsubscribing twice, or an unknown handle, is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	found := false
	for i, s := range b.subs {
		if s.id == sub.id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			found = true
			break
		}
	}
	b.mu.Unlock()

	if found {
		close(sub.ch)
		b.logger.Debug("subscriber removed", "sub_id", sub.id)
	}
}

// Publish delivers the event to every currently registered subscription in
// registration order. A failed or timed-out delivery to one subscriber
// never prevents delivery to the others and never reaches the caller.
// An event published while zero subscribers are attached is simply dropped;
// the bus holds no backlog.
func (b *Bus) Publish(evt event.Event) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	targets := make([]*Subscription, len(b.subs))
	copy(targets, b.subs)
	b.mu.RUnlock()

	for _, sub := range targets {
		if !b.send(sub, evt) {
			b.logger.Warn("dropped event for slow subscriber",
				"sub_id", sub.id,
				"event_id", evt.ID,
				"kind", evt.Kind)
		}
	}
}

// send attempts one bounded-wait delivery. A send on a channel that was
// closed by a concurrent unsubscribe is recovered and counted as a failed
// delivery rather than crashing the publisher.
func (b *Bus) send(sub *Subscription, evt event.Event) (delivered bool) {
	defer func() {
		if r := recover(); r != nil {
			delivered = false
		}
	}()

	select {
	case sub.ch <- evt:
		return true
	default:
	}

	timer := time.NewTimer(b.sendTimeout)
	defer timer.Stop()

	select {
	case sub.ch <- evt:
		return true
	case <-timer.C:
		return false
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
	b.logger.Debug("bus closed")
}
