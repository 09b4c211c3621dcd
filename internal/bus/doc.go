// Package bus implements the in-process publish/subscribe event bus.
//
// # Overview
//
// The bus fans every published event out to all current subscribers. Each
// subscriber owns a buffered channel; delivery to one subscriber never
// depends on another. A subscriber that cannot drain its channel within the
// bounded send window has that event dropped, with a log line, rather than
// stalling the publisher.
//
// # Usage
//
//	b := bus.New(logger)
//	sub := b.Subscribe()
//	defer b.Unsubscribe(sub)
//
//	for evt := range sub.Events() {
//	    // handle evt
//	}
//
// Publish never returns an error and never blocks indefinitely:
//
//	b.Publish(event.New(event.KindOutput, userID, convID, payload))
//
// Unsubscribe is idempotent and closes the subscription's channel, ending
// any range loop over Events().
package bus
