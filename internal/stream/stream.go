// ABOUTME: Per-connection output streaming: filters bus events by user and emits SSE frames.
// ABOUTME: Guarantees bus unsubscription on every exit path and heartbeats during idle periods.

package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/versehq/verse-gateway/internal/bus"
	"github.com/versehq/verse-gateway/internal/event"
)

// DefaultHeartbeatInterval is used when no interval is configured.
const DefaultHeartbeatInterval = 30 * time.Second

// frameBufferSize is the outgoing frame buffer per connection.
const frameBufferSize = 16

// EventBus is the subset of the bus the manager needs.
type EventBus interface {
	Subscribe() *bus.Subscription
	Unsubscribe(*bus.Subscription)
}

// Manager opens per-connection output streams against the event bus.
// One Stream is created per connected client (one per open SSE connection).
type Manager struct {
	bus       EventBus
	heartbeat time.Duration
	logger    *slog.Logger
}

// NewManager creates a stream manager. A non-positive heartbeat falls back
// to DefaultHeartbeatInterval. Pass nil logger for default.
func NewManager(b EventBus, heartbeat time.Duration, logger *slog.Logger) *Manager {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		bus:       b,
		heartbeat: heartbeat,
		logger:    logger.With("component", "stream"),
	}
}

// Stream is a lazy, non-restartable sequence of serialized SSE frames for
// one connection. The frames channel closes when the stream ends.
type Stream struct {
	frames chan []byte
}

// Frames returns the outgoing frame channel. Each element is one complete
// SSE frame of the form "data: <json>\n\n".
func (s *Stream) Frames() <-chan []byte {
	return s.frames
}

// Open subscribes to the bus on behalf of userID and starts forwarding.
// An Event is forwarded iff its userID matches or its kind is heartbeat;
// everything else is silently dropped for this connection. The first frame
// is always a synthetic connection_established event so the client can
// distinguish "connected" from "no events yet". When ctx is cancelled
// (client disconnect) the bus subscription is released before the stream
// closes — on every exit path.
func (m *Manager) Open(ctx context.Context, userID string) *Stream {
	sub := m.bus.Subscribe()
	st := &Stream{frames: make(chan []byte, frameBufferSize)}

	go m.run(ctx, sub, userID, st)
	return st
}

func (m *Manager) run(ctx context.Context, sub *bus.Subscription, userID string, st *Stream) {
	// Unsubscribing before releasing the stream is the critical
	// resource-safety contract: a missed unsubscribe leaks a phantom
	// delivery target for the bus's lifetime. Deferred LIFO: the
	// subscription is released first, then the frame channel closes.
	defer close(st.frames)
	defer m.bus.Unsubscribe(sub)

	m.logger.Debug("stream opened", "user_id", userID)
	defer m.logger.Debug("stream closed", "user_id", userID)

	established := event.New(event.KindConnectionEstablished, userID, "", nil)
	if !m.emit(ctx, st, established) {
		return
	}

	idle := time.NewTimer(m.heartbeat)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if evt.UserID != userID && evt.Kind != event.KindHeartbeat {
				// Filtered out; the idle timer deliberately does not reset
				// on dropped events, only on actually forwarded ones.
				continue
			}
			if !m.emit(ctx, st, evt) {
				return
			}
			resetTimer(idle, m.heartbeat)

		case <-idle.C:
			hb := event.New(event.KindHeartbeat, "", "", nil)
			if !m.emit(ctx, st, hb) {
				return
			}
			idle.Reset(m.heartbeat)
		}
	}
}

// emit serializes and queues one frame. Returns false when the connection
// is gone and the stream should shut down.
func (m *Manager) emit(ctx context.Context, st *Stream, evt event.Event) bool {
	frame, err := EncodeFrame(evt)
	if err != nil {
		m.logger.Error("failed to encode frame", "error", err, "event_id", evt.ID)
		return true
	}

	select {
	case st.frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

// EncodeFrame serializes an Event as a single SSE frame: "data: <json>\n\n".
func EncodeFrame(evt event.Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshaling event %s: %w", evt.ID, err)
	}
	frame := make([]byte, 0, len(body)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, body...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// resetTimer drains and restarts an idle timer that may have fired.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
