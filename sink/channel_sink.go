package sink

import (
	"context"
	"sync"

	"chat-relay/domain/event"
	"chat-relay/errors"
)

// ChannelSink buffers events for one connected client. The transport
// layer drains Events and writes frames; Consume never blocks the relay.
type ChannelSink struct {
	Events chan event.DomainEvent

	closeOnce sync.Once
	closed    chan struct{}
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{
		Events: make(chan event.DomainEvent, bufferSize),
		closed: make(chan struct{}),
	}
}

// Consume is called by the relay. It hands the event to the owning
// connection's channel; if the buffer is full the event is dropped,
// which is the documented at-most-once contract. A closed sink reports
// ErrSessionClosed so the relay can treat the user as offline.
func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.closed:
		return errors.ErrSessionClosed
	default:
	}

	select {
	case s.Events <- e:
		return nil
	case <-s.closed:
		return errors.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Backpressure: the client is too slow, drop instead of blocking.
		return nil
	}
}

// Close makes all future Consume calls fail fast. Idempotent.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
