package sink

import (
	"context"

	"chat-server/domain/event"
)

// SessionSink buffers events for one live connection.
// The transport layer (WebSocket write pump) drains Events at its own pace.
//
// A sink is never closed. On disconnect the registry drops its reference
// during LeaveAll and the channel is abandoned to the garbage collector;
// closing it would race with an in-flight Consume from the broadcaster.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the broadcaster during fan-out.
// When the buffer is full the event is dropped: the message is already
// persisted, so a slow consumer recovers it on the next fetch instead of
// blocking the sender.
func (s *SessionSink) Consume(_ context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
	default:
	}
	return nil
}
