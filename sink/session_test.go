package sink

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-server/domain"
	"chat-server/domain/event"
)

func sent(content string) event.MessageSent {
	return event.MessageSent{
		Message: domain.Message{
			ID:      uuid.New(),
			ChatID:  "chat-1",
			Content: content,
		},
	}
}

func TestSessionSink_Buffers_Events_In_Order(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(4)

	// When two events are consumed
	req.NoError(s.Consume(context.Background(), sent("first")))
	req.NoError(s.Consume(context.Background(), sent("second")))

	// Then the write pump drains them in order
	first := (<-s.Events).(event.MessageSent)
	second := (<-s.Events).(event.MessageSent)
	req.Equal("first", first.Message.Content)
	req.Equal("second", second.Message.Content)
}

func TestSessionSink_Drops_When_Buffer_Is_Full(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(1)

	// Given a full buffer behind a slow consumer
	req.NoError(s.Consume(context.Background(), sent("kept")))

	// When the next event arrives
	// Then it is dropped silently instead of blocking the broadcaster
	done := make(chan error, 1)
	go func() {
		done <- s.Consume(context.Background(), sent("dropped"))
	}()
	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("Consume blocked on a full buffer")
	}

	kept := (<-s.Events).(event.MessageSent)
	req.Equal("kept", kept.Message.Content)
	req.Empty(s.Events)
}

func TestSessionSink_Abandoned_Sink_Still_Accepts_Events(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(1)

	// A disconnected session's sink is dropped from the registry, never
	// closed, so a broadcaster holding a stale snapshot can still deliver
	// into it without panicking
	req.NoError(s.Consume(context.Background(), sent("late")))
	req.NoError(s.Consume(context.Background(), sent("overflow")))
}
