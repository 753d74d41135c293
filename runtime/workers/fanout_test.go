package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-server/domain"
	"chat-server/domain/event"
	"chat-server/runtime"
)

type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
	err    error
}

func (s *recordingSink) Consume(ctx context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func messageSent(sender string, participants ...string) event.MessageSent {
	now := time.Now().UTC()
	return event.MessageSent{
		Message: domain.Message{
			ID:        uuid.New(),
			ChatID:    "chat-1",
			SenderID:  sender,
			Content:   "hello there",
			CreatedAt: now,
			UpdatedAt: now,
		},
		Participants: participants,
	}
}

func connect(registry *runtime.Registry, userID string) *recordingSink {
	sink := &recordingSink{}
	registry.Connect(domain.Session{ID: uuid.NewString(), UserID: userID}, sink)
	return sink
}

func TestFanout_Delivers_Once_Per_Session_Excluding_Sender(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)

	// Given a 3-person conversation where the sender holds two sessions
	senderLaptop := connect(registry, "alice")
	senderPhone := connect(registry, "alice")
	bob := connect(registry, "bob")
	clara := connect(registry, "clara")

	// When alice's message is published
	worker.Publish(context.Background(), messageSent("alice", "alice", "bob", "clara"))

	// Then each recipient session got exactly one delivery
	req.Equal(1, bob.count())
	req.Equal(1, clara.count())

	// And the sender's two sessions got zero
	req.Equal(0, senderLaptop.count())
	req.Equal(0, senderPhone.count())
}

func TestFanout_Multi_Device_Recipient_Gets_One_Per_Session(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)

	bobLaptop := connect(registry, "bob")
	bobPhone := connect(registry, "bob")

	// When a message targets bob, connected twice
	worker.Publish(context.Background(), messageSent("alice", "alice", "bob"))

	// Then both of bob's sessions received it once each
	req.Equal(1, bobLaptop.count())
	req.Equal(1, bobPhone.count())
}

func TestFanout_Duplicate_Participants_Deliver_Once(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)

	bob := connect(registry, "bob")

	// When the participant list repeats a recipient
	worker.Publish(context.Background(), messageSent("alice", "bob", "bob", "bob"))

	// Then the recipient still gets a single delivery
	req.Equal(1, bob.count())
}

func TestFanout_Empty_Participants_Is_Silent(t *testing.T) {
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)
	connect(registry, "bob")

	// When the participant list is empty or malformed
	// Then no delivery happens and no error is reported
	worker.Publish(context.Background(), messageSent("alice"))
	worker.Publish(context.Background(), messageSent("alice", "", "alice"))
}

func TestFanout_Disconnected_User_Gets_Nothing(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)

	bob := connect(registry, "bob")
	clara := connect(registry, "clara")

	// Given bob disconnects right before the publish
	registry.LeaveAll(sessionIDOf(registry, "bob"))

	// When the message goes out
	worker.Publish(context.Background(), messageSent("alice", "bob", "clara"))

	// Then bob receives nothing and clara is unaffected
	req.Equal(0, bob.count())
	req.Equal(1, clara.count())
}

func TestFanout_Failing_Sink_Does_Not_Abort_Others(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)

	broken := &recordingSink{err: fmt.Errorf("transport gone")}
	registry.Connect(domain.Session{ID: uuid.NewString(), UserID: "bob"}, broken)
	clara := connect(registry, "clara")

	// When one recipient's transport fails
	worker.Publish(context.Background(), messageSent("alice", "bob", "clara"))

	// Then the remaining recipients still get their delivery
	req.Equal(1, clara.count())
}

func TestFanout_Run_Consumes_Dispatched_Events(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewRegistry()
	worker := NewFanoutWorker(slog.Default(), registry, 16, time.Second)
	bob := connect(registry, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = worker.Run(ctx)
		close(done)
	}()

	// When an event is dispatched asynchronously
	worker.Dispatch(messageSent("alice", "bob"))

	req.Eventually(func() bool {
		return bob.count() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Fanout worker did not stop on context cancellation")
	}
}

// sessionIDOf finds the single live session of a user through the registry.
func sessionIDOf(registry *runtime.Registry, userID string) string {
	sinks := registry.SinksForRoom(domain.UserRoom(userID))
	if len(sinks) != 1 {
		return ""
	}
	return sinks[0].Session.ID
}
