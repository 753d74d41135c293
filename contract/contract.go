//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-server/domain"
	"chat-server/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one delivery endpoint for domain events, typically the
// outbound side of a live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// SessionSink pairs a sink with the session that owns it, so the broadcaster
// can exclude every session of the sender.
type SessionSink struct {
	Session domain.Session
	Sink    EventSink
}

// IBroadcaster accepts a persisted-message event for asynchronous fan-out.
// Dispatch never blocks and never reports delivery failures to the caller.
type IBroadcaster interface {
	Dispatch(evt event.DomainEvent)
}

// IPresence tracks which sessions are listening to which rooms.
// Operations never fail observably: joining an unknown room or leaving an
// unregistered session is a no-op.
type IPresence interface {
	Connect(session domain.Session, sink EventSink)
	JoinRoom(sessionID string, room domain.Room)
	LeaveAll(sessionID string)
	SinksForRoom(room domain.Room) []SessionSink
}
