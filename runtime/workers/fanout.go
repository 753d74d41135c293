package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"chat-server/contract"
	"chat-server/domain"
	"chat-server/domain/event"
)

// FanoutWorker pushes newly persisted messages to the live sessions of every
// participant except the sender.
//
// Delivery is best-effort with no guarantees regarding ordering, durability,
// or retries: the store is the source of truth and a missed delivery is
// recovered on the next fetch. A failed or slow recipient never aborts
// fan-out to the remaining recipients and is never surfaced to the sender.
//
// FanoutWorker is safe for concurrent use by multiple goroutines.
type FanoutWorker struct {
	log         *slog.Logger
	presence    contract.IPresence
	events      chan event.DomainEvent
	sinkTimeout time.Duration
}

func NewFanoutWorker(log *slog.Logger, presence contract.IPresence,
	bufferSize int, sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{
		log:         log,
		presence:    presence,
		events:      make(chan event.DomainEvent, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// Dispatch hands an event to the fan-out loop without blocking the caller.
// When the buffer is full the event is dropped; persistence already happened.
func (w *FanoutWorker) Dispatch(evt event.DomainEvent) {
	select {
	case w.events <- evt:
	default:
		w.log.Warn(fmt.Sprintf("Fanout buffer full, dropping event for chat %s", evt.ChatID()))
	}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			if sent, ok := evt.(event.MessageSent); ok {
				w.Publish(ctx, sent)
			}
		}
	}
}

// Publish delivers the message to every live session of each recipient's
// personal room, exactly once per session. The sender's own sessions are
// excluded to avoid echo. An empty or malformed participant list performs no
// deliveries and reports no error.
func (w *FanoutWorker) Publish(ctx context.Context, sent event.MessageSent) {
	sender := sent.Message.SenderID
	for _, participant := range lo.Uniq(sent.Participants) {
		if participant == "" || participant == sender {
			continue
		}
		for _, target := range w.presence.SinksForRoom(domain.UserRoom(participant)) {
			if target.Session.UserID == sender {
				continue
			}
			w.deliver(ctx, target, sent)
		}
	}
}

func (w *FanoutWorker) deliver(ctx context.Context, target contract.SessionSink, sent event.MessageSent) {
	deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := target.Sink.Consume(deliveryCtx, sent); err != nil {
		// Isolated per recipient: the message is already durable.
		w.log.Warn("Delivery failed",
			"session_id", target.Session.ID,
			"user_id", target.Session.UserID,
			"chat_id", sent.Message.ChatID,
			"error", err)
	}
}
