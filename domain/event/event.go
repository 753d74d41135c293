package event

import (
	"chat-server/domain"
)

type DomainEvent interface {
	ChatID() string
}

// MessageSent is emitted after a message has been durably persisted.
// Participants is the sender-supplied participant list of the conversation;
// the broadcaster targets their personal rooms and skips the sender.
type MessageSent struct {
	Message      domain.Message
	Participants []string
}

func (m MessageSent) ChatID() string {
	return m.Message.ChatID
}
