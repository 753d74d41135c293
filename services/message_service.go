package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-server/contract"
	"chat-server/domain"
	"chat-server/domain/event"
	"chat-server/errors"
	"chat-server/repositories"
)

type IMessageService interface {
	Send(senderID, chatID, content, fileURL string) (domain.Message, error)
	List(chatID string, cursor *string) ([]domain.Message, *string, error)
}

// MessageService owns the hot path of a message: persist, update the chat's
// latest-message pointer, then hand the event to the broadcaster. Fan-out is
// asynchronous; by the time Send returns, the message is durable.
type MessageService struct {
	messages    repositories.IMessageRepository
	chats       repositories.IChatRepository
	broadcaster contract.IBroadcaster
}

func NewMessageService(messages repositories.IMessageRepository,
	chats repositories.IChatRepository, broadcaster contract.IBroadcaster) *MessageService {
	return &MessageService{messages: messages, chats: chats, broadcaster: broadcaster}
}

func (s *MessageService) Send(senderID, chatID, content, fileURL string) (domain.Message, error) {
	chat, err := s.chats.GetChat(chatID)
	if err != nil {
		return domain.Message{}, err
	}
	if !chat.HasUser(senderID) {
		return domain.Message{}, errors.ErrNotChatMember
	}

	now := time.Now().UTC()
	message := domain.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		FileURL:   fileURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.messages.StoreMessage(toDiskMessage(message)); err != nil {
		return domain.Message{}, err
	}
	if err := s.chats.SetLatestMessage(chatID, message.ID.String()); err != nil {
		return domain.Message{}, err
	}

	// notifyNewMessage: the message is durable, fan-out may now happen.
	// The chat's membership is the participant list; the broadcaster skips
	// the sender itself.
	s.broadcaster.Dispatch(event.MessageSent{
		Message:      message,
		Participants: chat.Users,
	})
	return message, nil
}

func (s *MessageService) List(chatID string, cursor *string) ([]domain.Message, *string, error) {
	diskMessages, next, err := s.messages.GetMessages(chatID, cursor)
	if err != nil {
		return nil, nil, err
	}
	return fromDiskMessages(diskMessages), next, nil
}

func toDiskMessage(message domain.Message) repositories.DiskMessage {
	return repositories.DiskMessage{
		ID:        message.ID,
		ChatID:    message.ChatID,
		Sender:    message.SenderID,
		Content:   message.Content,
		FileURL:   message.FileURL,
		At:        message.CreatedAt,
		UpdatedAt: message.UpdatedAt,
	}
}

func fromDiskMessages(messages []repositories.DiskMessage) []domain.Message {
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        item.ID,
			ChatID:    item.ChatID,
			SenderID:  item.Sender,
			Content:   item.Content,
			FileURL:   item.FileURL,
			CreatedAt: item.At,
			UpdatedAt: item.UpdatedAt,
		}
	})
}
