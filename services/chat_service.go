package services

import (
	"chat-server/domain"
	"chat-server/errors"
	"chat-server/repositories"
)

type IChatService interface {
	AccessChat(userID, otherID string) (domain.Chat, error)
	FetchChats(userID string) ([]domain.Chat, error)
	CreateGroup(adminID, name string, userIDs []string) (domain.Chat, error)
	RenameGroup(chatID, name string) (domain.Chat, error)
	AddToGroup(chatID, userID string) (domain.Chat, error)
	RemoveFromGroup(chatID, userID string) (domain.Chat, error)
}

type ChatService struct {
	chats repositories.IChatRepository
}

func NewChatService(chats repositories.IChatRepository) *ChatService {
	return &ChatService{chats: chats}
}

// AccessChat returns the one-to-one chat between the two users, creating it
// on first contact.
func (s *ChatService) AccessChat(userID, otherID string) (domain.Chat, error) {
	return s.chats.AccessDirect(userID, otherID)
}

func (s *ChatService) FetchChats(userID string) ([]domain.Chat, error) {
	return s.chats.ListForUser(userID)
}

func (s *ChatService) CreateGroup(adminID, name string, userIDs []string) (domain.Chat, error) {
	if len(userIDs) < 2 {
		return domain.Chat{}, errors.ErrGroupTooSmall
	}
	return s.chats.CreateGroup(name, adminID, userIDs)
}

func (s *ChatService) RenameGroup(chatID, name string) (domain.Chat, error) {
	return s.chats.Rename(chatID, name)
}

func (s *ChatService) AddToGroup(chatID, userID string) (domain.Chat, error) {
	return s.chats.AddUser(chatID, userID)
}

func (s *ChatService) RemoveFromGroup(chatID, userID string) (domain.Chat, error) {
	return s.chats.RemoveUser(chatID, userID)
}
