package services

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-server/domain"
	"chat-server/domain/event"
	"chat-server/errors"
	"chat-server/repositories"
)

type fakeMessageRepo struct {
	stored []repositories.DiskMessage
	err    error
}

func (f *fakeMessageRepo) StoreMessage(m repositories.DiskMessage) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, m)
	return nil
}

func (f *fakeMessageRepo) GetMessages(chatID string, cursor *string) ([]repositories.DiskMessage, *string, error) {
	var out []repositories.DiskMessage
	for _, m := range f.stored {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil, nil
}

func (f *fakeMessageRepo) CountPerChat() (map[string]int, error) { return nil, nil }

func (f *fakeMessageRepo) FindArchivable(string, time.Time, int) ([]repositories.DiskMessage, error) {
	return nil, nil
}

func (f *fakeMessageRepo) DeleteMessage(repositories.DiskMessage) error { return nil }

type fakeChatRepo struct {
	chats  map[string]domain.Chat
	latest map[string]string
}

func newFakeChatRepo(chats ...domain.Chat) *fakeChatRepo {
	repo := &fakeChatRepo{chats: map[string]domain.Chat{}, latest: map[string]string{}}
	for _, chat := range chats {
		repo.chats[chat.ID] = chat
	}
	return repo
}

func (f *fakeChatRepo) GetChat(chatID string) (domain.Chat, error) {
	chat, ok := f.chats[chatID]
	if !ok {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	return chat, nil
}

func (f *fakeChatRepo) SetLatestMessage(chatID, messageID string) error {
	f.latest[chatID] = messageID
	return nil
}

func (f *fakeChatRepo) AccessDirect(userID, otherID string) (domain.Chat, error) {
	return domain.Chat{}, nil
}

func (f *fakeChatRepo) CreateGroup(name, adminID string, userIDs []string) (domain.Chat, error) {
	return domain.Chat{}, nil
}

func (f *fakeChatRepo) ListForUser(string) ([]domain.Chat, error)      { return nil, nil }
func (f *fakeChatRepo) Rename(string, string) (domain.Chat, error)     { return domain.Chat{}, nil }
func (f *fakeChatRepo) AddUser(string, string) (domain.Chat, error)    { return domain.Chat{}, nil }
func (f *fakeChatRepo) RemoveUser(string, string) (domain.Chat, error) { return domain.Chat{}, nil }

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (f *fakeBroadcaster) Dispatch(e event.DomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeBroadcaster) dispatched() []event.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

func teamChat() domain.Chat {
	return domain.Chat{
		ID:      uuid.NewString(),
		Name:    "team",
		IsGroup: true,
		Users:   []string{"alice", "bob", "clara"},
		Admin:   "alice",
	}
}

func TestMessageService_Send_Persists_Before_Fanout(t *testing.T) {
	req := require.New(t)
	chat := teamChat()
	messages := &fakeMessageRepo{}
	chats := newFakeChatRepo(chat)
	broadcaster := &fakeBroadcaster{}
	service := NewMessageService(messages, chats, broadcaster)

	// When a member sends a message
	message, err := service.Send("alice", chat.ID, "hello team", "")
	req.NoError(err)

	// Then it is stored with the sender and content intact
	req.Len(messages.stored, 1)
	req.Equal("alice", messages.stored[0].Sender)
	req.Equal("hello team", messages.stored[0].Content)

	// And the chat's latest-message pointer moved
	req.Equal(message.ID.String(), chats.latest[chat.ID])

	// And exactly one event with the full membership was dispatched
	events := broadcaster.dispatched()
	req.Len(events, 1)
	sent := events[0].(event.MessageSent)
	req.Equal(message.ID, sent.Message.ID)
	req.Equal(chat.Users, sent.Participants)
}

func TestMessageService_Send_Rejects_Non_Members(t *testing.T) {
	req := require.New(t)
	chat := teamChat()
	messages := &fakeMessageRepo{}
	broadcaster := &fakeBroadcaster{}
	service := NewMessageService(messages, newFakeChatRepo(chat), broadcaster)

	// When an outsider tries to post
	_, err := service.Send("mallory", chat.ID, "let me in", "")

	// Then nothing is stored and nothing is broadcast
	req.ErrorIs(err, errors.ErrNotChatMember)
	req.Empty(messages.stored)
	req.Empty(broadcaster.dispatched())
}

func TestMessageService_Send_Unknown_Chat(t *testing.T) {
	req := require.New(t)
	service := NewMessageService(&fakeMessageRepo{}, newFakeChatRepo(), &fakeBroadcaster{})

	_, err := service.Send("alice", "missing", "hello", "")
	req.ErrorIs(err, errors.ErrChatNotFound)
}

func TestMessageService_Store_Failure_Skips_Fanout(t *testing.T) {
	req := require.New(t)
	chat := teamChat()
	broadcaster := &fakeBroadcaster{}
	service := NewMessageService(&fakeMessageRepo{err: errors.ErrMessageNotFound},
		newFakeChatRepo(chat), broadcaster)

	// When persistence fails
	_, err := service.Send("alice", chat.ID, "hello", "")

	// Then no event goes out for a message that was never durable
	req.Error(err)
	req.Empty(broadcaster.dispatched())
}

func TestMessageService_List_Maps_Disk_Records(t *testing.T) {
	req := require.New(t)
	chat := teamChat()
	messages := &fakeMessageRepo{}
	service := NewMessageService(messages, newFakeChatRepo(chat), &fakeBroadcaster{})

	sent, err := service.Send("bob", chat.ID, "with attachment", "https://files.example/pic.png")
	req.NoError(err)

	listed, _, err := service.List(chat.ID, nil)
	req.NoError(err)
	req.Len(listed, 1)
	req.Equal(sent.ID, listed[0].ID)
	req.Equal("bob", listed[0].SenderID)
	req.Equal("https://files.example/pic.png", listed[0].FileURL)
}
