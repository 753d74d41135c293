//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-server/domain"
	"chat-server/errors"
)

type IChatRepository interface {
	AccessDirect(userID, otherID string) (domain.Chat, error)
	CreateGroup(name, adminID string, userIDs []string) (domain.Chat, error)
	GetChat(chatID string) (domain.Chat, error)
	ListForUser(userID string) ([]domain.Chat, error)
	Rename(chatID, name string) (domain.Chat, error)
	AddUser(chatID, userID string) (domain.Chat, error)
	RemoveUser(chatID, userID string) (domain.Chat, error)
	SetLatestMessage(chatID, messageID string) error
}

// ChatRepository stores conversations under "chat:{id}" and a membership
// index under "member:{user_id}:{chat_id}" so listing a user's chats is a
// prefix scan rather than a full-store filter.
type ChatRepository struct {
	db *badger.DB
}

func NewChatRepository(db *badger.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func chatKey(id string) []byte { return []byte("chat:" + id) }
func memberKey(userID, chatID string) []byte {
	return []byte("member:" + userID + ":" + chatID)
}

// AccessDirect returns the existing one-to-one chat between the two users,
// creating it when it does not exist yet.
func (c *ChatRepository) AccessDirect(userID, otherID string) (domain.Chat, error) {
	existing, err := c.ListForUser(userID)
	if err != nil {
		return domain.Chat{}, err
	}
	for _, chat := range existing {
		if !chat.IsGroup && chat.HasUser(otherID) {
			return chat, nil
		}
	}

	now := time.Now().UTC()
	chat := domain.Chat{
		ID:        uuid.NewString(),
		Name:      "sender",
		IsGroup:   false,
		Users:     []string{userID, otherID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.put(chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (c *ChatRepository) CreateGroup(name, adminID string, userIDs []string) (domain.Chat, error) {
	now := time.Now().UTC()
	users := lo.Uniq(append(userIDs, adminID))
	chat := domain.Chat{
		ID:        uuid.NewString(),
		Name:      name,
		IsGroup:   true,
		Users:     users,
		Admin:     adminID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.put(chat); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (c *ChatRepository) GetChat(chatID string) (domain.Chat, error) {
	var chat domain.Chat
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chatKey(chatID))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &chat)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

func (c *ChatRepository) ListForUser(userID string) ([]domain.Chat, error) {
	var chatIDs []string
	err := c.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte("member:" + userID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chatIDs = append(chatIDs, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var chats []domain.Chat
	for _, id := range chatIDs {
		chat, err := c.GetChat(id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, chat)
	}
	return chats, nil
}

func (c *ChatRepository) Rename(chatID, name string) (domain.Chat, error) {
	return c.update(chatID, func(chat *domain.Chat) {
		chat.Name = name
	})
}

func (c *ChatRepository) AddUser(chatID, userID string) (domain.Chat, error) {
	return c.update(chatID, func(chat *domain.Chat) {
		if !chat.HasUser(userID) {
			chat.Users = append(chat.Users, userID)
		}
	})
}

// RemoveUser drops the member and its index entry in the same transaction,
// so a crash can never leave a stale membership index behind.
func (c *ChatRepository) RemoveUser(chatID, userID string) (domain.Chat, error) {
	return c.updateInTxn(chatID, func(txn *badger.Txn, chat *domain.Chat) error {
		chat.Users = lo.Without(chat.Users, userID)
		return txn.Delete(memberKey(userID, chatID))
	})
}

func (c *ChatRepository) SetLatestMessage(chatID, messageID string) error {
	_, err := c.update(chatID, func(chat *domain.Chat) {
		chat.LatestMessageID = messageID
	})
	return err
}

func (c *ChatRepository) update(chatID string, mutate func(*domain.Chat)) (domain.Chat, error) {
	return c.updateInTxn(chatID, func(_ *badger.Txn, chat *domain.Chat) error {
		mutate(chat)
		return nil
	})
}

// updateInTxn runs get, mutate, and set as one transaction. Badger's
// conflict detection serializes concurrent updates of the same chat; on
// conflict the whole read-modify-write is retried, so no update is lost.
func (c *ChatRepository) updateInTxn(chatID string,
	mutate func(*badger.Txn, *domain.Chat) error) (domain.Chat, error) {
	for {
		var chat domain.Chat
		err := c.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(chatKey(chatID))
			if err != nil {
				return err
			}
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &chat)
			}); err != nil {
				return err
			}
			if err := mutate(txn, &chat); err != nil {
				return err
			}
			chat.UpdatedAt = time.Now().UTC()
			return putInTxn(txn, chat)
		})
		switch err {
		case badger.ErrConflict:
			continue
		case badger.ErrKeyNotFound:
			return domain.Chat{}, errors.ErrChatNotFound
		case nil:
			return chat, nil
		default:
			return domain.Chat{}, err
		}
	}
}

func (c *ChatRepository) put(chat domain.Chat) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return putInTxn(txn, chat)
	})
}

func putInTxn(txn *badger.Txn, chat domain.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	if err := txn.Set(chatKey(chat.ID), data); err != nil {
		return err
	}
	for _, userID := range chat.Users {
		if err := txn.Set(memberKey(userID, chat.ID), nil); err != nil {
			return err
		}
	}
	return nil
}
