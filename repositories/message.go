//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(chatID string, cursor *string) ([]DiskMessage, *string, error)
	CountPerChat() (map[string]int, error)
	FindArchivable(chatID string, cutoff time.Time, keepRecent int) ([]DiskMessage, error)
	DeleteMessage(message DiskMessage) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// DiskMessage is the repository-level representation of a message.
// The same shape is written to the live and the archive store, so a
// relocation preserves every field byte for byte.
type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	ChatID    string    `json:"chat_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	FileURL   string    `json:"file_url,omitempty"`
	At        time.Time `json:"at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const livePrefix = "msg"

// messageKey formats "msg:{chat_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(prefix string, message DiskMessage) []byte {
	return []byte(fmt.Sprintf("%s:%s:%019d:%s",
		prefix,
		message.ChatID,
		message.At.UnixNano(),
		message.ID,
	))
}

// StoreMessage persists a message in BadgerDB under the live prefix.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(livePrefix, message), bytes)
	})
}

// GetMessages retrieves messages for a chat using a reverse prefix scan,
// newest first. Thanks to the padded timestamp in the key, messages are
// naturally sorted by time. It stops once the configured limitMessages is
// reached and returns a cursor for the next page.
func (m MessageRepository) GetMessages(chatID string, cursor *string) ([]DiskMessage, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("%s:%s:", livePrefix, chatID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible position, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			// Memorize cursor part of the actual key
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	diskMessages, err := decodeMessages(byteMessages)
	if err != nil {
		return nil, nil, err
	}
	return diskMessages, &lastKey, nil
}

// CountPerChat aggregates live message counts per chat with a key-only scan.
// Values are never fetched: the chat identifier is part of the key, so the
// sweep's eligibility check does not load message bodies into memory.
func (m MessageRepository) CountPerChat() (map[string]int, error) {
	counts := make(map[string]int)
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(livePrefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			chatID, ok := chatIDFromKey(string(it.Item().Key()))
			if !ok {
				m.log.Warn("Skipping malformed live key", "key", string(it.Item().Key()))
				continue
			}
			counts[chatID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// FindArchivable returns the chat's messages created strictly before cutoff,
// minus the newest keepRecent of that set. Iteration is reverse (newest
// first), so the protected window is simply the first keepRecent matches.
func (m MessageRepository) FindArchivable(chatID string, cutoff time.Time, keepRecent int) ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("%s:%s:", livePrefix, chatID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek directly below the cutoff timestamp: everything at or after
		// the cutoff is not a candidate and is skipped by the seek itself.
		seekKey := append(prefix, []byte(fmt.Sprintf("%019d", cutoff.UnixNano()-1))...)
		seekKey = append(seekKey, []byte(":\xff")...)

		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skipped < keepRecent {
				skipped++
				continue
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decodeMessages(byteMessages)
}

// DeleteMessage removes a live record. The full key is reconstructed from
// the record itself, so callers pass back what FindArchivable returned.
func (m MessageRepository) DeleteMessage(message DiskMessage) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(messageKey(livePrefix, message))
	})
}

func decodeMessages(byteMessages [][]byte) ([]DiskMessage, error) {
	var diskMessages []DiskMessage
	for _, b := range byteMessages {
		var message DiskMessage
		if err := json.Unmarshal(b, &message); err != nil {
			return nil, err
		}
		diskMessages = append(diskMessages, message)
	}
	return diskMessages, nil
}

// chatIDFromKey extracts the chat identifier from "msg:{chat}:{ts}:{uuid}".
func chatIDFromKey(key string) (string, bool) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return "", false
	}
	return parts[1], true
}
