//go:generate go run go.uber.org/mock/mockgen -source=archive.go -destination=../mocks/mock_archive_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

type IArchiveRepository interface {
	Store(message DiskMessage) error
	GetAll() ([]DiskMessage, error)
	GetMessages(chatID string) ([]DiskMessage, error)
	CountAll() (int, error)
}

// ArchiveRepository is the cold tier. Records keep the exact shape they had
// in the live store, original timestamps included.
//
// Keys reuse the message UUID, so re-inserting the same message after a
// partial sweep overwrites the previous record instead of duplicating it.
type ArchiveRepository struct {
	db *badger.DB
}

func NewArchiveRepository(db *badger.DB) ArchiveRepository {
	return ArchiveRepository{db: db}
}

const archivePrefix = "arc"

func (a ArchiveRepository) Store(message DiskMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(archivePrefix, message), bytes)
	})
}

// GetAll returns every archived record, oldest first within each chat.
func (a ArchiveRepository) GetAll() ([]DiskMessage, error) {
	return a.scan(archivePrefix + ":")
}

// GetMessages returns the archived records of a single chat, oldest first.
func (a ArchiveRepository) GetMessages(chatID string) ([]DiskMessage, error) {
	return a.scan(fmt.Sprintf("%s:%s:", archivePrefix, chatID))
}

func (a ArchiveRepository) CountAll() (int, error) {
	count := 0
	err := a.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(archivePrefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (a ArchiveRepository) scan(prefixStr string) ([]DiskMessage, error) {
	var byteMessages [][]byte
	err := a.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
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
