//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-server/errors"
)

type IUserRepository interface {
	CreateUser(name, email, phone, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	ListUsers() ([]User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// User is the repository-level representation of an account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

func userKey(id string) []byte     { return []byte("user:" + id) }
func emailKey(email string) []byte { return []byte("email:" + email) }

// CreateUser persists the user and a secondary email index in one
// transaction. It returns the newly generated user ID.
func (u UserRepository) CreateUser(name, email, phone, hashedPassword string) (string, error) {
	newID := uuid.NewString()
	user := User{
		ID:           newID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hashedPassword,
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(user)
	if err != nil {
		return "", fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userKey(newID), data); err != nil {
			return err
		}
		return txn.Set(emailKey(email), []byte(newID))
	})
	if err != nil {
		return "", err
	}
	return newID, nil
}

func (u UserRepository) GetUserByEmail(email string) (User, error) {
	var id string
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = string(v)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u.GetUserByID(id)
}

// ListUsers returns every account, used when the search keyword is empty.
func (u UserRepository) ListUsers() ([]User, error) {
	var users []User
	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("user:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var user User
				if err := json.Unmarshal(v, &user); err != nil {
					return err
				}
				users = append(users, user)
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
	return users, nil
}

func (u UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}
