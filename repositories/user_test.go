package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-server/errors"
)

func TestUserRepository_Create_Then_Fetch(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	// When an account is created
	id, err := repo.CreateUser("Alice", "alice@example.com", "+33612345678", "argon2-hash")
	req.NoError(err)
	req.NotEmpty(id)

	// Then it is reachable by ID and by email
	byID, err := repo.GetUserByID(id)
	req.NoError(err)
	req.Equal("Alice", byID.Name)
	req.Equal([]string{"user"}, byID.Roles)

	byEmail, err := repo.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)
}

func TestUserRepository_Duplicate_Email_Is_Rejected(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	_, err := repo.CreateUser("Alice", "alice@example.com", "", "hash-1")
	req.NoError(err)

	// When a second account reuses the email
	_, err = repo.CreateUser("Imposter", "alice@example.com", "", "hash-2")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	_, err := repo.GetUserByID("missing")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repo.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_ListUsers(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openDB(t))

	_, err := repo.CreateUser("Alice", "alice@example.com", "", "h1")
	req.NoError(err)
	_, err = repo.CreateUser("Bob", "bob@example.com", "", "h2")
	req.NoError(err)

	users, err := repo.ListUsers()
	req.NoError(err)
	req.Len(users, 2)
}
