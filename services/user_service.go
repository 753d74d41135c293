package services

import (
	"context"

	"chat-server/repositories"
)

type IUserService interface {
	Me(userID string) (repositories.User, error)
	Search(ctx context.Context, keyword, requesterID string) ([]repositories.User, error)
}

type UserService struct {
	users       repositories.IUserRepository
	index       *repositories.UserIndex
	searchLimit int
}

func NewUserService(users repositories.IUserRepository, index *repositories.UserIndex,
	searchLimit int) *UserService {
	return &UserService{users: users, index: index, searchLimit: searchLimit}
}

func (s *UserService) Me(userID string) (repositories.User, error) {
	return s.users.GetUserByID(userID)
}

// Search matches the keyword against names and emails, excluding the
// requester. An empty keyword lists everyone else.
func (s *UserService) Search(ctx context.Context, keyword, requesterID string) ([]repositories.User, error) {
	if keyword == "" {
		all, err := s.users.ListUsers()
		if err != nil {
			return nil, err
		}
		return withoutUser(all, requesterID), nil
	}

	ids, err := s.index.Search(ctx, keyword, s.searchLimit)
	if err != nil {
		return nil, err
	}

	var users []repositories.User
	for _, id := range ids {
		if id == requesterID {
			continue
		}
		user, err := s.users.GetUserByID(id)
		if err != nil {
			// The index can lag behind deletions; skip stale hits.
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func withoutUser(users []repositories.User, userID string) []repositories.User {
	var filtered []repositories.User
	for _, user := range users {
		if user.ID != userID {
			filtered = append(filtered, user)
		}
	}
	return filtered
}
