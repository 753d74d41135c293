package services

import (
	"fmt"
	"time"

	"chat-server/auth"
	"chat-server/errors"
	"chat-server/repositories"
)

type IAuthService interface {
	Login(email, password string) (Token, error)
	Register(name, email, phone, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	userIndex      *repositories.UserIndex
	tokenDuration  time.Duration
}

type Token string

func NewAuthService(repo repositories.IUserRepository, index *repositories.UserIndex,
	tokenDuration time.Duration) IAuthService {
	return &AuthService{userRepository: repo, userIndex: index, tokenDuration: tokenDuration}
}

func (s *AuthService) Register(name, email, phone, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity)
	// We check this before any expensive cryptographic operation.
	// ValidateRegister already classifies failures into the right sentinel.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", err
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	userID, err := s.userRepository.CreateUser(name, email, phone, hashedPassword)
	if err != nil {
		return "", err // Will propagate ErrUserAlreadyExists if email is taken
	}

	// 4. Make the account discoverable through user search
	if s.userIndex != nil {
		user, err := s.userRepository.GetUserByID(userID)
		if err == nil {
			if err := s.userIndex.Index(user); err != nil {
				return "", fmt.Errorf("indexing user: %w", err)
			}
		}
	}

	// 5. Generate the initial session token
	token, err := auth.GenerateToken(userID, []string{"user"}, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	// 1. Retrieve user by email from storage
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	// 3. Issue the JWT token
	token, err := auth.GenerateToken(user.ID, user.Roles, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}
