package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrSweepInProgress     = fmt.Errorf("archival sweep already in progress")
	ErrInvalidPassword     = fmt.Errorf("password does not meet complexity requirements")
	ErrInvalidRegistration = fmt.Errorf("invalid registration data")
	ErrInvalidCredentials  = fmt.Errorf("invalid credentials")
	ErrTokenGeneration     = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists   = fmt.Errorf("user already exists")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrChatNotFound        = fmt.Errorf("chat not found")
	ErrNotChatMember       = fmt.Errorf("user is not a member of this chat")
	ErrGroupTooSmall       = fmt.Errorf("a group requires more than two users")
	ErrMessageNotFound     = fmt.Errorf("message not found")
)
