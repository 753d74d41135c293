// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are immutable once broadcast; the lifecycle only relocates them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one chat message as it flows through the system.
// FileURL is optional and references an externally stored attachment.
type Message struct {
	ID        uuid.UUID
	ChatID    string
	SenderID  string
	Content   string
	FileURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
