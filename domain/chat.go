package domain

import "time"

// Chat is a conversation: a named set of participants, one-to-one or group.
type Chat struct {
	ID              string
	Name            string
	IsGroup         bool
	Users           []string
	Admin           string
	LatestMessageID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasUser reports whether userID participates in the chat.
func (c Chat) HasUser(userID string) bool {
	for _, u := range c.Users {
		if u == userID {
			return true
		}
	}
	return false
}
