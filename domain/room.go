package domain

// RoomKind discriminates the two addressing modes of the presence registry.
type RoomKind int

const (
	// KindUser is a user's personal room. One join covers every conversation
	// and every device of that user.
	KindUser RoomKind = iota
	// KindConversation is a conversation-wide room, used when membership
	// based addressing is needed.
	KindConversation
)

// Room is a logical broadcast target. It has no lifecycle of its own:
// it exists as long as at least one session has joined it.
type Room struct {
	Kind RoomKind
	Key  string
}

func UserRoom(userID string) Room {
	return Room{Kind: KindUser, Key: userID}
}

func ConversationRoom(chatID string) Room {
	return Room{Kind: KindConversation, Key: chatID}
}
