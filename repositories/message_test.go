package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(chatID string, at time.Time, content string) DiskMessage {
	return DiskMessage{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    "alice",
		Content:   content,
		At:        at,
		UpdatedAt: at,
	}
}

func storeAll(t *testing.T, repo MessageRepository, messages ...DiskMessage) {
	t.Helper()
	for _, message := range messages {
		require.NoError(t, repo.StoreMessage(message))
	}
}

func TestMessageRepository_GetMessages_Newest_First(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	base := time.Now().UTC()

	// Given three messages stored out of order
	storeAll(t, repo,
		newMessage("chat-1", base.Add(2*time.Minute), "third"),
		newMessage("chat-1", base, "first"),
		newMessage("chat-1", base.Add(time.Minute), "second"),
	)

	// When the chat history is fetched
	messages, _, err := repo.GetMessages("chat-1", nil)
	req.NoError(err)

	// Then the padded key layout yields reverse chronological order
	contents := lo.Map(messages, func(m DiskMessage, _ int) string { return m.Content })
	req.Equal([]string{"third", "second", "first"}, contents)
}

func TestMessageRepository_GetMessages_Is_Scoped_To_The_Chat(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	now := time.Now().UTC()

	storeAll(t, repo,
		newMessage("chat-1", now, "mine"),
		newMessage("chat-2", now, "theirs"),
	)

	messages, _, err := repo.GetMessages("chat-1", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("mine", messages[0].Content)
}

func TestMessageRepository_Cursor_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 2
	repo := NewMessageRepository(openDB(t), slog.Default(), &limit)
	base := time.Now().UTC()

	// Given five messages
	for i := 0; i < 5; i++ {
		storeAll(t, repo, newMessage("chat-1", base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("m%d", i)))
	}

	// When the history is paged with the returned cursor
	page1, cursor, err := repo.GetMessages("chat-1", nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal("m4", page1[0].Content)
	req.Equal("m3", page1[1].Content)

	page2, cursor, err := repo.GetMessages("chat-1", cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal("m2", page2[0].Content)
	req.Equal("m1", page2[1].Content)

	// Then the last page holds the remainder and no page overlaps
	page3, _, err := repo.GetMessages("chat-1", cursor)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal("m0", page3[0].Content)
}

func TestMessageRepository_CountPerChat_Aggregates_Keys_Only(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	now := time.Now().UTC()

	storeAll(t, repo,
		newMessage("chat-1", now, "a"),
		newMessage("chat-1", now.Add(time.Second), "b"),
		newMessage("chat-2", now, "c"),
	)

	counts, err := repo.CountPerChat()
	req.NoError(err)
	req.Equal(map[string]int{"chat-1": 2, "chat-2": 1}, counts)
}

func TestMessageRepository_CountPerChat_Empty_Store(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)

	counts, err := repo.CountPerChat()
	req.NoError(err)
	req.Empty(counts)
}

func TestMessageRepository_FindArchivable_Cutoff_Is_Strict(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	cutoff := time.Now().UTC().Truncate(time.Second)

	// Given messages just before, exactly at, and after the cutoff
	before := newMessage("chat-1", cutoff.Add(-time.Nanosecond), "before")
	atCutoff := newMessage("chat-1", cutoff, "at")
	after := newMessage("chat-1", cutoff.Add(time.Nanosecond), "after")
	storeAll(t, repo, before, atCutoff, after)

	// When archivable messages are selected with no protected window
	archivable, err := repo.FindArchivable("chat-1", cutoff, 0)
	req.NoError(err)

	// Then only the strictly older message qualifies
	req.Len(archivable, 1)
	req.Equal(before.ID, archivable[0].ID)
}

func TestMessageRepository_FindArchivable_Skips_The_Newest_Matches(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	base := time.Now().UTC().Add(-30 * 24 * time.Hour)

	var seeded []DiskMessage
	for i := 0; i < 5; i++ {
		message := newMessage("chat-1", base.Add(time.Duration(i)*time.Minute), fmt.Sprintf("m%d", i))
		seeded = append(seeded, message)
		storeAll(t, repo, message)
	}

	// When 3 of the 5 old messages are protected
	archivable, err := repo.FindArchivable("chat-1", time.Now().UTC().Add(-7*24*time.Hour), 3)
	req.NoError(err)

	// Then only the 2 oldest are returned
	req.Len(archivable, 2)
	ids := lo.Map(archivable, func(m DiskMessage, _ int) uuid.UUID { return m.ID })
	req.Contains(ids, seeded[0].ID)
	req.Contains(ids, seeded[1].ID)
}

func TestMessageRepository_FindArchivable_Window_Larger_Than_Set(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	base := time.Now().UTC().Add(-30 * 24 * time.Hour)

	storeAll(t, repo,
		newMessage("chat-1", base, "a"),
		newMessage("chat-1", base.Add(time.Minute), "b"),
	)

	archivable, err := repo.FindArchivable("chat-1", time.Now().UTC(), 20)
	req.NoError(err)
	req.Empty(archivable)
}

func TestMessageRepository_DeleteMessage_Removes_Only_That_Record(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openDB(t), slog.Default(), nil)
	now := time.Now().UTC()

	doomed := newMessage("chat-1", now, "doomed")
	survivor := newMessage("chat-1", now.Add(time.Second), "survivor")
	storeAll(t, repo, doomed, survivor)

	req.NoError(repo.DeleteMessage(doomed))

	messages, _, err := repo.GetMessages("chat-1", nil)
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(survivor.ID, messages[0].ID)
}
