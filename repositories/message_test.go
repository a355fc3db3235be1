package repositories

import (
	"log/slog"
	"testing"
	"time"

	"collab-chat/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Record_Multiple_Messages(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repository := NewMessageRepository(db, slog.Default(), nil)
	conversation := domain.ConversationID("conv1")
	content := "this message will self destruct in 5 seconds"
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), conversation, "Alice", content, "text", at},
		{uuid.New(), conversation, "Bob", content, "text", at.Add(1 * time.Minute)},
		{uuid.New(), conversation, "Clara", content, "text", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		err = repository.StoreMessage(dm)
		req.NoError(err)
	}

	fetchedMessages, _, err := repository.GetMessages(conversation, nil)
	req.NoError(err)
	req.Len(fetchedMessages, len(diskMessages))
	// Reverse iteration returns newest first
	req.Equal(diskMessages[2], fetchedMessages[0])
	req.Equal(diskMessages[1], fetchedMessages[1])
	req.Equal(diskMessages[0], fetchedMessages[2])
}

func Test_Record_Multiple_Messages_And_Limit(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	conversation := domain.ConversationID("conv1")
	content := "this message will self destruct in 5 seconds"
	at := time.Now().UTC()
	diskMessages := []DiskMessage{
		{uuid.New(), conversation, "Alice", content, "text", at},
		{uuid.New(), conversation, "Bob", content, "text", at.Add(1 * time.Minute)},
		{uuid.New(), conversation, "Clara", content, "text", at.Add(2 * time.Minute)},
	}
	for _, dm := range diskMessages {
		err = repository.StoreMessage(dm)
		req.NoError(err)
	}

	fetchedMessages, _, err := repository.GetMessages(conversation, nil)
	req.NoError(err)
	req.Len(fetchedMessages, limit)
	req.Equal("Clara", fetchedMessages[0].Author)
	req.Equal("Bob", fetchedMessages[1].Author)
}

func Test_Cursor_Pagination_Resumes_Where_It_Stopped(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	limit := 2
	repository := NewMessageRepository(db, slog.Default(), &limit)
	conversation := domain.ConversationID("conv1")
	at := time.Now().UTC()
	authors := []string{"Alice", "Bob", "Clara", "Dave", "Eve"}
	for i, author := range authors {
		err = repository.StoreMessage(DiskMessage{
			ID:           uuid.New(),
			Conversation: conversation,
			Author:       author,
			Content:      "hello",
			Kind:         "text",
			At:           at.Add(time.Duration(i) * time.Minute),
		})
		req.NoError(err)
	}

	// First page: the two newest messages
	page1, cursor, err := repository.GetMessages(conversation, nil)
	req.NoError(err)
	req.Len(page1, 2)
	req.Equal("Eve", page1[0].Author)
	req.Equal("Dave", page1[1].Author)

	// Second page resumes strictly after the cursor
	page2, cursor, err := repository.GetMessages(conversation, cursor)
	req.NoError(err)
	req.Len(page2, 2)
	req.Equal("Clara", page2[0].Author)
	req.Equal("Bob", page2[1].Author)

	// Last page holds the oldest message
	page3, _, err := repository.GetMessages(conversation, cursor)
	req.NoError(err)
	req.Len(page3, 1)
	req.Equal("Alice", page3[0].Author)
}

func Test_Messages_Are_Isolated_Per_Conversation(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()

	repository := NewMessageRepository(db, slog.Default(), nil)
	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "conv1", "Alice", "in conv1", "text", at}))
	req.NoError(repository.StoreMessage(DiskMessage{uuid.New(), "conv2", "Bob", "in conv2", "text", at}))

	fetched, _, err := repository.GetMessages("conv1", nil)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("in conv1", fetched[0].Content)
}
