package repositories

import (
	"log/slog"
	"testing"
	"time"

	"collab-chat/domain"
	"collab-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Create_And_Get_Group_Conversation(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())

	// Given a group conversation with two members
	now := time.Now().UTC().Truncate(time.Second)
	group := domain.NewGroupConversation("conv1", "Backend team", "daily chatter", "user1",
		[]string{"user1", "user2"}, now)

	// When creating and fetching it back
	req.NoError(repo.Create(group))
	fetched, err := repo.Get("conv1")

	// Then the record and its membership round-trip
	req.NoError(err)
	req.Equal(group.ID, fetched.ID)
	req.Equal(domain.KindGroup, fetched.Kind)
	req.Equal("Backend team", fetched.Name)
	req.ElementsMatch([]string{"user1", "user2"}, fetched.Participants)
}

func Test_Create_Duplicate_Conversation_Fails(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())
	now := time.Now().UTC()

	req.NoError(repo.Create(domain.NewDirectConversation("conv1", "user1", "user2", now)))
	err := repo.Create(domain.NewDirectConversation("conv1", "user1", "user3", now))
	req.ErrorIs(err, errors.ErrConversationExists)
}

func Test_Get_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())

	_, err := repo.Get("ghost")
	req.ErrorIs(err, errors.ErrUnknownConversation)
}

func Test_Join_And_Leave_Membership(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())
	now := time.Now().UTC()
	req.NoError(repo.Create(domain.NewGroupConversation("conv1", "team", "", "user1", []string{"user1"}, now)))

	// Joining grants membership
	req.NoError(repo.Join("conv1", "user2"))
	isMember, err := repo.IsMember("conv1", "user2")
	req.NoError(err)
	req.True(isMember)

	// Joining twice is a no-op
	req.NoError(repo.Join("conv1", "user2"))

	// Leaving revokes it
	req.NoError(repo.Leave("conv1", "user2"))
	isMember, err = repo.IsMember("conv1", "user2")
	req.NoError(err)
	req.False(isMember)

	// Other members are untouched
	isMember, err = repo.IsMember("conv1", "user1")
	req.NoError(err)
	req.True(isMember)
}

func Test_Join_Unknown_Conversation(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())

	err := repo.Join("ghost", "user1")
	req.ErrorIs(err, errors.ErrUnknownConversation)
}

func Test_ListForUser_Follows_Membership(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())
	now := time.Now().UTC()
	req.NoError(repo.Create(domain.NewGroupConversation("conv1", "team", "", "user1", []string{"user1", "user2"}, now)))
	req.NoError(repo.Create(domain.NewDirectConversation("conv2", "user1", "user3", now)))
	req.NoError(repo.Create(domain.NewGroupConversation("conv3", "other", "", "user3", []string{"user3"}, now)))

	conversations, err := repo.ListForUser("user1")
	req.NoError(err)
	req.Len(conversations, 2)

	ids := []string{conversations[0].ID.String(), conversations[1].ID.String()}
	req.ElementsMatch([]string{"conv1", "conv2"}, ids)

	// Leaving drops the conversation from the listing
	req.NoError(repo.Leave("conv1", "user1"))
	conversations, err = repo.ListForUser("user1")
	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal(domain.ConversationID("conv2"), conversations[0].ID)
}

func Test_Read_Marker_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := NewConversationRepository(newTestDB(t), slog.Default())
	now := time.Now().UTC()
	req.NoError(repo.Create(domain.NewDirectConversation("conv1", "user1", "user2", now)))

	// No marker yet
	marker, err := repo.ReadMarker("conv1", "user1")
	req.NoError(err)
	req.Empty(marker)

	// Marking overwrites the previous value
	req.NoError(repo.MarkRead("conv1", "user1", "msg-1"))
	req.NoError(repo.MarkRead("conv1", "user1", "msg-2"))
	marker, err = repo.ReadMarker("conv1", "user1")
	req.NoError(err)
	req.Equal("msg-2", marker)

	// Markers are scoped per user
	marker, err = repo.ReadMarker("conv1", "user2")
	req.NoError(err)
	req.Empty(marker)
}
