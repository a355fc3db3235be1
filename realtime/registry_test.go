package realtime

import (
	"testing"

	"collab-chat/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type nopSink struct{}

func (nopSink) Send([]byte) error { return nil }
func (nopSink) Close() error      { return nil }

func TestRegistry_Register_One_Conversation_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	// Given no user is connected
	// And no conversation exists
	conversations, sessions := registry.Counts()
	req.Zero(conversations)
	req.Zero(sessions)

	// When a user joins a conversation
	sess := NewSession(userID, conversationID, nopSink{})
	superseded := registry.Register(sess)

	// Then the set is created with this single session
	req.Nil(superseded)
	req.Len(registry.SessionsFor(conversationID), 1)
	req.Contains(registry.SessionsFor(conversationID), sess)

	// And the user is mapped and counted as participant
	current, ok := registry.SessionFor(userID)
	req.True(ok)
	req.Same(sess, current)
	req.ElementsMatch([]string{userID}, registry.ParticipantsOf(conversationID))
	req.True(registry.IsOnline(userID))
}

func TestRegistry_Register_One_Conversation_Multiple_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID1 := uuid.NewString()
	userID2 := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	// When two users join the same conversation
	sess1 := NewSession(userID1, conversationID, nopSink{})
	sess2 := NewSession(userID2, conversationID, nopSink{})
	registry.Register(sess1)
	registry.Register(sess2)

	// Then both sessions are members
	req.Len(registry.SessionsFor(conversationID), 2)
	req.ElementsMatch([]string{userID1, userID2}, registry.ParticipantsOf(conversationID))
}

func TestRegistry_Unregister_Last_User_Removes_Conversation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	// Given a user joined a conversation
	sess := NewSession(userID, conversationID, nopSink{})
	registry.Register(sess)

	// When the user disconnects
	registry.Unregister(sess)

	// Then no session, no participant and no conversation key is left
	req.Nil(registry.SessionsFor(conversationID))
	req.Nil(registry.ParticipantsOf(conversationID))
	req.False(registry.IsOnline(userID))
	conversations, sessions := registry.Counts()
	req.Zero(conversations)
	req.Zero(sessions)
}

func TestRegistry_Unregister_One_Of_Multiple_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID1 := uuid.NewString()
	userID2 := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	sess1 := NewSession(userID1, conversationID, nopSink{})
	sess2 := NewSession(userID2, conversationID, nopSink{})
	registry.Register(sess1)
	registry.Register(sess2)

	// When one user disconnects
	registry.Unregister(sess1)

	// Then only the other remains
	req.Len(registry.SessionsFor(conversationID), 1)
	req.Contains(registry.SessionsFor(conversationID), sess2)
	req.ElementsMatch([]string{userID2}, registry.ParticipantsOf(conversationID))
}

func TestRegistry_Unregister_Is_Idempotent_After_Prune(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID1 := uuid.NewString()
	userID2 := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	sess1 := NewSession(userID1, conversationID, nopSink{})
	sess2 := NewSession(userID2, conversationID, nopSink{})
	registry.Register(sess1)
	registry.Register(sess2)

	// Given a failed delivery already pruned the membership entry
	registry.Drop(conversationID, sess1)
	req.Len(registry.SessionsFor(conversationID), 1)

	// When the lifecycle handler unregisters the same session afterwards
	registry.Unregister(sess1)

	// Then the remaining member is untouched and the rest of the cleanup happened
	req.Len(registry.SessionsFor(conversationID), 1)
	req.False(registry.IsOnline(userID1))
	req.ElementsMatch([]string{userID2}, registry.ParticipantsOf(conversationID))
}

func TestRegistry_Register_Same_User_Replaces_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	// Given a user already has a live session
	oldSess := NewSession(userID, conversationID, nopSink{})
	registry.Register(oldSess)

	// When the same user connects again
	newSess := NewSession(userID, conversationID, nopSink{})
	superseded := registry.Register(newSess)

	// Then the old session is returned detached and only the new one remains
	req.Same(oldSess, superseded)
	req.Len(registry.SessionsFor(conversationID), 1)
	req.Contains(registry.SessionsFor(conversationID), newSess)
	current, ok := registry.SessionFor(userID)
	req.True(ok)
	req.Same(newSess, current)
	req.ElementsMatch([]string{userID}, registry.ParticipantsOf(conversationID))
}

func TestRegistry_Stale_Unregister_Keeps_Newer_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	oldSess := NewSession(userID, conversationID, nopSink{})
	registry.Register(oldSess)
	newSess := NewSession(userID, conversationID, nopSink{})
	registry.Register(newSess)

	// When the superseded session's disconnect path runs late
	registry.Unregister(oldSess)

	// Then the newer session and the participant entry survive
	req.True(registry.IsOnline(userID))
	req.Len(registry.SessionsFor(conversationID), 1)
	req.Contains(registry.SessionsFor(conversationID), newSess)
	req.ElementsMatch([]string{userID}, registry.ParticipantsOf(conversationID))
}

func TestRegistry_DropUser_Only_Removes_Matching_Session(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conversationID := domain.ConversationID("c1")

	oldSess := NewSession(userID, conversationID, nopSink{})
	registry.Register(oldSess)
	newSess := NewSession(userID, conversationID, nopSink{})
	registry.Register(newSess)

	// When a stale direct-send failure tries to drop the old session
	registry.DropUser(userID, oldSess)

	// Then the newer mapping is preserved
	current, ok := registry.SessionFor(userID)
	req.True(ok)
	req.Same(newSess, current)

	// And dropping the current one clears the mapping
	registry.DropUser(userID, newSess)
	req.False(registry.IsOnline(userID))
}
