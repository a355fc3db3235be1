package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/observability"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (s *recordSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.ErrSinkClosed
	}
	s.payloads = append(s.payloads, payload)
	return nil
}

func (s *recordSink) Close() error { return nil }

func (s *recordSink) received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.payloads...)
}

func newBroadcastFixture() (*Registry, *Broadcaster, *observability.StatsManager) {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	stats := observability.NewStatsManager()
	return registry, NewBroadcaster(log, registry, stats), stats
}

func TestBroadcaster_Delivers_To_All_Except_Excluded(t *testing.T) {
	req := require.New(t)
	registry, broadcaster, _ := newBroadcastFixture()
	conversationID := domain.ConversationID("c1")

	// Given users A and B are joined to c1
	sinkA := &recordSink{}
	sinkB := &recordSink{}
	registry.Register(NewSession("A", conversationID, sinkA))
	registry.Register(NewSession("B", conversationID, sinkB))

	// When A sends a message broadcast excluding itself
	broadcaster.BroadcastToConversation(conversationID,
		event.NewMessage(json.RawMessage(`{"text":"hi"}`)), "A")

	// Then B receives the stamped envelope and A receives nothing
	req.Empty(sinkA.received())
	req.Len(sinkB.received(), 1)

	var out event.Outbound
	req.NoError(json.Unmarshal(sinkB.received()[0], &out))
	req.Equal(event.TypeNewMessage, out.Type)
	req.JSONEq(`{"text":"hi"}`, string(out.Data))
	req.WithinDuration(time.Now().UTC(), out.Timestamp, 5*time.Second)
}

func TestBroadcaster_Unknown_Conversation_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	_, broadcaster, stats := newBroadcastFixture()

	// When broadcasting to a conversation nobody joined
	broadcaster.BroadcastToConversation("ghost", event.UserOnline("A"), "")

	// Then nothing is counted as sent
	req.Zero(stats.GetLatest().BroadcastsSent)
	req.Zero(stats.GetLatest().EventsDelivered)
}

func TestBroadcaster_Prunes_Only_The_Failing_Connection(t *testing.T) {
	req := require.New(t)
	registry, broadcaster, stats := newBroadcastFixture()
	conversationID := domain.ConversationID("c1")

	sinkA := &recordSink{}
	sinkB := &recordSink{fail: true}
	sessA := NewSession("A", conversationID, sinkA)
	sessB := NewSession("B", conversationID, sinkB)
	registry.Register(sessA)
	registry.Register(sessB)

	// When a broadcast hits B's dead connection
	broadcaster.BroadcastToConversation(conversationID, event.UserOnline("C"), "")

	// Then only B is pruned from the membership set
	req.ElementsMatch([]*Session{sessA}, registry.SessionsFor(conversationID))
	req.Len(sinkA.received(), 1)
	req.EqualValues(1, stats.GetLatest().SendFailures)

	// And B's user mapping and participant entry are left for its own
	// disconnect path
	req.True(registry.IsOnline("B"))
	req.ElementsMatch([]string{"A", "B"}, registry.ParticipantsOf(conversationID))

	// And a later broadcast does not attempt delivery to B again
	broadcaster.BroadcastToConversation(conversationID, event.UserOffline("C"), "")
	req.Len(sinkA.received(), 2)
	req.EqualValues(1, stats.GetLatest().SendFailures)
}

func TestBroadcaster_SendToUser(t *testing.T) {
	req := require.New(t)
	registry, broadcaster, _ := newBroadcastFixture()
	conversationID := domain.ConversationID("c1")

	sink := &recordSink{}
	sess := NewSession("A", conversationID, sink)
	registry.Register(sess)

	// When sending directly to a connected user
	err := broadcaster.SendToUser("A", event.MessageRead("B", "msg-1"))

	// Then the stamped envelope reaches the user's single session
	req.NoError(err)
	req.Len(sink.received(), 1)
	var out event.Outbound
	req.NoError(json.Unmarshal(sink.received()[0], &out))
	req.Equal(event.TypeMessageRead, out.Type)
	req.Equal("B", out.UserID)
	req.Equal("msg-1", out.MessageID)
}

func TestBroadcaster_SendToUser_SelfHeals_Stale_Mapping(t *testing.T) {
	req := require.New(t)
	registry, broadcaster, _ := newBroadcastFixture()

	sink := &recordSink{fail: true}
	registry.Register(NewSession("A", "c1", sink))

	// When the user's connection is dead
	err := broadcaster.SendToUser("A", event.UserOnline("B"))

	// Then the error is returned and the stale mapping removed
	req.Error(err)
	req.False(registry.IsOnline("A"))

	// And the next attempt reports the user as not connected
	err = broadcaster.SendToUser("A", event.UserOnline("B"))
	req.ErrorIs(err, errors.ErrNotConnected)
}
