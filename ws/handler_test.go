package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collab-chat/contract"
	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/mocks"
	"collab-chat/moderation"
	"collab-chat/observability"
	"collab-chat/realtime"
	"collab-chat/services"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type wsFixture struct {
	server   *httptest.Server
	resolver *mocks.MockIdentityResolver
	convRepo *mocks.MockIConversationRepository
	msgRepo  *mocks.MockIMessageRepository
	registry *realtime.Registry
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	resolver := mocks.NewMockIdentityResolver(ctrl)
	convRepo := mocks.NewMockIConversationRepository(ctrl)
	msgRepo := mocks.NewMockIMessageRepository(ctrl)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)

	registry := realtime.NewRegistry()
	stats := observability.NewStatsManager()
	broadcaster := realtime.NewBroadcaster(log, registry, stats)
	chat := services.NewChatService(log, registry, broadcaster, convRepo, msgRepo, &moderator, stats)

	mux := http.NewServeMux()
	handler := NewHandler(log, resolver, chat, stats, DefaultConfig())
	handler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return &wsFixture{server: server, resolver: resolver, convRepo: convRepo, msgRepo: msgRepo, registry: registry}
}

func (f *wsFixture) dial(t *testing.T, conversation, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/" + conversation + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) event.Outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt event.Outbound
	require.NoError(t, json.Unmarshal(raw, &evt))
	return evt
}

func TestHandler_Rejects_Invalid_Token(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.resolver.EXPECT().ResolveIdentity("bad").Return(contract.Identity{}, errors.ErrInvalidToken)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/conv1?token=bad"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_Rejects_Non_Member(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.resolver.EXPECT().ResolveIdentity("tok").Return(contract.Identity{UserID: "intruder"}, nil)
	f.convRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "intruder").Return(false, nil)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/conv1?token=tok"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	req.Error(err)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestHandler_Full_Conversation_Flow(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.resolver.EXPECT().ResolveIdentity("tok-alice").Return(contract.Identity{UserID: "alice"}, nil)
	f.resolver.EXPECT().ResolveIdentity("tok-bob").Return(contract.Identity{UserID: "bob"}, nil)
	f.convRepo.EXPECT().IsMember(domain.ConversationID("conv1"), gomock.Any()).Return(true, nil).Times(2)
	f.msgRepo.EXPECT().StoreMessage(gomock.Any()).Return(nil)

	// Given alice connected first
	alice := f.dial(t, "conv1", "tok-alice")

	// When bob joins, alice sees him come online
	bob := f.dial(t, "conv1", "tok-bob")
	online := readEvent(t, alice)
	req.Equal(event.TypeUserOnline, online.Type)
	req.Equal("bob", online.UserID)

	// When bob sends a message, alice receives it with the censored text
	err := bob.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"new_message","data":{"text":"hi badger"}}`))
	req.NoError(err)

	message := readEvent(t, alice)
	req.Equal(event.TypeNewMessage, message.Type)
	req.JSONEq(`{"text":"hi ******"}`, string(message.Data))
	req.False(message.Timestamp.IsZero())

	// When bob disconnects, alice sees him go offline
	req.NoError(bob.Close())
	offline := readEvent(t, alice)
	req.Equal(event.TypeUserOffline, offline.Type)
	req.Equal("bob", offline.UserID)
}

func TestHandler_Ping_Pong_Application_Level(t *testing.T) {
	req := require.New(t)
	f := newWSFixture(t)

	f.resolver.EXPECT().ResolveIdentity("tok").Return(contract.Identity{UserID: "alice"}, nil)
	f.convRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "alice").Return(true, nil)

	alice := f.dial(t, "conv1", "tok")
	req.NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))

	pong := readEvent(t, alice)
	req.Equal(event.TypePong, pong.Type)
}
