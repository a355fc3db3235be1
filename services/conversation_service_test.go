package services_test

import (
	"log/slog"
	"testing"
	"time"

	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/mocks"
	"collab-chat/moderation"
	"collab-chat/observability"
	"collab-chat/realtime"
	"collab-chat/repositories"
	"collab-chat/services"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type conversationFixture struct {
	svc              *services.ConversationService
	registry         *realtime.Registry
	conversationRepo *mocks.MockIConversationRepository
	messageRepo      *mocks.MockIMessageRepository
}

func newConversationFixture(t *testing.T) conversationFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	conversationRepo := mocks.NewMockIConversationRepository(ctrl)
	messageRepo := mocks.NewMockIMessageRepository(ctrl)
	moderator, err := moderation.NewModerator([]string{"badger"}, '*', log)
	require.NoError(t, err)

	registry := realtime.NewRegistry()
	stats := observability.NewStatsManager()
	broadcaster := realtime.NewBroadcaster(log, registry, stats)
	svc := services.NewConversationService(log, conversationRepo, messageRepo, broadcaster, &moderator, stats)
	return conversationFixture{svc: svc, registry: registry, conversationRepo: conversationRepo, messageRepo: messageRepo}
}

func TestConversationService_CreateDirect_Is_Stable_Per_Pair(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	// The derived ID does not depend on who initiates
	var captured []domain.Conversation
	f.conversationRepo.EXPECT().
		Create(gomock.Any()).
		DoAndReturn(func(c domain.Conversation) error {
			captured = append(captured, c)
			return nil
		}).
		Times(2)

	first, err := f.svc.CreateDirect("alice", "bob")
	req.NoError(err)
	second, err := f.svc.CreateDirect("bob", "alice")
	req.NoError(err)

	req.Equal(first.ID, second.ID)
	req.Equal(domain.KindDirect, captured[0].Kind)
	req.ElementsMatch([]string{"alice", "bob"}, captured[0].Participants)
}

func TestConversationService_CreateDirect_Reuses_Existing(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	existing := domain.NewDirectConversation("dm:alice:bob", "alice", "bob", time.Now().UTC())
	f.conversationRepo.EXPECT().Create(gomock.Any()).Return(errors.ErrConversationExists)
	f.conversationRepo.EXPECT().Get(domain.ConversationID("dm:alice:bob")).Return(existing, nil)

	conversation, err := f.svc.CreateDirect("alice", "bob")
	req.NoError(err)
	req.Equal(existing.ID, conversation.ID)
}

func TestConversationService_CreateGroup_Includes_Creator(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	var captured domain.Conversation
	f.conversationRepo.EXPECT().
		Create(gomock.Any()).
		DoAndReturn(func(c domain.Conversation) error {
			captured = c
			return nil
		})

	_, err := f.svc.CreateGroup("team", "daily chatter", "alice", []string{"bob", "alice"})
	req.NoError(err)
	req.Equal(domain.KindGroup, captured.Kind)
	req.Equal("alice", captured.CreatedBy)
	// The creator appears exactly once even when listed as participant
	req.ElementsMatch([]string{"alice", "bob"}, captured.Participants)
	req.NotEmpty(captured.ID)
}

func TestConversationService_GetMessages_Requires_Membership(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	f.conversationRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "intruder").Return(false, nil)

	_, _, err := f.svc.GetMessages("conv1", "intruder", nil)
	req.ErrorIs(err, errors.ErrNotAMember)
}

func TestConversationService_PostMessage_Persists_And_Notifies_Live_Members(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	// Given bob connected to the conversation
	bobSink := &fakeSink{}
	f.registry.Register(realtime.NewSession("bob", "conv1", bobSink))

	f.conversationRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "alice").Return(true, nil)
	var stored repositories.DiskMessage
	f.messageRepo.EXPECT().
		StoreMessage(gomock.Any()).
		DoAndReturn(func(dm repositories.DiskMessage) error {
			stored = dm
			return nil
		})

	// When alice posts over HTTP with a censored word
	message, err := f.svc.PostMessage("conv1", "alice", "hello badger")

	// Then the stored and returned content are censored
	req.NoError(err)
	req.Equal("hello ******", message.Content)
	req.Equal("hello ******", stored.Content)

	// And bob was notified over his live connection
	frames := bobSink.frames()
	req.Len(frames, 1)
	req.Equal(event.TypeNewMessage, frames[0].Type)
	req.JSONEq(`{"text":"hello ******","sender_id":"alice"}`, string(frames[0].Data))
}

func TestConversationService_PostMessage_Requires_Membership(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	f.conversationRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "intruder").Return(false, nil)

	_, err := f.svc.PostMessage("conv1", "intruder", "hello")
	req.ErrorIs(err, errors.ErrNotAMember)
}

func TestConversationService_MarkRead_Relays_To_Members(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)

	bobSink := &fakeSink{}
	f.registry.Register(realtime.NewSession("bob", "conv1", bobSink))

	f.conversationRepo.EXPECT().IsMember(domain.ConversationID("conv1"), "alice").Return(true, nil)
	f.conversationRepo.EXPECT().MarkRead(domain.ConversationID("conv1"), "alice", "msg-7").Return(nil)

	req.NoError(f.svc.MarkRead("conv1", "alice", "msg-7"))

	frames := bobSink.frames()
	req.Len(frames, 1)
	req.Equal(event.TypeMessageRead, frames[0].Type)
	req.Equal("msg-7", frames[0].MessageID)
}
