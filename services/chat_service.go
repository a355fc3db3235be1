//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"encoding/json"
	"log/slog"
	"time"

	"collab-chat/contract"
	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/moderation"
	"collab-chat/observability"
	"collab-chat/realtime"
	"collab-chat/repositories"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

type IChatService interface {
	Authorize(conversationID domain.ConversationID, userID string) error
	Join(userID string, conversationID domain.ConversationID, sink contract.EventSink) *realtime.Session
	Leave(sess *realtime.Session)
	HandleInbound(sess *realtime.Session, raw []byte)
}

// ChatService drives one connection's life: admission, presence fan-out,
// inbound event dispatch, and teardown. It owns no connection state itself;
// the registry does.
type ChatService struct {
	log              *slog.Logger
	registry         *realtime.Registry
	broadcaster      *realtime.Broadcaster
	conversationRepo repositories.IConversationRepository
	messageRepo      repositories.IMessageRepository
	moderator        *moderation.Moderator
	stats            *observability.StatsManager
}

func NewChatService(
	log *slog.Logger,
	registry *realtime.Registry,
	broadcaster *realtime.Broadcaster,
	conversationRepo repositories.IConversationRepository,
	messageRepo repositories.IMessageRepository,
	moderator *moderation.Moderator,
	stats *observability.StatsManager,
) *ChatService {
	return &ChatService{
		log:              log,
		registry:         registry,
		broadcaster:      broadcaster,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		moderator:        moderator,
		stats:            stats,
	}
}

// Authorize checks that the user may attach to the conversation.
func (s *ChatService) Authorize(conversationID domain.ConversationID, userID string) error {
	isMember, err := s.conversationRepo.IsMember(conversationID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return errors.ErrNotAMember
	}
	return nil
}

// Join registers the connection and announces the user to the other members.
// A reconnect supersedes the previous connection: the old transport is
// closed here, after the registry swap, so the user is never observed as
// offline in between.
func (s *ChatService) Join(userID string, conversationID domain.ConversationID,
	sink contract.EventSink) *realtime.Session {
	sess := realtime.NewSession(userID, conversationID, sink)

	if superseded := s.registry.Register(sess); superseded != nil {
		s.log.Info("Connection superseded by reconnect", "user_id", userID)
		_ = superseded.Close()
	}

	s.stats.ConnectionOpened()
	s.log.Info("User joined conversation", "user_id", userID, "conversation_id", conversationID)

	// The joiner already knows they are online
	s.broadcaster.BroadcastToConversation(conversationID, event.UserOnline(userID), userID)
	return sess
}

// Leave tears the connection down: the registry entry goes first, then the
// offline announcement, so the departed user never receives it.
func (s *ChatService) Leave(sess *realtime.Session) {
	s.registry.Unregister(sess)
	s.stats.ConnectionClosed()

	// A superseded connection also lands here when its read pump exits.
	// The user still has a live session then, so no offline announcement.
	if s.registry.IsOnline(sess.UserID) {
		s.log.Debug("Stale connection released", "user_id", sess.UserID)
		return
	}
	s.log.Info("User left conversation", "user_id", sess.UserID, "conversation_id", sess.ConversationID)

	s.broadcaster.BroadcastToConversation(sess.ConversationID, event.UserOffline(sess.UserID), sess.UserID)
}

// HandleInbound dispatches one raw frame from a live connection. A malformed
// frame is logged and skipped; the connection stays up.
func (s *ChatService) HandleInbound(sess *realtime.Session, raw []byte) {
	in, err := event.DecodeInbound(raw)
	if err != nil {
		s.stats.IncrMalformedFrames()
		s.log.Warn("Skipping malformed frame", "user_id", sess.UserID, "error", err)
		return
	}

	switch in.Type {
	case event.TypeNewMessage:
		s.handleNewMessage(sess, in.Data)
	case event.TypeTypingStart:
		s.broadcaster.BroadcastToConversation(sess.ConversationID,
			event.TypingIndicator(sess.UserID, true), sess.UserID)
	case event.TypeTypingStop:
		s.broadcaster.BroadcastToConversation(sess.ConversationID,
			event.TypingIndicator(sess.UserID, false), sess.UserID)
	case event.TypeMessageRead:
		s.handleMessageRead(sess, in.Data)
	case event.TypePing:
		if err := sess.Send(mustMarshal(event.Pong())); err != nil {
			s.log.Warn("Failed to answer ping", "user_id", sess.UserID, "error", err)
		}
	default:
		s.log.Warn("Ignoring unknown event type", "user_id", sess.UserID, "type", in.Type)
	}
}

// handleNewMessage moderates, persists, then fans the message out to the
// other members. Persistence failure is reported to the sender only and
// nothing is broadcast.
func (s *ChatService) handleNewMessage(sess *realtime.Session, data json.RawMessage) {
	content, ok := extractContent(data)
	if !ok {
		s.stats.IncrMalformedFrames()
		s.log.Warn("new_message without content", "user_id", sess.UserID)
		return
	}

	sanitized, matched := s.moderator.Censor(content)
	if len(matched) > 0 {
		s.log.Info("Censored message content",
			"user_id", sess.UserID, "conversation_id", sess.ConversationID, "words", matched)
		data = patchContent(data, sanitized)
		content = sanitized
	}

	lang := whatlanggo.DetectLang(content)
	s.log.Debug("Detected message language",
		"user_id", sess.UserID, "language", lang.String())

	disk := repositories.DiskMessage{
		ID:           uuid.New(),
		Conversation: sess.ConversationID,
		Author:       sess.UserID,
		Content:      content,
		Kind:         "text",
		At:           time.Now().UTC(),
	}
	if err := s.messageRepo.StoreMessage(disk); err != nil {
		s.log.Error("Failed to persist message",
			"user_id", sess.UserID, "conversation_id", sess.ConversationID, "error", err)
		if sendErr := sess.Send(mustMarshal(event.Error("message could not be stored"))); sendErr != nil {
			s.log.Warn("Failed to report storage error to sender", "user_id", sess.UserID, "error", sendErr)
		}
		return
	}
	s.stats.IncrMessagesStored()

	s.broadcaster.BroadcastToConversation(sess.ConversationID, event.NewMessage(data), sess.UserID)
}

// handleMessageRead records the read marker and relays the acknowledgement
// to the other members.
func (s *ChatService) handleMessageRead(sess *realtime.Session, data json.RawMessage) {
	var read event.MessageReadData
	if err := json.Unmarshal(data, &read); err != nil || read.MessageID == "" {
		s.stats.IncrMalformedFrames()
		s.log.Warn("message_read without message_id", "user_id", sess.UserID)
		return
	}

	if err := s.conversationRepo.MarkRead(sess.ConversationID, sess.UserID, read.MessageID); err != nil {
		s.log.Error("Failed to persist read marker",
			"user_id", sess.UserID, "conversation_id", sess.ConversationID, "error", err)
	}

	s.broadcaster.BroadcastToConversation(sess.ConversationID,
		event.MessageRead(sess.UserID, read.MessageID), sess.UserID)
}

// extractContent pulls the message text out of a client payload. Both
// "content" and "text" are accepted.
func extractContent(data json.RawMessage) (string, bool) {
	var payload struct {
		Content *string `json:"content"`
		Text    *string `json:"text"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", false
	}
	if payload.Content != nil {
		return *payload.Content, true
	}
	if payload.Text != nil {
		return *payload.Text, true
	}
	return "", false
}

// patchContent rewrites the text field of the payload in place, preserving
// any other fields the client sent.
func patchContent(data json.RawMessage, sanitized string) json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return data
	}
	encoded, err := json.Marshal(sanitized)
	if err != nil {
		return data
	}
	if _, ok := fields["content"]; ok {
		fields["content"] = encoded
	} else {
		fields["text"] = encoded
	}
	patched, err := json.Marshal(fields)
	if err != nil {
		return data
	}
	return patched
}

// Timestamps for direct sends are stamped here since they bypass the
// broadcaster.
func mustMarshal(evt event.Outbound) []byte {
	evt.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		// Outbound only carries marshalable fields
		panic(err)
	}
	return payload
}
