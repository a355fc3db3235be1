//go:generate go run go.uber.org/mock/mockgen -source=conversation_service.go -destination=../mocks/mock_conversation_service.go -package=mocks
package services

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"collab-chat/domain"
	"collab-chat/domain/event"
	"collab-chat/errors"
	"collab-chat/moderation"
	"collab-chat/observability"
	"collab-chat/realtime"
	"collab-chat/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IConversationService interface {
	CreateDirect(userID, otherUserID string) (domain.Conversation, error)
	CreateGroup(name, description, createdBy string, participants []string) (domain.Conversation, error)
	Join(id domain.ConversationID, userID string) error
	Leave(id domain.ConversationID, userID string) error
	List(userID string) ([]domain.Conversation, error)
	GetMessages(id domain.ConversationID, userID string, cursor *string) ([]repositories.DiskMessage, *string, error)
	PostMessage(id domain.ConversationID, userID, content string) (domain.Message, error)
	MarkRead(id domain.ConversationID, userID, messageID string) error
}

// ConversationService is the request/response face of the chat: everything a
// client does outside of a live connection. Mutations that affect members
// are also announced over the realtime layer.
type ConversationService struct {
	log              *slog.Logger
	conversationRepo repositories.IConversationRepository
	messageRepo      repositories.IMessageRepository
	broadcaster      *realtime.Broadcaster
	moderator        *moderation.Moderator
	stats            *observability.StatsManager
}

func NewConversationService(
	log *slog.Logger,
	conversationRepo repositories.IConversationRepository,
	messageRepo repositories.IMessageRepository,
	broadcaster *realtime.Broadcaster,
	moderator *moderation.Moderator,
	stats *observability.StatsManager,
) *ConversationService {
	return &ConversationService{
		log:              log,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		broadcaster:      broadcaster,
		moderator:        moderator,
		stats:            stats,
	}
}

// directID derives a stable conversation ID for a user pair, so the same
// two users always land in the same direct conversation.
func directID(userA, userB string) domain.ConversationID {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return domain.ConversationID(fmt.Sprintf("dm:%s:%s", pair[0], pair[1]))
}

// CreateDirect opens (or reuses) the direct conversation between two users.
func (s *ConversationService) CreateDirect(userID, otherUserID string) (domain.Conversation, error) {
	id := directID(userID, otherUserID)
	conversation := domain.NewDirectConversation(id, userID, otherUserID, time.Now().UTC())

	err := s.conversationRepo.Create(conversation)
	if err != nil {
		if stderrors.Is(err, errors.ErrConversationExists) {
			return s.conversationRepo.Get(id)
		}
		return domain.Conversation{}, err
	}
	s.log.Info("Direct conversation created", "conversation_id", id)
	return conversation, nil
}

func (s *ConversationService) CreateGroup(name, description, createdBy string,
	participants []string) (domain.Conversation, error) {
	members := lo.Uniq(append(participants, createdBy))
	conversation := domain.NewGroupConversation(
		domain.ConversationID(uuid.New().String()), name, description, createdBy,
		members, time.Now().UTC())

	if err := s.conversationRepo.Create(conversation); err != nil {
		return domain.Conversation{}, err
	}
	s.log.Info("Group conversation created",
		"conversation_id", conversation.ID, "name", name, "members", len(members))
	return conversation, nil
}

func (s *ConversationService) Join(id domain.ConversationID, userID string) error {
	if err := s.conversationRepo.Join(id, userID); err != nil {
		return err
	}
	s.log.Info("User joined group", "conversation_id", id, "user_id", userID)
	return nil
}

func (s *ConversationService) Leave(id domain.ConversationID, userID string) error {
	if err := s.conversationRepo.Leave(id, userID); err != nil {
		return err
	}
	s.log.Info("User left group", "conversation_id", id, "user_id", userID)
	return nil
}

func (s *ConversationService) List(userID string) ([]domain.Conversation, error) {
	return s.conversationRepo.ListForUser(userID)
}

// GetMessages pages through history, newest first. Membership is enforced
// here so the repository stays policy-free.
func (s *ConversationService) GetMessages(id domain.ConversationID, userID string,
	cursor *string) ([]repositories.DiskMessage, *string, error) {
	isMember, err := s.conversationRepo.IsMember(id, userID)
	if err != nil {
		return nil, nil, err
	}
	if !isMember {
		return nil, nil, errors.ErrNotAMember
	}
	return s.messageRepo.GetMessages(id, cursor)
}

// PostMessage is the HTTP path for sending: same moderation and persistence
// as the live path, followed by a fan-out to the connected members.
func (s *ConversationService) PostMessage(id domain.ConversationID, userID,
	content string) (domain.Message, error) {
	isMember, err := s.conversationRepo.IsMember(id, userID)
	if err != nil {
		return domain.Message{}, err
	}
	if !isMember {
		return domain.Message{}, errors.ErrNotAMember
	}

	sanitized, matched := s.moderator.Censor(content)
	if len(matched) > 0 {
		s.log.Info("Censored message content",
			"user_id", userID, "conversation_id", id, "words", matched)
	}

	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: id,
		SenderID:       userID,
		Content:        sanitized,
		Kind:           "text",
		CreatedAt:      time.Now().UTC(),
	}
	disk := repositories.DiskMessage{
		ID:           message.ID,
		Conversation: message.ConversationID,
		Author:       message.SenderID,
		Content:      message.Content,
		Kind:         message.Kind,
		At:           message.CreatedAt,
	}
	if err := s.messageRepo.StoreMessage(disk); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	s.stats.IncrMessagesStored()

	data, err := json.Marshal(map[string]string{"text": sanitized, "sender_id": userID})
	if err != nil {
		return domain.Message{}, err
	}
	s.broadcaster.BroadcastToConversation(id, event.NewMessage(data), userID)

	return message, nil
}

func (s *ConversationService) MarkRead(id domain.ConversationID, userID, messageID string) error {
	isMember, err := s.conversationRepo.IsMember(id, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return errors.ErrNotAMember
	}
	if err := s.conversationRepo.MarkRead(id, userID, messageID); err != nil {
		return err
	}
	s.broadcaster.BroadcastToConversation(id, event.MessageRead(userID, messageID), userID)
	return nil
}
