//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"collab-chat/domain"
	"collab-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

type IConversationRepository interface {
	Create(conversation domain.Conversation) error
	Get(id domain.ConversationID) (domain.Conversation, error)
	IsMember(id domain.ConversationID, userID string) (bool, error)
	Join(id domain.ConversationID, userID string) error
	Leave(id domain.ConversationID, userID string) error
	ListForUser(userID string) ([]domain.Conversation, error)
	Members(id domain.ConversationID) ([]string, error)
	MarkRead(id domain.ConversationID, userID, messageID string) error
	ReadMarker(id domain.ConversationID, userID string) (string, error)
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) IConversationRepository {
	return &ConversationRepository{db: db, log: log}
}

// diskConversation is the stored shape of a conversation record.
// Membership lives in dedicated keys, not in this record, so joins and
// leaves never rewrite the conversation itself.
type diskConversation struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Key layout:
//
//	conv:{id}                 -> conversation record
//	member:{id}:{user}        -> membership marker (prefix scan lists members)
//	uconv:{user}:{id}         -> reverse index (prefix scan lists a user's conversations)
//	read:{id}:{user}          -> last read message ID
func convKey(id domain.ConversationID) []byte {
	return []byte("conv:" + id.String())
}

func memberKey(id domain.ConversationID, userID string) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", id, userID))
}

func userConvKey(userID string, id domain.ConversationID) []byte {
	return []byte(fmt.Sprintf("uconv:%s:%s", userID, id))
}

func readKey(id domain.ConversationID, userID string) []byte {
	return []byte(fmt.Sprintf("read:%s:%s", id, userID))
}

// Create persists the conversation record and its initial membership in one
// transaction. It fails if the ID is already taken.
func (c ConversationRepository) Create(conversation domain.Conversation) error {
	record := diskConversation{
		ID:          conversation.ID.String(),
		Kind:        string(conversation.Kind),
		Name:        conversation.Name,
		Description: conversation.Description,
		CreatedBy:   conversation.CreatedBy,
		CreatedAt:   conversation.CreatedAt,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		key := convKey(conversation.ID)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrConversationExists
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		for _, userID := range conversation.Participants {
			if err := txn.Set(memberKey(conversation.ID, userID), nil); err != nil {
				return err
			}
			if err := txn.Set(userConvKey(userID, conversation.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c ConversationRepository) Get(id domain.ConversationID) (domain.Conversation, error) {
	var record diskConversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(convKey(id))
		if err != nil {
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrUnknownConversation
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return domain.Conversation{}, err
	}

	members, err := c.Members(id)
	if err != nil {
		return domain.Conversation{}, err
	}

	return domain.Conversation{
		ID:           domain.ConversationID(record.ID),
		Kind:         domain.ConversationKind(record.Kind),
		Name:         record.Name,
		Description:  record.Description,
		CreatedBy:    record.CreatedBy,
		Participants: members,
		CreatedAt:    record.CreatedAt,
	}, nil
}

func (c ConversationRepository) IsMember(id domain.ConversationID, userID string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(id, userID))
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Join adds the user to an existing conversation. Joining twice is a no-op.
func (c ConversationRepository) Join(id domain.ConversationID, userID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(convKey(id)); err != nil {
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				return errors.ErrUnknownConversation
			}
			return err
		}
		if err := txn.Set(memberKey(id, userID), nil); err != nil {
			return err
		}
		return txn.Set(userConvKey(userID, id), nil)
	})
}

// Leave removes the membership markers. The read marker is kept so a user
// rejoining the conversation resumes where they left off.
func (c ConversationRepository) Leave(id domain.ConversationID, userID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(memberKey(id, userID)); err != nil {
			return err
		}
		return txn.Delete(userConvKey(userID, id))
	})
}

// ListForUser scans the reverse index and loads each conversation record.
func (c ConversationRepository) ListForUser(userID string) ([]domain.Conversation, error) {
	prefixStr := fmt.Sprintf("uconv:%s:", userID)
	var ids []domain.ConversationID
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, domain.ConversationID(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	conversations := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		conversation, err := c.Get(id)
		if err != nil {
			// A dangling index entry should not break the whole listing
			if stderrors.Is(err, errors.ErrUnknownConversation) {
				c.log.Warn("Dangling conversation index entry", "conversation", id, "user", userID)
				continue
			}
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

// Members lists the user IDs subscribed to a conversation via a prefix scan.
func (c ConversationRepository) Members(id domain.ConversationID) ([]string, error) {
	prefixStr := fmt.Sprintf("member:%s:", id)
	var members []string
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			members = append(members, string(key[len(prefix):]))
		}
		return nil
	})
	return members, err
}

func (c ConversationRepository) MarkRead(id domain.ConversationID, userID, messageID string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(readKey(id, userID), []byte(messageID))
	})
}

// ReadMarker returns the last read message ID, or "" when the user has
// never marked anything read in this conversation.
func (c ConversationRepository) ReadMarker(id domain.ConversationID, userID string) (string, error) {
	var marker string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(readKey(id, userID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			marker = string(val)
			return nil
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	return marker, err
}
