//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"relay-lab/domain"

	"github.com/dgraph-io/badger/v4"
)

// IMessageRepository is the persistence gateway's message store. Consumed by
// the REST write path only; the real-time relay never calls into it.
type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetConversation(userA, userB string) ([]domain.Message, error)
	MarkConversationRead(senderID, recipientID string) error
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// conversationKey builds a direction-independent prefix so both sides of a
// conversation share one key range. User IDs are ordered lexically.
func conversationKey(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("msg:%s|%s:", userA, userB)
}

// StoreMessage persists a message in BadgerDB.
// The key is "msg:{pair}:{timestamp_padded}:{uuid}" so that:
//  1. A prefix scan yields one conversation in chronological order
//     (19-digit zero padding keeps lexicographic order equal to time order).
//  2. The UUID disambiguates two messages stored in the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := fmt.Sprintf("%s%019d:%s",
		conversationKey(message.SenderID, message.RecipientID),
		message.CreatedAt.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetConversation returns the messages exchanged between two users, oldest
// first, capped at the configured limit.
func (m MessageRepository) GetConversation(userA, userB string) ([]domain.Message, error) {
	var messages []domain.Message
	prefix := []byte(conversationKey(userA, userB))

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages > 0 && len(messages) == m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", m.limitMessages))
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var message domain.Message
				if err := json.Unmarshal(val, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// MarkConversationRead flags every unread message from senderID to
// recipientID as read. Called when the recipient fetches the history,
// mirroring the REST read path.
func (m MessageRepository) MarkConversationRead(senderID, recipientID string) error {
	prefix := []byte(conversationKey(senderID, recipientID))

	return m.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			var message domain.Message
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}

			if message.Read || message.SenderID != senderID || message.RecipientID != recipientID {
				continue
			}
			message.Read = true

			bytes, err := json.Marshal(message)
			if err != nil {
				return err
			}
			if err := txn.Set(key, bytes); err != nil {
				return err
			}
		}
		return nil
	})
}

// MessageKeyPrefix is the inspector's scan prefix for stored messages.
const MessageKeyPrefix = "msg:"

// ShortConversation renders a stored key's conversation part for display.
func ShortConversation(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 2 {
		return key
	}
	return parts[1]
}
