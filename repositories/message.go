//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

const (
	messagePrefix = "msg:"
	unseenPrefix  = "unseen:"
	idPrefix      = "msgid:"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored representation of a domain.Message.
type diskMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Seen       bool      `json:"seen"`
}

// messageKey is formatted as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return fmt.Appendf(nil, "%s%s:%019d:%s",
		messagePrefix,
		domain.ConversationKey(m.SenderID, m.ReceiverID),
		m.CreatedAt.UnixNano(),
		m.ID,
	)
}

// unseenKey marks one undelivered-to-eyes message. The receiver comes
// first so a single prefix scan yields every badge for a user.
func unseenKey(receiverID, senderID, messageID string) []byte {
	return fmt.Appendf(nil, "%s%s:%s:%s", unseenPrefix, receiverID, senderID, messageID)
}

func idKey(messageID string) []byte {
	return append([]byte(idPrefix), messageID...)
}

// Store persists a message together with its unseen marker and its by-ID
// index entry in a single transaction. Self-addressed messages get no
// unseen marker: a user never carries a badge for their own chat.
func (m MessageRepository) Store(message domain.Message) error {
	data, err := json.Marshal(fromDomain(message))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	key := messageKey(message)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(idKey(message.ID.String()), key); err != nil {
			return err
		}
		if !message.Seen && message.SenderID != message.ReceiverID {
			return txn.Set(unseenKey(message.ReceiverID, message.SenderID, message.ID.String()), key)
		}
		return nil
	})
}

// Conversation returns every message between the pair sorted ascending by
// creation time. As a documented side effect it flips seen=true on each
// unseen message addressed to userID and clears the matching unseen
// markers, all inside one transaction so a concurrent UnseenCounts never
// observes a half-applied fetch.
func (m MessageRepository) Conversation(userID, otherID string) ([]domain.Message, error) {
	prefix := fmt.Appendf(nil, "%s%s:", messagePrefix, domain.ConversationKey(userID, otherID))

	var messages []domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		type pending struct {
			key  []byte
			data diskMessage
		}
		var toMark []pending

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var dm diskMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			}); err != nil {
				it.Close()
				return err
			}
			if dm.ReceiverID == userID && !dm.Seen {
				dm.Seen = true
				toMark = append(toMark, pending{key: item.KeyCopy(nil), data: dm})
			}
			message, err := toDomain(dm)
			if err != nil {
				it.Close()
				return err
			}
			messages = append(messages, message)
		}
		it.Close()

		// Writes happen after the iterator is released.
		for _, p := range toMark {
			data, err := json.Marshal(p.data)
			if err != nil {
				return err
			}
			if err := txn.Set(p.key, data); err != nil {
				return err
			}
			if err := txn.Delete(unseenKey(userID, p.data.SenderID, p.data.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// UnseenCounts is a pure read: one key-only prefix scan over the unseen
// markers of userID, grouped by sender. Seen state is only ever mutated
// by Conversation and MarkSeen.
func (m MessageRepository) UnseenCounts(userID string) (map[string]int, error) {
	prefix := fmt.Appendf(nil, "%s%s:", unseenPrefix, userID)
	counts := make(map[string]int)

	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key()[len(prefix):])
			sender, _, ok := strings.Cut(rest, ":")
			if !ok {
				m.log.Warn("Skipping malformed unseen marker", "key", string(it.Item().Key()))
				continue
			}
			counts[sender]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// MarkSeen flips a single message identified by its ID. Marking an
// already-seen message is a no-op, never a revert.
func (m MessageRepository) MarkSeen(messageID string) error {
	return m.db.Update(func(txn *badger.Txn) error {
		indexItem, err := txn.Get(idKey(messageID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrMessageNotFound
			}
			return err
		}
		key, err := indexItem.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var dm diskMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dm)
		}); err != nil {
			return err
		}
		if dm.Seen {
			return nil
		}
		dm.Seen = true
		data, err := json.Marshal(dm)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Delete(unseenKey(dm.ReceiverID, dm.SenderID, dm.ID))
	})
}

func fromDomain(m domain.Message) diskMessage {
	return diskMessage{
		ID:         m.ID.String(),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Text:       m.Text,
		Image:      m.Image,
		CreatedAt:  m.CreatedAt.UTC(),
		Seen:       m.Seen,
	}
}

func toDomain(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		SenderID:   dm.SenderID,
		ReceiverID: dm.ReceiverID,
		Text:       dm.Text,
		Image:      dm.Image,
		CreatedAt:  dm.CreatedAt.UTC(),
		Seen:       dm.Seen,
	}, nil
}
