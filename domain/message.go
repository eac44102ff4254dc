// Package domain contains core concepts of the chat system.
// This file defines Message records and related rules.
// Messages are created once and only their seen flag may change.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-relay/errors"
)

// Message is one direct message between two users.
// A message carries a text, an image reference, or both.
// Seen flips from false to true exactly once and never reverts.
type Message struct {
	ID         uuid.UUID
	SenderID   string
	ReceiverID string
	Text       string
	Image      string
	CreatedAt  time.Time
	Seen       bool
}

// NewMessage builds a validated message with a fresh ID and timestamp.
func NewMessage(senderID, receiverID, text, image string) (Message, error) {
	if text == "" && image == "" {
		return Message{}, errors.ErrEmptyMessage
	}
	return Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Image:      image,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ConversationKey returns the single key shared by both directions of a
// user pair. The pair is unordered, so the two IDs are sorted before
// joining to guarantee one conversation per pair.
func ConversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return strings.Join([]string{userA, userB}, "|")
}
