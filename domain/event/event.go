package event

import "chat-relay/domain"

// DomainEvent is anything the relay pushes to a connected client.
// Delivery is at-most-once: a sink may drop an event, the system's
// correctness never depends on a push landing.
type DomainEvent interface {
	Kind() string
}

const (
	KindPresenceChanged = "presenceChanged"
	KindNewMessage      = "newMessage"
)

// PresenceChanged carries the full snapshot of online user IDs.
// It is broadcast to every open session on each membership change.
type PresenceChanged struct {
	Online []string
}

func (PresenceChanged) Kind() string { return KindPresenceChanged }

// NewMessage carries a freshly persisted message, pushed to the
// receiver's session only.
type NewMessage struct {
	Message domain.Message
}

func (NewMessage) Kind() string { return KindNewMessage }
