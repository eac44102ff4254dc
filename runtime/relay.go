package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Relay coordinates the presence registry and the message store. It has
// no state of its own beyond the wiring: persistence is the durability
// boundary, live pushes are best-effort at-most-once.
type Relay struct {
	log         *slog.Logger
	registry    contract.IRegistry
	messages    contract.IMessageRepository
	sinkTimeout time.Duration
}

func NewRelay(log *slog.Logger, registry contract.IRegistry,
	messages contract.IMessageRepository, sinkTimeout time.Duration) *Relay {
	return &Relay{
		log:         log,
		registry:    registry,
		messages:    messages,
		sinkTimeout: sinkTimeout,
	}
}

// Connect registers a freshly authenticated session and tells every open
// session who is online now.
func (r *Relay) Connect(userID string, sink contract.EventSink) {
	r.registry.Register(userID, sink)
	r.log.Info("User connected", "user_id", userID)
	r.broadcastPresence()
}

// Disconnect tears the session down and re-broadcasts presence. The
// registry's stale-close guard makes this safe to call from a session
// that has already been superseded.
func (r *Relay) Disconnect(userID string, sink contract.EventSink) {
	r.registry.Deregister(userID, sink)
	r.log.Info("User disconnected", "user_id", userID)
	r.broadcastPresence()
}

// Send persists the message and then attempts one live delivery to the
// receiver's session. The returned message is authoritative whether or
// not the push lands: an offline or slow receiver is not an error.
func (r *Relay) Send(ctx context.Context, senderID, receiverID, text, image string) (domain.Message, error) {
	message, err := domain.NewMessage(senderID, receiverID, text, image)
	if err != nil {
		return domain.Message{}, err
	}
	if err := r.messages.Store(message); err != nil {
		return domain.Message{}, fmt.Errorf("storing message: %w", err)
	}

	if sink, online := r.registry.Lookup(receiverID); online {
		r.push(ctx, sink, event.NewMessage{Message: message})
	}
	return message, nil
}

// History returns the ordered conversation between the caller and the
// other user. Fetching implicitly marks the caller's unseen messages in
// that conversation as seen.
func (r *Relay) History(userID, otherID string) ([]domain.Message, error) {
	return r.messages.Conversation(userID, otherID)
}

// broadcastPresence pushes the current online set to every live session.
// The sink list is a snapshot, so a session closing mid-broadcast only
// costs its own dropped event.
func (r *Relay) broadcastPresence() {
	evt := event.PresenceChanged{Online: r.registry.Snapshot()}
	for _, sink := range r.registry.Sinks() {
		r.push(context.Background(), sink, evt)
	}
}

// push delivers one event with a short deadline. Failures are logged and
// swallowed: a dead client must never stall the relay for other users.
func (r *Relay) push(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	pushCtx, cancel := context.WithTimeout(ctx, r.sinkTimeout)
	defer cancel()
	if err := sink.Consume(pushCtx, evt); err != nil {
		r.log.Debug("Event push failed", "kind", evt.Kind(), "error", err)
	}
}
