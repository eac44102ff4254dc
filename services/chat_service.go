package services

import (
	"context"
	"fmt"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/images"
	"chat-relay/runtime"
)

type IChatService interface {
	Connect(userID string, sink contract.EventSink)
	Disconnect(userID string, sink contract.EventSink)
	Send(ctx context.Context, senderID, receiverID, text, imagePayload string) (domain.Message, error)
	History(userID, otherID string) ([]domain.Message, error)
	Sidebar(userID string) (SidebarData, error)
	MarkMessageSeen(messageID string) error
}

// SidebarData feeds the client's contact list: every other user plus a
// badge count per conversation with unread messages.
type SidebarData struct {
	Users          []domain.User
	UnseenMessages map[string]int
}

type ChatService struct {
	relay    *runtime.Relay
	users    contract.IUserRepository
	messages contract.IMessageRepository
	images   *images.Store
}

func NewChatService(relay *runtime.Relay, users contract.IUserRepository,
	messages contract.IMessageRepository, images *images.Store) *ChatService {
	return &ChatService{relay: relay, users: users, messages: messages, images: images}
}

func (s *ChatService) Connect(userID string, sink contract.EventSink) {
	s.relay.Connect(userID, sink)
}

func (s *ChatService) Disconnect(userID string, sink contract.EventSink) {
	s.relay.Disconnect(userID, sink)
}

// Send resolves the receiver, stores any inline image payload, and hands
// the message to the relay. Persistence decides success; live delivery
// is the relay's best-effort concern.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID, text, imagePayload string) (domain.Message, error) {
	if _, err := s.users.GetUserByID(receiverID); err != nil {
		return domain.Message{}, fmt.Errorf("resolving receiver: %w", err)
	}

	var imageRef string
	if imagePayload != "" {
		ref, err := s.images.Save(imagePayload)
		if err != nil {
			return domain.Message{}, err
		}
		imageRef = ref
	}

	return s.relay.Send(ctx, senderID, receiverID, text, imageRef)
}

func (s *ChatService) History(userID, otherID string) ([]domain.Message, error) {
	return s.relay.History(userID, otherID)
}

func (s *ChatService) Sidebar(userID string) (SidebarData, error) {
	users, err := s.users.ListUsersExcept(userID)
	if err != nil {
		return SidebarData{}, fmt.Errorf("listing users: %w", err)
	}
	counts, err := s.messages.UnseenCounts(userID)
	if err != nil {
		return SidebarData{}, fmt.Errorf("counting unseen messages: %w", err)
	}
	return SidebarData{Users: users, UnseenMessages: counts}, nil
}

func (s *ChatService) MarkMessageSeen(messageID string) error {
	return s.messages.MarkSeen(messageID)
}
